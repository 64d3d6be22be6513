package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
)

var (
	_ ports.IdempotencyStore  = (*IdempotencyStore)(nil)
	_ ports.IdempotencyPurger = (*IdempotencyStore)(nil)
)

// IdempotencyStore keeps checkout keys in memory when PostgreSQL is not configured.
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]ports.IdempotencyRecord
	now     func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		records: map[string]ports.IdempotencyRecord{},
		now:     time.Now,
	}
}

// WithClock overrides the timestamp source used for new records.
func (s *IdempotencyStore) WithClock(now func() time.Time) {
	if now == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[key]; ok {
		return &record, nil
	}
	return nil, nil
}

// Save stores a new key. A known key is returned unchanged, together with
// ErrIdempotencyConflict when it was recorded for another payload or order.
func (s *IdempotencyStore) Save(_ context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.records[record.Key]; ok {
		if stored.RequestHash == record.RequestHash && stored.OrderID == record.OrderID {
			return &stored, nil
		}
		return &stored, ports.ErrIdempotencyConflict
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	record.UpdatedAt = record.CreatedAt
	s.records[record.Key] = record
	return &record, nil
}

// DeleteExpired drops up to limit keys created at or before the cutoff; limit <= 0 means no cap.
func (s *IdempotencyStore) DeleteExpired(_ context.Context, before time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, record := range s.records {
		if limit > 0 && deleted >= limit {
			break
		}
		if record.CreatedAt.After(before) {
			continue
		}
		delete(s.records, key)
		deleted++
	}
	return deleted, nil
}
