package ports

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyConflict indicates the same key was used with a different checkout payload.
var ErrIdempotencyConflict = errors.New("idempotency conflict")

// IdempotencyRecord associates a client-supplied key with the order it produced.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OrderID     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IdempotencyStore persists idempotency keys so checkout retries can be replayed safely.
type IdempotencyStore interface {
	// Get returns the stored record for the key, or nil when unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Save persists the record; if the key already exists with the same hash and order, the stored record is returned.
	// When the key exists but points to a different request or order, ErrIdempotencyConflict is returned with the stored record.
	Save(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
}

// IdempotencyPurger removes checkout keys recorded at or before a cutoff.
type IdempotencyPurger interface {
	// DeleteExpired deletes at most limit records created at or before before and reports how many went.
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
