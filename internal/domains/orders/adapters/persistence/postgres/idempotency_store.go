package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
)

var (
	_ ports.IdempotencyStore  = (*IdempotencyStore)(nil)
	_ ports.IdempotencyPurger = (*IdempotencyStore)(nil)
)

// IdempotencyStore persists checkout idempotency keys in PostgreSQL.
type IdempotencyStore struct {
	db *gorm.DB
}

// NewIdempotencyStore wires a PostgreSQL-backed idempotency store.
func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Get loads a record by key, returning nil when absent.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record idempotencyRecord
	if err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toPortRecord(&record), nil
}

// Save inserts the record; if the key already exists with the same hash and order it is returned,
// otherwise ErrIdempotencyConflict is returned with the stored record.
func (s *IdempotencyStore) Save(ctx context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	dbRecord := toDBRecord(record)
	// A savepoint keeps a duplicate key from aborting an enclosing transaction.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&dbRecord).Error
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		existing, getErr := s.Get(ctx, record.Key)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, err
		}
		if existing.RequestHash != record.RequestHash || existing.OrderID != record.OrderID {
			return existing, ports.ErrIdempotencyConflict
		}
		return existing, nil
	}
	return toPortRecord(&dbRecord), nil
}

// DeleteExpired removes one batch of keys created at or before the cutoff.
func (s *IdempotencyStore) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	db := s.db.WithContext(ctx)
	expired := db.Model(&idempotencyRecord{}).Select("key").Where("created_at <= ?", before)
	if limit > 0 {
		expired = expired.Limit(limit)
	}
	result := db.Where("key IN (?)", expired).Delete(&idempotencyRecord{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (s *IdempotencyStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres idempotency store not configured")
	}
	return nil
}

type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	OrderID     int64     `gorm:"column:order_id"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (idempotencyRecord) TableName() string { return "checkout_idempotency_keys" }

func toDBRecord(record ports.IdempotencyRecord) idempotencyRecord {
	return idempotencyRecord{
		Key:         record.Key,
		RequestHash: record.RequestHash,
		OrderID:     record.OrderID,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func toPortRecord(record *idempotencyRecord) *ports.IdempotencyRecord {
	if record == nil {
		return nil
	}
	return &ports.IdempotencyRecord{
		Key:         record.Key,
		RequestHash: record.RequestHash,
		OrderID:     record.OrderID,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}
