package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	productspostgres "github.com/Apurer/go-gin-storefront-api/internal/domains/products/adapters/persistence/postgres"
)

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs order and product writes inside one database transaction.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Do commits when fn returns nil and rolls back otherwise.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx ports.TxScope) error) error {
	if u == nil || u.db == nil {
		return errors.New("postgres unit of work not configured")
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, ports.TxScope{
			Orders:      NewRepository(tx),
			Products:    productspostgres.NewRepository(tx),
			Idempotency: NewIdempotencyStore(tx),
		})
	})
}
