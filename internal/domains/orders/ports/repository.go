package ports

import (
	"context"
	"errors"

	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	productports "github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrConstraintViolation is returned when the store rejects a write.
	ErrConstraintViolation = errors.New("order violates a storage constraint")
)

// Repository persists orders and their product associations.
type Repository interface {
	Create(ctx context.Context, order *domain.Order) (*ordertypes.OrderProjection, error)
	Update(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*ordertypes.OrderProjection, error)
	// GetByIDForUpdate reads the order and holds its row lock until the
	// surrounding unit of work finishes.
	GetByIDForUpdate(ctx context.Context, id int64) (*ordertypes.OrderProjection, error)
	List(ctx context.Context, sort domain.Sort) ([]*ordertypes.OrderProjection, error)
	// LineItems returns the associations of an order ordered by product id.
	LineItems(ctx context.Context, orderID int64) ([]domain.LineItem, error)
	// FindLineItem returns ErrNotFound when the product is not associated yet.
	FindLineItem(ctx context.Context, orderID, productID int64) (domain.LineItem, error)
	SaveLineItem(ctx context.Context, line domain.LineItem) error
}

// CacheEvicter is implemented by repositories that cache orders. Writes made
// inside a unit of work bypass the cache, so callers evict once they commit.
type CacheEvicter interface {
	Evict(ctx context.Context, orderID int64) error
}

// TxScope exposes repositories bound to one transaction. Idempotency is nil
// when the unit of work has no transactional idempotency store.
type TxScope struct {
	Orders      Repository
	Products    productports.Repository
	Idempotency IdempotencyStore
}

// UnitOfWork runs fn in a transaction spanning orders and products. Returning
// an error from fn rolls every write back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx TxScope) error) error
}
