package ports

import (
	"context"
	"errors"

	producttypes "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
)

var (
	ErrNotFound = errors.New("product not found")
	// ErrConstraintViolation is returned when the store rejects a write.
	ErrConstraintViolation = errors.New("product violates a storage constraint")
)

// Repository persists product aggregates.
type Repository interface {
	Create(ctx context.Context, product *domain.Product) (*producttypes.ProductProjection, error)
	Update(ctx context.Context, product *domain.Product) (*producttypes.ProductProjection, error)
	GetByID(ctx context.Context, id int64) (*producttypes.ProductProjection, error)
	// GetByIDForUpdate loads a product and holds its row lock until the
	// surrounding transaction finishes.
	GetByIDForUpdate(ctx context.Context, id int64) (*producttypes.ProductProjection, error)
	List(ctx context.Context) ([]*producttypes.ProductProjection, error)
}

// Transactor runs fn with a repository bound to one transaction. Reads made
// through GetByIDForUpdate keep their lock until fn returns.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}
