package memory

import (
	"context"
	"errors"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	productsmemory "github.com/Apurer/go-gin-storefront-api/internal/domains/products/adapters/memory"
	productports "github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
)

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork serializes transactions over the in-memory stores. Locks are
// always taken orders first, then products.
type UnitOfWork struct {
	orders   *Repository
	products *productsmemory.Repository
}

func NewUnitOfWork(orders *Repository, products *productsmemory.Repository) *UnitOfWork {
	return &UnitOfWork{orders: orders, products: products}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx ports.TxScope) error) error {
	if u == nil || u.orders == nil || u.products == nil {
		return errors.New("memory unit of work not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return u.orders.Atomically(func(orders ports.Repository) error {
		return u.products.Atomically(func(products productports.Repository) error {
			return fn(ctx, ports.TxScope{Orders: orders, Products: products})
		})
	})
}
