package ports

import (
	"context"

	producttypes "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
)

// Service defines the product catalog use cases exposed to adapters.
type Service interface {
	CreateProduct(ctx context.Context, input producttypes.CreateProductInput) (*producttypes.ProductProjection, error)
	GetProduct(ctx context.Context, input producttypes.ProductIdentifier) (*producttypes.ProductProjection, error)
	ListProducts(ctx context.Context) ([]*producttypes.ProductProjection, error)
	UpdateProduct(ctx context.Context, input producttypes.UpdateProductInput) (*producttypes.ProductProjection, error)
	DecreaseStock(ctx context.Context, input producttypes.DecreaseStockInput) (*producttypes.ProductProjection, error)
}
