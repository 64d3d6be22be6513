package types

import (
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/shared/projection"
)

// ProductProjection transports a product together with its persistence metadata.
type ProductProjection = projection.Projection[*domain.Product]

// ProductMutationInput carries the optional fields accepted by create and update.
type ProductMutationInput struct {
	SKU         *string
	Name        *string
	Description *string
	PriceMinor  *int64
	Quantity    *int32
	ImageURLs   *[]string
	Status      *string
}

// CreateProductInput registers a new product in the catalog.
type CreateProductInput struct {
	ProductMutationInput
}

// UpdateProductInput applies a partial update to an existing product.
type UpdateProductInput struct {
	ID int64
	ProductMutationInput
}

// ProductIdentifier references a product by its aggregate ID.
type ProductIdentifier struct {
	ID int64
}

// DecreaseStockInput removes units from a product's stock.
type DecreaseStockInput struct {
	ID       int64
	Quantity int32
}
