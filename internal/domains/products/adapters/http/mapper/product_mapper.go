package mapper

import (
	"time"

	producttypes "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
)

// ProductMutation captures inbound create/update payloads while preserving field presence.
type ProductMutation struct {
	SKU         *string   `json:"sku,omitempty"`
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	PriceMinor  *int64    `json:"priceMinor,omitempty"`
	Quantity    *int32    `json:"quantity,omitempty"`
	ImageURLs   *[]string `json:"imageUrls,omitempty"`
	Status      *string   `json:"status,omitempty"`
}

// Product is the HTTP representation of a catalog product.
type Product struct {
	ID          int64     `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceMinor  int64     `json:"priceMinor"`
	Quantity    int32     `json:"quantity"`
	ImageURLs   []string  `json:"imageUrls"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// ToMutationInput maps a transport payload into the application mutation input.
func ToMutationInput(payload ProductMutation) producttypes.ProductMutationInput {
	input := producttypes.ProductMutationInput{
		SKU:         payload.SKU,
		Name:        payload.Name,
		Description: payload.Description,
		PriceMinor:  payload.PriceMinor,
		Quantity:    payload.Quantity,
		Status:      payload.Status,
	}
	if payload.ImageURLs != nil {
		urls := append([]string{}, (*payload.ImageURLs)...)
		input.ImageURLs = &urls
	}
	return input
}

// FromDomainProduct maps a product aggregate without persistence metadata.
func FromDomainProduct(p *domain.Product) Product {
	if p == nil {
		return Product{}
	}
	urls := append([]string{}, p.ImageURLs...)
	return Product{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		PriceMinor:  p.PriceMinor,
		Quantity:    p.Quantity,
		ImageURLs:   urls,
		Status:      string(p.Status),
	}
}

// FromProjection maps a projection including timestamps.
func FromProjection(p *producttypes.ProductProjection) Product {
	if p == nil {
		return Product{}
	}
	out := FromDomainProduct(p.Entity)
	out.CreatedAt = p.Metadata.CreatedAt
	out.UpdatedAt = p.Metadata.UpdatedAt
	return out
}

// FromProjectionList maps a slice of projections.
func FromProjectionList(items []*producttypes.ProductProjection) []Product {
	out := make([]Product, 0, len(items))
	for _, item := range items {
		out = append(out, FromProjection(item))
	}
	return out
}
