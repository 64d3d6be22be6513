package mapper

import (
	"maps"
	"time"

	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	productmapper "github.com/Apurer/go-gin-storefront-api/internal/domains/products/adapters/http/mapper"
)

// OrderParams is the inbound order payload. Absent fields are left untouched.
type OrderParams struct {
	Reference     *string           `json:"reference,omitempty"`
	CustomerID    *int64            `json:"customerId,omitempty"`
	AddressID     *int64            `json:"addressId,omitempty"`
	CourierID     *int64            `json:"courierId,omitempty"`
	Status        *string           `json:"status,omitempty"`
	Payment       *string           `json:"payment,omitempty"`
	Discounts     *int64            `json:"discounts,omitempty"`
	TotalProducts *int64            `json:"totalProducts,omitempty"`
	Tax           *int64            `json:"tax,omitempty"`
	Total         *int64            `json:"total,omitempty"`
	TotalPaid     *int64            `json:"totalPaid,omitempty"`
	Invoice       *string           `json:"invoice,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Order is the HTTP representation of an order.
type Order struct {
	ID            int64             `json:"id"`
	Reference     string            `json:"reference"`
	CustomerID    int64             `json:"customerId"`
	AddressID     int64             `json:"addressId,omitempty"`
	CourierID     int64             `json:"courierId,omitempty"`
	Status        string            `json:"status"`
	Payment       string            `json:"payment,omitempty"`
	Discounts     int64             `json:"discounts"`
	TotalProducts int64             `json:"totalProducts"`
	Tax           int64             `json:"tax"`
	Total         int64             `json:"total"`
	TotalPaid     int64             `json:"totalPaid"`
	Invoice       string            `json:"invoice,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt,omitempty"`
	UpdatedAt     time.Time         `json:"updatedAt,omitempty"`
}

// LineItem is a product associated with an order.
type LineItem struct {
	Product  productmapper.Product `json:"product"`
	Quantity int32                 `json:"quantity"`
}

// AssociateProduct is the payload for adding a product to an order.
// A missing quantity means one unit.
type AssociateProduct struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int32 `json:"quantity,omitempty"`
}

// CheckoutLine is one requested product in a checkout.
type CheckoutLine struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int32 `json:"quantity,omitempty"`
}

// Checkout creates an order with its lines in one call.
type Checkout struct {
	OrderParams
	Lines []CheckoutLine `json:"lines" binding:"required,min=1,dive"`
}

// PlacedOrder is the checkout response.
type PlacedOrder struct {
	Order Order      `json:"order"`
	Lines []LineItem `json:"lines"`
}

// ToOrderParams maps a transport payload into the application parameters.
func ToOrderParams(payload OrderParams) ordertypes.OrderParams {
	return ordertypes.OrderParams{
		Reference:     payload.Reference,
		CustomerID:    payload.CustomerID,
		AddressID:     payload.AddressID,
		CourierID:     payload.CourierID,
		Status:        payload.Status,
		Payment:       payload.Payment,
		Discounts:     payload.Discounts,
		TotalProducts: payload.TotalProducts,
		Tax:           payload.Tax,
		Total:         payload.Total,
		TotalPaid:     payload.TotalPaid,
		Invoice:       payload.Invoice,
		Metadata:      maps.Clone(payload.Metadata),
	}
}

// ToPlaceOrderInput maps a checkout payload plus the idempotency header.
func ToPlaceOrderInput(payload Checkout, idempotencyKey string) ordertypes.PlaceOrderInput {
	lines := make([]ordertypes.CheckoutLine, 0, len(payload.Lines))
	for _, line := range payload.Lines {
		lines = append(lines, ordertypes.CheckoutLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return ordertypes.PlaceOrderInput{
		OrderParams:    ToOrderParams(payload.OrderParams),
		Lines:          lines,
		IdempotencyKey: idempotencyKey,
	}
}

// FromProjection maps an order projection into its transport form.
func FromProjection(p *ordertypes.OrderProjection) Order {
	if p == nil || p.Entity == nil {
		return Order{}
	}
	o := p.Entity
	return Order{
		ID:            o.ID,
		Reference:     o.Reference,
		CustomerID:    o.CustomerID,
		AddressID:     o.AddressID,
		CourierID:     o.CourierID,
		Status:        string(o.Status),
		Payment:       o.Payment,
		Discounts:     o.Discounts,
		TotalProducts: o.TotalProducts,
		Tax:           o.Tax,
		Total:         o.Total,
		TotalPaid:     o.TotalPaid,
		Invoice:       o.Invoice,
		Metadata:      maps.Clone(o.Metadata),
		CreatedAt:     p.Metadata.CreatedAt,
		UpdatedAt:     p.Metadata.UpdatedAt,
	}
}

// FromProjectionList maps a slice of order projections.
func FromProjectionList(items []*ordertypes.OrderProjection) []Order {
	out := make([]Order, 0, len(items))
	for _, item := range items {
		out = append(out, FromProjection(item))
	}
	return out
}

// FromLineItem maps a product association.
func FromLineItem(view ordertypes.LineItemView) LineItem {
	return LineItem{Product: productmapper.FromDomainProduct(view.Product), Quantity: view.Quantity}
}

// FromLineItems maps the products of an order.
func FromLineItems(views []ordertypes.LineItemView) []LineItem {
	out := make([]LineItem, 0, len(views))
	for _, view := range views {
		out = append(out, FromLineItem(view))
	}
	return out
}

// FromPlacedOrder maps a checkout result.
func FromPlacedOrder(placed *ordertypes.PlacedOrder) PlacedOrder {
	if placed == nil {
		return PlacedOrder{Lines: []LineItem{}}
	}
	return PlacedOrder{Order: FromProjection(placed.Order), Lines: FromLineItems(placed.Lines)}
}
