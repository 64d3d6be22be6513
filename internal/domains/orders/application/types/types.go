package types

import (
	"time"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	productdomain "github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/shared/projection"
)

// OrderProjection transports an order together with its persistence metadata.
type OrderProjection = projection.Projection[*domain.Order]

// OrderParams holds the order attributes accepted by create and update.
// Nil fields are left untouched.
type OrderParams struct {
	Reference     *string
	CustomerID    *int64
	AddressID     *int64
	CourierID     *int64
	Status        *string
	Payment       *string
	Discounts     *int64
	TotalProducts *int64
	Tax           *int64
	Total         *int64
	TotalPaid     *int64
	Invoice       *string
	Metadata      map[string]string
}

// CreateOrderInput captures the request to create an order.
type CreateOrderInput struct {
	OrderParams
}

// UpdateOrderInput applies a partial update to an existing order.
type UpdateOrderInput struct {
	ID int64
	OrderParams
}

// OrderIdentifier references an order by its aggregate ID.
type OrderIdentifier struct {
	ID int64
}

// ListOrdersInput selects the ordering of a listing. Empty values mean id/desc.
type ListOrdersInput struct {
	SortField     string
	SortDirection string
}

// AssociateProductInput adds a product to an order. A zero Quantity means one unit.
type AssociateProductInput struct {
	OrderID   int64
	ProductID int64
	Quantity  int32
}

// LineItemView is a product associated with an order plus the associated quantity.
type LineItemView struct {
	Product  *productdomain.Product
	Quantity int32
}

// CheckoutLine is one requested product in a checkout.
type CheckoutLine struct {
	ProductID int64
	Quantity  int32
}

// PlaceOrderInput creates an order and associates all lines atomically.
type PlaceOrderInput struct {
	OrderParams
	Lines []CheckoutLine
	// IdempotencyKey deduplicates retried checkouts when a durable orchestrator is used.
	IdempotencyKey string
}

// PlacedOrder is the outcome of a checkout.
type PlacedOrder struct {
	Order *OrderProjection
	Lines []LineItemView
}

// Event builds the OrderPlaced event for a committed checkout.
func (p *PlacedOrder) Event(at time.Time) domain.OrderPlaced {
	if p == nil || p.Order == nil {
		return domain.NewOrderPlaced(nil, nil, at)
	}
	lines := make([]domain.LineItem, 0, len(p.Lines))
	for _, line := range p.Lines {
		if line.Product == nil {
			continue
		}
		lines = append(lines, domain.LineItem{OrderID: p.Order.Entity.ID, ProductID: line.Product.ID, Quantity: line.Quantity})
	}
	return domain.NewOrderPlaced(p.Order.Entity, lines, at)
}
