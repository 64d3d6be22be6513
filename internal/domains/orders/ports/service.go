package ports

import (
	"context"

	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
)

// Service exposes order use cases to adapters (inbound/driving port).
type Service interface {
	CreateOrder(ctx context.Context, input ordertypes.CreateOrderInput) (*ordertypes.OrderProjection, error)
	UpdateOrder(ctx context.Context, input ordertypes.UpdateOrderInput) (*ordertypes.OrderProjection, error)
	FindOrderByID(ctx context.Context, input ordertypes.OrderIdentifier) (*ordertypes.OrderProjection, error)
	ListOrders(ctx context.Context, input ordertypes.ListOrdersInput) ([]*ordertypes.OrderProjection, error)
	FindProducts(ctx context.Context, input ordertypes.OrderIdentifier) ([]ordertypes.LineItemView, error)
	AssociateProduct(ctx context.Context, input ordertypes.AssociateProductInput) (*ordertypes.LineItemView, error)
	PlaceOrder(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.PlacedOrder, error)
}
