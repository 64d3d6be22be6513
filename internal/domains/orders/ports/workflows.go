package ports

import (
	"context"

	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
)

// WorkflowOrchestrator exposes durable workflow operations required by checkout.
type WorkflowOrchestrator interface {
	PlaceOrder(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.PlacedOrder, error)
}
