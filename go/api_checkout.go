package storefrontserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	orderhttpmapper "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/http/mapper"
	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	ordersports "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
)

// HeaderIdempotencyKey deduplicates retried checkouts.
const HeaderIdempotencyKey = "Idempotency-Key"

// CheckoutAPI places orders through the workflow orchestrator.
type CheckoutAPI struct {
	service   ordersports.Service
	workflows ordersports.WorkflowOrchestrator
}

// NewCheckoutAPI creates a CheckoutAPI. workflows may be nil, in which case the service is called directly.
func NewCheckoutAPI(service ordersports.Service, workflows ordersports.WorkflowOrchestrator) CheckoutAPI {
	return CheckoutAPI{service: service, workflows: workflows}
}

// Post /v1/checkout
// Create an order and associate all requested products atomically
func (api *CheckoutAPI) PlaceOrder(c *gin.Context) {
	var payload orderhttpmapper.Checkout
	if !bindJSON(c, &payload) {
		return
	}
	key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	placed, err := api.placeOrder(c.Request.Context(), orderhttpmapper.ToPlaceOrderInput(payload, key))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderhttpmapper.FromPlacedOrder(placed))
}

func (api *CheckoutAPI) placeOrder(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.PlacedOrder, error) {
	if api.workflows != nil {
		return api.workflows.PlaceOrder(ctx, input)
	}
	return api.service.PlaceOrder(ctx, input)
}
