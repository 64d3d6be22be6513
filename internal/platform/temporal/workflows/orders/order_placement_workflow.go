package orders

import (
	"go.temporal.io/sdk/workflow"

	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/platform/temporal/sequences"
)

const (
	// OrderPlacementWorkflowName is the public identifier for registering the workflow.
	OrderPlacementWorkflowName = "orders.workflows.Placement"
	// OrderPlacementTaskQueue is the queue consumed by the worker processing checkouts.
	OrderPlacementTaskQueue = "ORDER_PLACEMENT"
)

// OrderPlacementWorkflowInput captures the checkout command plus the caller's trace.
type OrderPlacementWorkflowInput struct {
	Command ordertypes.PlaceOrderInput
	TraceID string
}

// OrderPlacementWorkflow orchestrates the checkout activities.
func OrderPlacementWorkflow(ctx workflow.Context, input OrderPlacementWorkflowInput) (*ordertypes.PlacedOrder, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("OrderPlacementWorkflow started", withTraceID(input.TraceID, "lines", len(input.Command.Lines))...)
	placed, err := sequences.RunOrderPlacementSequence(ctx, input.Command)
	if err != nil {
		logger.Error("OrderPlacementWorkflow failed", withTraceID(input.TraceID, "error", err)...)
		return nil, err
	}
	if placed != nil && placed.Order != nil && placed.Order.Entity != nil {
		logger.Info("OrderPlacementWorkflow completed", withTraceID(input.TraceID, "orderId", placed.Order.Entity.ID)...)
	} else {
		logger.Info("OrderPlacementWorkflow completed", withTraceID(input.TraceID)...)
	}
	return placed, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
