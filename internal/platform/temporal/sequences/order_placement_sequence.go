package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	orderactivities "github.com/Apurer/go-gin-storefront-api/internal/platform/temporal/activities/orders"
)

// RunOrderPlacementSequence commits the checkout and then announces it.
// A publish failure is logged but does not fail the sequence: the order is
// already committed at that point.
func RunOrderPlacementSequence(ctx workflow.Context, input ordertypes.PlaceOrderInput) (*ordertypes.PlacedOrder, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order placement sequence started", "lines", len(input.Lines))
	persistOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        10 * time.Second,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: orderactivities.NonRetryableErrorTypes,
		},
	}
	publishOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    10,
		},
	}

	var placed ordertypes.PlacedOrder
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, persistOptions), orderactivities.PersistOrderActivityName, input).Get(ctx, &placed)
	if err != nil {
		logger.Error("order placement sequence failed", "error", err)
		return nil, err
	}
	if placed.Order == nil || placed.Order.Entity == nil {
		logger.Info("order placement sequence persisted without projection")
		return &placed, nil
	}
	orderID := placed.Order.Entity.ID
	logger.Info("order placement sequence persisted", "orderId", orderID)

	event := placed.Event(workflow.Now(ctx))
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, publishOptions), orderactivities.PublishOrderPlacedActivityName, event).Get(ctx, nil); err != nil {
		logger.Error("order placement sequence publish failed", "orderId", orderID, "error", err)
		return &placed, nil
	}
	logger.Info("order placement sequence published", "orderId", orderID)
	return &placed, nil
}
