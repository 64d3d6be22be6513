package orders

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	ordersapp "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application"
	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	ordersports "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
)

const (
	// PersistOrderActivityName commits the order and its line items in one transaction.
	PersistOrderActivityName = "orders.activities.PersistOrder"
	// PublishOrderPlacedActivityName emits the OrderPlaced event for a committed order.
	PublishOrderPlacedActivityName = "orders.activities.PublishOrderPlaced"
)

// Application error types carried across the Temporal boundary.
const (
	ErrorTypeInvalidArgument     = "InvalidArgument"
	ErrorTypeNotFound            = "NotFound"
	ErrorTypeProductNotFound     = "ProductNotFound"
	ErrorTypeStockUpdateFailed   = "StockUpdateFailed"
	ErrorTypeIdempotencyConflict = "IdempotencyConflict"
)

var errorTypes = []struct {
	name     string
	sentinel error
}{
	// Stock failures may wrap product not found, so they are matched first.
	{ErrorTypeStockUpdateFailed, ordersapp.ErrStockUpdateFailed},
	{ErrorTypeInvalidArgument, ordersapp.ErrInvalidArgument},
	{ErrorTypeIdempotencyConflict, ordersapp.ErrIdempotencyConflict},
	{ErrorTypeProductNotFound, ordersapp.ErrProductNotFound},
	{ErrorTypeNotFound, ordersapp.ErrNotFound},
}

// NonRetryableErrorTypes lists the business failures a retry cannot fix.
var NonRetryableErrorTypes = []string{
	ErrorTypeInvalidArgument,
	ErrorTypeNotFound,
	ErrorTypeProductNotFound,
	ErrorTypeStockUpdateFailed,
	ErrorTypeIdempotencyConflict,
}

// Activities groups activities that operate on the orders bounded context.
type Activities struct {
	service   ordersports.Service
	publisher ordersports.EventPublisher
}

// NewActivities wires the orders collaborators into the Temporal activities bundle.
func NewActivities(service ordersports.Service, publisher ordersports.EventPublisher) *Activities {
	if publisher == nil {
		publisher = ordersports.NoopPublisher{}
	}
	return &Activities{service: service, publisher: publisher}
}

// PersistOrder runs the checkout transaction. Without a caller supplied key the
// workflow ID is used so activity retries replay instead of placing twice.
func (a *Activities) PersistOrder(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.PlacedOrder, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("order persist activity not initialized")
		return nil, errors.New("order persist activity not initialized")
	}
	if input.IdempotencyKey == "" {
		input.IdempotencyKey = "workflow:" + activity.GetInfo(ctx).WorkflowExecution.ID
	}
	logger.Info("PersistOrder activity started", "lines", len(input.Lines))
	placed, err := a.service.PlaceOrder(ctx, input)
	if err != nil {
		logger.Error("PersistOrder activity failed", "error", err)
		return nil, ClassifyError(err)
	}
	if placed != nil && placed.Order != nil && placed.Order.Entity != nil {
		logger.Info("PersistOrder activity completed", "orderId", placed.Order.Entity.ID)
	} else {
		logger.Info("PersistOrder activity completed")
	}
	return placed, nil
}

// PublishOrderPlaced hands the event to the configured publisher.
func (a *Activities) PublishOrderPlaced(ctx context.Context, event domain.OrderPlaced) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.publisher == nil {
		logger.Error("order publish activity not initialized", "orderId", event.OrderID)
		return errors.New("order publish activity not initialized")
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		logger.Error("PublishOrderPlaced activity failed", "orderId", event.OrderID, "error", err)
		return err
	}
	logger.Info("PublishOrderPlaced activity completed", "orderId", event.OrderID)
	return nil
}

// ClassifyError turns known business failures into non-retryable application errors.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	for _, t := range errorTypes {
		if errors.Is(err, t.sentinel) {
			return temporal.NewNonRetryableApplicationError(err.Error(), t.name, err)
		}
	}
	return err
}

// RestoreError maps an application error returned by a workflow back to the
// orders sentinel it was classified from, so callers can keep using errors.Is.
func RestoreError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	for _, t := range errorTypes {
		if appErr.Type() == t.name {
			return fmt.Errorf("%w: %s", t.sentinel, appErr.Message())
		}
	}
	return err
}
