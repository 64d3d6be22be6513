package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	ordersapp "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application"
	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	orderactivities "github.com/Apurer/go-gin-storefront-api/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/go-gin-storefront-api/internal/platform/temporal/workflows/orders"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalOrderWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineOrderWorkflows)(nil)
)

// requestHashMemo names the memo field holding the checkout fingerprint of a keyed run.
const requestHashMemo = "requestHash"

// TemporalOrderWorkflows starts checkout workflows on a Temporal cluster.
type TemporalOrderWorkflows struct {
	client    client.Client
	taskQueue string
}

// NewTemporalOrderWorkflows wires a Temporal client into the orchestrator.
func NewTemporalOrderWorkflows(c client.Client) *TemporalOrderWorkflows {
	return &TemporalOrderWorkflows{client: c, taskQueue: orderworkflows.OrderPlacementTaskQueue}
}

// PlaceOrder starts the placement workflow and waits for its result.
func (o *TemporalOrderWorkflows) PlaceOrder(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.PlacedOrder, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal order workflows not configured")
	}
	traceComponent := workflowTraceComponent(ctx)
	workflowID := buildOrderPlacementWorkflowID(input, traceComponent)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	var requestHash string
	if key != "" {
		hash, err := ordersapp.FingerprintPlaceOrder(input)
		if err != nil {
			return nil, err
		}
		requestHash = hash
		options.Memo = map[string]interface{}{requestHashMemo: requestHash}
		options.WorkflowExecutionErrorWhenAlreadyStarted = true
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		orderworkflows.OrderPlacementWorkflowName,
		orderworkflows.OrderPlacementWorkflowInput{Command: input, TraceID: traceComponent},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) && key != "" {
			if err := o.ensureSameRequest(ctx, workflowID, alreadyStarted.RunId, requestHash); err != nil {
				return nil, err
			}
			existingRun := o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
			var placed ordertypes.PlacedOrder
			if err := existingRun.Get(ctx, &placed); err != nil {
				return nil, orderactivities.RestoreError(err)
			}
			return &placed, nil
		}
		return nil, err
	}
	var placed ordertypes.PlacedOrder
	if err := run.Get(ctx, &placed); err != nil {
		return nil, orderactivities.RestoreError(err)
	}
	return &placed, nil
}

// ensureSameRequest compares the fingerprint recorded on a running workflow
// with the current request. Runs without the memo are trusted.
func (o *TemporalOrderWorkflows) ensureSameRequest(ctx context.Context, workflowID, runID, requestHash string) error {
	described, err := o.client.DescribeWorkflowExecution(ctx, workflowID, runID)
	if err != nil {
		return err
	}
	payload, ok := described.GetWorkflowExecutionInfo().GetMemo().GetFields()[requestHashMemo]
	if !ok || payload == nil {
		return nil
	}
	var stored string
	if err := converter.GetDefaultDataConverter().FromPayload(payload, &stored); err != nil {
		return err
	}
	if stored != requestHash {
		return ordersapp.ErrIdempotencyConflict
	}
	return nil
}

// InlineOrderWorkflows runs checkout in-process. Used in tests and when Temporal is unavailable.
type InlineOrderWorkflows struct {
	service   ports.Service
	publisher ports.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

type InlineOption func(*InlineOrderWorkflows)

func WithLogger(logger *slog.Logger) InlineOption {
	return func(o *InlineOrderWorkflows) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewInlineOrderWorkflows wraps the orders service for synchronous execution.
func NewInlineOrderWorkflows(service ports.Service, publisher ports.EventPublisher, opts ...InlineOption) *InlineOrderWorkflows {
	if publisher == nil {
		publisher = ports.NoopPublisher{}
	}
	o := &InlineOrderWorkflows{
		service:   service,
		publisher: publisher,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// PlaceOrder commits the checkout then publishes OrderPlaced. A publish
// failure is logged; the committed order is still returned.
func (o *InlineOrderWorkflows) PlaceOrder(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.PlacedOrder, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline order workflows not configured")
	}
	placed, err := o.service.PlaceOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	event := placed.Event(o.now().UTC())
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.ErrorContext(ctx, "failed to publish order placed event",
			slog.Int64("order.id", event.OrderID), slog.String("error", err.Error()))
	}
	return placed, nil
}

func buildOrderPlacementWorkflowID(input ordertypes.PlaceOrderInput, traceComponent string) string {
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		return fmt.Sprintf("order-placement-idem-%s", hashIdempotencyKey(key))
	}
	return fmt.Sprintf("order-placement-%s-%s", uuid.NewString(), traceComponent)
}

func hashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	// First 16 hex chars keep workflow IDs readable and deterministic.
	return hex.EncodeToString(sum[:8])
}

func workflowTraceComponent(ctx context.Context) string {
	traceComponent := workflowTraceID(ctx)
	if traceComponent != "" {
		return traceComponent
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	span := oteltrace.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	traceID := spanCtx.TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}
