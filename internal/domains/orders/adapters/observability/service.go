package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	ordersapp "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application"
	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
)

const tracerName = "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/observability/service"

// Service decorates the orders application port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, input ordertypes.CreateOrderInput) (*ordertypes.OrderProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.CreateOrder")
	defer span.End()

	s.logInfo(ctx, "creating order")
	result, err := s.inner.CreateOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create order")
	}
	if result != nil && result.Entity != nil {
		span.SetAttributes(attribute.Int64("order.id", result.Entity.ID))
		s.metrics.recordCreated(ctx, string(result.Entity.Status))
		s.logInfo(ctx, "order created", slog.Int64("order.id", result.Entity.ID), slog.String("reference", result.Entity.Reference))
	}
	return result, nil
}

func (s *Service) UpdateOrder(ctx context.Context, input ordertypes.UpdateOrderInput) (*ordertypes.OrderProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.UpdateOrder", attribute.Int64("order.id", input.ID))
	defer span.End()

	s.logInfo(ctx, "updating order", slog.Int64("order.id", input.ID))
	result, err := s.inner.UpdateOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update order", slog.Int64("order.id", input.ID))
	}
	if result != nil && result.Entity != nil {
		s.metrics.recordUpdated(ctx, string(result.Entity.Status))
		s.logInfo(ctx, "order updated", slog.Int64("order.id", result.Entity.ID), slog.String("status", string(result.Entity.Status)))
	}
	return result, nil
}

func (s *Service) FindOrderByID(ctx context.Context, input ordertypes.OrderIdentifier) (*ordertypes.OrderProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.FindOrderByID", attribute.Int64("order.id", input.ID))
	defer span.End()

	result, err := s.inner.FindOrderByID(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to find order", slog.Int64("order.id", input.ID))
	}
	return result, nil
}

func (s *Service) ListOrders(ctx context.Context, input ordertypes.ListOrdersInput) ([]*ordertypes.OrderProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.ListOrders",
		attribute.String("order.sort.field", input.SortField),
		attribute.String("order.sort.direction", input.SortDirection),
	)
	defer span.End()

	result, err := s.inner.ListOrders(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders",
			slog.String("sort", input.SortField), slog.String("direction", input.SortDirection))
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	s.logInfo(ctx, "listed orders", slog.Int("count", len(result)))
	return result, nil
}

func (s *Service) FindProducts(ctx context.Context, input ordertypes.OrderIdentifier) ([]ordertypes.LineItemView, error) {
	ctx, span := s.startSpan(ctx, "Service.FindProducts", attribute.Int64("order.id", input.ID))
	defer span.End()

	result, err := s.inner.FindProducts(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to find order products", slog.Int64("order.id", input.ID))
	}
	span.SetAttributes(attribute.Int("order.lines.count", len(result)))
	return result, nil
}

func (s *Service) AssociateProduct(ctx context.Context, input ordertypes.AssociateProductInput) (*ordertypes.LineItemView, error) {
	attrs := []slog.Attr{
		slog.Int64("order.id", input.OrderID),
		slog.Int64("product.id", input.ProductID),
		slog.Int("quantity", int(input.Quantity)),
	}
	ctx, span := s.startSpan(ctx, "Service.AssociateProduct",
		attribute.Int64("order.id", input.OrderID),
		attribute.Int64("product.id", input.ProductID),
		attribute.Int("order.line.quantity", int(input.Quantity)),
	)
	defer span.End()

	s.logInfo(ctx, "associating product", attrs...)
	result, err := s.inner.AssociateProduct(ctx, input)
	if err != nil {
		if errors.Is(err, ordersapp.ErrStockUpdateFailed) {
			s.metrics.recordStockFailure(ctx)
		}
		return nil, s.handleError(ctx, span, err, "failed to associate product", attrs...)
	}
	s.metrics.recordAssociated(ctx)
	if result != nil && result.Product != nil {
		s.logInfo(ctx, "product associated", append(attrs, slog.Int("stock.remaining", int(result.Product.Quantity)))...)
	}
	return result, nil
}

func (s *Service) PlaceOrder(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.PlacedOrder, error) {
	ctx, span := s.startSpan(ctx, "Service.PlaceOrder",
		attribute.Int("checkout.lines", len(input.Lines)),
		attribute.Bool("checkout.idempotent", input.IdempotencyKey != ""),
	)
	defer span.End()

	s.logInfo(ctx, "placing order", slog.Int("lines", len(input.Lines)))
	result, err := s.inner.PlaceOrder(ctx, input)
	if err != nil {
		if errors.Is(err, ordersapp.ErrStockUpdateFailed) {
			s.metrics.recordStockFailure(ctx)
		}
		return nil, s.handleError(ctx, span, err, "failed to place order", slog.Int("lines", len(input.Lines)))
	}
	if result != nil && result.Order != nil && result.Order.Entity != nil {
		span.SetAttributes(attribute.Int64("order.id", result.Order.Entity.ID))
		s.metrics.recordPlaced(ctx)
		s.logInfo(ctx, "order placed", slog.Int64("order.id", result.Order.Entity.ID), slog.Int("lines", len(result.Lines)))
	}
	return result, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	ordersCreated       metric.Int64Counter
	ordersUpdated       metric.Int64Counter
	ordersPlaced        metric.Int64Counter
	productsAssociated  metric.Int64Counter
	stockUpdateFailures metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	created, _ := m.Int64Counter("orders.service.created", metric.WithDescription("Number of orders created"))
	updated, _ := m.Int64Counter("orders.service.updated", metric.WithDescription("Number of orders updated"))
	placed, _ := m.Int64Counter("orders.service.placed", metric.WithDescription("Number of checkouts committed"))
	associated, _ := m.Int64Counter("orders.service.products_associated", metric.WithDescription("Number of product associations"))
	stockFailures, _ := m.Int64Counter("orders.service.stock_failures", metric.WithDescription("Number of failed stock decrements"))
	return serviceMetrics{
		ordersCreated:       created,
		ordersUpdated:       updated,
		ordersPlaced:        placed,
		productsAssociated:  associated,
		stockUpdateFailures: stockFailures,
	}
}

func (m serviceMetrics) recordCreated(ctx context.Context, status string) {
	addCounter(ctx, m.ordersCreated, 1, attribute.String("order.status", status))
}

func (m serviceMetrics) recordUpdated(ctx context.Context, status string) {
	addCounter(ctx, m.ordersUpdated, 1, attribute.String("order.status", status))
}

func (m serviceMetrics) recordPlaced(ctx context.Context) {
	addCounter(ctx, m.ordersPlaced, 1)
}

func (m serviceMetrics) recordAssociated(ctx context.Context) {
	addCounter(ctx, m.productsAssociated, 1)
}

func (m serviceMetrics) recordStockFailure(ctx context.Context) {
	addCounter(ctx, m.stockUpdateFailures, 1)
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
