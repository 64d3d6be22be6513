package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	producttypes "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
)

const tracerName = "github.com/Apurer/go-gin-storefront-api/internal/domains/products/adapters/observability/service"

// Service decorates the product catalog service with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core products service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
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
	return s
}

func (s *Service) CreateProduct(ctx context.Context, input producttypes.CreateProductInput) (*producttypes.ProductProjection, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProduct")
	defer span.End()

	result, err := s.inner.CreateProduct(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create product")
	}
	span.SetAttributes(attribute.Int64("product.id", result.Entity.ID))
	s.metrics.recordCreated(ctx)
	s.logInfo(ctx, "product created", slog.Int64("product.id", result.Entity.ID), slog.String("sku", result.Entity.SKU))
	return result, nil
}

func (s *Service) GetProduct(ctx context.Context, input producttypes.ProductIdentifier) (*producttypes.ProductProjection, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProduct",
		trace.WithAttributes(attribute.Int64("product.id", input.ID)))
	defer span.End()

	result, err := s.inner.GetProduct(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to get product", slog.Int64("product.id", input.ID))
	}
	return result, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]*producttypes.ProductProjection, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ListProducts")
	defer span.End()

	result, err := s.inner.ListProducts(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list products")
	}
	span.SetAttributes(attribute.Int("product.result.count", len(result)))
	return result, nil
}

func (s *Service) UpdateProduct(ctx context.Context, input producttypes.UpdateProductInput) (*producttypes.ProductProjection, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.UpdateProduct",
		trace.WithAttributes(attribute.Int64("product.id", input.ID)))
	defer span.End()

	result, err := s.inner.UpdateProduct(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update product", slog.Int64("product.id", input.ID))
	}
	s.metrics.recordUpdated(ctx)
	s.logInfo(ctx, "product updated", slog.Int64("product.id", input.ID))
	return result, nil
}

func (s *Service) DecreaseStock(ctx context.Context, input producttypes.DecreaseStockInput) (*producttypes.ProductProjection, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.DecreaseStock",
		trace.WithAttributes(attribute.Int64("product.id", input.ID), attribute.Int("product.stock.delta", int(input.Quantity))))
	defer span.End()

	result, err := s.inner.DecreaseStock(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to decrease stock",
			slog.Int64("product.id", input.ID), slog.Int("quantity", int(input.Quantity)))
	}
	s.metrics.recordStockDecreased(ctx, input.Quantity)
	s.logInfo(ctx, "stock decreased", slog.Int64("product.id", input.ID), slog.Int("stock.remaining", int(result.Entity.Quantity)))
	return result, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if s.logger != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	}
	return err
}

type serviceMetrics struct {
	created      metric.Int64Counter
	updated      metric.Int64Counter
	unitsRemoved metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	created, _ := m.Int64Counter("products.service.created", metric.WithDescription("Number of products created"))
	updated, _ := m.Int64Counter("products.service.updated", metric.WithDescription("Number of product updates"))
	removed, _ := m.Int64Counter("products.service.stock_units_removed", metric.WithDescription("Units removed from stock"))
	return serviceMetrics{created: created, updated: updated, unitsRemoved: removed}
}

func (m serviceMetrics) recordCreated(ctx context.Context) {
	if m.created != nil {
		m.created.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordUpdated(ctx context.Context) {
	if m.updated != nil {
		m.updated.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordStockDecreased(ctx context.Context, quantity int32) {
	if m.unitsRemoved != nil {
		m.unitsRemoved.Add(ctx, int64(quantity))
	}
}

var _ ports.Service = (*Service)(nil)
