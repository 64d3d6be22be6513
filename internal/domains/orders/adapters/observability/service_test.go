package observability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	ordersapp "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application"
	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	productdomain "github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
)

type stubService struct {
	ports.Service
	associateErr error
}

func (s stubService) CreateOrder(context.Context, ordertypes.CreateOrderInput) (*ordertypes.OrderProjection, error) {
	return &ordertypes.OrderProjection{Entity: &domain.Order{ID: 7, Reference: "REF", Status: domain.StatusPending}}, nil
}

func (s stubService) AssociateProduct(_ context.Context, input ordertypes.AssociateProductInput) (*ordertypes.LineItemView, error) {
	if s.associateErr != nil {
		return nil, s.associateErr
	}
	return &ordertypes.LineItemView{Product: &productdomain.Product{ID: input.ProductID, Quantity: 3}, Quantity: 1}, nil
}

func counterTotals(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func TestService_RecordsSpansLogsAndCounters(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	var logs bytes.Buffer

	svc := New(stubService{},
		WithTracer(tp.Tracer("test")),
		WithMeter(mp.Meter("test")),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)

	_, err := svc.CreateOrder(context.Background(), ordertypes.CreateOrderInput{})
	require.NoError(t, err)
	_, err = svc.AssociateProduct(context.Background(), ordertypes.AssociateProductInput{OrderID: 7, ProductID: 3})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "Service.CreateOrder", spans[0].Name())
	assert.Equal(t, "Service.AssociateProduct", spans[1].Name())

	totals := counterTotals(t, reader)
	assert.Equal(t, int64(1), totals["orders.service.created"])
	assert.Equal(t, int64(1), totals["orders.service.products_associated"])
	assert.Contains(t, logs.String(), "order created")
}

func TestService_StockFailureIsCountedAndReturned(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	cause := fmt.Errorf("%w: %w", ordersapp.ErrStockUpdateFailed, productdomain.ErrInsufficientStock)

	svc := New(stubService{associateErr: cause}, WithMeter(mp.Meter("test")))

	_, err := svc.AssociateProduct(context.Background(), ordertypes.AssociateProductInput{OrderID: 1, ProductID: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, productdomain.ErrInsufficientStock))

	totals := counterTotals(t, reader)
	assert.Equal(t, int64(1), totals["orders.service.stock_failures"])
	assert.Zero(t, totals["orders.service.products_associated"])
}

func TestNew_DefaultsWithoutOptions(t *testing.T) {
	svc := New(stubService{}, nil)
	_, err := svc.CreateOrder(context.Background(), ordertypes.CreateOrderInput{})
	require.NoError(t, err)
}
