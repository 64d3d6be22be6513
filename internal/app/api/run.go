package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	storefrontserver "github.com/Apurer/go-gin-storefront-api/go"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/idempotency"
	ordersworkflows "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/workflows"
	ordersports "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-storefront-api/internal/platform/metrics"
	platformobservability "github.com/Apurer/go-gin-storefront-api/internal/platform/observability"
)

const serviceName = "storefront-api"

// Run boots the storefront HTTP API with observability, repositories, and workflows wired.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	backend, cleanup := BuildBackend(ctx, cfg, instruments)
	defer cleanup()

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go idempotency.NewCleanupWorker(backend.IdempotencyKeys,
		idempotency.WithLogger(logger),
		idempotency.WithTTL(cfg.IdempotencyTTL),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
	).Run(purgeCtx)

	var orderWorkflows ordersports.WorkflowOrchestrator = ordersworkflows.NewInlineOrderWorkflows(
		backend.Orders, backend.Publisher, ordersworkflows.WithLogger(logger))
	if temporalClient, err := ConnectTemporalClient(cfg, instruments, "temporal-client"); err != nil {
		logger.Warn("Temporal workflows unavailable, running inline checkout", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		orderWorkflows = ordersworkflows.NewTemporalOrderWorkflows(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	handlers := storefrontserver.ApiHandleFunctions{
		OrderAPI:    storefrontserver.NewOrderAPI(backend.Orders),
		ProductAPI:  storefrontserver.NewProductAPI(backend.Products),
		CheckoutAPI: storefrontserver.NewCheckoutAPI(backend.Orders, orderWorkflows),
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		otelgin.Middleware(serviceName),
		storefrontserver.RequestID(),
		metrics.Middleware(),
	)
	router := storefrontserver.NewRouterWithGinEngine(engine, handlers)

	addr := cfg.Addr()
	logger.Info("Storefront API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("Storefront API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// ConnectTemporalClient dials Temporal with the OpenTelemetry tracing interceptor installed.
func ConnectTemporalClient(cfg Config, instruments *platformobservability.Instruments, tracer string) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer(tracer)
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
