package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-storefront-api/internal/app/api"
	platformobservability "github.com/Apurer/go-gin-storefront-api/internal/platform/observability"
	orderactivities "github.com/Apurer/go-gin-storefront-api/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/go-gin-storefront-api/internal/platform/temporal/workflows/orders"
)

func main() {
	ctx := context.Background()
	const serviceName = "storefront-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	backend, cleanup := api.BuildBackend(ctx, cfg, instruments)
	defer cleanup()
	activities := orderactivities.NewActivities(backend.Orders, backend.Publisher)

	cfg.TemporalDisabled = false
	temporalClient, err := api.ConnectTemporalClient(cfg, instruments, "temporal-worker")
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.OrderPlacementTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.OrderPlacementWorkflow, workflow.RegisterOptions{Name: orderworkflows.OrderPlacementWorkflowName})
	w.RegisterActivityWithOptions(activities.PersistOrder, activity.RegisterOptions{Name: orderactivities.PersistOrderActivityName})
	w.RegisterActivityWithOptions(activities.PublishOrderPlaced, activity.RegisterOptions{Name: orderactivities.PublishOrderPlacedActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.OrderPlacementTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
