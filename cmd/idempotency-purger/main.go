package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Apurer/go-gin-storefront-api/internal/app/api"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/idempotency"
	orderspostgres "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/persistence/postgres"
	platformpostgres "github.com/Apurer/go-gin-storefront-api/internal/platform/postgres"
)

// Purges expired checkout keys once and exits, for cron-style deployments.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	db, cleanup := platformpostgres.ConnectOptional(ctx, cfg.PostgresDSN, logger,
		platformpostgres.WithMaxOpenConns(2),
		platformpostgres.WithMaxIdleConns(1),
	)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot purge idempotency keys")
	}

	worker := idempotency.NewCleanupWorker(orderspostgres.NewIdempotencyStore(db),
		idempotency.WithLogger(logger),
		idempotency.WithTTL(cfg.IdempotencyTTL),
	)
	deleted, err := worker.PurgeOnce(ctx)
	if err != nil {
		log.Fatalf("failed to purge idempotency keys: %v", err)
	}
	logger.Info("idempotency purge completed", slog.Int("deleted", deleted))
}
