package api

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	ordersredis "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/cache/redis"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/events"
	ordersmemory "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/memory"
	ordersobs "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application"
	ordersports "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	productsmemory "github.com/Apurer/go-gin-storefront-api/internal/domains/products/adapters/memory"
	productsobs "github.com/Apurer/go-gin-storefront-api/internal/domains/products/adapters/observability"
	productspostgres "github.com/Apurer/go-gin-storefront-api/internal/domains/products/adapters/persistence/postgres"
	productsapp "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application"
	productsports "github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
	"github.com/Apurer/go-gin-storefront-api/internal/platform/migrations"
	platformobservability "github.com/Apurer/go-gin-storefront-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-gin-storefront-api/internal/platform/postgres"
)

// Backend holds the decorated services shared by the API and the worker.
type Backend struct {
	Orders    ordersports.Service
	Products  productsports.Service
	Publisher ordersports.EventPublisher
	// IdempotencyKeys expires checkout keys held by the active store.
	IdempotencyKeys ordersports.IdempotencyPurger
}

type stores struct {
	orders      ordersports.Repository
	products    productsports.Repository
	uow         ordersports.UnitOfWork
	idempotency ordersports.IdempotencyStore
	purger      ordersports.IdempotencyPurger
}

// BuildBackend wires repositories, the optional cache, the event publisher and the services.
// Unavailable backing services fall back to in-memory adapters or a log publisher.
func BuildBackend(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (*Backend, func()) {
	logger := instruments.Logger
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	db, closeDB := platformpostgres.ConnectOptional(ctx, cfg.PostgresDSN, logger)
	cleanups = append(cleanups, closeDB)
	st := buildStores(db, logger)

	if cfg.RedisURL != "" {
		client, err := ordersredis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, order cache disabled", slog.String("error", err.Error()))
		} else {
			cleanups = append(cleanups, func() { _ = client.Close() })
			st.orders = ordersredis.NewRepository(st.orders, client,
				ordersredis.WithTTL(cfg.OrderCacheTTL),
				ordersredis.WithLogger(logger),
			)
			logger.Info("order read cache enabled", slog.Duration("ttl", cfg.OrderCacheTTL))
		}
	}

	var publisher ordersports.EventPublisher = events.NewLogPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.DialKafka(cfg.KafkaBrokers,
			events.WithTopic(cfg.KafkaOrderTopic),
			events.WithKafkaLogger(logger),
		)
		if err != nil {
			logger.Warn("kafka unavailable, logging order events instead", slog.String("error", err.Error()))
		} else {
			cleanups = append(cleanups, func() { _ = kafka.Close() })
			publisher = kafka
			logger.Info("order events published to kafka", slog.String("topic", cfg.KafkaOrderTopic))
		}
	}

	coreOrders := ordersapp.NewService(st.orders, st.products, st.uow,
		ordersapp.WithStockPolicy(cfg.StockPolicy),
		ordersapp.WithIdempotencyStore(st.idempotency),
	)
	coreProducts := productsapp.NewService(st.products, productsapp.WithStockPolicy(cfg.StockPolicy))

	return &Backend{
		Orders: ordersobs.New(
			coreOrders,
			ordersobs.WithLogger(logger),
			ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
			ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
		),
		Products: productsobs.New(
			coreProducts,
			productsobs.WithLogger(logger),
			productsobs.WithTracer(instruments.Tracer("internal.products.application")),
			productsobs.WithMeter(instruments.Meter("internal.products.application")),
		),
		Publisher:       publisher,
		IdempotencyKeys: st.purger,
	}, cleanup
}

func buildStores(db *gorm.DB, logger *slog.Logger) stores {
	if db != nil {
		if err := migrations.Run(db); err != nil {
			logger.Warn("failed to migrate postgres schema, falling back to memory", slog.String("error", err.Error()))
		} else {
			logger.Info("order and product stores configured with postgres")
			keys := orderspostgres.NewIdempotencyStore(db)
			return stores{
				orders:      orderspostgres.NewRepository(db),
				products:    productspostgres.NewRepository(db),
				uow:         orderspostgres.NewUnitOfWork(db),
				idempotency: keys,
				purger:      keys,
			}
		}
	}
	orders := ordersmemory.NewRepository()
	products := productsmemory.NewRepository()
	keys := ordersmemory.NewIdempotencyStore()
	return stores{
		orders:      orders,
		products:    products,
		uow:         ordersmemory.NewUnitOfWork(orders, products),
		idempotency: keys,
		purger:      keys,
	}
}
