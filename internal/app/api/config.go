package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/events"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/idempotency"
	productdomain "github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
)

// Config carries environment-driven settings for the API and worker processes.
type Config struct {
	Port              string
	PostgresDSN       string
	RedisURL          string
	OrderCacheTTL     time.Duration
	KafkaBrokers      []string
	KafkaOrderTopic   string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	StockPolicy       productdomain.StockPolicy

	IdempotencyTTL             time.Duration
	IdempotencyCleanupInterval time.Duration
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		OrderCacheTTL:     5 * time.Minute,
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic:   envDefault("KAFKA_ORDER_TOPIC", events.DefaultOrderTopic),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),

		IdempotencyTTL:             idempotency.DefaultTTL,
		IdempotencyCleanupInterval: idempotency.DefaultInterval,
	}
	if raw := strings.TrimSpace(os.Getenv("ORDER_CACHE_TTL_SECONDS")); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("ORDER_CACHE_TTL_SECONDS must be a positive integer")
		}
		cfg.OrderCacheTTL = time.Duration(seconds) * time.Second
	}
	if raw := strings.TrimSpace(os.Getenv("IDEMPOTENCY_TTL_HOURS")); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("IDEMPOTENCY_TTL_HOURS must be a positive integer")
		}
		cfg.IdempotencyTTL = time.Duration(hours) * time.Hour
	}
	if raw := strings.TrimSpace(os.Getenv("IDEMPOTENCY_PURGE_INTERVAL_MINUTES")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("IDEMPOTENCY_PURGE_INTERVAL_MINUTES must be a positive integer")
		}
		cfg.IdempotencyCleanupInterval = time.Duration(minutes) * time.Minute
	}
	policy, err := productdomain.ParseStockPolicy(os.Getenv("STOCK_POLICY"))
	if err != nil {
		return Config{}, fmt.Errorf("STOCK_POLICY: %w", err)
	}
	cfg.StockPolicy = policy
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
