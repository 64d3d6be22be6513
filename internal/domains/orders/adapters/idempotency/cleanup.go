// Package idempotency expires checkout idempotency keys once replays are no longer expected.
package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-storefront-api/internal/platform/metrics"
)

const (
	DefaultTTL       = 24 * time.Hour
	DefaultInterval  = 10 * time.Minute
	DefaultBatchSize = 500
)

// CleanupWorker deletes keys older than the TTL on a fixed interval.
type CleanupWorker struct {
	store     ports.IdempotencyPurger
	logger    *slog.Logger
	ttl       time.Duration
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

type Option func(*CleanupWorker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *CleanupWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(w *CleanupWorker) {
		if ttl > 0 {
			w.ttl = ttl
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(w *CleanupWorker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithBatchSize(size int) Option {
	return func(w *CleanupWorker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithClock is used by tests to pin the expiry cutoff.
func WithClock(now func() time.Time) Option {
	return func(w *CleanupWorker) {
		if now != nil {
			w.now = now
		}
	}
}

func NewCleanupWorker(store ports.IdempotencyPurger, opts ...Option) *CleanupWorker {
	w := &CleanupWorker{
		store:     store,
		logger:    slog.Default(),
		ttl:       DefaultTTL,
		interval:  DefaultInterval,
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run purges once immediately and then on every tick until ctx is cancelled.
func (w *CleanupWorker) Run(ctx context.Context) {
	w.logger.Info("idempotency cleanup started",
		slog.Duration("ttl", w.ttl),
		slog.Duration("interval", w.interval),
		slog.Int("batchSize", w.batchSize),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.PurgeOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("idempotency cleanup failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("idempotency cleanup stopped")
			return
		case <-ticker.C:
		}
	}
}

// PurgeOnce deletes expired keys batch by batch until a short batch signals the backlog is drained.
func (w *CleanupWorker) PurgeOnce(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.ttl)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		deleted, err := w.store.DeleteExpired(ctx, cutoff, w.batchSize)
		if err != nil {
			metrics.IdempotencyPurgeErrors.Inc()
			return total, err
		}
		total += deleted
		metrics.IdempotencyKeysPurged.Add(float64(deleted))
		if deleted < w.batchSize {
			break
		}
	}
	if total > 0 {
		w.logger.Info("expired idempotency keys purged", slog.Int("deleted", total), slog.Time("cutoff", cutoff))
	}
	return total, nil
}
