package redis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-storefront-api/internal/platform/metrics"
)

const (
	cacheName     = "orders"
	defaultPrefix = "storefront:orders:"
	DefaultTTL    = 5 * time.Minute
)

var (
	_ ports.Repository   = (*Repository)(nil)
	_ ports.CacheEvicter = (*Repository)(nil)
)

// Repository is a read-through cache in front of another order repository.
// Cache failures are logged and the call falls through to the inner store.
// An order whose cache entry could not be deleted is read from the inner
// store until a later delete succeeds.
type Repository struct {
	inner  ports.Repository
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	stale map[int64]struct{}
}

type Option func(*Repository)

func WithTTL(ttl time.Duration) Option {
	return func(r *Repository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(r *Repository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRepository(inner ports.Repository, client goredis.UniversalClient, opts ...Option) *Repository {
	r := &Repository{
		inner:  inner,
		client: client,
		prefix: defaultPrefix,
		ttl:    DefaultTTL,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		stale:  map[int64]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, rawURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (r *Repository) Create(ctx context.Context, order *domain.Order) (*ordertypes.OrderProjection, error) {
	return r.inner.Create(ctx, order)
}

func (r *Repository) Update(ctx context.Context, order *domain.Order) error {
	if err := r.inner.Update(ctx, order); err != nil {
		return err
	}
	_ = r.invalidate(ctx, order.ID)
	return nil
}

// Evict drops the cached copy of an order written outside this repository.
func (r *Repository) Evict(ctx context.Context, orderID int64) error {
	return r.invalidate(ctx, orderID)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*ordertypes.OrderProjection, error) {
	if r.isStale(id) {
		if err := r.invalidate(ctx, id); err != nil {
			return r.inner.GetByID(ctx, id)
		}
	}
	key := r.key(id)
	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached ordertypes.OrderProjection
		if err := json.Unmarshal(data, &cached); err == nil && cached.Entity != nil {
			metrics.RecordCache(cacheName, metrics.CacheHit)
			return &cached, nil
		}
		r.logger.WarnContext(ctx, "discarding unreadable cached order", slog.Int64("order.id", id))
		metrics.RecordCache(cacheName, metrics.CacheError)
	case errors.Is(err, goredis.Nil):
		metrics.RecordCache(cacheName, metrics.CacheMiss)
	default:
		r.logger.WarnContext(ctx, "order cache read failed", slog.Int64("order.id", id), slog.String("error", err.Error()))
		metrics.RecordCache(cacheName, metrics.CacheError)
	}

	projection, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, projection)
	return projection, nil
}

// GetByIDForUpdate always reads the inner store; locked reads are never cached.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*ordertypes.OrderProjection, error) {
	return r.inner.GetByIDForUpdate(ctx, id)
}

func (r *Repository) List(ctx context.Context, sort domain.Sort) ([]*ordertypes.OrderProjection, error) {
	return r.inner.List(ctx, sort)
}

func (r *Repository) LineItems(ctx context.Context, orderID int64) ([]domain.LineItem, error) {
	return r.inner.LineItems(ctx, orderID)
}

func (r *Repository) FindLineItem(ctx context.Context, orderID, productID int64) (domain.LineItem, error) {
	return r.inner.FindLineItem(ctx, orderID, productID)
}

func (r *Repository) SaveLineItem(ctx context.Context, line domain.LineItem) error {
	return r.inner.SaveLineItem(ctx, line)
}

func (r *Repository) store(ctx context.Context, key string, projection *ordertypes.OrderProjection) {
	data, err := json.Marshal(projection)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to encode order for cache", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "order cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (r *Repository) invalidate(ctx context.Context, id int64) error {
	err := r.client.Del(ctx, r.key(id)).Err()
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.stale[id] = struct{}{}
		r.logger.WarnContext(ctx, "order cache invalidation failed, bypassing cache for order", slog.Int64("order.id", id), slog.String("error", err.Error()))
		return err
	}
	delete(r.stale, id)
	return nil
}

func (r *Repository) isStale(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.stale[id]
	return ok
}

func (r *Repository) key(id int64) string {
	return r.prefix + strconv.FormatInt(id, 10)
}
