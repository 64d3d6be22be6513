package redis

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ordersmemory "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/memory"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
)

// unreachableClient points at a closed port so every command fails fast.
func unreachableClient(t *testing.T) *goredis.Client {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRepository_FallsThroughWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	inner := ordersmemory.NewRepository()
	repo := NewRepository(inner, unreachableClient(t), WithTTL(time.Second))

	order, err := domain.NewOrder("CACHE-1", 3)
	require.NoError(t, err)
	created, err := repo.Create(ctx, order)
	require.NoError(t, err)

	loaded, err := repo.GetByID(ctx, created.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, "CACHE-1", loaded.Entity.Reference)

	loaded.Entity.Status = domain.StatusPaid
	require.NoError(t, repo.Update(ctx, loaded.Entity))

	reloaded, err := repo.GetByID(ctx, created.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, reloaded.Entity.Status)
}

func TestRepository_PropagatesNotFound(t *testing.T) {
	repo := NewRepository(ordersmemory.NewRepository(), unreachableClient(t))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_KeyUsesPrefix(t *testing.T) {
	repo := NewRepository(ordersmemory.NewRepository(), unreachableClient(t), WithPrefix("test:"))
	assert.Equal(t, "test:12", repo.key(12))
}

// scriptedRedis answers GET, SET and DEL in process. DEL fails while failDel is set.
type scriptedRedis struct {
	mu      sync.Mutex
	values  map[string]string
	failDel bool
}

func (h *scriptedRedis) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("scripted client never dials")
	}
}

func (h *scriptedRedis) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		args := cmd.Args()
		switch c := cmd.(type) {
		case *goredis.StringCmd:
			value, ok := h.values[args[1].(string)]
			if !ok {
				c.SetErr(goredis.Nil)
				return goredis.Nil
			}
			c.SetVal(value)
		case *goredis.StatusCmd:
			h.values[args[1].(string)] = string(args[2].([]byte))
			c.SetVal("OK")
		case *goredis.IntCmd:
			if h.failDel {
				err := errors.New("READONLY You can't write against a read only replica")
				c.SetErr(err)
				return err
			}
			delete(h.values, args[1].(string))
			c.SetVal(1)
		}
		return nil
	}
}

func (h *scriptedRedis) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return next
}

func (h *scriptedRedis) setFailDel(fail bool) {
	h.mu.Lock()
	h.failDel = fail
	h.mu.Unlock()
}

func TestRepository_BypassesCacheWhileInvalidationFails(t *testing.T) {
	ctx := context.Background()
	script := &scriptedRedis{values: map[string]string{}}
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(script)
	t.Cleanup(func() { _ = client.Close() })

	inner := ordersmemory.NewRepository()
	repo := NewRepository(inner, client)

	order, err := domain.NewOrder("STALE-1", 5)
	require.NoError(t, err)
	created, err := repo.Create(ctx, order)
	require.NoError(t, err)
	id := created.Entity.ID

	_, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Contains(t, script.values, repo.key(id))

	script.setFailDel(true)
	created.Entity.Status = domain.StatusPaid
	require.NoError(t, repo.Update(ctx, created.Entity))

	loaded, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, loaded.Entity.Status)
	assert.Error(t, repo.Evict(ctx, id))

	script.setFailDel(false)
	loaded, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, loaded.Entity.Status)
	assert.False(t, repo.isStale(id))
}
