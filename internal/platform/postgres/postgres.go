// Package postgres opens the gorm connection shared by the order and product stores.
package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ErrNoDSN is returned by Connect when no DSN was supplied.
var ErrNoDSN = errors.New("postgres DSN is empty")

type poolConfig struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	pingTimeout time.Duration
}

// PoolOption tunes the database/sql pool behind gorm.
type PoolOption func(*poolConfig)

func WithMaxOpenConns(n int) PoolOption {
	return func(c *poolConfig) { c.maxOpen = n }
}

func WithMaxIdleConns(n int) PoolOption {
	return func(c *poolConfig) { c.maxIdle = n }
}

func WithConnMaxLifetime(d time.Duration) PoolOption {
	return func(c *poolConfig) { c.maxLifetime = d }
}

// Connect opens the pool with gorm error translation enabled and pings it.
func Connect(ctx context.Context, dsn string, opts ...PoolOption) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrNoDSN
	}
	cfg := poolConfig{maxOpen: 20, maxIdle: 5, maxLifetime: 30 * time.Minute, pingTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	pool, err := db.DB()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.maxOpen)
	pool.SetMaxIdleConns(cfg.maxIdle)
	pool.SetConnMaxLifetime(cfg.maxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.pingTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return db, nil
}

// ConnectOptional returns a nil DB and a no-op close when dsn is empty or unreachable,
// so callers can fall back to the in-memory stores.
func ConnectOptional(ctx context.Context, dsn string, logger *slog.Logger, opts ...PoolOption) (*gorm.DB, func()) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	noop := func() {}

	db, err := Connect(ctx, dsn, opts...)
	switch {
	case errors.Is(err, ErrNoDSN):
		logger.Warn("POSTGRES_DSN not set, using in-memory order and product stores")
		return nil, noop
	case err != nil:
		logger.Warn("postgres unreachable, using in-memory order and product stores", slog.String("error", err.Error()))
		return nil, noop
	}
	pool, err := db.DB()
	if err != nil {
		logger.Warn("postgres pool unavailable, using in-memory order and product stores", slog.String("error", err.Error()))
		return nil, noop
	}
	logger.Info("postgres connection established")
	return db, func() { _ = pool.Close() }
}
