package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/example/phone-mailer/internal/config"
)

// Store is implemented by every backend in this package.
type Store interface {
	Get(ctx context.Context, scope, key string) (string, bool, error)
	Upsert(ctx context.Context, scope, key, value string) error
}

// Open connects the backend selected by cfg. The returned func releases
// its connections.
func Open(ctx context.Context, cfg config.SettingsConfig) (Store, func(), error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		store, err := OpenFile(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("settings postgres: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("settings postgres: ping: %w", err)
		}
		store := NewPostgres(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case config.BackendRedis:
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rc.Ping(ctx).Err(); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("settings redis: ping: %w", err)
		}
		return NewRedis(rc), func() { _ = rc.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("settings: unsupported backend %q", cfg.Backend)
	}
}
