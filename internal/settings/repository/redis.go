package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces the per-scope hashes.
const KeyPrefix = "phonemailer:settings:"

// RedisClient is the subset of redis.UniversalClient used by Redis.
type RedisClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// Redis stores each scope as a hash keyed phonemailer:settings:<scope>.
type Redis struct{ rc RedisClient }

func NewRedis(rc RedisClient) *Redis { return &Redis{rc: rc} }

func (r *Redis) Get(ctx context.Context, scope, key string) (string, bool, error) {
	v, err := r.rc.HGet(ctx, KeyPrefix+scope, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("settings redis: get %s/%s: %w", scope, key, err)
	}
	return v, true, nil
}

func (r *Redis) Upsert(ctx context.Context, scope, key, value string) error {
	if err := r.rc.HSet(ctx, KeyPrefix+scope, key, value).Err(); err != nil {
		return fmt.Errorf("settings redis: upsert %s/%s: %w", scope, key, err)
	}
	return nil
}
