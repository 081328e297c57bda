// Package cache provides the shared fast key-value store used for the URL
// cache, the cache statistics and the global counter.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// Redis is a thin wrapper over a go-redis client.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (c *Redis) Get(ctx context.Context, key string) (string, error) {
	const op = "cache.Redis.Get"

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%s: %w", op, ErrMiss)
		}

		return "", fmt.Errorf("%s: failed to get key %q: %w", op, key, err)
	}

	return val, nil
}

// Set stores value under key. A zero ttl keeps the key until it is deleted.
func (c *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	const op = "cache.Redis.Set"

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set key %q: %w", op, key, err)
	}

	return nil
}

func (c *Redis) Delete(ctx context.Context, keys ...string) error {
	const op = "cache.Redis.Delete"

	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete keys: %w", op, err)
	}

	return nil
}

// Incr atomically increments key (created as 0 when absent) and returns the new value.
func (c *Redis) Incr(ctx context.Context, key string) (int64, error) {
	const op = "cache.Redis.Incr"

	val, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to increment key %q: %w", op, key, err)
	}

	return val, nil
}
