package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
	defaultPoolSize     = 10
	defaultMinIdleConns = 5
	pingTimeout         = 5 * time.Second
)

type Option func(*goredis.Options)

func WithPassword(password string) Option {
	return func(o *goredis.Options) {
		o.Password = password
	}
}

func WithDB(db int) Option {
	return func(o *goredis.Options) {
		o.DB = db
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *goredis.Options) {
		o.DialTimeout = d
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *goredis.Options) {
		o.ReadTimeout = d
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *goredis.Options) {
		o.WriteTimeout = d
	}
}

func WithPoolSize(n int) Option {
	return func(o *goredis.Options) {
		o.PoolSize = n
	}
}

func WithMinIdleConns(n int) Option {
	return func(o *goredis.Options) {
		o.MinIdleConns = n
	}
}

// New creates a client for addr and verifies the connection with PING.
func New(ctx context.Context, addr string, opts ...Option) (*goredis.Client, error) {
	const op = "redis.New"

	o := &goredis.Options{
		Addr:         addr,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		PoolSize:     defaultPoolSize,
		MinIdleConns: defaultMinIdleConns,
	}

	for _, opt := range opts {
		opt(o)
	}

	client := goredis.NewClient(o)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return client, nil
}
