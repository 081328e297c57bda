// Package counter allocates unique, strictly increasing integers shared by all
// service instances through an atomic increment on an external key-value store.
package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/cache"
)

const (
	DefaultKey     = "url_counter"
	DefaultTimeout = time.Second
)

var (
	// ErrUnavailable is returned when the atomic increment or the read could not be completed.
	ErrUnavailable = errors.New("counter unavailable")
	// ErrCorrupt is returned when the stored counter is not a valid positive integer.
	ErrCorrupt = errors.New("counter corrupt")
)

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

type Option func(*Counter)

func WithKey(key string) Option {
	return func(c *Counter) {
		c.key = key
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Counter) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Counter is the global counter. It never reads and writes separately on the
// allocation path; NextValue is a single INCR.
type Counter struct {
	store   store
	key     string
	timeout time.Duration
}

func New(store store, opts ...Option) *Counter {
	c := &Counter{
		store:   store,
		key:     DefaultKey,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NextValue increments the counter and returns the new value. The first call
// on an unset counter returns 1.
func (c *Counter) NextValue(ctx context.Context) (int64, error) {
	const op = "counter.Counter.NextValue"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	n, err := c.store.Incr(ctx, c.key)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	if n <= 0 {
		return 0, fmt.Errorf("%s: increment returned %d: %w", op, n, ErrCorrupt)
	}

	return n, nil
}

// CurrentValue reads the counter without changing it. An unset counter reads as 0.
func (c *Counter) CurrentValue(ctx context.Context) (int64, error) {
	const op = "counter.Counter.CurrentValue"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return 0, nil
		}

		return 0, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: stored value %q: %w", op, raw, ErrCorrupt)
	}

	return n, nil
}

// Reset overwrites the counter with value.
//
// Resetting below a value that has already been issued makes NextValue hand
// out codes that collide with existing records. Use in tests and operations only.
func (c *Counter) Reset(ctx context.Context, value int64) error {
	const op = "counter.Counter.Reset"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.store.Set(ctx, c.key, strconv.FormatInt(value, 10), 0); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	return nil
}
