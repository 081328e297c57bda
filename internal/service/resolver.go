package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/cache"
	"github.com/vadimbarashkov/link-shortener/internal/database"
	"github.com/vadimbarashkov/link-shortener/internal/models"
)

const (
	urlKeyPrefix   = "url:"
	cacheHitsKey   = "cache_stats:hits"
	cacheMissesKey = "cache_stats:misses"

	DefaultURLTTL       = time.Hour
	DefaultCacheTimeout = 500 * time.Millisecond
)

// URLCache is the shared fast key-value store.
type URLCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// URLStore is the persistent store lookup used on cache misses.
type URLStore interface {
	GetByShortCodeNotExpired(ctx context.Context, shortCode string) (*models.URL, error)
}

// CacheResult is the outcome of a best-effort cache operation. A failed result
// never changes the outcome of the operation that produced it.
type CacheResult struct {
	Op  string
	Key string
	Err error
}

func (r CacheResult) Failed() bool {
	return r.Err != nil
}

type ResolverOption func(*URLResolver)

// WithURLTTL sets the TTL of cached URLs. Non-positive values keep the default.
func WithURLTTL(ttl time.Duration) ResolverOption {
	return func(r *URLResolver) {
		if ttl <= 0 {
			r.logger.Warn("invalid url cache ttl, using default",
				slog.Duration("ttl", ttl),
				slog.Duration("default", DefaultURLTTL),
			)
			return
		}
		r.urlTTL = ttl
	}
}

// WithCacheTimeout bounds every single cache call.
func WithCacheTimeout(d time.Duration) ResolverOption {
	return func(r *URLResolver) {
		if d > 0 {
			r.cacheTimeout = d
		}
	}
}

// URLResolver resolves short codes through the cache, falling back to the
// persistent store. Cache failures only cost latency.
type URLResolver struct {
	cache        URLCache
	store        URLStore
	logger       *slog.Logger
	urlTTL       time.Duration
	cacheTimeout time.Duration
	now          func() time.Time
}

func NewURLResolver(cache URLCache, store URLStore, logger *slog.Logger, opts ...ResolverOption) *URLResolver {
	r := &URLResolver{
		cache:        cache,
		store:        store,
		logger:       logger,
		urlTTL:       DefaultURLTTL,
		cacheTimeout: DefaultCacheTimeout,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func urlKey(shortCode string) string {
	return urlKeyPrefix + shortCode
}

// Resolve returns the original URL for shortCode or database.ErrURLNotFound
// when there is no live mapping.
func (r *URLResolver) Resolve(ctx context.Context, shortCode string) (string, error) {
	const op = "service.URLResolver.Resolve"

	url, err := r.lookup(ctx, shortCode)
	switch {
	case err == nil:
		r.logger.Debug("cache hit", slog.String("short_code", shortCode))
		r.observe(r.incr(ctx, cacheHitsKey))
		return url, nil
	case errors.Is(err, cache.ErrMiss):
		r.logger.Debug("cache miss", slog.String("short_code", shortCode))
	default:
		r.logger.Warn("cache lookup failed, falling back to store",
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}

	r.observe(r.incr(ctx, cacheMissesKey))

	rec, err := r.store.GetByShortCodeNotExpired(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	// The store filters on its own clock.
	if rec.IsExpired(r.now()) {
		return "", fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	r.observe(r.Cache(ctx, rec))

	return rec.OriginalURL, nil
}

func (r *URLResolver) lookup(ctx context.Context, shortCode string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cacheTimeout)
	defer cancel()

	return r.cache.Get(ctx, urlKey(shortCode))
}

func (r *URLResolver) incr(ctx context.Context, key string) CacheResult {
	ctx, cancel := context.WithTimeout(ctx, r.cacheTimeout)
	defer cancel()

	_, err := r.cache.Incr(ctx, key)

	return CacheResult{Op: "incr", Key: key, Err: err}
}

// Cache stores the mapping with the URL TTL, shortened so that the entry never
// outlives the link's expiration date. Expired links are not cached.
func (r *URLResolver) Cache(ctx context.Context, url *models.URL) CacheResult {
	key := urlKey(url.ShortCode)

	ttl := r.ttlFor(url)
	if ttl <= 0 {
		return CacheResult{Op: "set", Key: key}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cacheTimeout)
	defer cancel()

	err := r.cache.Set(ctx, key, url.OriginalURL, ttl)

	return CacheResult{Op: "set", Key: key, Err: err}
}

func (r *URLResolver) ttlFor(url *models.URL) time.Duration {
	if url.ExpiresAt == nil {
		return r.urlTTL
	}

	now := r.now()
	if url.IsExpired(now) {
		return 0
	}

	return min(r.urlTTL, url.ExpiresAt.Sub(now))
}

// Evict removes any cached mapping for shortCode.
func (r *URLResolver) Evict(ctx context.Context, shortCode string) CacheResult {
	ctx, cancel := context.WithTimeout(ctx, r.cacheTimeout)
	defer cancel()

	key := urlKey(shortCode)
	res := CacheResult{Op: "delete", Key: key, Err: r.cache.Delete(ctx, key)}
	r.observe(res)

	return res
}

func (r *URLResolver) observe(res CacheResult) {
	if res.Failed() {
		r.logger.Warn("best-effort cache operation failed",
			slog.String("op", res.Op),
			slog.String("key", res.Key),
			slog.Any("err", res.Err),
		)
	}
}

// HitRate returns hits / (hits + misses), or 0 when nothing was observed yet.
func (r *URLResolver) HitRate(ctx context.Context) (float64, error) {
	const op = "service.URLResolver.HitRate"

	hits, err := r.readStat(ctx, cacheHitsKey)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	misses, err := r.readStat(ctx, cacheMissesKey)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	total := hits + misses
	if total <= 0 {
		return 0, nil
	}

	return float64(hits) / float64(total), nil
}

func (r *URLResolver) readStat(ctx context.Context, key string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cacheTimeout)
	defer cancel()

	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %q: %w", key, err)
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %q: %w", raw, key, err)
	}

	return n, nil
}

// ResetStats zeroes the hit and miss counters.
func (r *URLResolver) ResetStats(ctx context.Context) error {
	const op = "service.URLResolver.ResetStats"

	ctx, cancel := context.WithTimeout(ctx, r.cacheTimeout)
	defer cancel()

	if err := r.cache.Delete(ctx, cacheHitsKey, cacheMissesKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.logger.Info("cache statistics reset")

	return nil
}
