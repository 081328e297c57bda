package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/alias"
	"github.com/vadimbarashkov/link-shortener/internal/database"
	"github.com/vadimbarashkov/link-shortener/internal/models"
	"github.com/vadimbarashkov/link-shortener/pkg/base62"
)

// ExpirationLayout is the accepted local date-time layout for expiration dates.
// Values without a zone are interpreted as UTC.
const ExpirationLayout = "2006-01-02T15:04:05"

var (
	// ErrInvalidRequest is returned when required input is missing or blank.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAliasConflict is returned when the requested alias is already taken.
	ErrAliasConflict = errors.New("alias already exists")
	// ErrInvalidDateFormat is returned when the expiration date cannot be parsed.
	ErrInvalidDateFormat = errors.New("invalid expiration date format")
	// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")
)

// URLRepository defines the persistent store operations used by the creation path.
type URLRepository interface {
	Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error)
	ExistsByShortCode(ctx context.Context, shortCode string) (bool, error)
}

// Counter allocates globally unique positive integers.
type Counter interface {
	NextValue(ctx context.Context) (int64, error)
	CurrentValue(ctx context.Context) (int64, error)
}

// Resolver resolves short codes to original URLs.
type Resolver interface {
	Resolve(ctx context.Context, shortCode string) (string, error)
	HitRate(ctx context.Context) (float64, error)
	ResetStats(ctx context.Context) error
}

// ShortenParams holds the input of the creation path. Nil and blank optional
// fields are treated as absent.
type ShortenParams struct {
	OriginalURL    string
	Alias          *string
	ExpirationDate *string
}

// ShortenResult is the outcome of a successful creation. ExpirationDate echoes
// the input as given, without reformatting.
type ShortenResult struct {
	ShortCode      string
	ShortURL       string
	OriginalURL    string
	ExpirationDate *string
	URL            *models.URL
}

// URLService implements link creation and resolution on top of the counter,
// the persistent store and the cache-aside resolver.
type URLService struct {
	repo     URLRepository
	counter  Counter
	resolver Resolver
	domain   string
	logger   *slog.Logger
}

func NewURLService(repo URLRepository, counter Counter, resolver Resolver, domain string, logger *slog.Logger) *URLService {
	return &URLService{
		repo:     repo,
		counter:  counter,
		resolver: resolver,
		domain:   strings.TrimRight(domain, "/"),
		logger:   logger,
	}
}

// ShortenURL creates a short link. A supplied alias is validated and used as
// the code; otherwise the code is the base62 encoding of the next counter value.
func (s *URLService) ShortenURL(ctx context.Context, params ShortenParams) (*ShortenResult, error) {
	const op = "service.URLService.ShortenURL"

	originalURL := strings.TrimSpace(params.OriginalURL)
	if originalURL == "" {
		return nil, fmt.Errorf("%s: original url cannot be empty: %w", op, ErrInvalidRequest)
	}

	expiresAt, expiration, err := parseExpirationDate(params.ExpirationDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var url *models.URL
	if a := optional(params.Alias); a != "" {
		url, err = s.createWithAlias(ctx, a, originalURL, expiresAt)
	} else {
		url, err = s.createWithCounter(ctx, originalURL, expiresAt)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("short url created",
		slog.String("short_code", url.ShortCode),
		slog.Bool("alias", optional(params.Alias) != ""),
	)

	return &ShortenResult{
		ShortCode:      url.ShortCode,
		ShortURL:       s.ShortURL(url.ShortCode),
		OriginalURL:    url.OriginalURL,
		ExpirationDate: expiration,
		URL:            url,
	}, nil
}

func (s *URLService) createWithAlias(ctx context.Context, a, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	if err := alias.Validate(a); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByShortCode(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("failed to check alias: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%q: %w", a, ErrAliasConflict)
	}

	url, err := s.repo.Create(ctx, a, originalURL, expiresAt)
	if err != nil {
		if errors.Is(err, database.ErrShortCodeExists) {
			return nil, fmt.Errorf("%q: %w", a, ErrAliasConflict)
		}

		return nil, fmt.Errorf("failed to shorten url: %w", err)
	}

	return url, nil
}

func (s *URLService) createWithCounter(ctx context.Context, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	const maxRetries = 5

	for i := 0; i < maxRetries; i++ {
		n, err := s.counter.NextValue(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		shortCode := base62.Encode(uint64(n))

		url, err := s.repo.Create(ctx, shortCode, originalURL, expiresAt)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				s.logger.Warn("generated short code already taken",
					slog.String("short_code", shortCode),
					slog.Int("attempt", i+1),
				)
				continue
			}

			return nil, fmt.Errorf("failed to shorten url: %w", err)
		}

		return url, nil
	}

	return nil, ErrMaxRetriesExceeded
}

// ShortenSimple creates a counter-based short link and returns only its code.
func (s *URLService) ShortenSimple(ctx context.Context, originalURL string) (string, error) {
	res, err := s.ShortenURL(ctx, ShortenParams{OriginalURL: originalURL})
	if err != nil {
		return "", err
	}

	return res.ShortCode, nil
}

// ResolveShortCode returns the original URL for a live short code.
// Codes that contain non-base62 characters can never exist and are reported
// as not found without touching any store.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode string) (string, error) {
	const op = "service.URLService.ResolveShortCode"

	if !base62.IsValid(shortCode) {
		return "", fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	url, err := s.resolver.Resolve(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	return url, nil
}

func (s *URLService) ShortURL(shortCode string) string {
	return s.domain + "/" + shortCode
}

func (s *URLService) CacheHitRate(ctx context.Context) (float64, error) {
	const op = "service.URLService.CacheHitRate"

	rate, err := s.resolver.HitRate(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return rate, nil
}

func (s *URLService) ResetCacheStats(ctx context.Context) error {
	const op = "service.URLService.ResetCacheStats"

	if err := s.resolver.ResetStats(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CounterValue reports the last allocated counter value without advancing it.
func (s *URLService) CounterValue(ctx context.Context) (int64, error) {
	const op = "service.URLService.CounterValue"

	n, err := s.counter.CurrentValue(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func parseExpirationDate(raw *string) (*time.Time, *string, error) {
	v := optional(raw)
	if v == "" {
		return nil, nil, nil
	}

	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		t, err = time.ParseInLocation(ExpirationLayout, v, time.UTC)
		if err != nil {
			return nil, nil, fmt.Errorf("%q: use %s: %w", v, ExpirationLayout, ErrInvalidDateFormat)
		}
	}

	return &t, &v, nil
}
