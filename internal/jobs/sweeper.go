// Package jobs contains the periodic maintenance tasks of the service.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/models"
	"github.com/vadimbarashkov/link-shortener/internal/service"
)

// ErrSweepInProgress is returned when a sweep is triggered while another one is running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// ExpiredURLRepository lists and purges expired records.
type ExpiredURLRepository interface {
	ListExpired(ctx context.Context, now time.Time) ([]*models.URL, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Evicter removes cached mappings.
type Evicter interface {
	Evict(ctx context.Context, shortCode string) service.CacheResult
}

// SweepReport summarizes a single sweep.
type SweepReport struct {
	Expired       int
	Evicted       int
	EvictFailures int
	Deleted       int64
}

// ExpirationSweeper removes expired records and invalidates their cache entries.
// At most one sweep runs at a time per sweeper.
type ExpirationSweeper struct {
	repo    ExpiredURLRepository
	evicter Evicter
	logger  *slog.Logger
	now     func() time.Time
	running atomic.Bool
}

func NewExpirationSweeper(repo ExpiredURLRepository, evicter Evicter, logger *slog.Logger) *ExpirationSweeper {
	return &ExpirationSweeper{
		repo:    repo,
		evicter: evicter,
		logger:  logger,
		now:     time.Now,
	}
}

// Sweep evicts the cache entry of every record expired before now and then
// deletes those records in one batch. Failed evictions are counted and logged
// but never stop the deletion; failed runs are left to the next schedule.
func (s *ExpirationSweeper) Sweep(ctx context.Context) (SweepReport, error) {
	const op = "jobs.ExpirationSweeper.Sweep"

	var report SweepReport

	if !s.running.CompareAndSwap(false, true) {
		return report, fmt.Errorf("%s: %w", op, ErrSweepInProgress)
	}
	defer s.running.Store(false)

	now := s.now()

	expired, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		return report, fmt.Errorf("%s: %w", op, err)
	}
	report.Expired = len(expired)

	if len(expired) == 0 {
		s.logger.Info("no expired urls to sweep")
		return report, nil
	}

	for _, url := range expired {
		if res := s.evicter.Evict(ctx, url.ShortCode); res.Failed() {
			report.EvictFailures++
			continue
		}
		report.Evicted++
	}

	report.Deleted, err = s.repo.DeleteExpired(ctx, now)
	if err != nil {
		return report, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("expired urls swept",
		slog.Int("expired", report.Expired),
		slog.Int("evicted", report.Evicted),
		slog.Int("evict_failures", report.EvictFailures),
		slog.Int64("deleted", report.Deleted),
	)

	return report, nil
}

// Run adapts Sweep to a scheduled job.
func (s *ExpirationSweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}
