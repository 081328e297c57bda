package jobs

import (
	"context"
	"fmt"
	"log/slog"
)

const DefaultLowHitRateThreshold = 0.5

// CacheStats reads and resets the resolver hit/miss statistics.
type CacheStats interface {
	HitRate(ctx context.Context) (float64, error)
	ResetStats(ctx context.Context) error
}

// CacheStatsMonitor watches the cache hit rate and periodically resets it.
type CacheStatsMonitor struct {
	stats     CacheStats
	threshold float64
	logger    *slog.Logger
}

func NewCacheStatsMonitor(stats CacheStats, threshold float64, logger *slog.Logger) *CacheStatsMonitor {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultLowHitRateThreshold
	}

	return &CacheStatsMonitor{
		stats:     stats,
		threshold: threshold,
		logger:    logger,
	}
}

// CheckHitRate logs the current hit rate and warns when it is below the threshold.
// It reports whether the rate was low.
func (m *CacheStatsMonitor) CheckHitRate(ctx context.Context) (bool, error) {
	const op = "jobs.CacheStatsMonitor.CheckHitRate"

	rate, err := m.stats.HitRate(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if rate < m.threshold {
		m.logger.Warn("low cache hit rate",
			slog.Float64("hit_rate", rate),
			slog.Float64("threshold", m.threshold),
		)
		return true, nil
	}

	m.logger.Info("cache hit rate", slog.Float64("hit_rate", rate))

	return false, nil
}

// RunCheck adapts CheckHitRate to a scheduled job.
func (m *CacheStatsMonitor) RunCheck(ctx context.Context) error {
	_, err := m.CheckHitRate(ctx)
	return err
}

// RunReset zeroes the statistics. Used as a scheduled job.
func (m *CacheStatsMonitor) RunReset(ctx context.Context) error {
	const op = "jobs.CacheStatsMonitor.RunReset"

	if err := m.stats.ResetStats(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
