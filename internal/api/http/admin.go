package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/link-shortener/internal/jobs"
	"github.com/vadimbarashkov/link-shortener/pkg/response"
)

type adminService interface {
	CacheHitRate(ctx context.Context) (float64, error)
	ResetCacheStats(ctx context.Context) error
	CounterValue(ctx context.Context) (int64, error)
}

type sweeper interface {
	Sweep(ctx context.Context) (jobs.SweepReport, error)
}

type adminHandler struct {
	svc            adminService
	sweeper        sweeper
	healthyHitRate float64
	now            func() time.Time
}

// newAdminHandler reports the cache as healthy above healthyHitRate.
// Values outside (0, 1] fall back to jobs.DefaultLowHitRateThreshold.
func newAdminHandler(svc adminService, sweeper sweeper, healthyHitRate float64) *adminHandler {
	if healthyHitRate <= 0 || healthyHitRate > 1 {
		healthyHitRate = jobs.DefaultLowHitRateThreshold
	}

	return &adminHandler{
		svc:            svc,
		sweeper:        sweeper,
		healthyHitRate: healthyHitRate,
		now:            time.Now,
	}
}

func (h *adminHandler) getCacheStats(w http.ResponseWriter, r *http.Request) {
	rate, err := h.svc.CacheHitRate(r.Context())
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorResponse("failed to read cache statistics"))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toCacheStatsResponse(rate))
}

func (h *adminHandler) resetCacheStats(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResetCacheStats(r.Context()); err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse("cache statistics reset"))
}

func (h *adminHandler) health(w http.ResponseWriter, r *http.Request) {
	ts := h.now().UnixMilli()

	rate, err := h.svc.CacheHitRate(r.Context())
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, healthResponse{
			Status:    healthDown,
			Error:     err.Error(),
			Timestamp: ts,
		})
		return
	}

	status := cacheWarning
	if rate > h.healthyHitRate {
		status = cacheHealthy
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, healthResponse{
		Status:    healthUp,
		Cache:     &cacheHealth{HitRate: rate, Status: status},
		Timestamp: ts,
	})
}

func (h *adminHandler) getCounter(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.CounterValue(r.Context())
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, counterResponse{Value: n})
}

func (h *adminHandler) sweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		if errors.Is(err, jobs.ErrSweepInProgress) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.ErrorResponse("sweep already in progress"))
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toSweepResponse(report))
}
