package http

import (
	"fmt"

	"github.com/vadimbarashkov/link-shortener/internal/jobs"
	"github.com/vadimbarashkov/link-shortener/internal/service"
)

// createURLRequest is the body of a full creation request.
type createURLRequest struct {
	OriginalURL    string  `json:"original_url" validate:"required"`
	Alias          *string `json:"alias,omitempty"`
	ExpirationDate *string `json:"expiration_date,omitempty"`
}

func (r createURLRequest) toParams() service.ShortenParams {
	return service.ShortenParams{
		OriginalURL:    r.OriginalURL,
		Alias:          r.Alias,
		ExpirationDate: r.ExpirationDate,
	}
}

type createURLResponse struct {
	ShortCode      string  `json:"short_code"`
	ShortURL       string  `json:"short_url"`
	OriginalURL    string  `json:"original_url"`
	ExpirationDate *string `json:"expiration_date"`
}

func toCreateURLResponse(res *service.ShortenResult) createURLResponse {
	return createURLResponse{
		ShortCode:      res.ShortCode,
		ShortURL:       res.ShortURL,
		OriginalURL:    res.OriginalURL,
		ExpirationDate: res.ExpirationDate,
	}
}

type resolveURLResponse struct {
	ShortCode   string `json:"short_code"`
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
}

type cacheStatsResponse struct {
	Status            string  `json:"status"`
	HitRate           float64 `json:"hit_rate"`
	HitRatePercentage string  `json:"hit_rate_percentage"`
}

func toCacheStatsResponse(rate float64) cacheStatsResponse {
	return cacheStatsResponse{
		Status:            "healthy",
		HitRate:           rate,
		HitRatePercentage: fmt.Sprintf("%.2f%%", rate*100),
	}
}

const (
	healthUp   = "UP"
	healthDown = "DOWN"

	cacheHealthy = "HEALTHY"
	cacheWarning = "WARNING"
)

type cacheHealth struct {
	HitRate float64 `json:"hit_rate"`
	Status  string  `json:"status"`
}

type healthResponse struct {
	Status    string       `json:"status"`
	Cache     *cacheHealth `json:"cache,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

type counterResponse struct {
	Value int64 `json:"value"`
}

type sweepResponse struct {
	Expired       int   `json:"expired"`
	Evicted       int   `json:"evicted"`
	EvictFailures int   `json:"evict_failures"`
	Deleted       int64 `json:"deleted"`
}

func toSweepResponse(r jobs.SweepReport) sweepResponse {
	return sweepResponse{
		Expired:       r.Expired,
		Evicted:       r.Evicted,
		EvictFailures: r.EvictFailures,
		Deleted:       r.Deleted,
	}
}
