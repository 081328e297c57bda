// Package http is the HTTP front end of the link shortener: creation and
// resolution endpoints, redirects and the admin surface.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
)

// URLService is what the router needs from the core.
type URLService interface {
	urlService
	adminService
}

// NewRouter builds the HTTP front end. healthyHitRate is the cache hit rate
// above which /admin/health reports the cache as HEALTHY.
func NewRouter(logger *httplog.Logger, svc URLService, sweeper sweeper, healthyHitRate float64) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	h := newURLHandler(svc, validator.New())
	a := newAdminHandler(svc, sweeper, healthyHitRate)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Route("/urls", func(r chi.Router) {
			r.Post("/", h.createURL)
			r.Post("/simple", h.createURLSimple)
			r.Get("/{shortCode}", h.resolveShortCode)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/health", a.health)
		r.Get("/counter", a.getCounter)
		r.Post("/sweep", a.sweep)

		r.Route("/cache/stats", func(r chi.Router) {
			r.Get("/", a.getCacheStats)
			r.Delete("/", a.resetCacheStats)
		})
	})

	r.Get("/{shortCode}", h.redirect)

	return r
}
