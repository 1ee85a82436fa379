package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lakefence/internal/config"
	"lakefence/internal/middleware"
)

// NewRouter assembles the chi router: public health and metrics endpoints,
// and the authenticated /v1 API behind rate limiting and CORS.
func NewRouter(cfg *config.Config, h *Handler, auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", cfg.Auth.APIKeyHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth)
		r.Post("/query", h.ExecuteQuery)
		r.Post("/ask", h.Ask)
		r.Get("/schema", h.Schema)
		r.Get("/contexts", h.ListContexts)
		r.Get("/grants", h.ListGrants)
		r.Get("/audit", h.ListAudit)
	})

	return r
}
