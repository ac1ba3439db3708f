package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/motorplace/ugc-service/internal/auth"
	"github.com/motorplace/ugc-service/internal/config"
	"github.com/motorplace/ugc-service/internal/graphql"
	"github.com/motorplace/ugc-service/pkg/health"
	"github.com/motorplace/ugc-service/pkg/middleware"
)

// newRouter builds the HTTP surface: the GraphQL endpoint behind the full
// middleware chain, plus health and metrics endpoints outside of it.
func newRouter(
	cfg *config.Config,
	gqlHandler *graphql.Handler,
	verifier *auth.Verifier,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("ugc"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())

	// Prometheus metrics
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// GraphQL endpoint: per-IP transport limit, then identity extraction,
	// then the request-scoped logger the resolvers pull from context.
	r.Route("/graphql", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.HTTPRateLimitRPS, cfg.HTTPRateLimitBurst, logger))
		r.Use(auth.Middleware(verifier, logger))
		r.Use(middleware.RequestLogger(logger))

		r.Handle("/", gqlHandler)
	})

	return r
}
