// Package httpapi assembles the public HTTP surface: middleware stack,
// feature handlers, health and metrics endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	platformmetrics "credentia/internal/platform/metrics"
	"credentia/internal/platform/middleware"
	screeninghandler "credentia/internal/screening/handler"
	versionhandler "credentia/internal/version/handler"
	"credentia/pkg/platform/httputil"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthFunc adapts a plain function to HealthChecker.
type HealthFunc func(ctx context.Context) error

// Health implements HealthChecker.
func (f HealthFunc) Health(ctx context.Context) error { return f(ctx) }

// Deps carries everything the router needs.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *platformmetrics.Metrics
	Validator middleware.TokenValidator
	Screening *screeninghandler.Handler
	Versions  *versionhandler.Handler
	// Checks run on /healthz, keyed by dependency name.
	Checks map[string]HealthChecker
}

// New builds the HTTP router. Metrics and health stay outside the auth
// perimeter; every /api/v1 route requires a bearer token.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestMeta)
	r.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	r.Use(middleware.Recoverer(deps.Logger))

	r.Get("/healthz", handleHealth(deps.Checks))
	r.Method(http.MethodGet, "/metrics", platformmetrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		deps.Screening.Register(r)
		deps.Versions.Register(r)
	})
	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		httputil.WriteJSON(w, status, report)
	}
}
