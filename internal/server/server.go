// Package server implements the HTTP transport layer for the newsgate gateway.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	gateway "github.com/eugener/newsgate/internal"
	"github.com/eugener/newsgate/internal/app"
	"github.com/eugener/newsgate/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// UsageReporter answers usage summary queries.
type UsageReporter interface {
	SummarizeUsage(ctx context.Context, f gateway.UsageFilter) ([]gateway.UsageSummary, error)
}

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	News           *app.NewsService
	Usage          UsageReporter      // nil = /api/usage answers 404
	ReadyCheck     ReadyChecker       // nil = always ready (for tests)
	Metrics        *telemetry.Metrics // nil = no request metrics
	MetricsHandler http.Handler       // nil = no /metrics endpoint
	CORSOrigins    []string           // empty = no CORS headers
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	// System endpoints
	r.Get("/", s.handleBanner)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/news/top-headlines", s.handleHeadlines)
		r.Get("/news/everything", s.handleSearch)
		r.Get("/news/sources", s.handleSources)
		r.Post("/cache/clear", s.handleCacheClear)
		r.Get("/usage", s.handleUsage)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	return r
}

type server struct {
	deps Deps
}
