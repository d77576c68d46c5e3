// Package api provides the HTTP API of the vehicle watcher.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/coordinator"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/writer"
)

// ServerOption configures the API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
	fields         []string
	history        writer.HistoryWriter
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler serves h on GET /metrics
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// WithEnabledFields limits the readouts to fields
func WithEnabledFields(fields []string) ServerOption {
	return func(cfg *serverConfig) {
		cfg.fields = fields
	}
}

// WithHistory serves the change history on GET /vehicle/history
func WithHistory(w writer.HistoryWriter) ServerOption {
	return func(cfg *serverConfig) {
		cfg.history = w
	}
}

// NewServer creates and configures the HTTP router for the coordinator
func NewServer(coord coordinator.Coordinator, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		fields: record.KnownKeys,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	routes := &Routes{coord: coord, fields: cfg.fields, history: cfg.history}

	r.Get("/health", healthHandler)
	r.Get("/readiness", routes.readiness)
	r.Get("/version", versionHandler)
	r.Get("/diagnostics", routes.diagnostics)
	r.Post("/refresh", routes.refresh)

	r.Route("/vehicle", func(r chi.Router) {
		r.Get("/", routes.vehicle)
		r.Get("/readouts", routes.readouts)
		r.Get("/readouts/{key}", routes.readoutByKey)
		r.Get("/stolen", routes.stolen)
		if cfg.history != nil {
			r.Get("/history", routes.historyEntries)
		}
	})

	if cfg.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metricsHandler)
	}

	return r
}

// LoggingMiddleware logs HTTP requests and puts a request-scoped logr.Logger
// into the context for the sources of a manual refresh.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logr.FromSlogHandler(slog.Default().Handler()).
			WithValues("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(logr.NewContext(r.Context(), logger))

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
