package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/captain-draft/internal/api/handler"
	"github.com/mcoot/captain-draft/internal/api/middleware"
	"github.com/mcoot/captain-draft/internal/metrics"
	"github.com/mcoot/captain-draft/internal/services/session"
	"github.com/mcoot/captain-draft/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger   *slog.Logger
	Registry *session.Registry
	Storage  storage.Storage
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// WebSocket serves the live draft protocol on /ws
	WebSocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	sessionHandler := handler.NewSessionHandler(cfg.Registry, cfg.Storage)
	healthHandler := handler.NewHealthHandler(cfg.Registry, cfg.Storage)

	// Create middleware
	bearerMiddleware := middleware.BearerSecret()
	loggingMiddleware := middleware.Logging(cfg.Logger)
	metricsMiddleware := middleware.Metrics(cfg.Metrics)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(metricsMiddleware)

	// API subrouter
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/sessions", sessionHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	// Results require the host secret
	results := api.PathPrefix("/sessions/{id}").Subrouter()
	results.Use(bearerMiddleware)
	results.HandleFunc("/result", sessionHandler.Result).Methods(http.MethodGet)

	// Route kept for clients of the original create endpoint
	r.HandleFunc("/api/create", sessionHandler.Create).Methods(http.MethodPost)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket).Methods(http.MethodGet)
	}

	return r
}
