package factory

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mcoot/captain-draft/internal/api"
	"github.com/mcoot/captain-draft/internal/dependencies/clock"
	"github.com/mcoot/captain-draft/internal/dependencies/random"
	"github.com/mcoot/captain-draft/internal/metrics"
	"github.com/mcoot/captain-draft/internal/realtime"
	"github.com/mcoot/captain-draft/internal/services/secrets"
	"github.com/mcoot/captain-draft/internal/services/session"
	"github.com/mcoot/captain-draft/internal/storage"
	"github.com/mcoot/captain-draft/internal/storage/memory"
	redisstorage "github.com/mcoot/captain-draft/internal/storage/redis"
	"github.com/mcoot/captain-draft/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Observability
	Metrics    *metrics.Metrics
	Prometheus *prometheus.Registry

	// Services
	Registry    *session.Registry
	Coordinator *realtime.Coordinator
	WebSocket   *ws.Handler

	// Router serves the HTTP API, /metrics and /ws
	Router http.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the result archive backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// ResultTTL is how long the memory backend keeps results; zero keeps them forever
	ResultTTL time.Duration

	// Session, Realtime and WebSocket default to their packages' DefaultConfig where zero
	Session   session.Config
	Realtime  realtime.Config
	WebSocket ws.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New(clk, cfg.ResultTTL)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return newWithDependencies(store, clk, rnd, reg, cfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	reg *prometheus.Registry,
	cfg Config,
	logger *slog.Logger,
) *App {
	m := metrics.New(reg)

	registry := session.NewRegistry(cfg.Session, clk, secrets.NewGenerator(rnd), store, m, logger)
	coordinator := realtime.NewCoordinator(registry, clk, cfg.Realtime, m, logger)
	wsHandler := ws.NewHandler(coordinator, cfg.WebSocket, logger)

	router := api.NewRouter(api.RouterConfig{
		Logger:    logger,
		Registry:  registry,
		Storage:   store,
		Metrics:   m,
		Gatherer:  reg,
		WebSocket: wsHandler,
	})

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Metrics:     m,
		Prometheus:  reg,
		Registry:    registry,
		Coordinator: coordinator,
		WebSocket:   wsHandler,
		Router:      router,
	}
}

// Close releases storage connections
func (a *App) Close() error {
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
