package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/captain-draft/internal/api"
	"github.com/mcoot/captain-draft/internal/config"
	"github.com/mcoot/captain-draft/internal/factory"
	"github.com/mcoot/captain-draft/internal/realtime"
	"github.com/mcoot/captain-draft/internal/services/session"
	redisstorage "github.com/mcoot/captain-draft/internal/storage/redis"
	"github.com/mcoot/captain-draft/internal/web/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Build factory config from environment
	factoryCfg := factory.Config{
		Logger:      logger,
		StorageType: cfg.StorageType,
		ResultTTL:   cfg.ResultTTL,
		Session: session.Config{
			IdleTimeout: cfg.IdleTimeout,
			GracePeriod: cfg.GracePeriod,
		},
		Realtime: realtime.Config{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		WebSocket: ws.Config{
			SendBuffer:     cfg.SendBuffer,
			OriginPatterns: cfg.AllowedOrigins,
		},
	}

	// Configure Redis if storage type is redis
	if cfg.StorageType == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.ResultTTL = cfg.ResultTTL
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = app.Close() }()

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(app.Router, serverConfig, logger)

	// Tear down live sessions so websockets close and results are archived
	sessionsDone := make(chan struct{})
	server.RegisterOnShutdown(func() {
		defer close(sessionsDone)
		if err := app.Registry.Shutdown(context.Background()); err != nil {
			logger.Error("session shutdown error", slog.String("error", err.Error()))
		}
	})

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
		<-sessionsDone
	}

	logger.Info("server stopped")
}
