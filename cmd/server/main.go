// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/objzip/internal/api"
	"github.com/andresuchdata/objzip/internal/cache"
	"github.com/andresuchdata/objzip/internal/config"
	"github.com/andresuchdata/objzip/internal/pipeline"
	"github.com/andresuchdata/objzip/internal/service"
	"github.com/andresuchdata/objzip/internal/storage"
	"github.com/andresuchdata/objzip/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	store, err := storage.NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to initialize object store")
	}

	registry, err := cache.NewSessionRegistry(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Session registry unavailable, continuing without it")
		registry = cache.NewNoopSessionRegistry()
	}
	defer registry.Close()

	// Clean up sessions left open by a previous process
	sweeper := service.NewSweepService(registry, store)
	if report, err := sweeper.Sweep(ctx, cfg.Cache.SessionStaleAge); err != nil {
		logger.Log.Warn().Err(err).Interface("report", report).Msg("Startup sweep incomplete")
	} else if report.Aborted > 0 {
		logger.Log.Info().Int("aborted", report.Aborted).Msg("Startup sweep aborted stale sessions")
	}

	// Initialize services
	orchestrator := pipeline.NewOrchestrator(store, pipeline.ConfigFrom(cfg.Archive), registry)
	services := &api.Services{
		ArchiveService: service.NewArchiveService(orchestrator),
		HealthService:  service.NewHealthService(),
	}

	// Request contexts derive from runCtx so that shutdown can cancel running pipelines
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	// Initialize HTTP server
	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BaseContext:  func(net.Listener) context.Context { return runCtx },
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("addr", srv.Addr).
			Str("driver", cfg.Storage.Driver).
			Str("bucket", cfg.Storage.Bucket).
			Str("framing", cfg.Archive.Framing).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	if err := shutdown(srv, cancelRuns, cfg.Archive.AbortTimeout); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
