// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

// Package main is the entry point for the Tasteworlds server.
//
// Tasteworlds builds a personalized "taste world" from a listener's seed
// tracks and onboarding interview, then generates themed playlists for the
// world's intersections against an upstream music catalog.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layering (defaults, YAML file, TASTEWORLDS_* env)
//  2. Logging: zerolog with the configured level and format
//  3. Storage: BadgerDB for world definitions and job records
//  4. Catalog: rate-limited HTTP client behind a circuit breaker
//  5. GenAI: Gemini embedding and world-extraction engines
//  6. Jobs: Watermill in-process queue, orchestrator, and runner
//  7. HTTP API: Chi router with CORS, rate limiting, and Prometheus metrics
//  8. Supervision: suture tree running storage GC, the job runner, and the
//     HTTP server
//
// # Signal handling
//
// SIGINT and SIGTERM trigger a graceful stop: the HTTP server drains
// in-flight requests, the job runner finishes its current message, and
// Badger is closed last.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvance/tasteworlds/internal/api"
	"github.com/mvance/tasteworlds/internal/config"
	"github.com/mvance/tasteworlds/internal/jobs"
	"github.com/mvance/tasteworlds/internal/logging"
	"github.com/mvance/tasteworlds/internal/store"
	"github.com/mvance/tasteworlds/internal/supervisor"
	"github.com/mvance/tasteworlds/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config errors surface through the default logger; the configured
		// one does not exist yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("storage_path", cfg.Storage.Path).
		Str("catalog_url", cfg.Catalog.BaseURL).
		Str("embedding_model", cfg.GenAI.EmbeddingModel).
		Msg("Configuration loaded")

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	worldStore := store.NewWorldStore(db)
	jobStore := store.NewJobStore(db, cfg.Storage.JobRetention)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engines, err := initEngines(ctx, cfg, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize engines")
	}

	queue := jobs.NewQueue(cfg.Jobs.QueueBuffer, logger)
	defer func() {
		if err := queue.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing job queue")
		}
	}()

	orchestrator := jobs.NewOrchestrator(jobStore, queue, logger)
	runner := jobs.NewRunner(queue, jobStore, worldStore, engines.builder, engines.generator, logger)

	handler := api.NewHandler(orchestrator, worldStore, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:        cfg.Server.CORSOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddStorageService(services.NewGCService(db, logger))
	tree.AddWorkerService(services.NewRunnerService(runner))
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Stopped gracefully")
}
