// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package main is the entry point for the Curato digest engine.
//
// Curato turns a scored candidate pool into a personalized digest report
// and learns from recorded feedback between runs. The binary wires the
// pieces together in the following order:
//
//  1. Configuration: defaults, optional YAML file, CURATO_* env (Koanf v2)
//  2. Logging: zerolog, with per-run correlation IDs
//  3. State store: BadgerDB for learned weights and profile vectors
//  4. Feedback store: embedded DuckDB for interaction events
//  5. Engine: weight learner, reranker, shelf selector, pattern analyzer
//  6. Scheduler: periodic runs under a suture supervisor
//
// # Modes
//
// With scheduler.enabled (default) the process runs until SIGINT/SIGTERM,
// generating a digest every scheduler.interval. With -once (or
// scheduler.enabled=false) it performs a single run and exits, which is
// the natural shape for cron-driven deployments.
//
// # Example Usage
//
// Single run against a candidate pool:
//
//	export CURATO_STATE_DIR=/data/curato/state
//	export CURATO_FEEDBACK_PATH=/data/curato/feedback.duckdb
//	export CURATO_CANDIDATES_PATH=/data/curato/candidates.json
//	./curato -once
//
// Supervised daily schedule with metrics:
//
//	export CURATO_SCHEDULER_INTERVAL=24h
//	export CURATO_METRICS_ENABLED=true
//	./curato
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/rcastell/curato/internal/advisor"
	"github.com/rcastell/curato/internal/config"
	"github.com/rcastell/curato/internal/digest"
	"github.com/rcastell/curato/internal/digest/insights"
	"github.com/rcastell/curato/internal/digest/rerank"
	"github.com/rcastell/curato/internal/digest/selector"
	"github.com/rcastell/curato/internal/digest/weights"
	"github.com/rcastell/curato/internal/feedback"
	"github.com/rcastell/curato/internal/logging"
	"github.com/rcastell/curato/internal/profile"
	"github.com/rcastell/curato/internal/report"
	"github.com/rcastell/curato/internal/scheduler"
)

func main() {
	once := flag.Bool("once", false, "perform a single digest run and exit")
	configPath := flag.String("config", "", "config file path (overrides CONFIG_PATH and default search)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		// Default logger for config errors; config is not available yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("state_dir", cfg.Store.StateDir).
		Str("feedback_path", cfg.Feedback.Path).
		Str("candidates_path", cfg.Ingest.CandidatesPath).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Configuration loaded")

	// State store for learned weights and profile vectors.
	opts := badger.DefaultOptions(cfg.Store.StateDir).WithLogger(nil)
	if cfg.Store.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	stateDB, err := badger.Open(opts)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open state store")
	}
	defer func() {
		if err := stateDB.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing state store")
		}
	}()

	feedbackDB, err := feedback.Open(cfg.Feedback.Path, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open feedback store")
	}
	defer func() {
		if err := feedbackDB.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing feedback store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Restore learned weights from the last snapshot. A missing or
	// corrupt snapshot restores defaults, never aborts startup.
	weightStore := weights.NewStore(cfg.Digest.Weights, logger)
	repo := weights.NewBadgerRepository(stateDB, logger)
	snap, err := repo.Load(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load weight snapshot")
	}
	weightStore.Restore(snap)

	engine, err := digest.NewEngine(
		&cfg.Digest,
		weightStore,
		rerank.NewReranker(cfg.Digest.Rerank, weightStore, logger),
		selector.NewSelector(cfg.Digest.Selection, cfg.Digest.Seed, logger),
		insights.NewAnalyzer(cfg.Digest.Insights, logger),
		logger,
	)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build digest engine")
	}

	runner := &pipeline{
		cfg:      cfg,
		engine:   engine,
		weights:  weightStore,
		repo:     repo,
		profiles: profile.NewStore(stateDB, logger),
		feedback: feedbackDB,
		advisor:  advisor.New(cfg.Digest.Insights.ProtectedSources, logger),
		renderer: report.NewRenderer(),
		logger:   logger,
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.ListenAddr)
	}

	if *once || !cfg.Scheduler.Enabled {
		if err := runner.RunOnce(ctx); err != nil {
			logging.Fatal().Err(err).Msg("Digest run failed")
		}
		logging.Info().Msg("Single digest run completed")
		return
	}

	runSupervised(ctx, cancel, cfg, runner, logger)
}

// runSupervised runs the scheduler under a suture supervisor until a
// shutdown signal arrives.
//nolint:gocritic // logger passed by value is acceptable for zerolog
func runSupervised(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, runner scheduler.Runner, logger zerolog.Logger) {
	sched := scheduler.New(runner, scheduler.Config{
		Interval:         cfg.Scheduler.Interval,
		RunOnStartup:     cfg.Scheduler.RunOnStartup,
		ExecutionTimeout: cfg.Scheduler.ExecutionTimeout,
	}, logger)

	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
	root := suture.New("curato", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	root.Add(scheduler.NewService(sched))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor...")
	errCh := root.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Curato stopped gracefully")
}

// serveMetrics exposes the Prometheus registry until the context ends.
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("Metrics server shutdown error")
		}
	}()

	logging.Info().Str("addr", addr).Msg("Metrics listener started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Msg("Metrics server error")
	}
}
