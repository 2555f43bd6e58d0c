// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package scheduler provides interval-based triggering of digest runs.
//
// The scheduler owns no pipeline logic itself. It ticks on a configurable
// interval and hands each tick to a Runner, skipping ticks that arrive
// while a previous run is still executing. It integrates with the
// supervisor tree through the Service wrapper.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/metrics"
)

// Runner executes a single digest run. Implementations are expected to be
// safe for sequential reuse; the scheduler never runs two ticks at once.
type Runner interface {
	RunOnce(ctx context.Context) error
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context) error

// RunOnce implements Runner.
func (f RunnerFunc) RunOnce(ctx context.Context) error { return f(ctx) }

// Config holds scheduler settings.
type Config struct {
	// Interval is the time between digest runs.
	Interval time.Duration

	// RunOnStartup triggers a run immediately instead of waiting for the
	// first tick.
	RunOnStartup bool

	// ExecutionTimeout bounds a single run.
	ExecutionTimeout time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Interval:         24 * time.Hour,
		RunOnStartup:     false,
		ExecutionTimeout: 5 * time.Minute,
	}
}

// Scheduler triggers digest runs on a fixed interval.
type Scheduler struct {
	runner Runner
	logger zerolog.Logger
	config Config

	// Runtime state
	mu      sync.Mutex
	wg      sync.WaitGroup
	running bool
	inRun   bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a scheduler. Zero or negative config values fall back to
// defaults.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(runner Runner, config Config, logger zerolog.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	if config.ExecutionTimeout <= 0 {
		config.ExecutionTimeout = 5 * time.Minute
	}

	return &Scheduler{
		runner: runner,
		logger: logger.With().Str("component", "scheduler").Logger(),
		config: config,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Bool("run_on_startup", s.config.RunOnStartup).
		Msg("Starting digest scheduler")

	go s.run(ctx)
	return nil
}

// Stop stops the scheduler loop and waits for it to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping digest scheduler...")
	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("Digest scheduler stopped")
	return nil
}

// run is the main scheduler loop. Runs execute in their own goroutine so
// the loop keeps observing ticks; overlapping ticks are counted as missed
// by execute's guard.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)
	defer s.wg.Wait()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStartup {
		s.spawn(ctx)
	}

	for {
		select {
		case <-ticker.C:
			s.spawn(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) spawn(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(ctx)
	}()
}

// execute performs a single run under the execution timeout. A tick that
// arrives while a previous run is still in flight is counted as missed
// and skipped; runs never overlap.
func (s *Scheduler) execute(ctx context.Context) {
	s.mu.Lock()
	if s.inRun {
		s.mu.Unlock()
		metrics.SchedulerRunsMissed.Inc()
		s.logger.Warn().Msg("Previous digest run still in progress, skipping tick")
		return
	}
	s.inRun = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inRun = false
		s.mu.Unlock()
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.config.ExecutionTimeout)
	defer cancel()

	started := time.Now()
	if err := s.runner.RunOnce(runCtx); err != nil {
		s.logger.Error().
			Err(err).
			Dur("elapsed", time.Since(started)).
			Msg("Digest run failed")
		return
	}

	s.logger.Info().
		Dur("elapsed", time.Since(started)).
		Msg("Digest run completed")
}
