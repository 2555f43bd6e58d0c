// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/metrics"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSchedulerRunOnStartup(t *testing.T) {
	var runs atomic.Int64
	runner := RunnerFunc(func(context.Context) error {
		runs.Add(1)
		return nil
	})

	s := New(runner, Config{
		Interval:         time.Hour,
		RunOnStartup:     true,
		ExecutionTimeout: time.Second,
	}, zerolog.Nop())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, time.Second, func() bool { return runs.Load() == 1 })
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestSchedulerTicks(t *testing.T) {
	var runs atomic.Int64
	runner := RunnerFunc(func(context.Context) error {
		runs.Add(1)
		return nil
	})

	s := New(runner, Config{
		Interval:         5 * time.Millisecond,
		ExecutionTimeout: time.Second,
	}, zerolog.Nop())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, time.Second, func() bool { return runs.Load() >= 2 })
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	missedBefore := testutil.ToFloat64(metrics.SchedulerRunsMissed)

	release := make(chan struct{})
	var started atomic.Int64
	runner := RunnerFunc(func(context.Context) error {
		started.Add(1)
		<-release
		return nil
	})

	s := New(runner, Config{
		Interval:         5 * time.Millisecond,
		RunOnStartup:     true,
		ExecutionTimeout: time.Minute,
	}, zerolog.Nop())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The first run blocks on release; subsequent ticks must be skipped,
	// not stacked.
	waitFor(t, time.Second, func() bool {
		return testutil.ToFloat64(metrics.SchedulerRunsMissed) > missedBefore
	})
	if got := started.Load(); got != 1 {
		t.Errorf("started runs = %d, want exactly 1 while blocked", got)
	}

	close(release)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestSchedulerExecutionTimeout(t *testing.T) {
	errCh := make(chan error, 1)
	runner := RunnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return ctx.Err()
	})

	s := New(runner, Config{
		Interval:         time.Hour,
		RunOnStartup:     true,
		ExecutionTimeout: 5 * time.Millisecond,
	}, zerolog.Nop())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("run context error = %v, want DeadlineExceeded", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run was never canceled by the execution timeout")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestSchedulerDoubleStart(t *testing.T) {
	s := New(RunnerFunc(func(context.Context) error { return nil }), Config{
		Interval: time.Hour,
	}, zerolog.Nop())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start() error = nil, want already-running error")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := New(RunnerFunc(func(context.Context) error { return nil }), Config{}, zerolog.Nop())
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v, want nil when never started", err)
	}
}

func TestServiceServe(t *testing.T) {
	var runs atomic.Int64
	s := New(RunnerFunc(func(context.Context) error {
		runs.Add(1)
		return nil
	}), Config{
		Interval:     time.Hour,
		RunOnStartup: true,
	}, zerolog.Nop())

	svc := NewService(s)
	if got := svc.String(); got != "digest-scheduler" {
		t.Errorf("String() = %q, want digest-scheduler", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- svc.Serve(ctx) }()

	waitFor(t, time.Second, func() bool { return runs.Load() == 1 })
	cancel()

	select {
	case err := <-served:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
