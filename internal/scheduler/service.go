// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package scheduler

import (
	"context"
	"fmt"
)

// Service wraps the scheduler as a supervised suture service.
//
// It adapts the Start/Stop lifecycle to suture's Serve pattern:
//  1. Calls Start(ctx) to begin the scheduler loop
//  2. Blocks until the context is canceled
//  3. Calls Stop() for graceful shutdown
type Service struct {
	scheduler *Scheduler
	name      string
}

// NewService creates a supervised service wrapper for the scheduler.
func NewService(s *Scheduler) *Service {
	return &Service{
		scheduler: s,
		name:      "digest-scheduler",
	}
}

// Serve implements suture.Service. If Start fails, the error is returned
// immediately and suture restarts the service per its backoff policy.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("digest scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("digest scheduler stop failed: %w", err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer. Suture uses this to identify the
// service in log messages.
func (s *Service) String() string {
	return s.name
}
