// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Note: this package has no dependencies on other internal packages beyond
// dedupe. The component interfaces below let the concrete implementations
// (weights, rerank, selector, insights) import this package for the shared
// types without creating circular imports.

// WeightStore is the learned-multiplier table consulted during reranking
// and updated from feedback each run.
type WeightStore interface {
	// Weight resolves one multiplier; unknown keys are the neutral 1.0.
	Weight(dim Dimension, key string) float64

	// Refresh computes and applies EMA adjustments from the feedback
	// snapshot, returning the audit records. An empty snapshot returns
	// no adjustments.
	Refresh(snap FeedbackSnapshot) []Adjustment
}

// Reranker orders candidates by the blended personalization score.
type Reranker interface {
	Rerank(items []CandidateItem, profile *ProfileVectors, projects []ActiveProject) []CandidateItem
}

// Selector fills the digest shelves from the ranked pool.
type Selector interface {
	Select(pool []CandidateItem) ([]Section, RunStats)
}

// Analyzer turns the historical feedback summary into insights and
// priority recommendations.
type Analyzer interface {
	GenerateInsights(summary FeedbackSummary) InsightReport
}

// RunInput carries everything one digest run consumes. All of it is loaded
// by the caller before the run starts; the engine itself never touches
// network or disk. The candidate list is treated as immutable for the
// duration of the run.
type RunInput struct {
	// Candidates is the scored item pool from the upstream pipeline.
	Candidates []CandidateItem

	// Feedback is the trailing-window tally driving weight learning.
	Feedback FeedbackSnapshot

	// Summary is the longer-horizon aggregate driving insights.
	Summary FeedbackSummary

	// Profile is the user's profile vectors; nil means no personalization
	// signal, which degrades ranking to neutral similarity.
	Profile *ProfileVectors

	// Projects is the active-project registry.
	Projects []ActiveProject
}

// RunOutput carries one run's results back to the caller for rendering
// and persistence.
type RunOutput struct {
	Layout      Layout
	Adjustments []Adjustment
	Insights    InsightReport
}

// Engine sequences one digest run: learn from feedback, rerank, select,
// analyze. It owns no I/O and no goroutines; a run executes entirely on
// the caller's goroutine, so an Engine must not be shared by concurrent
// runs.
type Engine struct {
	cfg      *Config
	logger   zerolog.Logger
	weights  WeightStore
	reranker Reranker
	selector Selector
	analyzer Analyzer
}

// NewEngine wires an Engine from its components. All components are
// required; a missing one is a caller bug surfaced as an error at
// construction rather than a panic mid-run.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, weights WeightStore, reranker Reranker, selector Selector, analyzer Analyzer, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if weights == nil || reranker == nil || selector == nil || analyzer == nil {
		return nil, fmt.Errorf("engine requires all components (weights=%t reranker=%t selector=%t analyzer=%t)",
			weights != nil, reranker != nil, selector != nil, analyzer != nil)
	}

	return &Engine{
		cfg:      cfg,
		logger:   logger.With().Str("component", "engine").Logger(),
		weights:  weights,
		reranker: reranker,
		selector: selector,
		analyzer: analyzer,
	}, nil
}

// Run executes one digest run. The phases are strictly sequenced: weight
// learning happens before reranking so this run already benefits from this
// window's feedback, and selection sees the fully reranked pool. The
// context is only checked between phases; the core never blocks.
func (e *Engine) Run(ctx context.Context, input RunInput) (*RunOutput, error) {
	runID := uuid.NewString()
	started := time.Now()

	logger := e.logger.With().Str("run_id", runID).Logger()
	logger.Info().
		Int("candidates", len(input.Candidates)).
		Int("feedback_sources", len(input.Feedback.Sources)).
		Bool("profile", input.Profile != nil).
		Msg("digest run started")

	adjustments := e.weights.Refresh(input.Feedback)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s canceled after weight refresh: %w", runID, err)
	}

	ranked := e.reranker.Rerank(input.Candidates, input.Profile, input.Projects)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s canceled after rerank: %w", runID, err)
	}

	sections, stats := e.selector.Select(ranked)
	insights := e.analyzer.GenerateInsights(input.Summary)

	out := &RunOutput{
		Layout: Layout{
			RunID:       runID,
			GeneratedAt: started.UTC(),
			Sections:    sections,
			Stats:       stats,
		},
		Adjustments: adjustments,
		Insights:    insights,
	}

	logger.Info().
		Int("adjustments", len(adjustments)).
		Int("insights", len(insights.Insights)).
		Int("placed", placedCount(sections)).
		Dur("elapsed", time.Since(started)).
		Msg("digest run complete")

	return out, nil
}

func placedCount(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Items)
	}
	return n
}
