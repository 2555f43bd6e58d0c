// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/advisor"
	"github.com/rcastell/curato/internal/config"
	"github.com/rcastell/curato/internal/digest"
	"github.com/rcastell/curato/internal/digest/weights"
	"github.com/rcastell/curato/internal/feedback"
	"github.com/rcastell/curato/internal/logging"
	"github.com/rcastell/curato/internal/metrics"
	"github.com/rcastell/curato/internal/profile"
	"github.com/rcastell/curato/internal/report"
)

// pipeline bundles everything one digest run touches: the candidate pool
// file, the feedback database, the profile and weight stores, the engine,
// and the report renderer. The scheduler drives it through RunOnce.
type pipeline struct {
	cfg      *config.Config
	engine   *digest.Engine
	weights  *weights.Store
	repo     weights.Repository
	profiles *profile.Store
	feedback *feedback.DB
	advisor  *advisor.Advisor
	renderer *report.Renderer
	logger   zerolog.Logger
}

// RunOnce gathers inputs, executes one engine run, applies advisor
// recommendations, persists the learned weights, and writes the rendered
// report. It is the Runner the scheduler calls on every tick.
func (p *pipeline) RunOnce(ctx context.Context) error {
	started := time.Now()
	ctx = logging.ContextWithNewRunID(ctx)
	logger := logging.Ctx(ctx)

	candidates, err := p.loadCandidates()
	if err != nil {
		metrics.ObserveRun("error", time.Since(started), 0)
		return fmt.Errorf("load candidates: %w", err)
	}

	snap, err := p.feedback.Snapshot(ctx, p.cfg.Digest.Weights.WindowDays)
	if err != nil {
		metrics.ObserveRun("error", time.Since(started), len(candidates))
		return fmt.Errorf("feedback snapshot: %w", err)
	}

	// The insight horizon is all recorded history, not the learning
	// window; patterns need more data than a single week provides.
	summary, err := p.feedback.Summary(ctx, 0)
	if err != nil {
		metrics.ObserveRun("error", time.Since(started), len(candidates))
		return fmt.Errorf("feedback summary: %w", err)
	}

	vectors, err := p.profiles.LoadVectors(ctx)
	if err != nil {
		metrics.ObserveRun("error", time.Since(started), len(candidates))
		return fmt.Errorf("load profile vectors: %w", err)
	}

	// Replay the window's explicit reactions against the embedded
	// candidates so the implicit-interest vector reflects them before
	// this run ranks anything.
	reactions, err := p.feedback.Reactions(ctx, p.cfg.Digest.Weights.WindowDays)
	if err != nil {
		metrics.ObserveRun("error", time.Since(started), len(candidates))
		return fmt.Errorf("load reactions: %w", err)
	}
	vectors, profileChanged := updateImplicitInterests(vectors, candidates, reactions)
	projects, err := p.profiles.LoadProjects(ctx)
	if err != nil {
		metrics.ObserveRun("error", time.Since(started), len(candidates))
		return fmt.Errorf("load active projects: %w", err)
	}

	out, err := p.engine.Run(ctx, digest.RunInput{
		Candidates: candidates,
		Feedback:   snap,
		Summary:    summary,
		Profile:    vectors,
		Projects:   projects,
	})
	if err != nil {
		metrics.ObserveRun("error", time.Since(started), len(candidates))
		return fmt.Errorf("digest run: %w", err)
	}

	metrics.ObserveRun("success", time.Since(started), len(candidates))
	metrics.SetSectionSizes(out.Layout.Stats.PerSection)
	metrics.DedupeRejections.Add(float64(out.Layout.Stats.DedupeRejections))
	metrics.QuotaRejections.Add(float64(out.Layout.Stats.QuotaRejections))
	metrics.InsightsGenerated.Add(float64(len(out.Insights.Insights)))
	for _, adj := range out.Adjustments {
		metrics.WeightAdjustments.WithLabelValues(string(adj.Dimension)).Inc()
	}
	for i := range out.Layout.Sections {
		for j := range out.Layout.Sections[i].Items {
			if out.Layout.Sections[i].Items[j].ExplorationPick {
				metrics.ExplorationPicks.Inc()
			}
		}
	}

	if p.cfg.Advisor.AutoApply {
		applied := p.advisor.Apply(out.Insights.PriorityAdjustments, p.weights)
		for _, a := range applied {
			metrics.RecommendationsApplied.WithLabelValues(string(a.Direction)).Inc()
		}
	}

	// Weight persistence failure must not discard an otherwise good run;
	// the snapshot is retried on the next tick.
	if err := p.repo.Save(ctx, p.weights.Snapshot()); err != nil {
		logger.Error().Err(err).Msg("Failed to persist weight snapshot")
	}
	if profileChanged {
		if err := p.profiles.SaveVectors(ctx, vectors); err != nil {
			logger.Error().Err(err).Msg("Failed to persist profile vectors")
		}
	}

	reportPath, err := p.writeReport(out)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.Info().
		Str("report", reportPath).
		Int("candidates", len(candidates)).
		Int("placed", out.Layout.Stats.TotalItems).
		Int("adjustments", len(out.Adjustments)).
		Int("insights", len(out.Insights.Insights)).
		Dur("elapsed", time.Since(started)).
		Msg("Digest run finished")
	return nil
}

// updateImplicitInterests replays explicit reactions against the embedded
// candidates, moving the implicit-interest vector toward liked items and
// away from disliked ones. Reactions whose item is no longer in the pool,
// or whose item carries no embedding, are skipped. Returns the (possibly
// freshly allocated) vectors and whether anything moved.
func updateImplicitInterests(vectors *digest.ProfileVectors, candidates []digest.CandidateItem, reactions []feedback.Event) (*digest.ProfileVectors, bool) {
	if len(reactions) == 0 {
		return vectors, false
	}

	byKey := make(map[string]*digest.CandidateItem, len(candidates))
	for i := range candidates {
		item := &candidates[i]
		if len(item.Embedding) == 0 {
			continue
		}
		byKey[item.DedupeKey()] = item
		if item.URL != "" {
			byKey[item.URL] = item
		}
	}

	changed := false
	for i := range reactions {
		ev := &reactions[i]
		item, ok := byKey[ev.ItemID]
		if !ok {
			continue
		}
		if vectors == nil {
			vectors = &digest.ProfileVectors{}
		}
		vectors.ImplicitInterests = profile.UpdateImplicit(
			vectors.ImplicitInterests,
			item.Embedding,
			ev.Feedback == feedback.KindLike,
			profile.DefaultLearningRate,
		)
		changed = true
	}
	return vectors, changed
}

// loadCandidates reads the candidate pool JSON from the ingest path. A
// missing file means the upstream pipeline has not produced a pool yet;
// the run proceeds with an empty pool rather than failing the schedule.
func (p *pipeline) loadCandidates() ([]digest.CandidateItem, error) {
	path := p.cfg.Ingest.CandidatesPath
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		p.logger.Warn().Str("path", path).Msg("Candidate pool file missing, running with empty pool")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read candidate pool %s: %w", path, err)
	}

	var items []digest.CandidateItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse candidate pool %s: %w", path, err)
	}
	return items, nil
}

// writeReport renders the run's layout to markdown and writes it under
// the configured output directory, named by generation date.
func (p *pipeline) writeReport(out *digest.RunOutput) (string, error) {
	data := &report.ReportData{
		Layout:      out.Layout,
		Adjustments: out.Adjustments,
		Insights:    out.Insights,
	}

	var rendered string
	var err error
	if p.cfg.Report.TemplatePath != "" {
		var tmpl []byte
		tmpl, err = os.ReadFile(p.cfg.Report.TemplatePath)
		if err != nil {
			return "", fmt.Errorf("read template %s: %w", p.cfg.Report.TemplatePath, err)
		}
		rendered, err = p.renderer.Render(string(tmpl), data)
	} else {
		rendered, err = p.renderer.RenderMarkdown(data)
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(p.cfg.Report.OutputDir, 0o750); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	name := fmt.Sprintf("digest-%s.md", out.Layout.GeneratedAt.Format("2006-01-02"))
	path := filepath.Join(p.cfg.Report.OutputDir, name)
	if err := os.WriteFile(path, []byte(rendered), 0o600); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}
