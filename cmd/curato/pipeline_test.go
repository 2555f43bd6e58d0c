// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package main

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/advisor"
	"github.com/rcastell/curato/internal/config"
	"github.com/rcastell/curato/internal/digest"
	"github.com/rcastell/curato/internal/digest/insights"
	"github.com/rcastell/curato/internal/digest/rerank"
	"github.com/rcastell/curato/internal/digest/selector"
	"github.com/rcastell/curato/internal/digest/weights"
	"github.com/rcastell/curato/internal/feedback"
	"github.com/rcastell/curato/internal/profile"
	"github.com/rcastell/curato/internal/report"
)

func TestUpdateImplicitInterests(t *testing.T) {
	candidates := []digest.CandidateItem{
		{URL: "https://x.com/liked", Title: "Liked", Embedding: []float64{1, 0}},
		{URL: "https://x.com/plain", Title: "No Embedding"},
	}

	t.Run("no reactions leaves vectors untouched", func(t *testing.T) {
		vectors, changed := updateImplicitInterests(nil, candidates, nil)
		if changed || vectors != nil {
			t.Errorf("updateImplicitInterests() = (%v, %v), want (nil, false)", vectors, changed)
		}
	})

	t.Run("like adopts the embedding into an empty profile", func(t *testing.T) {
		reactions := []feedback.Event{
			{ItemID: "https://x.com/liked", Feedback: feedback.KindLike},
		}
		vectors, changed := updateImplicitInterests(nil, candidates, reactions)
		if !changed || vectors == nil {
			t.Fatalf("updateImplicitInterests() = (%v, %v), want a changed profile", vectors, changed)
		}
		got := vectors.ImplicitInterests
		if len(got) != 2 || math.Abs(got[0]-1) > 1e-9 || math.Abs(got[1]) > 1e-9 {
			t.Errorf("ImplicitInterests = %v, want normalized [1 0]", got)
		}
	})

	t.Run("dislike moves away from the embedding", func(t *testing.T) {
		vectors := &digest.ProfileVectors{ImplicitInterests: []float64{0.6, 0.8}}
		reactions := []feedback.Event{
			{ItemID: "https://x.com/liked", Feedback: feedback.KindDislike},
		}
		updated, changed := updateImplicitInterests(vectors, candidates, reactions)
		if !changed {
			t.Fatal("updateImplicitInterests() changed = false, want true")
		}
		got := updated.ImplicitInterests
		if got[0] >= 0.6 {
			t.Errorf("first component = %v, want pushed below 0.6", got[0])
		}
		norm := math.Hypot(got[0], got[1])
		if math.Abs(norm-1) > 1e-9 {
			t.Errorf("norm = %v, want 1", norm)
		}
	})

	t.Run("reactions without a matching embedded item are skipped", func(t *testing.T) {
		reactions := []feedback.Event{
			{ItemID: "https://x.com/plain", Feedback: feedback.KindLike},
			{ItemID: "https://gone.example/404", Feedback: feedback.KindLike},
		}
		vectors, changed := updateImplicitInterests(nil, candidates, reactions)
		if changed || vectors != nil {
			t.Errorf("updateImplicitInterests() = (%v, %v), want (nil, false)", vectors, changed)
		}
	})
}

func testPipeline(t *testing.T, candidates []digest.CandidateItem) *pipeline {
	t.Helper()

	cfg := &config.Config{
		Digest: *digest.DefaultConfig(),
		Store:  config.StoreConfig{InMemory: true},
		Report: config.ReportConfig{OutputDir: t.TempDir()},
		Advisor: config.AdvisorConfig{
			AutoApply: true,
		},
	}

	if candidates != nil {
		data, err := json.Marshal(candidates)
		if err != nil {
			t.Fatalf("marshal candidates: %v", err)
		}
		path := filepath.Join(t.TempDir(), "candidates.json")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("write candidates: %v", err)
		}
		cfg.Ingest.CandidatesPath = path
	} else {
		cfg.Ingest.CandidatesPath = filepath.Join(t.TempDir(), "missing.json")
	}

	stateDB, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := stateDB.Close(); err != nil {
			t.Errorf("close badger: %v", err)
		}
	})

	feedbackDB, err := feedback.Open("", zerolog.Nop())
	if err != nil {
		t.Fatalf("open feedback db: %v", err)
	}
	t.Cleanup(func() {
		if err := feedbackDB.Close(); err != nil {
			t.Errorf("close feedback db: %v", err)
		}
	})

	logger := zerolog.Nop()
	weightStore := weights.NewStore(cfg.Digest.Weights, logger)
	engine, err := digest.NewEngine(
		&cfg.Digest,
		weightStore,
		rerank.NewReranker(cfg.Digest.Rerank, weightStore, logger),
		selector.NewSelector(cfg.Digest.Selection, cfg.Digest.Seed, logger),
		insights.NewAnalyzer(cfg.Digest.Insights, logger),
		logger,
	)
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	return &pipeline{
		cfg:      cfg,
		engine:   engine,
		weights:  weightStore,
		repo:     weights.NewBadgerRepository(stateDB, logger),
		profiles: profile.NewStore(stateDB, logger),
		feedback: feedbackDB,
		advisor:  advisor.New(cfg.Digest.Insights.ProtectedSources, logger),
		renderer: report.NewRenderer(),
		logger:   logger,
	}
}

func TestPipelineRunOnce(t *testing.T) {
	p := testPipeline(t, []digest.CandidateItem{
		{
			URL:              "https://arxiv.org/abs/2501.0001",
			Title:            "Attention Is Not All You Need",
			Source:           "arXiv cs.LG",
			Category:         digest.CategoryPaper,
			RelevanceScore:   9,
			PersonalPriority: 9,
			Summary:          "A study of attention alternatives.",
		},
		{
			URL:            "https://example.com/tooling",
			Title:          "A New Build Tool",
			Source:         "Hacker News",
			Category:       digest.CategoryFramework,
			RelevanceScore: 7,
		},
	})

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}

	entries, err := os.ReadDir(p.cfg.Report.OutputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("output dir has %d entries, want 1 report", len(entries))
	}
	content, err := os.ReadFile(filepath.Join(p.cfg.Report.OutputDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	rendered := string(content)
	if !strings.Contains(rendered, "Attention Is Not All You Need") {
		t.Errorf("report does not mention the must-read item:\n%s", rendered)
	}
	if !strings.HasPrefix(entries[0].Name(), "digest-") {
		t.Errorf("report file name = %q, want digest-YYYY-MM-DD.md", entries[0].Name())
	}
}

func TestPipelineRunOnce_MissingPoolFile(t *testing.T) {
	p := testPipeline(t, nil)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() with missing pool error: %v", err)
	}

	entries, err := os.ReadDir(p.cfg.Report.OutputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("output dir has %d entries, want an empty-pool report", len(entries))
	}
}

func TestPipelineRunOnce_LearnsFromFeedback(t *testing.T) {
	p := testPipeline(t, []digest.CandidateItem{
		{
			URL:            "https://arxiv.org/abs/2501.0002",
			Title:          "Embedded Paper",
			Source:         "arXiv cs.AI",
			Category:       digest.CategoryPaper,
			RelevanceScore: 8,
			Embedding:      []float64{0, 1},
		},
	})
	ctx := context.Background()

	key := (&digest.CandidateItem{URL: "https://arxiv.org/abs/2501.0002"}).DedupeKey()
	if err := p.feedback.RecordEvent(ctx, feedback.Event{
		ItemID: key, ItemSource: "arXiv cs.AI", Section: "paper_radar",
		Feedback: feedback.KindLike, RelevanceScore: 9,
	}); err != nil {
		t.Fatalf("RecordEvent() error: %v", err)
	}

	if err := p.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}

	vectors, err := p.profiles.LoadVectors(ctx)
	if err != nil {
		t.Fatalf("LoadVectors() error: %v", err)
	}
	if vectors == nil || len(vectors.ImplicitInterests) != 2 {
		t.Fatalf("ImplicitInterests = %+v, want a learned 2-dim vector", vectors)
	}
	if math.Abs(vectors.ImplicitInterests[1]-1) > 1e-9 {
		t.Errorf("ImplicitInterests = %v, want normalized [0 1]", vectors.ImplicitInterests)
	}
}
