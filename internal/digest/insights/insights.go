// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package insights derives human-readable observations and structured
// priority recommendations from accumulated feedback. The analyzer only
// recommends; applying recommendations is the advisor's decision.
package insights

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/digest"
)

// Analyzer scans per-source feedback aggregates for actionable patterns.
type Analyzer struct {
	cfg       digest.InsightsConfig
	logger    zerolog.Logger
	protected map[string]struct{}
	dampened  map[string]struct{}
}

// NewAnalyzer builds an Analyzer from thresholds and source preference
// sets.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAnalyzer(cfg digest.InsightsConfig, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		cfg:       cfg,
		logger:    logger.With().Str("component", "insights").Logger(),
		protected: toSet(cfg.ProtectedSources),
		dampened:  toSet(cfg.DampenedSources),
	}
}

// GenerateInsights inspects the summary and returns insights plus priority
// recommendations. At most one decrease is recommended per run: sparse
// feedback over-corrects easily, so down-adjustments are rationed. An
// empty summary yields an empty report.
func (a *Analyzer) GenerateInsights(summary digest.FeedbackSummary) digest.InsightReport {
	var report digest.InsightReport
	if len(summary.Sources) == 0 && len(summary.Hours) == 0 {
		return report
	}

	sources := make([]digest.SourceSummary, len(summary.Sources))
	copy(sources, summary.Sources)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].HighRate > sources[j].HighRate
	})

	if len(sources) > 0 {
		a.analyzeTop(sources[0], &report)
		a.analyzeBottom(sources, &report)
	}

	if peak, ok := peakHour(summary.Hours); ok {
		report.Insights = append(report.Insights, fmt.Sprintf(
			"Most digest activity happens around %d:00; scheduling delivery near that hour may help.",
			peak.Hour))
	}

	a.logger.Debug().
		Int("insights", len(report.Insights)).
		Int("adjustments", len(report.PriorityAdjustments)).
		Msg("generated insights")

	return report
}

func (a *Analyzer) analyzeTop(top digest.SourceSummary, report *digest.InsightReport) {
	if top.HighRate < a.cfg.HighRateThreshold || top.Total < a.cfg.MinTopTotal {
		return
	}

	if _, dampened := a.dampened[top.Source]; dampened {
		report.Insights = append(report.Insights, fmt.Sprintf(
			"%s has a high hit rate (%.1f%% high-relevance); consider following other sources as well to keep variety.",
			top.Source, top.HighRate*100))
		return
	}

	report.Insights = append(report.Insights, fmt.Sprintf(
		"Sustained high interest in %s (%.1f%% high-relevance).",
		top.Source, top.HighRate*100))
	report.PriorityAdjustments = append(report.PriorityAdjustments, digest.PriorityAdjustment{
		Target:    top.Source,
		Direction: digest.DirectionIncrease,
		Delta:     1,
		Reason:    "high relevance rate with frequent interactions",
	})
}

// analyzeBottom walks the rate-sorted list from the bottom and emits a
// recommendation for the first underperforming source that is not
// protected. Protected sources still get an informational insight.
func (a *Analyzer) analyzeBottom(sources []digest.SourceSummary, report *digest.InsightReport) {
	for i := len(sources) - 1; i >= 0; i-- {
		src := sources[i]
		if src.Total < a.cfg.MinBottomTotal {
			continue
		}
		if src.HighRate > a.cfg.LowRateThreshold {
			continue
		}

		if _, protected := a.protected[src.Source]; protected {
			report.Insights = append(report.Insights, fmt.Sprintf(
				"%s has scored low recently (%.1f%% high-relevance); keeping its priority per preferences.",
				src.Source, src.HighRate*100))
			continue
		}

		report.Insights = append(report.Insights, fmt.Sprintf(
			"%s content has been low-relevance (%.1f%% high-relevance); consider lowering its priority or dropping it.",
			src.Source, src.HighRate*100))
		report.PriorityAdjustments = append(report.PriorityAdjustments, digest.PriorityAdjustment{
			Target:    src.Source,
			Direction: digest.DirectionDecrease,
			Delta:     1,
			Reason:    "consistently low relevance",
		})
		return
	}
}

// peakHour returns the hour with the most interactions. Ties keep the
// earliest hour in the input.
func peakHour(hours []digest.HourCount) (digest.HourCount, bool) {
	if len(hours) == 0 {
		return digest.HourCount{}, false
	}
	peak := hours[0]
	for _, h := range hours[1:] {
		if h.Total > peak.Total {
			peak = h
		}
	}
	return peak, true
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
