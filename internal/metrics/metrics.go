// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package metrics provides Prometheus instrumentation for the digest
// pipeline: run outcomes and latency, shelf fill levels, learning-loop
// activity, and feedback-store traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_runs_total",
			Help: "Total number of digest runs by outcome",
		},
		[]string{"outcome"}, // "success", "error"
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_run_duration_seconds",
			Help:    "Duration of one full digest run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CandidatesConsidered = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_candidates_considered",
			Help:    "Candidate pool size per run",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// Selection metrics
	SectionItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "digest_section_items",
			Help: "Items placed per section in the most recent run",
		},
		[]string{"section"},
	)

	ExplorationPicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "digest_exploration_picks_total",
			Help: "Total number of items admitted through the exploration slot",
		},
	)

	DedupeRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "digest_dedupe_rejections_total",
			Help: "Placement attempts rejected because the item's key was already claimed",
		},
	)

	QuotaRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "digest_quota_rejections_total",
			Help: "Placement attempts rejected by a shelf's per-source quota",
		},
	)

	// Learning metrics
	WeightAdjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_weight_adjustments_total",
			Help: "Total learned-weight adjustments by dimension",
		},
		[]string{"dimension"},
	)

	InsightsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "digest_insights_generated_total",
			Help: "Total number of insight statements produced",
		},
	)

	RecommendationsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_recommendations_applied_total",
			Help: "Total priority recommendations the advisor applied, by direction",
		},
		[]string{"direction"}, // "increase", "decrease"
	)

	// Feedback store metrics
	FeedbackEventsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_events_recorded_total",
			Help: "Total feedback events written to the event store",
		},
	)

	SchedulerRunsMissed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "digest_scheduler_runs_missed_total",
			Help: "Scheduled runs skipped because the previous run was still in progress",
		},
	)
)

// ObserveRun records one run's outcome, duration, and pool size.
func ObserveRun(outcome string, elapsed time.Duration, candidates int) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.Observe(elapsed.Seconds())
	CandidatesConsidered.Observe(float64(candidates))
}

// SetSectionSizes publishes the per-section item counts of a run.
func SetSectionSizes(perSection map[string]int) {
	for section, count := range perSection {
		SectionItems.WithLabelValues(section).Set(float64(count))
	}
}
