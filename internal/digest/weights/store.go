// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package weights maintains the learned multipliers per (dimension, key)
// pair. Multipliers default to 1.0, move only through an exponential
// smoothing rule driven by aggregated feedback, and stay clamped within a
// dimension-specific range. The full table plus a bounded adjustment
// history round-trips through a small Repository interface so that a run
// can load the last persisted state at startup and save it at shutdown.
package weights

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/digest"
	"github.com/rcastell/curato/internal/digest/dedupe"
)

// HistoryEntry is one audit record of an applied adjustment batch.
type HistoryEntry struct {
	Timestamp   time.Time           `json:"timestamp"`
	WindowDays  int                 `json:"window_days"`
	Adjustments []digest.Adjustment `json:"adjustments"`
}

// Snapshot is the persisted form of a Store: a flat key->weight table plus
// the bounded history ring. Keys are "<dimension>/<key>".
type Snapshot struct {
	Weights   map[string]float64 `json:"weights"`
	History   []HistoryEntry     `json:"history"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Store holds the learned multipliers for one user. It assumes exclusive
// ownership by one selection run and is not safe for concurrent use.
type Store struct {
	cfg    digest.WeightsConfig
	logger zerolog.Logger

	table   map[digest.Dimension]map[string]float64
	history []HistoryEntry
}

// NewStore creates an empty store with every weight at its 1.0 default.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStore(cfg digest.WeightsConfig, logger zerolog.Logger) *Store {
	return &Store{
		cfg:    cfg,
		logger: logger.With().Str("component", "weights").Logger(),
		table:  make(map[digest.Dimension]map[string]float64),
	}
}

// Weight returns the stored multiplier for (dimension, key), or 1.0 when
// the pair has never been adjusted. It never errors: an unknown key is the
// no-op multiplier, not a failure.
func (s *Store) Weight(dim digest.Dimension, key string) float64 {
	if m, ok := s.table[dim]; ok {
		if w, ok := m[key]; ok {
			return w
		}
	}
	return 1.0
}

// Set stores a multiplier directly, clamped to the dimension's bounds.
// Used by the advisor when applying recommended nudges; the EMA path goes
// through ComputeAdjustments/ApplyAdjustments.
func (s *Store) Set(dim digest.Dimension, key string, weight float64) {
	rule := s.rule(dim)
	clamped := clamp(weight, rule.LowerBound, rule.UpperBound)
	if s.table[dim] == nil {
		s.table[dim] = make(map[string]float64)
	}
	s.table[dim][key] = clamped
}

// ComputeAdjustments derives weight changes from a feedback snapshot
// without mutating the store. For each (dimension, key) group with enough
// observations, the like/dislike rates decide an upward or downward target,
// the target is clamped to the dimension's bounds, and exponential
// smoothing limits how far the weight moves this cycle. Changes smaller
// than MinDelta are dropped.
//
// Source groups arrive keyed by the raw provenance string recorded with
// the feedback event. They are collapsed through dedupe.NormalizeSource
// before the EMA rule runs, so the learned multiplier lands under the
// same canonical key the reranker and advisor look up.
//
// Section weights are learned, bounded, and persisted but no ranking or
// selection path reads them yet; they feed the audit history only.
//
// With no feedback data the result is empty and every weight remains at
// its current value - personalization degrades to a no-op, never an error.
func (s *Store) ComputeAdjustments(snap digest.FeedbackSnapshot) []digest.Adjustment {
	var adjustments []digest.Adjustment
	adjustments = append(adjustments,
		s.computeDimension(digest.DimensionSection, snap.Sections, s.cfg.Sections)...)
	adjustments = append(adjustments,
		s.computeDimension(digest.DimensionSource, normalizeSourceGroups(snap.Sources), s.cfg.Sources)...)
	return adjustments
}

// normalizeSourceGroups merges feedback counts whose raw source strings
// collapse to the same canonical bucket, e.g. every arXiv sub-category
// tallies against one "arxiv" key.
func normalizeSourceGroups(groups map[string]digest.FeedbackCounts) map[string]digest.FeedbackCounts {
	if len(groups) == 0 {
		return nil
	}
	merged := make(map[string]digest.FeedbackCounts, len(groups))
	for raw, counts := range groups {
		key := dedupe.NormalizeSource(raw)
		c := merged[key]
		c.Like += counts.Like
		c.Dislike += counts.Dislike
		c.Neutral += counts.Neutral
		merged[key] = c
	}
	return merged
}

// computeDimension applies the EMA rule to one dimension's feedback groups.
// Keys are visited in sorted order so output is deterministic.
func (s *Store) computeDimension(dim digest.Dimension, groups map[string]digest.FeedbackCounts, rule digest.DimensionRule) []digest.Adjustment {
	if len(groups) == 0 {
		return nil
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var adjustments []digest.Adjustment
	for _, key := range keys {
		counts := groups[key]
		total := counts.Total()
		if total < rule.MinObservations {
			continue // insufficient data: normal, silent
		}

		likeRate := counts.LikeRate()
		dislikeRate := counts.DislikeRate()
		current := s.Weight(dim, key)

		var target float64
		switch {
		case likeRate > rule.UpThreshold:
			target = math.Min(current*rule.BoostFactor, rule.UpperBound)
		case dislikeRate > rule.DownThreshold:
			target = math.Max(current*rule.DampFactor, rule.LowerBound)
		default:
			continue
		}

		next := s.cfg.Alpha*target + (1-s.cfg.Alpha)*current
		if math.Abs(next-current) <= s.cfg.MinDelta {
			continue
		}

		adjustments = append(adjustments, digest.Adjustment{
			Dimension:     dim,
			Key:           key,
			OldWeight:     current,
			NewWeight:     next,
			Reason:        fmt.Sprintf("like_rate=%.0f%%, dislike_rate=%.0f%%", likeRate*100, dislikeRate*100),
			FeedbackCount: total,
		})
	}
	return adjustments
}

// ApplyAdjustments mutates the table and appends an audit entry to the
// history ring, trimming the ring to the configured limit.
func (s *Store) ApplyAdjustments(adjustments []digest.Adjustment) {
	if len(adjustments) == 0 {
		return
	}

	for _, adj := range adjustments {
		s.Set(adj.Dimension, adj.Key, adj.NewWeight)
	}

	s.history = append(s.history, HistoryEntry{
		Timestamp:   time.Now().UTC(),
		WindowDays:  s.cfg.WindowDays,
		Adjustments: adjustments,
	})
	if limit := s.cfg.HistoryLimit; limit > 0 && len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}

	s.logger.Info().
		Int("adjustments", len(adjustments)).
		Int("window_days", s.cfg.WindowDays).
		Msg("applied weight adjustments")
}

// Refresh computes and applies adjustments in one step, returning what was
// applied.
func (s *Store) Refresh(snap digest.FeedbackSnapshot) []digest.Adjustment {
	adjustments := s.ComputeAdjustments(snap)
	s.ApplyAdjustments(adjustments)
	return adjustments
}

// History returns a copy of the audit ring, oldest first.
func (s *Store) History() []HistoryEntry {
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// Snapshot flattens the store for persistence.
func (s *Store) Snapshot() *Snapshot {
	flat := make(map[string]float64)
	for dim, m := range s.table {
		for key, w := range m {
			flat[string(dim)+"/"+key] = w
		}
	}
	return &Snapshot{
		Weights:   flat,
		History:   s.History(),
		UpdatedAt: time.Now().UTC(),
	}
}

// Restore replaces the store's state from a persisted snapshot. Entries
// with malformed keys or out-of-range values are clamped or skipped rather
// than failing the load.
func (s *Store) Restore(snap *Snapshot) {
	s.table = make(map[digest.Dimension]map[string]float64)
	s.history = nil
	if snap == nil {
		return
	}

	for flat, w := range snap.Weights {
		dim, key, ok := splitFlatKey(flat)
		if !ok {
			s.logger.Warn().Str("key", flat).Msg("skipping malformed weight key")
			continue
		}
		s.Set(dim, key, w)
	}

	s.history = append(s.history, snap.History...)
	if limit := s.cfg.HistoryLimit; limit > 0 && len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}
}

// rule returns the dimension's update rule, defaulting to the source rule
// for unknown dimensions.
func (s *Store) rule(dim digest.Dimension) digest.DimensionRule {
	switch dim {
	case digest.DimensionSection:
		return s.cfg.Sections
	case digest.DimensionContentType:
		return s.cfg.ContentTypes
	default:
		return s.cfg.Sources
	}
}

func splitFlatKey(flat string) (digest.Dimension, string, bool) {
	for i := 0; i < len(flat); i++ {
		if flat[i] == '/' {
			if i == 0 || i == len(flat)-1 {
				return "", "", false
			}
			return digest.Dimension(flat[:i]), flat[i+1:], true
		}
	}
	return "", "", false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
