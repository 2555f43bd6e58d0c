// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package advisor consumes the pattern analyzer's priority recommendations
// and applies the safe ones as small nudges to the learned source weights.
// The analyzer only recommends; this layer owns the decision to act.
package advisor

import (
	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/digest"
	"github.com/rcastell/curato/internal/digest/dedupe"
)

// nudgeStep is the per-delta-unit multiplicative step. Recommendations are
// hints, so they move weights gently compared to the EMA learner.
const nudgeStep = 0.1

// WeightNudger is the slice of the weight store the advisor needs.
type WeightNudger interface {
	Weight(dim digest.Dimension, key string) float64

	// Set stores a weight, clamped to the dimension's bounds.
	Set(dim digest.Dimension, key string, weight float64)
}

// Applied records one recommendation the advisor acted on.
type Applied struct {
	Target    string                     `json:"target"`
	Direction digest.AdjustmentDirection `json:"direction"`
	OldWeight float64                    `json:"old_weight"`
	NewWeight float64                    `json:"new_weight"`
}

// Advisor filters and applies priority recommendations.
type Advisor struct {
	logger    zerolog.Logger
	protected map[string]struct{}
}

// New builds an Advisor. Protected sources never receive decreases no
// matter what the recommendations say.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(protectedSources []string, logger zerolog.Logger) *Advisor {
	protected := make(map[string]struct{}, len(protectedSources))
	for _, s := range protectedSources {
		protected[s] = struct{}{}
	}
	return &Advisor{
		logger:    logger.With().Str("component", "advisor").Logger(),
		protected: protected,
	}
}

// Apply nudges source weights per the recommendations and returns what was
// actually applied. At most one decrease is applied per call, even if the
// input carries several: down-moves compound with the EMA learner, so they
// are rationed here as well as at the analyzer. Weight keys use the
// normalized source bucket, matching what the reranker looks up.
func (a *Advisor) Apply(recommendations []digest.PriorityAdjustment, store WeightNudger) []Applied {
	var applied []Applied
	decreased := false

	for _, rec := range recommendations {
		if rec.Delta <= 0 {
			continue
		}

		switch rec.Direction {
		case digest.DirectionDecrease:
			if decreased {
				a.logger.Debug().Str("target", rec.Target).Msg("decrease budget spent, skipping")
				continue
			}
			if _, ok := a.protected[rec.Target]; ok {
				a.logger.Info().Str("target", rec.Target).Msg("skipping decrease for protected source")
				continue
			}
		case digest.DirectionIncrease:
		default:
			a.logger.Warn().Str("direction", string(rec.Direction)).Msg("unknown adjustment direction, skipping")
			continue
		}

		key := dedupe.NormalizeSource(rec.Target)
		old := store.Weight(digest.DimensionSource, key)

		step := nudgeStep * float64(rec.Delta)
		var next float64
		if rec.Direction == digest.DirectionIncrease {
			next = old * (1 + step)
		} else {
			next = old * (1 - step)
			decreased = true
		}

		store.Set(digest.DimensionSource, key, next)
		// Re-read: Set clamps to the dimension bounds.
		next = store.Weight(digest.DimensionSource, key)

		applied = append(applied, Applied{
			Target:    rec.Target,
			Direction: rec.Direction,
			OldWeight: old,
			NewWeight: next,
		})

		a.logger.Info().
			Str("target", rec.Target).
			Str("key", key).
			Str("direction", string(rec.Direction)).
			Float64("old", old).
			Float64("new", next).
			Str("reason", rec.Reason).
			Msg("applied priority recommendation")
	}

	return applied
}
