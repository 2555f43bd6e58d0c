// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package digest defines the core types and run orchestration for the
// personalized digest engine.
//
// # Architecture
//
// One digest run is a strict four-phase pipeline over in-memory inputs:
//
//   - Weight learning: EMA-adjust learned multipliers from the trailing
//     feedback window (weights subpackage)
//   - Reranking: blend intrinsic scores, profile similarity, and project
//     activity, scaled by the learned multipliers (rerank subpackage)
//   - Selection: fill named shelves under quotas and one shared dedupe
//     registry (selector subpackage)
//   - Pattern analysis: derive insights and priority recommendations from
//     historical feedback (insights subpackage)
//
// # Design Principles
//
//   - Deterministic: same inputs produce identical outputs (stable sorts,
//     seeded RNG for the exploration slot)
//   - Purely computational: the core never touches network or disk; all
//     inputs are pre-loaded and outputs are persisted by the caller
//   - Degrades gracefully: missing feedback, profile, or scores fall back
//     to documented neutral defaults rather than errors
//   - Auditable: every weight change carries an audit record, every run a
//     run ID
//
// # Usage
//
//	cfg := digest.DefaultConfig()
//	engine, err := digest.NewEngine(cfg, store, reranker, selector, analyzer, logger)
//	if err != nil {
//		return err
//	}
//	out, err := engine.Run(ctx, input)
package digest
