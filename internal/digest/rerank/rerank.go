// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package rerank blends upstream scores, profile similarity, and project
// activity into a single weighted score per candidate item, then orders
// items by it. Learned source and content-type multipliers scale the blend
// so that accumulated feedback shifts ranking without touching the
// upstream scores themselves.
package rerank

import (
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/digest"
	"github.com/rcastell/curato/internal/digest/dedupe"
)

// Project-activity contributions per priority. Unknown projects score the
// same as low-priority ones so a stale registry cannot zero an item out.
const (
	activityHigh    = 0.9
	activityMedium  = 0.7
	activityLow     = 0.5
	activityUnknown = 0.5
)

// WeightLookup resolves a learned multiplier for one dimension key.
// Missing keys must resolve to the neutral 1.0.
type WeightLookup interface {
	Weight(dim digest.Dimension, key string) float64
}

// Reranker computes blended scores and orders candidates by them.
type Reranker struct {
	cfg     digest.RerankConfig
	weights WeightLookup
	logger  zerolog.Logger
}

// NewReranker builds a Reranker with the given coefficients and weight
// lookup.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewReranker(cfg digest.RerankConfig, weights WeightLookup, logger zerolog.Logger) *Reranker {
	return &Reranker{
		cfg:     cfg,
		weights: weights,
		logger:  logger.With().Str("component", "rerank").Logger(),
	}
}

// Rerank attaches a WeightedScore to every item and returns a new slice
// ordered by descending score. The sort is stable so equal-scoring items
// keep their input order and repeated runs over the same input produce
// the same output. The input slice is not modified. A nil profile ranks
// everything with the neutral similarity.
func (r *Reranker) Rerank(items []digest.CandidateItem, profile *digest.ProfileVectors, projects []digest.ActiveProject) []digest.CandidateItem {
	if len(items) == 0 {
		return nil
	}

	activity := activityIndex(projects)

	ranked := make([]digest.CandidateItem, len(items))
	copy(ranked, items)

	for i := range ranked {
		item := &ranked[i]

		base := item.BaseScore() / 10
		sim := r.similarity(item, profile)
		act := projectActivity(item.RelatedProjects, activity)

		multiplier := r.weights.Weight(digest.DimensionSource, dedupe.NormalizeSource(item.Source)) *
			r.weights.Weight(digest.DimensionContentType, string(item.Category))

		item.WeightedScore = (base*r.cfg.BaseWeight +
			sim*r.cfg.SimilarityWeight +
			act*r.cfg.ActivityWeight) * multiplier
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].WeightedScore > ranked[j].WeightedScore
	})

	r.logger.Debug().
		Int("items", len(ranked)).
		Bool("profile", profile != nil).
		Float64("top_score", ranked[0].WeightedScore).
		Msg("reranked candidates")

	return ranked
}

// similarity blends the per-profile-part similarities. Each part that the
// profile does not carry contributes the neutral score, so a sparse
// profile degrades toward neutrality rather than toward zero.
func (r *Reranker) similarity(item *digest.CandidateItem, profile *digest.ProfileVectors) float64 {
	if profile == nil {
		return r.cfg.NeutralSimilarity
	}

	var goals, projects, implicit float64
	if r.cfg.UseEmbeddings && len(item.Embedding) > 0 {
		goals = r.vectorPart(item.Embedding, profile.Goals)
		projects = r.vectorPart(item.Embedding, profile.Projects)
		implicit = r.vectorPart(item.Embedding, profile.ImplicitInterests)
	} else {
		text := item.ComposedText()
		goals = r.lexicalPart(text, profile.GoalsText)
		projects = r.lexicalPart(text, profile.ProjectsText)
		implicit = r.lexicalPart(text, profile.InterestsText)
	}

	return goals*r.cfg.GoalsWeight +
		projects*r.cfg.ProjectsWeight +
		implicit*r.cfg.ImplicitWeight
}

func (r *Reranker) vectorPart(item, part []float64) float64 {
	if len(part) == 0 {
		return r.cfg.NeutralSimilarity
	}
	return cosine(item, part)
}

func (r *Reranker) lexicalPart(itemText, partText string) float64 {
	if partText == "" {
		return r.cfg.NeutralSimilarity
	}
	return lexicalSimilarity(itemText, partText)
}

// lexicalSimilarity is word-set overlap (intersection over union) of the
// lowercased texts. Either side being empty yields the neutral 0.5 rather
// than 0: absence of text is missing data, not evidence of mismatch.
func lexicalSimilarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.5
	}

	inter := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			inter++
		}
	}
	union := len(wordsA) + len(wordsB) - inter

	return float64(inter) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// cosine computes cosine similarity over the shared prefix of the two
// vectors, clamped to [0, 1]. Mismatched lengths happen when the embedding
// model changes between profile refreshes; truncating is the least-bad
// recovery.
func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0.5
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.5
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// activityIndex maps lowercased project names to activity contributions.
func activityIndex(projects []digest.ActiveProject) map[string]float64 {
	if len(projects) == 0 {
		return nil
	}
	index := make(map[string]float64, len(projects))
	for _, p := range projects {
		score := activityUnknown
		switch p.Priority {
		case digest.PriorityHigh:
			score = activityHigh
		case digest.PriorityMedium:
			score = activityMedium
		case digest.PriorityLow:
			score = activityLow
		}
		index[strings.ToLower(p.Name)] = score
	}
	return index
}

// projectActivity returns the strongest activity contribution among the
// item's related projects, or the unknown default when the item names
// none (or only names projects absent from the registry).
func projectActivity(related []string, index map[string]float64) float64 {
	best := activityUnknown
	for _, name := range related {
		if score, ok := index[strings.ToLower(name)]; ok && score > best {
			best = score
		}
	}
	return best
}
