// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package digest

import "fmt"

// Config contains all tuning parameters for the selection and learning
// engine. Every quota and threshold lives here as a named default rather
// than as a literal at a call site.
type Config struct {
	// Weights contains the EMA learning parameters per dimension.
	Weights WeightsConfig `json:"weights"`

	// Rerank contains the blended-score coefficients.
	Rerank RerankConfig `json:"rerank"`

	// Selection contains shelf targets, eligibility thresholds, and quotas.
	Selection SelectionConfig `json:"selection"`

	// Insights contains pattern-analysis thresholds.
	Insights InsightsConfig `json:"insights"`

	// Seed is the random seed for the exploration slot.
	// If zero, a fixed default seed is used for determinism.
	Seed int64 `json:"seed"`
}

// DimensionRule holds the EMA update parameters for one weight dimension.
type DimensionRule struct {
	// MinObservations is the minimum feedback events required before the
	// dimension's weights may move.
	MinObservations int `json:"min_observations"`

	// UpThreshold is the like rate above which the weight is boosted.
	UpThreshold float64 `json:"up_threshold"`

	// DownThreshold is the dislike rate above which the weight is damped.
	DownThreshold float64 `json:"down_threshold"`

	// BoostFactor multiplies the current weight to form the upward target.
	BoostFactor float64 `json:"boost_factor"`

	// DampFactor multiplies the current weight to form the downward target.
	DampFactor float64 `json:"damp_factor"`

	// LowerBound and UpperBound clamp the stored weight.
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// WeightsConfig contains the learned-multiplier parameters.
type WeightsConfig struct {
	// Alpha is the EMA smoothing coefficient:
	// new = alpha*target + (1-alpha)*current.
	// Default: 0.2.
	Alpha float64 `json:"alpha"`

	// MinDelta is the minimum |new-current| required to record a change,
	// avoiding churn on negligible drift.
	// Default: 0.05.
	MinDelta float64 `json:"min_delta"`

	// HistoryLimit bounds the adjustment audit ring.
	// Default: 20.
	HistoryLimit int `json:"history_limit"`

	// WindowDays is the trailing feedback window analyzed per cycle.
	// Default: 7.
	WindowDays int `json:"window_days"`

	// Sections governs section-dimension weights.
	// Defaults: minObservations 3, up 0.6, down 0.4, boost 1.2, damp 0.8,
	// bounds [0.3, 2.0].
	Sections DimensionRule `json:"sections"`

	// Sources governs source-dimension weights.
	// Defaults: minObservations 5, up 0.7, down 0.5, boost 1.3, damp 0.7,
	// bounds [0.2, 2.0].
	Sources DimensionRule `json:"sources"`

	// ContentTypes bounds category-dimension weights. No learning rule
	// targets this dimension; values enter only through restored
	// snapshots and are clamped to these bounds, so the rate and factor
	// fields are unused. Defaults: [0.2, 2.0].
	ContentTypes DimensionRule `json:"content_types"`
}

// RerankConfig contains the blended ranking-score coefficients.
type RerankConfig struct {
	// BaseWeight, SimilarityWeight, and ActivityWeight combine the three
	// score components. Defaults: 0.3, 0.4, 0.3.
	BaseWeight       float64 `json:"base_weight"`
	SimilarityWeight float64 `json:"similarity_weight"`
	ActivityWeight   float64 `json:"activity_weight"`

	// GoalsWeight, ProjectsWeight, and ImplicitWeight combine the
	// per-profile-vector similarities. Defaults: 0.3, 0.4, 0.3.
	GoalsWeight    float64 `json:"goals_weight"`
	ProjectsWeight float64 `json:"projects_weight"`
	ImplicitWeight float64 `json:"implicit_weight"`

	// NeutralSimilarity is used when no profile is available, so a missing
	// profile never biases ranking. Default: 0.5.
	NeutralSimilarity float64 `json:"neutral_similarity"`

	// UseEmbeddings selects the vector-cosine similarity strategy. When
	// false (or when a profile carries no vectors) the lexical word-overlap
	// strategy is used. The lexical path is an intentional degraded mode,
	// not a bug. Default: false.
	UseEmbeddings bool `json:"use_embeddings"`
}

// SelectionConfig contains shelf targets, thresholds, and quotas.
type SelectionConfig struct {
	// MustReadTarget is the must-read shelf size. Default: 5.
	MustReadTarget int `json:"must_read_target"`

	// MustReadMinPriority is the personal-priority floor for must-read.
	// Default: 8.
	MustReadMinPriority float64 `json:"must_read_min_priority"`

	// HeadlinesTarget is the headlines shelf size. Default: 10.
	HeadlinesTarget int `json:"headlines_target"`

	// HeadlineFillMinRelevance is the relevance floor for non-headline
	// items backfilled into the headlines shelf. Default: 7.
	HeadlineFillMinRelevance float64 `json:"headline_fill_min_relevance"`

	// HeadlineExcludedSources lists curated-paper sources whose items never
	// appear as headlines regardless of category.
	HeadlineExcludedSources []string `json:"headline_excluded_sources"`

	// PaperRadarTarget is the paper-radar shelf size. Default: 3.
	PaperRadarTarget int `json:"paper_radar_target"`

	// PaperRadarMaxPerSource overrides the per-source quota for the
	// paper-radar shelf. Default: 3.
	PaperRadarMaxPerSource int `json:"paper_radar_max_per_source"`

	// FrameworkTarget and ModelTarget size the tooling shelves. Default: 5.
	FrameworkTarget int `json:"framework_target"`
	ModelTarget     int `json:"model_target"`

	// ArticleTarget and ProjectTarget size the reading shelves. Default: 3.
	ArticleTarget int `json:"article_target"`
	ProjectTarget int `json:"project_target"`

	// CategoryShelfMinRelevance is the relevance floor for the per-category
	// shelves. Default: 6.
	CategoryShelfMinRelevance float64 `json:"category_shelf_min_relevance"`

	// AppendixTarget sizes the appendix. Default: 15.
	AppendixTarget int `json:"appendix_target"`

	// AppendixMinPriority and AppendixMaxPriority bracket the
	// personal-priority band admitted to the appendix. Defaults: 6 and 8.
	AppendixMinPriority float64 `json:"appendix_min_priority"`
	AppendixMaxPriority float64 `json:"appendix_max_priority"`

	// MaxPerSource is the default per-shelf quota for one normalized
	// source. Default: 2.
	MaxPerSource int `json:"max_per_source"`

	// ExplorationRate is the probability that the appendix's last slot is
	// offered to a near-miss item. Default: 0.1.
	ExplorationRate float64 `json:"exploration_rate"`

	// ExplorationMargin is how far below the threshold a near-miss item's
	// priority may fall and still qualify for the exploration slot.
	// Default: 1.
	ExplorationMargin float64 `json:"exploration_margin"`
}

// InsightsConfig contains pattern-analysis thresholds.
type InsightsConfig struct {
	// HighRateThreshold is the high-relevance rate above which the top
	// source earns a positive insight. Default: 0.6.
	HighRateThreshold float64 `json:"high_rate_threshold"`

	// LowRateThreshold is the high-relevance rate below which a source
	// earns a negative insight. Default: 0.2.
	LowRateThreshold float64 `json:"low_rate_threshold"`

	// MinTopTotal is the observation floor for the positive insight.
	// Default: 5.
	MinTopTotal int `json:"min_top_total"`

	// MinBottomTotal is the observation floor for the negative insight.
	// Default: 3.
	MinBottomTotal int `json:"min_bottom_total"`

	// ProtectedSources never receive decrease recommendations.
	ProtectedSources []string `json:"protected_sources"`

	// DampenedSources never receive increase recommendations; the positive
	// insight instead suggests diversifying.
	DampenedSources []string `json:"dampened_sources"`
}

// DefaultConfig returns a Config with production defaults. Every tunable
// constant is centralized here rather than scattered across call sites.
func DefaultConfig() *Config {
	return &Config{
		Weights: WeightsConfig{
			Alpha:        0.2,
			MinDelta:     0.05,
			HistoryLimit: 20,
			WindowDays:   7,
			Sections: DimensionRule{
				MinObservations: 3,
				UpThreshold:     0.6,
				DownThreshold:   0.4,
				BoostFactor:     1.2,
				DampFactor:      0.8,
				LowerBound:      0.3,
				UpperBound:      2.0,
			},
			Sources: DimensionRule{
				MinObservations: 5,
				UpThreshold:     0.7,
				DownThreshold:   0.5,
				BoostFactor:     1.3,
				DampFactor:      0.7,
				LowerBound:      0.2,
				UpperBound:      2.0,
			},
			ContentTypes: DimensionRule{
				LowerBound: 0.2,
				UpperBound: 2.0,
			},
		},
		Rerank: RerankConfig{
			BaseWeight:        0.3,
			SimilarityWeight:  0.4,
			ActivityWeight:    0.3,
			GoalsWeight:       0.3,
			ProjectsWeight:    0.4,
			ImplicitWeight:    0.3,
			NeutralSimilarity: 0.5,
			UseEmbeddings:     false,
		},
		Selection: SelectionConfig{
			MustReadTarget:            5,
			MustReadMinPriority:       8,
			HeadlinesTarget:           10,
			HeadlineFillMinRelevance:  7,
			HeadlineExcludedSources:   []string{"Towards Data Science"},
			PaperRadarTarget:          3,
			PaperRadarMaxPerSource:    3,
			FrameworkTarget:           5,
			ModelTarget:               5,
			ArticleTarget:             3,
			ProjectTarget:             3,
			CategoryShelfMinRelevance: 6,
			AppendixTarget:            15,
			AppendixMinPriority:       6,
			AppendixMaxPriority:       8,
			MaxPerSource:              2,
			ExplorationRate:           0.1,
			ExplorationMargin:         1,
		},
		Insights: InsightsConfig{
			HighRateThreshold: 0.6,
			LowRateThreshold:  0.2,
			MinTopTotal:       5,
			MinBottomTotal:    3,
		},
		Seed: 42, // Default seed for determinism
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Weights.Alpha <= 0 || c.Weights.Alpha > 1 {
		return fmt.Errorf("weights.alpha must be in (0, 1], got %f", c.Weights.Alpha)
	}
	if c.Weights.MinDelta < 0 {
		return fmt.Errorf("weights.min_delta must be non-negative, got %f", c.Weights.MinDelta)
	}
	if c.Weights.HistoryLimit < 1 {
		return fmt.Errorf("weights.history_limit must be positive, got %d", c.Weights.HistoryLimit)
	}
	if c.Weights.WindowDays < 1 {
		return fmt.Errorf("weights.window_days must be positive, got %d", c.Weights.WindowDays)
	}

	for _, rule := range []struct {
		name string
		r    DimensionRule
	}{
		{"weights.sections", c.Weights.Sections},
		{"weights.sources", c.Weights.Sources},
		{"weights.content_types", c.Weights.ContentTypes},
	} {
		if rule.r.LowerBound <= 0 {
			return fmt.Errorf("%s.lower_bound must be positive, got %f", rule.name, rule.r.LowerBound)
		}
		if rule.r.UpperBound < rule.r.LowerBound {
			return fmt.Errorf("%s.upper_bound must be >= lower_bound, got %f < %f",
				rule.name, rule.r.UpperBound, rule.r.LowerBound)
		}
	}

	sum := c.Rerank.BaseWeight + c.Rerank.SimilarityWeight + c.Rerank.ActivityWeight
	if sum <= 0 {
		return fmt.Errorf("rerank blend weights must sum to a positive value, got %f", sum)
	}
	if c.Rerank.NeutralSimilarity < 0 || c.Rerank.NeutralSimilarity > 1 {
		return fmt.Errorf("rerank.neutral_similarity must be in [0, 1], got %f", c.Rerank.NeutralSimilarity)
	}

	if c.Selection.MaxPerSource < 1 {
		return fmt.Errorf("selection.max_per_source must be positive, got %d", c.Selection.MaxPerSource)
	}
	if c.Selection.AppendixMaxPriority < c.Selection.AppendixMinPriority {
		return fmt.Errorf("selection.appendix_max_priority must be >= appendix_min_priority, got %f < %f",
			c.Selection.AppendixMaxPriority, c.Selection.AppendixMinPriority)
	}
	if c.Selection.ExplorationRate < 0 || c.Selection.ExplorationRate > 1 {
		return fmt.Errorf("selection.exploration_rate must be in [0, 1], got %f", c.Selection.ExplorationRate)
	}

	if c.Insights.HighRateThreshold < 0 || c.Insights.HighRateThreshold > 1 {
		return fmt.Errorf("insights.high_rate_threshold must be in [0, 1], got %f", c.Insights.HighRateThreshold)
	}
	if c.Insights.LowRateThreshold < 0 || c.Insights.LowRateThreshold > 1 {
		return fmt.Errorf("insights.low_rate_threshold must be in [0, 1], got %f", c.Insights.LowRateThreshold)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Selection.HeadlineExcludedSources = append([]string(nil), c.Selection.HeadlineExcludedSources...)
	clone.Insights.ProtectedSources = append([]string(nil), c.Insights.ProtectedSources...)
	clone.Insights.DampenedSources = append([]string(nil), c.Insights.DampenedSources...)
	return &clone
}
