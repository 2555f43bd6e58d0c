// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package digest

import (
	"strings"
	"time"

	"github.com/rcastell/curato/internal/digest/dedupe"
)

// Category classifies a content item. Categories are assigned by the
// upstream scoring stage; the engine only reads them.
type Category string

// Known item categories.
const (
	CategoryHeadline  Category = "headline"
	CategoryFramework Category = "framework"
	CategoryModel     Category = "model"
	CategoryArticle   Category = "article"
	CategoryProject   Category = "project"
	CategoryPaper     Category = "paper"
	CategoryOther     Category = "other"
)

// ParseCategory maps a free-text category string to a known Category.
// Unrecognized or empty values map to CategoryOther - upstream producers
// normalize items at the ingestion boundary, so the engine never needs to
// probe item shapes at runtime.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryHeadline, CategoryFramework, CategoryModel,
		CategoryArticle, CategoryProject, CategoryPaper:
		return c
	default:
		return CategoryOther
	}
}

// CandidateItem is one scored content unit. It is created once per run by
// the upstream scoring stage and is immutable for the duration of the run;
// the engine only reads identity and score fields and attaches derived
// annotations (WeightedScore, ExplorationPick).
type CandidateItem struct {
	// URL is the item's canonical address. Link is an alternate address
	// used when URL is empty (some collectors only produce one of the two).
	URL  string `json:"url"`
	Link string `json:"link,omitempty"`

	// Title is the item headline as produced by the collector.
	Title string `json:"title"`

	// Source is the free-text provenance string (e.g. "arXiv cs.AI",
	// "LangChain (v1.0.2)"). Quota accounting uses the normalized form.
	Source string `json:"source"`

	// Category is the upstream-assigned content class.
	Category Category `json:"category"`

	// RelevanceScore is the upstream relevance score (0-10).
	RelevanceScore float64 `json:"relevance_score"`

	// PersonalPriority is the upstream personalized priority (0-10).
	// Zero means unset.
	PersonalPriority float64 `json:"personal_priority"`

	// HeadlinePriority is the upstream headline priority (0-10), only
	// meaningful when Category is headline.
	HeadlinePriority float64 `json:"headline_priority"`

	// IsRelease marks version-release announcements. Releases are noise
	// unless PromoteRelease is also set.
	IsRelease bool `json:"is_release"`

	// PromoteRelease marks a release as worth surfacing.
	PromoteRelease bool `json:"promote_release"`

	// DeepDiveRecommended marks items the upstream scorer flagged for a
	// longer read.
	DeepDiveRecommended bool `json:"deep_dive_recommended,omitempty"`

	// Summary is the upstream-produced abstract.
	Summary string `json:"summary,omitempty"`

	// WhyMatters is the upstream-produced personal relevance note.
	WhyMatters string `json:"why_matters,omitempty"`

	// RelatedProjects names active projects the item relates to.
	RelatedProjects []string `json:"related_projects,omitempty"`

	// PublishedAt is the item's publication time, when known.
	PublishedAt time.Time `json:"published_at"`

	// Embedding is the item's content embedding, present only when the
	// upstream pipeline ran an embedding pass. Reranking falls back to
	// lexical similarity when it is empty.
	Embedding []float64 `json:"embedding,omitempty"`

	// WeightedScore is the blended ranking score attached by the reranker.
	// Derived; never produced upstream.
	WeightedScore float64 `json:"weighted_score,omitempty"`

	// ExplorationPick marks an item admitted through the exploration slot
	// rather than by meeting a shelf's eligibility threshold.
	ExplorationPick bool `json:"exploration_pick,omitempty"`
}

// DedupeKey derives the item's canonical identity. URL takes precedence
// over Link when both are set.
func (c *CandidateItem) DedupeKey() string {
	url := c.URL
	if url == "" {
		url = c.Link
	}
	return dedupe.Key(url, c.Title)
}

// BaseScore returns PersonalPriority when set, otherwise RelevanceScore,
// defaulting to 5 when neither is present. Missing scores are a
// data-quality condition recovered locally, never an error.
func (c *CandidateItem) BaseScore() float64 {
	if c.PersonalPriority > 0 {
		return c.PersonalPriority
	}
	if c.RelevanceScore > 0 {
		return c.RelevanceScore
	}
	return 5
}

// ComposedText joins title, summary, and the personal relevance note for
// similarity comparison against profile text.
func (c *CandidateItem) ComposedText() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Title, c.Summary, c.WhyMatters} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// SuppressedRelease reports whether the item is release noise: a release
// announcement not explicitly promoted. Such items are excluded from every
// shelf.
func (c *CandidateItem) SuppressedRelease() bool {
	return c.IsRelease && !c.PromoteRelease
}

// Dimension identifies which learned-weight table a key belongs to.
type Dimension string

// Weight dimensions.
const (
	DimensionSource      Dimension = "source"
	DimensionContentType Dimension = "content_type"
	DimensionSection     Dimension = "section"
)

// FeedbackCounts is a rolling tally of explicit feedback events for one
// source or section over the trailing window.
type FeedbackCounts struct {
	Like    int `json:"like"`
	Dislike int `json:"dislike"`
	Neutral int `json:"neutral"`
}

// Total returns the observation count.
func (f FeedbackCounts) Total() int {
	return f.Like + f.Dislike + f.Neutral
}

// LikeRate returns likes divided by total, or 0 for an empty tally.
func (f FeedbackCounts) LikeRate() float64 {
	total := f.Total()
	if total == 0 {
		return 0
	}
	return float64(f.Like) / float64(total)
}

// DislikeRate returns dislikes divided by total, or 0 for an empty tally.
func (f FeedbackCounts) DislikeRate() float64 {
	total := f.Total()
	if total == 0 {
		return 0
	}
	return float64(f.Dislike) / float64(total)
}

// FeedbackSnapshot is a read snapshot of aggregated feedback supplied by
// the persistence collaborator. A run with an empty snapshot degrades
// gracefully to no-op multipliers, not an error state.
type FeedbackSnapshot struct {
	// WindowDays is the trailing window the counts cover.
	WindowDays int `json:"window_days"`

	// Sections maps section name to its feedback tally.
	Sections map[string]FeedbackCounts `json:"sections"`

	// Sources maps free-text source name to its feedback tally.
	Sources map[string]FeedbackCounts `json:"sources"`
}

// SourceSummary is a per-source aggregate of implicit relevance feedback,
// consumed by the pattern analyzer.
type SourceSummary struct {
	// Source is the free-text provenance string.
	Source string `json:"source"`

	// Total is the number of observations in the window.
	Total int `json:"total"`

	// HighRelevance is the number of observations scored >= 8 upstream.
	HighRelevance int `json:"high_relevance"`

	// HighRate is HighRelevance / Total, in [0, 1].
	HighRate float64 `json:"high_rate"`

	// AvgRelevance is the mean upstream relevance score in the window.
	AvgRelevance float64 `json:"avg_relevance"`
}

// HourCount tallies interaction events for one hour of day (0-23).
type HourCount struct {
	Hour  int `json:"hour"`
	Total int `json:"total"`
}

// FeedbackSummary aggregates historical feedback for insight generation.
type FeedbackSummary struct {
	Sources []SourceSummary `json:"sources"`
	Hours   []HourCount     `json:"hours,omitempty"`
}

// Adjustment records one learned-weight change produced by the EMA update
// rule.
type Adjustment struct {
	// Dimension is the weight table the key belongs to.
	Dimension Dimension `json:"dimension"`

	// Key is the concrete source name, category, or section name.
	Key string `json:"key"`

	// OldWeight and NewWeight bracket the change.
	OldWeight float64 `json:"old_weight"`
	NewWeight float64 `json:"new_weight"`

	// Reason is a short human-readable rationale.
	Reason string `json:"reason"`

	// FeedbackCount is the number of observations behind the change.
	FeedbackCount int `json:"feedback_count"`
}

// AdjustmentDirection indicates which way a priority recommendation points.
type AdjustmentDirection string

// Priority adjustment directions.
const (
	DirectionIncrease AdjustmentDirection = "increase"
	DirectionDecrease AdjustmentDirection = "decrease"
)

// PriorityAdjustment is a structured recommendation emitted by the pattern
// analyzer. The analyzer only recommends; applying recommendations belongs
// to the advisor layer.
type PriorityAdjustment struct {
	Target    string              `json:"target"`
	Direction AdjustmentDirection `json:"direction"`
	Delta     int                 `json:"delta"`
	Reason    string              `json:"reason"`
}

// InsightReport bundles human-readable insights with structured
// recommendations for presentation and audit.
type InsightReport struct {
	Insights            []string             `json:"insights"`
	PriorityAdjustments []PriorityAdjustment `json:"priority_adjustments"`
}

// ProfileVectors carries the three fixed-length, L2-normalized profile
// embeddings plus their source text for the lexical similarity fallback.
// The engine receives a read-only copy each run; only ImplicitInterests is
// mutable at this layer, and an updated copy is returned for external
// persistence when profile learning is enabled.
type ProfileVectors struct {
	Goals             []float64 `json:"goals,omitempty"`
	Projects          []float64 `json:"projects,omitempty"`
	ImplicitInterests []float64 `json:"implicit_interests,omitempty"`

	// Source text for the no-embedding similarity strategy.
	GoalsText     string `json:"goals_text,omitempty"`
	ProjectsText  string `json:"projects_text,omitempty"`
	InterestsText string `json:"interests_text,omitempty"`
}

// ProjectPriority grades an active project's importance.
type ProjectPriority string

// Active-project priorities.
const (
	PriorityHigh   ProjectPriority = "high"
	PriorityMedium ProjectPriority = "medium"
	PriorityLow    ProjectPriority = "low"
)

// ActiveProject is one entry in the user's active-project registry.
type ActiveProject struct {
	Name     string          `json:"name"`
	Priority ProjectPriority `json:"priority"`
}

// Section is one named, ordered slice of the final layout.
type Section struct {
	// Name is the shelf name (e.g. "must_read", "headlines").
	Name string `json:"name"`

	// Items is the accepted items in display order.
	Items []CandidateItem `json:"items"`
}

// RunStats summarizes one digest run for the rendering layer.
type RunStats struct {
	TotalItems      int            `json:"total_items"`
	HighRelevance   int            `json:"high_relevance"`
	DistinctSources int            `json:"distinct_sources"`
	PerSection      map[string]int `json:"per_section"`

	// DedupeRejections counts eligible placement attempts that lost to an
	// earlier claim on the same key; QuotaRejections counts attempts that
	// hit a shelf's per-source cap.
	DedupeRejections int `json:"dedupe_rejections"`
	QuotaRejections  int `json:"quota_rejections"`
}

// Layout is the final per-section mapping of ordered items produced by one
// run. Sections appear in fill order; an empty section is normal output,
// not an exceptional condition.
type Layout struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Sections    []Section `json:"sections"`
	Stats       RunStats  `json:"stats"`
}

// Section returns the named section, or nil if the layout has none.
func (l *Layout) Section(name string) *Section {
	for i := range l.Sections {
		if l.Sections[i].Name == name {
			return &l.Sections[i]
		}
	}
	return nil
}

// Canonical section names used by the selector and learned section weights.
const (
	SectionMustRead   = "must_read"
	SectionHeadlines  = "headlines"
	SectionPaperRadar = "paper_radar"
	SectionFramework  = "framework"
	SectionModel      = "model"
	SectionArticle    = "article"
	SectionProject    = "project"
	SectionAppendix   = "appendix"
)
