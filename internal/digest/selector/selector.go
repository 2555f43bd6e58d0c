// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package selector fills the digest's named shelves from a ranked candidate
// pool. Shelves are declarative specs (sort key, eligibility predicate,
// per-source quota, target size) executed in a fixed priority order over one
// shared dedupe registry, so higher-value shelves get first claim on
// contested items and no item is ever placed twice.
package selector

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/digest"
	"github.com/rcastell/curato/internal/digest/dedupe"
)

// researchSourceKeywords mark provenance strings that qualify an item for
// the paper-radar shelf.
var researchSourceKeywords = []string{
	"arxiv", "papers with code", "cs.ai", "cs.lg", "neurips", "iclr", "icml",
}

// Selector executes the shelf-fill pipeline.
type Selector struct {
	cfg    digest.SelectionConfig
	logger zerolog.Logger
	rng    *rand.Rand
}

// NewSelector builds a Selector. The seed drives only the exploration
// slot; with a fixed seed the whole pipeline is deterministic.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSelector(cfg digest.SelectionConfig, seed int64, logger zerolog.Logger) *Selector {
	return &Selector{
		cfg:    cfg,
		logger: logger.With().Str("component", "selector").Logger(),
		rng:    rand.New(rand.NewSource(seed)), //nolint:gosec // not used for secrets
	}
}

// shelfSpec declares one section-fill pass.
type shelfSpec struct {
	name         string
	target       int
	maxPerSource int
	sortKey      func(*digest.CandidateItem) float64
	eligible     func(*digest.CandidateItem) bool
}

// rejectionTally counts gate misses across every pass of one run.
type rejectionTally struct {
	dedupe int
	quota  int
}

// shelfFill tracks one pass's accepted items and per-source counts. The
// quota counter is per shelf; the registry and rejection tally are shared
// across the whole run.
type shelfFill struct {
	spec      shelfSpec
	accepted  []digest.CandidateItem
	perSource map[string]int
	rej       *rejectionTally
}

func newShelfFill(spec shelfSpec, rej *rejectionTally) *shelfFill {
	return &shelfFill{
		spec:      spec,
		perSource: make(map[string]int),
		rej:       rej,
	}
}

func (f *shelfFill) full() bool {
	return len(f.accepted) >= f.spec.target
}

// admit runs the quota and dedupe gates for one candidate and accepts it
// when both pass. Release suppression applies to every shelf.
func (f *shelfFill) admit(item *digest.CandidateItem, registry *dedupe.Registry) bool {
	if item.SuppressedRelease() {
		return false
	}
	src := dedupe.NormalizeSource(item.Source)
	if f.perSource[src] >= f.spec.maxPerSource {
		f.rej.quota++
		return false
	}
	if !registry.Claim(item.DedupeKey()) {
		f.rej.dedupe++
		return false
	}
	f.accepted = append(f.accepted, *item)
	f.perSource[src]++
	return true
}

// Select runs every shelf pass in priority order and assembles the layout
// sections plus run statistics. The input pool must already be ranked
// (ties in shelf sort keys keep pool order). An underfilled or empty shelf
// is normal output.
func (s *Selector) Select(pool []digest.CandidateItem) ([]digest.Section, digest.RunStats) {
	registry := dedupe.NewRegistry()
	rej := &rejectionTally{}

	mustRead := newShelfFill(s.mustReadSpec(), rej)
	headlines := newShelfFill(s.headlinesSpec(), rej)
	paperRadar := newShelfFill(s.paperRadarSpec(), rej)
	framework := newShelfFill(s.categorySpec(digest.SectionFramework, digest.CategoryFramework, s.cfg.FrameworkTarget), rej)
	model := newShelfFill(s.categorySpec(digest.SectionModel, digest.CategoryModel, s.cfg.ModelTarget), rej)
	article := newShelfFill(s.categorySpec(digest.SectionArticle, digest.CategoryArticle, s.cfg.ArticleTarget), rej)
	project := newShelfFill(s.categorySpec(digest.SectionProject, digest.CategoryProject, s.cfg.ProjectTarget), rej)
	appendix := newShelfFill(s.appendixSpec(), rej)

	// Pass order is a hard sequencing requirement: each pass claims items
	// before the next one sees the pool, so higher shelves win contested
	// items. The headlines backfill belongs to the headlines pass and runs
	// before the topic shelves do.
	s.fillShelf(mustRead, pool, registry)
	s.fillShelf(headlines, pool, registry)
	s.backfillHeadlines(headlines, pool, registry)
	s.fillShelf(paperRadar, pool, registry)
	s.fillShelf(framework, pool, registry)
	s.fillShelf(model, pool, registry)
	s.fillShelf(article, pool, registry)
	s.fillShelf(project, pool, registry)
	s.fillShelf(appendix, pool, registry)
	s.fillExplorationSlot(appendix, pool, registry)

	fills := []*shelfFill{mustRead, headlines, paperRadar, framework, model, article, project, appendix}

	sections := make([]digest.Section, 0, len(fills))
	for _, fill := range fills {
		sections = append(sections, digest.Section{
			Name:  fill.spec.name,
			Items: fill.accepted,
		})
	}

	stats := s.stats(pool, sections)
	stats.DedupeRejections = rej.dedupe
	stats.QuotaRejections = rej.quota

	s.logger.Info().
		Int("pool", len(pool)).
		Int("placed", registry.Len()).
		Interface("per_section", stats.PerSection).
		Msg("selection complete")

	return sections, stats
}

// fillShelf runs one pass: stable-sort the pool by the shelf's key, then
// walk it through the eligibility, quota, and dedupe gates until the
// target is met or the pool is exhausted.
func (s *Selector) fillShelf(fill *shelfFill, pool []digest.CandidateItem, registry *dedupe.Registry) {
	order := sortedIndices(pool, fill.spec.sortKey)
	for _, i := range order {
		if fill.full() {
			return
		}
		item := &pool[i]
		if !fill.spec.eligible(item) {
			continue
		}
		fill.admit(item, registry)
	}
}

func (s *Selector) mustReadSpec() shelfSpec {
	return shelfSpec{
		name:         digest.SectionMustRead,
		target:       s.cfg.MustReadTarget,
		maxPerSource: s.cfg.MaxPerSource,
		sortKey:      func(c *digest.CandidateItem) float64 { return c.PersonalPriority },
		eligible: func(c *digest.CandidateItem) bool {
			return c.PersonalPriority >= s.cfg.MustReadMinPriority
		},
	}
}

func (s *Selector) headlinesSpec() shelfSpec {
	return shelfSpec{
		name:         digest.SectionHeadlines,
		target:       s.cfg.HeadlinesTarget,
		maxPerSource: s.cfg.MaxPerSource,
		sortKey:      func(c *digest.CandidateItem) float64 { return c.HeadlinePriority },
		eligible: func(c *digest.CandidateItem) bool {
			return c.Category == digest.CategoryHeadline && !s.headlineExcluded(c)
		},
	}
}

// backfillHeadlines tops up a short headlines shelf in two progressively
// looser stages: high-relevance articles and projects first, then anything
// that is not tooling news. The shelf's paper exclusions (paper category,
// research sources) and source exclusions hold in both stages, and both
// stages reuse the pass's quota counter so the per-source limit holds
// across the whole shelf.
func (s *Selector) backfillHeadlines(fill *shelfFill, pool []digest.CandidateItem, registry *dedupe.Registry) {
	if fill.full() {
		return
	}

	relevance := func(c *digest.CandidateItem) float64 { return c.RelevanceScore }

	stages := []func(*digest.CandidateItem) bool{
		func(c *digest.CandidateItem) bool {
			return (c.Category == digest.CategoryArticle || c.Category == digest.CategoryProject) &&
				c.RelevanceScore >= s.cfg.HeadlineFillMinRelevance &&
				!isResearchSource(c.Source) &&
				!s.headlineExcluded(c)
		},
		func(c *digest.CandidateItem) bool {
			return c.Category != digest.CategoryFramework &&
				c.Category != digest.CategoryModel &&
				c.Category != digest.CategoryPaper &&
				!isResearchSource(c.Source) &&
				!s.headlineExcluded(c)
		},
	}

	for _, eligible := range stages {
		if fill.full() {
			return
		}
		for _, i := range sortedIndices(pool, relevance) {
			if fill.full() {
				break
			}
			item := &pool[i]
			if !eligible(item) {
				continue
			}
			fill.admit(item, registry)
		}
	}
}

func (s *Selector) headlineExcluded(c *digest.CandidateItem) bool {
	for _, excluded := range s.cfg.HeadlineExcludedSources {
		if strings.Contains(c.Source, excluded) {
			return true
		}
	}
	return false
}

func (s *Selector) paperRadarSpec() shelfSpec {
	return shelfSpec{
		name:         digest.SectionPaperRadar,
		target:       s.cfg.PaperRadarTarget,
		maxPerSource: s.cfg.PaperRadarMaxPerSource,
		sortKey:      func(c *digest.CandidateItem) float64 { return c.BaseScore() },
		eligible: func(c *digest.CandidateItem) bool {
			switch c.Category {
			case digest.CategoryFramework, digest.CategoryModel, digest.CategoryProject:
				return false
			}
			if c.Summary == "" {
				return false
			}
			return c.Category == digest.CategoryPaper || isResearchSource(c.Source)
		},
	}
}

func (s *Selector) categorySpec(name string, category digest.Category, target int) shelfSpec {
	return shelfSpec{
		name:         name,
		target:       target,
		maxPerSource: s.cfg.MaxPerSource,
		sortKey:      func(c *digest.CandidateItem) float64 { return c.RelevanceScore },
		eligible: func(c *digest.CandidateItem) bool {
			return c.Category == category && c.RelevanceScore >= s.cfg.CategoryShelfMinRelevance
		},
	}
}

func (s *Selector) appendixSpec() shelfSpec {
	return shelfSpec{
		name:         digest.SectionAppendix,
		target:       s.cfg.AppendixTarget,
		maxPerSource: s.cfg.MaxPerSource,
		sortKey:      func(c *digest.CandidateItem) float64 { return c.PersonalPriority },
		eligible: func(c *digest.CandidateItem) bool {
			return c.PersonalPriority >= s.cfg.AppendixMinPriority &&
				c.PersonalPriority <= s.cfg.AppendixMaxPriority
		},
	}
}

// fillExplorationSlot occasionally gives the appendix's last slot to the
// best near-miss item: one whose priority falls within the exploration
// margin below the appendix floor. The admitted item is flagged so the
// renderer can label it, and the subsequent feedback loop can learn from
// it. Quota and dedupe gates still apply. The weakest accepted item is
// given back only for as long as a replacement is being sought; when no
// near-miss candidate passes the gates, the original lineup stands.
func (s *Selector) fillExplorationSlot(fill *shelfFill, pool []digest.CandidateItem, registry *dedupe.Registry) {
	if s.cfg.ExplorationRate <= 0 || s.rng.Float64() >= s.cfg.ExplorationRate {
		return
	}

	floor := s.cfg.AppendixMinPriority - s.cfg.ExplorationMargin

	var evicted *digest.CandidateItem
	if fill.full() && len(fill.accepted) > 0 {
		// Free the weakest accepted slot. Its claim stays in the
		// registry, which is harmless: the appendix is the final pass.
		last := fill.accepted[len(fill.accepted)-1]
		evicted = &last
		fill.accepted = fill.accepted[:len(fill.accepted)-1]
		fill.perSource[dedupe.NormalizeSource(last.Source)]--
	}

	for _, i := range sortedIndices(pool, func(c *digest.CandidateItem) float64 { return c.PersonalPriority }) {
		item := &pool[i]
		if item.PersonalPriority < floor || item.PersonalPriority >= s.cfg.AppendixMinPriority {
			continue
		}
		pick := *item
		pick.ExplorationPick = true
		if fill.admit(&pick, registry) {
			s.logger.Debug().
				Str("title", pick.Title).
				Float64("priority", pick.PersonalPriority).
				Msg("exploration slot filled")
			return
		}
	}

	if evicted != nil {
		// No near-miss candidate qualified; put the slot back.
		fill.accepted = append(fill.accepted, *evicted)
		fill.perSource[dedupe.NormalizeSource(evicted.Source)]++
	}
}

func (s *Selector) stats(pool []digest.CandidateItem, sections []digest.Section) digest.RunStats {
	stats := digest.RunStats{
		TotalItems: len(pool),
		PerSection: make(map[string]int, len(sections)),
	}

	sources := make(map[string]struct{})
	for i := range pool {
		if pool[i].RelevanceScore >= 8 {
			stats.HighRelevance++
		}
		sources[dedupe.NormalizeSource(pool[i].Source)] = struct{}{}
	}
	stats.DistinctSources = len(sources)

	for _, sec := range sections {
		stats.PerSection[sec.Name] = len(sec.Items)
	}
	return stats
}

// sortedIndices returns pool indices ordered by key descending. Sorting
// indices instead of items keeps ties in pool order and avoids copying.
func sortedIndices(pool []digest.CandidateItem, key func(*digest.CandidateItem) float64) []int {
	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return key(&pool[order[a]]) > key(&pool[order[b]])
	})
	return order
}

func isResearchSource(source string) bool {
	lower := strings.ToLower(source)
	for _, kw := range researchSourceKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
