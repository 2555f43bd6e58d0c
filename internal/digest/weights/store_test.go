// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package weights

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/digest"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(digest.DefaultConfig().Weights, zerolog.Nop())
}

func TestStore_WeightDefaultsToOne(t *testing.T) {
	s := testStore(t)

	if got := s.Weight(digest.DimensionSource, "never-seen"); got != 1.0 {
		t.Errorf("Weight() = %f, want 1.0", got)
	}
	if got := s.Weight(digest.DimensionSection, "must_read"); got != 1.0 {
		t.Errorf("Weight() = %f, want 1.0", got)
	}
}

func TestStore_SetClampsToBounds(t *testing.T) {
	s := testStore(t)

	s.Set(digest.DimensionSource, "a", 5.0)
	if got := s.Weight(digest.DimensionSource, "a"); got != 2.0 {
		t.Errorf("Weight() after over-high Set = %f, want upper bound 2.0", got)
	}

	s.Set(digest.DimensionSource, "a", 0.01)
	if got := s.Weight(digest.DimensionSource, "a"); got != 0.2 {
		t.Errorf("Weight() after over-low Set = %f, want lower bound 0.2", got)
	}

	s.Set(digest.DimensionSection, "headlines", 0.01)
	if got := s.Weight(digest.DimensionSection, "headlines"); got != 0.3 {
		t.Errorf("section Weight() = %f, want lower bound 0.3", got)
	}
}

func TestStore_ComputeAdjustments_BoostScenario(t *testing.T) {
	// current=1.0, {like:8, dislike:2} => rate 0.8 > 0.7 threshold,
	// target=min(1.0*1.3, 2.0)=1.3, new=0.2*1.3+0.8*1.0=1.06,
	// |1.06-1.0|=0.06 > 0.05 so the adjustment is recorded.
	s := testStore(t)

	snap := digest.FeedbackSnapshot{
		WindowDays: 7,
		Sources: map[string]digest.FeedbackCounts{
			"arXiv cs.AI": {Like: 8, Dislike: 2},
		},
	}

	adjustments := s.ComputeAdjustments(snap)
	if len(adjustments) != 1 {
		t.Fatalf("got %d adjustments, want 1", len(adjustments))
	}

	adj := adjustments[0]
	// Raw provenance strings collapse to canonical source keys, so the
	// learned weight is stored where Weight lookups will find it.
	if adj.Dimension != digest.DimensionSource || adj.Key != "arxiv" {
		t.Errorf("adjustment target = (%s, %s), want (source, arxiv)", adj.Dimension, adj.Key)
	}
	if math.Abs(adj.NewWeight-1.06) > 1e-9 {
		t.Errorf("NewWeight = %f, want 1.06", adj.NewWeight)
	}
	if adj.FeedbackCount != 10 {
		t.Errorf("FeedbackCount = %d, want 10", adj.FeedbackCount)
	}
}

func TestStore_ComputeAdjustments_BelowMinObservations(t *testing.T) {
	// Two observations never trigger an adjustment regardless of rate.
	s := testStore(t)

	snap := digest.FeedbackSnapshot{
		Sections: map[string]digest.FeedbackCounts{
			"headlines": {Like: 2},
		},
		Sources: map[string]digest.FeedbackCounts{
			"HN": {Like: 2},
		},
	}

	if adjustments := s.ComputeAdjustments(snap); len(adjustments) != 0 {
		t.Errorf("got %d adjustments for sparse feedback, want 0", len(adjustments))
	}
}

func TestStore_ComputeAdjustments_MergesSourceSpellings(t *testing.T) {
	// Neither sub-category alone reaches the five-observation floor, but
	// both normalize to "arxiv" and their counts pool into one group.
	s := testStore(t)

	snap := digest.FeedbackSnapshot{
		Sources: map[string]digest.FeedbackCounts{
			"arXiv cs.AI": {Like: 4},
			"arXiv cs.LG": {Like: 4, Dislike: 2},
		},
	}

	adjustments := s.ComputeAdjustments(snap)
	if len(adjustments) != 1 {
		t.Fatalf("got %d adjustments, want 1 merged", len(adjustments))
	}
	if adjustments[0].Key != "arxiv" {
		t.Errorf("Key = %q, want arxiv", adjustments[0].Key)
	}
	if adjustments[0].FeedbackCount != 10 {
		t.Errorf("FeedbackCount = %d, want pooled 10", adjustments[0].FeedbackCount)
	}
}

func TestStore_RefreshWeightVisibleUnderCanonicalKey(t *testing.T) {
	s := testStore(t)

	s.Refresh(digest.FeedbackSnapshot{
		Sources: map[string]digest.FeedbackCounts{
			"arXiv cs.AI": {Like: 8, Dislike: 2},
		},
	})

	if got := s.Weight(digest.DimensionSource, "arxiv"); math.Abs(got-1.06) > 1e-9 {
		t.Errorf("Weight(source, arxiv) = %f, want 1.06", got)
	}
	if got := s.Weight(digest.DimensionSource, "arXiv cs.AI"); got != 1.0 {
		t.Errorf("raw key Weight = %f, want untouched 1.0", got)
	}
}

func TestStore_ComputeAdjustments_MiddlingRatesSkip(t *testing.T) {
	s := testStore(t)

	snap := digest.FeedbackSnapshot{
		Sources: map[string]digest.FeedbackCounts{
			// rate 0.5 like, 0.3 dislike: neither threshold crossed.
			"Blog": {Like: 5, Dislike: 3, Neutral: 2},
		},
	}

	if adjustments := s.ComputeAdjustments(snap); len(adjustments) != 0 {
		t.Errorf("got %d adjustments, want 0", len(adjustments))
	}
}

func TestStore_ComputeAdjustments_DampScenario(t *testing.T) {
	s := testStore(t)

	snap := digest.FeedbackSnapshot{
		Sections: map[string]digest.FeedbackCounts{
			// dislike rate 0.6 > 0.4 => target=max(1.0*0.8, 0.3)=0.8,
			// new=0.2*0.8+0.8*1.0=0.96... |delta|=0.04 <= 0.05: dropped.
			"appendix": {Like: 2, Dislike: 6, Neutral: 2},
		},
	}
	if adjustments := s.ComputeAdjustments(snap); len(adjustments) != 0 {
		t.Fatalf("got %d adjustments, want 0 (delta below churn floor)", len(adjustments))
	}

	// From a higher current weight the same feedback produces a move large
	// enough to record.
	s.Set(digest.DimensionSection, "appendix", 1.5)
	adjustments := s.ComputeAdjustments(snap)
	if len(adjustments) != 1 {
		t.Fatalf("got %d adjustments, want 1", len(adjustments))
	}
	want := 0.2*math.Max(1.5*0.8, 0.3) + 0.8*1.5
	if math.Abs(adjustments[0].NewWeight-want) > 1e-9 {
		t.Errorf("NewWeight = %f, want %f", adjustments[0].NewWeight, want)
	}
}

func TestStore_EMAMonotonicConvergence(t *testing.T) {
	// A constant strong-like signal repeated across cycles must produce a
	// non-decreasing weight sequence that approaches, but never exceeds,
	// the upper bound.
	s := testStore(t)

	snap := digest.FeedbackSnapshot{
		Sources: map[string]digest.FeedbackCounts{
			"GitHub Trending": {Like: 9, Dislike: 1},
		},
	}

	prev := s.Weight(digest.DimensionSource, "GitHub Trending")
	for i := 0; i < 50; i++ {
		s.Refresh(snap)
		cur := s.Weight(digest.DimensionSource, "GitHub Trending")
		if cur < prev {
			t.Fatalf("cycle %d: weight decreased %f -> %f", i, prev, cur)
		}
		if cur > 2.0 {
			t.Fatalf("cycle %d: weight %f exceeded upper bound", i, cur)
		}
		prev = cur
	}

	if prev < 1.5 {
		t.Errorf("weight after 50 boost cycles = %f, expected convergence toward bound", prev)
	}
}

func TestStore_WeightBoundsHoldUnderMixedCycles(t *testing.T) {
	s := testStore(t)

	boost := digest.FeedbackSnapshot{
		Sources:  map[string]digest.FeedbackCounts{"A": {Like: 10}},
		Sections: map[string]digest.FeedbackCounts{"headlines": {Like: 10}},
	}
	damp := digest.FeedbackSnapshot{
		Sources:  map[string]digest.FeedbackCounts{"A": {Dislike: 10}},
		Sections: map[string]digest.FeedbackCounts{"headlines": {Dislike: 10}},
	}

	for i := 0; i < 100; i++ {
		if i%3 == 0 {
			s.Refresh(damp)
		} else {
			s.Refresh(boost)
		}

		for _, tc := range []struct {
			dim    digest.Dimension
			key    string
			lo, hi float64
		}{
			{digest.DimensionSource, "A", 0.2, 2.0},
			{digest.DimensionSection, "headlines", 0.3, 2.0},
		} {
			w := s.Weight(tc.dim, tc.key)
			if w < tc.lo || w > tc.hi {
				t.Fatalf("cycle %d: %s/%s weight %f outside [%f, %f]",
					i, tc.dim, tc.key, w, tc.lo, tc.hi)
			}
		}
	}
}

func TestStore_HistoryBounded(t *testing.T) {
	s := testStore(t)

	snap := digest.FeedbackSnapshot{
		Sources: map[string]digest.FeedbackCounts{"A": {Like: 10}},
	}
	for i := 0; i < 30; i++ {
		// Alternate set-back so every cycle records a change.
		s.Set(digest.DimensionSource, "A", 1.0)
		s.Refresh(snap)
	}

	if got := len(s.History()); got != 20 {
		t.Errorf("history length = %d, want 20", got)
	}
}

func TestStore_SnapshotRestoreRoundTrip(t *testing.T) {
	s := testStore(t)
	s.Set(digest.DimensionSource, "arXiv cs.AI", 1.2345)
	s.Set(digest.DimensionSection, "must_read", 0.8765)
	s.Set(digest.DimensionContentType, "paper", 1.5)
	s.ApplyAdjustments([]digest.Adjustment{
		{Dimension: digest.DimensionSource, Key: "arXiv cs.AI", OldWeight: 1.0, NewWeight: 1.2345},
	})

	snap := s.Snapshot()

	restored := testStore(t)
	restored.Restore(snap)

	for _, tc := range []struct {
		dim digest.Dimension
		key string
	}{
		{digest.DimensionSource, "arXiv cs.AI"},
		{digest.DimensionSection, "must_read"},
		{digest.DimensionContentType, "paper"},
	} {
		want := s.Weight(tc.dim, tc.key)
		got := restored.Weight(tc.dim, tc.key)
		if math.Abs(got-want) > 1e-6 {
			t.Errorf("%s/%s weight = %f, want %f", tc.dim, tc.key, got, want)
		}
	}

	if len(restored.History()) != len(s.History()) {
		t.Errorf("history length = %d, want %d", len(restored.History()), len(s.History()))
	}
}

func TestStore_RestoreNilSnapshot(t *testing.T) {
	s := testStore(t)
	s.Set(digest.DimensionSource, "A", 1.5)

	s.Restore(nil)
	if got := s.Weight(digest.DimensionSource, "A"); got != 1.0 {
		t.Errorf("Weight() after nil restore = %f, want default 1.0", got)
	}
}

func TestStore_RestoreClampsContentTypeWeights(t *testing.T) {
	// The content-type dimension has no learning rule; restored snapshot
	// values are its only production input and the bounds still apply.
	s := testStore(t)
	s.Restore(&Snapshot{
		Weights: map[string]float64{
			"content_type/framework": 0.8,
			"content_type/model":     5.0,
		},
	})

	if got := s.Weight(digest.DimensionContentType, "framework"); got != 0.8 {
		t.Errorf("Weight(content_type, framework) = %f, want 0.8", got)
	}
	if got := s.Weight(digest.DimensionContentType, "model"); got != 2.0 {
		t.Errorf("Weight(content_type, model) = %f, want clamped 2.0", got)
	}
}

func TestStore_RestoreSkipsMalformedKeys(t *testing.T) {
	s := testStore(t)
	s.Restore(&Snapshot{
		Weights: map[string]float64{
			"source/Good":  1.4,
			"nodimension":  1.9,
			"/leadingonly": 1.9,
			"trailing/":    1.9,
		},
	})

	if got := s.Weight(digest.DimensionSource, "Good"); got != 1.4 {
		t.Errorf("Weight(source, Good) = %f, want 1.4", got)
	}
	snap := s.Snapshot()
	if len(snap.Weights) != 1 {
		t.Errorf("restored table has %d entries, want 1", len(snap.Weights))
	}
}
