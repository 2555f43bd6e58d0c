// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package dedupe provides canonical identity derivation for content items
// and a run-scoped registry that enforces global uniqueness across the
// section-filling passes of a digest run.
//
// Identity is derived from an item's URL and title. Two items with the same
// derived key are the same real-world item regardless of which collector
// produced them. The registry is shared by reference across every selection
// pass within one run so that uniqueness holds across the whole layout, not
// merely within one section. Each run must construct a fresh registry.
package dedupe

import "strings"

// Key derives the canonical deduplication key for a (url, title) pair.
//
// Normalization trims surrounding whitespace and strips trailing slashes
// from the URL. The key format is "<normalized-url>:<trimmed-title>".
// An item with an empty URL and empty title yields the key ":"; all such
// items collide with each other, which is intentional - it prevents
// multiple empty placeholders from flooding a section.
func Key(url, title string) string {
	return NormalizeURL(url) + ":" + strings.TrimSpace(title)
}

// NormalizeURL trims whitespace and removes trailing slashes so that
// "https://x.com/1" and "https://x.com/1/" compare equal.
func NormalizeURL(url string) string {
	normalized := strings.TrimSpace(url)
	for strings.HasSuffix(normalized, "/") {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

// Registry tracks which dedupe keys have been claimed during one digest run.
// It is not safe for concurrent use: selection passes are strictly sequenced
// (pass N+1 never starts before pass N's claims are committed), so the
// registry assumes exclusive ownership by one selection pipeline.
type Registry struct {
	claimed map[string]struct{}
}

// NewRegistry returns an empty registry for a new run.
func NewRegistry() *Registry {
	return &Registry{claimed: make(map[string]struct{})}
}

// Claim inserts the key and returns true iff the key was not already
// present. On failure the registry is unchanged. O(1) amortized.
func (r *Registry) Claim(key string) bool {
	if r == nil || r.claimed == nil {
		panic("dedupe: Claim called on nil registry")
	}
	if _, ok := r.claimed[key]; ok {
		return false
	}
	r.claimed[key] = struct{}{}
	return true
}

// Claimed reports whether the key has been claimed without inserting it.
func (r *Registry) Claimed(key string) bool {
	_, ok := r.claimed[key]
	return ok
}

// Len returns the number of claimed keys.
func (r *Registry) Len() int {
	return len(r.claimed)
}
