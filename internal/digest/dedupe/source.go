// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package dedupe

import "strings"

// NormalizeSource maps a free-text provenance string to a canonical bucket
// name, used for per-source quota accounting and reporting.
//
// The rule is pure and total: it never returns an empty bucket for a
// non-empty source, and empty input maps to "unknown". Families of related
// sources collapse to one bucket so quotas apply jointly - all arXiv
// sub-categories count against a single "arxiv" budget.
func NormalizeSource(source string) string {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return "unknown"
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "arxiv"):
		return "arxiv"
	case strings.Contains(lower, "reddit"), strings.Contains(lower, "r/"):
		return "reddit"
	case strings.Contains(lower, "hacker news"), strings.Contains(lower, "hn"):
		return "hacker_news"
	case strings.Contains(lower, "github"):
		return "github"
	}

	// Fall back to the first whitespace-delimited token, stripped of any
	// parenthetical suffix: "LangChain (v1.0.2)" -> "LangChain".
	token := trimmed
	if idx := strings.IndexFunc(token, isSpace); idx >= 0 {
		token = token[:idx]
	}
	if idx := strings.Index(token, "("); idx >= 0 {
		token = token[:idx]
	}
	if token == "" {
		return "unknown"
	}
	return token
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
