// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package report renders a digest run's layout into a Markdown document.
//
// The renderer is template-driven: a built-in template covers the standard
// digest shape, and callers may supply their own template using the same
// data and function set.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/rcastell/curato/internal/digest"
)

// ReportData is the root object a report template renders.
type ReportData struct {
	Layout      digest.Layout
	Adjustments []digest.Adjustment
	Insights    digest.InsightReport
}

// sectionTitles maps shelf names to display headings.
var sectionTitles = map[string]string{
	digest.SectionMustRead:   "Must Read",
	digest.SectionHeadlines:  "Headlines",
	digest.SectionPaperRadar: "Paper Radar",
	digest.SectionFramework:  "Frameworks & Tools",
	digest.SectionModel:      "Models",
	digest.SectionArticle:    "Articles",
	digest.SectionProject:    "Projects",
	digest.SectionAppendix:   "Appendix",
}

// Renderer renders report templates with the standard function set.
type Renderer struct {
	funcMap template.FuncMap
}

// NewRenderer creates a Renderer with the standard template functions.
func NewRenderer() *Renderer {
	r := &Renderer{}
	r.funcMap = r.buildFuncMap()
	return r
}

func (r *Renderer) buildFuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("January 2, 2006")
		},
		"formatDateTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04")
		},
		"formatScore": func(f float64) string {
			return fmt.Sprintf("%.1f", f)
		},
		"formatWeight": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"sectionTitle": func(name string) string {
			if title, ok := sectionTitles[name]; ok {
				return title
			}
			return name
		},
		"itemURL": func(item digest.CandidateItem) string {
			if item.URL != "" {
				return item.URL
			}
			return item.Link
		},
		"truncateWords": func(s string, maxWords int) string {
			words := strings.Fields(s)
			if len(words) <= maxWords {
				return s
			}
			return strings.Join(words[:maxWords], " ") + "..."
		},
		"trim": strings.TrimSpace,
	}
}

// Render executes a caller-supplied template against the report data.
func (r *Renderer) Render(templateContent string, data *ReportData) (string, error) {
	tmpl, err := template.New("report").Funcs(r.funcMap).Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("parse report template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// RenderMarkdown renders the built-in Markdown digest template.
func (r *Renderer) RenderMarkdown(data *ReportData) (string, error) {
	return r.Render(markdownTemplate, data)
}

// ValidateTemplate checks that a template parses against the standard
// function set without executing it.
func (r *Renderer) ValidateTemplate(templateContent string) error {
	if _, err := template.New("report").Funcs(r.funcMap).Parse(templateContent); err != nil {
		return fmt.Errorf("invalid report template: %w", err)
	}
	return nil
}
