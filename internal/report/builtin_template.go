// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package report

// markdownTemplate is the built-in Markdown digest layout. Empty sections
// are skipped; absence of content is normal output, never an error.
const markdownTemplate = `# Personal Digest - {{formatDate .Layout.GeneratedAt}}

Generated {{formatDateTime .Layout.GeneratedAt}} (run {{.Layout.RunID}})

{{range .Layout.Sections}}{{if .Items}}## {{sectionTitle .Name}}

{{range .Items}}- [{{.Title}}]({{itemURL .}}) - {{.Source}}{{if .WeightedScore}} (score {{formatScore .WeightedScore}}){{end}}{{if .ExplorationPick}} *(exploration pick)*{{end}}
{{if .Summary}}  {{truncateWords .Summary 40}}
{{end}}{{if .WhyMatters}}  *Why it matters:* {{truncateWords .WhyMatters 30}}
{{end}}{{end}}
{{end}}{{end}}{{if .Insights.Insights}}## Insights

{{range .Insights.Insights}}- {{.}}
{{end}}
{{end}}{{if .Adjustments}}## Learning Summary

{{range .Adjustments}}- ` + "`{{.Key}}`" + ` ({{.Dimension}}): {{formatWeight .OldWeight}} -> {{formatWeight .NewWeight}} ({{.Reason}}, {{.FeedbackCount}} observations)
{{end}}
{{end}}---

{{.Layout.Stats.TotalItems}} items considered, {{.Layout.Stats.HighRelevance}} high-relevance, {{.Layout.Stats.DistinctSources}} sources
`
