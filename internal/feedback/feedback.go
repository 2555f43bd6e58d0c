// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package feedback records user interaction events in DuckDB and serves
// the aggregated views the learning loop consumes: the trailing-window
// like/dislike snapshot for weight adjustment and the per-source relevance
// summary for pattern analysis. The core engine only ever sees aggregates;
// raw events stay in this package.
package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/digest"
	"github.com/rcastell/curato/internal/metrics"
)

// Feedback kinds for explicit reactions. An event with no explicit
// reaction carries KindNone and contributes only to the relevance summary.
const (
	KindLike    = "like"
	KindDislike = "dislike"
	KindNeutral = "neutral"
	KindNone    = ""
)

const schema = `
CREATE SEQUENCE IF NOT EXISTS feedback_events_id_seq;

CREATE TABLE IF NOT EXISTS feedback_events (
	id BIGINT PRIMARY KEY DEFAULT nextval('feedback_events_id_seq'),
	item_id TEXT,
	item_title TEXT,
	item_source TEXT NOT NULL,
	section TEXT NOT NULL DEFAULT '',
	feedback TEXT NOT NULL DEFAULT '',
	relevance_score DOUBLE NOT NULL DEFAULT 0,
	personal_priority DOUBLE NOT NULL DEFAULT 0,
	deep_dive BOOLEAN NOT NULL DEFAULT FALSE,
	occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_feedback_events_occurred_at
	ON feedback_events (occurred_at);
`

// Event is one recorded user interaction with a digest item.
type Event struct {
	ItemID           string
	ItemTitle        string
	ItemSource       string
	Section          string
	Feedback         string
	RelevanceScore   float64
	PersonalPriority float64
	DeepDive         bool

	// OccurredAt defaults to the insert time when zero.
	OccurredAt time.Time
}

// DB is the DuckDB-backed event store.
type DB struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the event database at path and initializes the
// schema. An empty path opens an in-memory database.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(path string, logger zerolog.Logger) (*DB, error) {
	if path == "" {
		path = ":memory:"
	}

	if dir := filepath.Dir(path); path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create feedback db directory %s: %w", dir, err)
		}
	}

	// Disable extension auto-install/auto-load: nothing here needs
	// extensions and auto-install can hang without network access.
	connStr := path + "?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false"
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open feedback db: %w", err)
	}

	db := &DB{
		conn:   conn,
		logger: logger.With().Str("component", "feedback").Logger(),
	}

	if _, err := conn.Exec(schema); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("initialize feedback schema: %w", err)
	}

	db.logger.Debug().Str("path", path).Msg("feedback store opened")
	return db, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if err := d.conn.Close(); err != nil {
		return fmt.Errorf("close feedback db: %w", err)
	}
	return nil
}

// RecordEvent persists one interaction. An empty source is stored as
// "unknown" and an unrecognized feedback kind is coerced to neutral;
// malformed events are a data-quality condition, not an error.
func (d *DB) RecordEvent(ctx context.Context, ev Event) error {
	source := ev.ItemSource
	if source == "" {
		source = "unknown"
	}

	kind := ev.Feedback
	switch kind {
	case KindLike, KindDislike, KindNeutral, KindNone:
	default:
		d.logger.Warn().Str("feedback", ev.Feedback).Msg("unrecognized feedback kind, storing as neutral")
		kind = KindNeutral
	}

	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO feedback_events (
			item_id, item_title, item_source, section, feedback,
			relevance_score, personal_priority, deep_dive, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ItemID, ev.ItemTitle, source, ev.Section, kind,
		ev.RelevanceScore, ev.PersonalPriority, ev.DeepDive, occurred,
	)
	if err != nil {
		return fmt.Errorf("record feedback event: %w", err)
	}
	metrics.FeedbackEventsRecorded.Inc()
	return nil
}

// Snapshot aggregates explicit reactions over the trailing window into the
// per-section and per-source tallies the weight store learns from. A
// window of zero or less covers all history.
func (d *DB) Snapshot(ctx context.Context, windowDays int) (digest.FeedbackSnapshot, error) {
	snap := digest.FeedbackSnapshot{
		WindowDays: windowDays,
		Sections:   make(map[string]digest.FeedbackCounts),
		Sources:    make(map[string]digest.FeedbackCounts),
	}

	sections, err := d.tally(ctx, "section", windowDays)
	if err != nil {
		return snap, fmt.Errorf("tally sections: %w", err)
	}
	snap.Sections = sections

	sources, err := d.tally(ctx, "item_source", windowDays)
	if err != nil {
		return snap, fmt.Errorf("tally sources: %w", err)
	}
	snap.Sources = sources

	return snap, nil
}

// Reactions returns the explicit like/dislike events in the trailing
// window, oldest first. Profile learning replays these against the
// candidate pool to move the implicit-interest vector.
func (d *DB) Reactions(ctx context.Context, windowDays int) ([]Event, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT item_id, item_title, item_source, section, feedback,
		       relevance_score, personal_priority, deep_dive, occurred_at
		FROM feedback_events
		WHERE feedback IN (?, ?) AND occurred_at >= ?
		ORDER BY occurred_at ASC`,
		KindLike, KindDislike, cutoff(windowDays))
	if err != nil {
		return nil, fmt.Errorf("query reactions: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ItemID, &ev.ItemTitle, &ev.ItemSource, &ev.Section,
			&ev.Feedback, &ev.RelevanceScore, &ev.PersonalPriority, &ev.DeepDive,
			&ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// tally groups explicit reactions by the given column. The column name is
// one of two fixed identifiers, never user input.
func (d *DB) tally(ctx context.Context, column string, windowDays int) (map[string]digest.FeedbackCounts, error) {
	query := fmt.Sprintf(`
		SELECT %s, feedback, COUNT(*)
		FROM feedback_events
		WHERE feedback IN (?, ?, ?) AND %s <> '' AND occurred_at >= ?
		GROUP BY %s, feedback`, column, column, column)

	rows, err := d.conn.QueryContext(ctx, query,
		KindLike, KindDislike, KindNeutral, cutoff(windowDays))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]digest.FeedbackCounts)
	for rows.Next() {
		var key, kind string
		var count int
		if err := rows.Scan(&key, &kind, &count); err != nil {
			return nil, err
		}
		counts := out[key]
		switch kind {
		case KindLike:
			counts.Like = count
		case KindDislike:
			counts.Dislike = count
		case KindNeutral:
			counts.Neutral = count
		}
		out[key] = counts
	}
	return out, rows.Err()
}

// Summary aggregates all events (explicit or not) into the per-source
// relevance view and hour-of-day histogram the pattern analyzer reads.
// Sources are ordered by high-relevance count descending.
func (d *DB) Summary(ctx context.Context, windowDays int) (digest.FeedbackSummary, error) {
	var summary digest.FeedbackSummary

	rows, err := d.conn.QueryContext(ctx, `
		SELECT item_source,
		       COUNT(*) AS total,
		       SUM(CASE WHEN relevance_score >= 8 THEN 1 ELSE 0 END) AS high_relevance,
		       AVG(relevance_score) AS avg_relevance
		FROM feedback_events
		WHERE occurred_at >= ?
		GROUP BY item_source
		ORDER BY high_relevance DESC, item_source`, cutoff(windowDays))
	if err != nil {
		return summary, fmt.Errorf("summarize sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var src digest.SourceSummary
		if err := rows.Scan(&src.Source, &src.Total, &src.HighRelevance, &src.AvgRelevance); err != nil {
			return summary, fmt.Errorf("scan source summary: %w", err)
		}
		if src.Total > 0 {
			src.HighRate = float64(src.HighRelevance) / float64(src.Total)
		}
		summary.Sources = append(summary.Sources, src)
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("summarize sources: %w", err)
	}

	hours, err := d.hourHistogram(ctx, windowDays)
	if err != nil {
		return summary, fmt.Errorf("summarize hours: %w", err)
	}
	summary.Hours = hours

	return summary, nil
}

func (d *DB) hourHistogram(ctx context.Context, windowDays int) ([]digest.HourCount, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT CAST(date_part('hour', occurred_at) AS INTEGER) AS hour,
		       COUNT(*) AS total
		FROM feedback_events
		WHERE occurred_at >= ?
		GROUP BY hour
		ORDER BY hour`, cutoff(windowDays))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []digest.HourCount
	for rows.Next() {
		var h digest.HourCount
		if err := rows.Scan(&h.Hour, &h.Total); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// cutoff converts a trailing-window length into an absolute lower bound
// for occurred_at. Zero or negative covers all history.
func cutoff(windowDays int) time.Time {
	if windowDays <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().AddDate(0, 0, -windowDays)
}

func closeQuietly(conn *sql.DB) {
	_ = conn.Close()
}
