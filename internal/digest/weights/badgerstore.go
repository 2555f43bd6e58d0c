// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package weights

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// snapshotKey is the BadgerDB key holding the weight snapshot.
const snapshotKey = "weights:snapshot"

// Repository persists weight snapshots between runs.
type Repository interface {
	// Load returns the last saved snapshot. A missing or corrupt snapshot
	// yields an empty snapshot, never an error: malformed persisted state
	// is a recoverable condition.
	Load(ctx context.Context) (*Snapshot, error)

	// Save writes the snapshot. Floats survive the round-trip exactly.
	Save(ctx context.Context, snap *Snapshot) error
}

// BadgerRepository implements Repository on an embedded BadgerDB instance.
type BadgerRepository struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerRepository creates a badger-backed snapshot repository.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBadgerRepository(db *badger.DB, logger zerolog.Logger) *BadgerRepository {
	return &BadgerRepository{
		db:     db,
		logger: logger.With().Str("component", "weights_repo").Logger(),
	}
}

// Load reads the persisted snapshot. A missing key returns an empty
// snapshot; an unreadable value is logged as a warning and also returns an
// empty snapshot, so a corrupted store falls back to default weights
// instead of failing the run.
func (r *BadgerRepository) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	empty := &Snapshot{Weights: make(map[string]float64)}
	if len(raw) == 0 {
		return empty, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		r.logger.Warn().Err(err).Msg("weight snapshot corrupt, falling back to defaults")
		return empty, nil
	}
	if snap.Weights == nil {
		snap.Weights = make(map[string]float64)
	}
	return &snap, nil
}

// Save writes the snapshot as JSON.
func (r *BadgerRepository) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(snapshotKey), data); err != nil {
			return fmt.Errorf("set snapshot: %w", err)
		}
		return nil
	})
}
