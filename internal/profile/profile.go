// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

// Package profile persists the user's profile vectors and active-project
// registry, and implements the implicit-interest learning update.
package profile

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rcastell/curato/internal/digest"
)

// BadgerDB keys for the two persisted profile records.
const (
	vectorsKey  = "profile:vectors"
	projectsKey = "profile:projects"
)

// DefaultLearningRate is the implicit-interest EMA step size.
const DefaultLearningRate = 0.05

// Store persists profile state in BadgerDB. A missing or corrupt record
// loads as absent, never as an error: a run without a profile degrades to
// neutral ranking.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewStore builds a Store over an open BadgerDB handle.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStore(db *badger.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "profile").Logger(),
	}
}

// LoadVectors returns the persisted profile vectors, or nil when none are
// stored. A corrupt record is logged and treated as absent.
func (s *Store) LoadVectors(ctx context.Context) (*digest.ProfileVectors, error) {
	raw, err := s.get(ctx, vectorsKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var vectors digest.ProfileVectors
	if err := json.Unmarshal(raw, &vectors); err != nil {
		s.logger.Warn().Err(err).Msg("corrupt profile vectors, treating as absent")
		return nil, nil
	}
	return &vectors, nil
}

// SaveVectors persists the profile vectors.
func (s *Store) SaveVectors(ctx context.Context, vectors *digest.ProfileVectors) error {
	return s.put(ctx, vectorsKey, vectors)
}

// LoadProjects returns the persisted active-project registry, empty when
// none is stored or the record is corrupt.
func (s *Store) LoadProjects(ctx context.Context) ([]digest.ActiveProject, error) {
	raw, err := s.get(ctx, projectsKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var projects []digest.ActiveProject
	if err := json.Unmarshal(raw, &projects); err != nil {
		s.logger.Warn().Err(err).Msg("corrupt project registry, treating as empty")
		return nil, nil
	}
	return projects, nil
}

// SaveProjects persists the active-project registry.
func (s *Store) SaveProjects(ctx context.Context, projects []digest.ActiveProject) error {
	return s.put(ctx, projectsKey, projects)
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Store) put(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), data); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	})
}

// UpdateImplicit applies one EMA step to the implicit-interest vector and
// returns the updated, L2-normalized vector. Positive feedback pulls the
// vector toward the item embedding; negative feedback pushes it away. The
// inputs are not modified.
//
// An empty current vector adopts the (normalized) embedding on positive
// feedback and stays empty on negative feedback: there is nothing to push
// away from yet.
func UpdateImplicit(current, embedding []float64, positive bool, learningRate float64) []float64 {
	if len(embedding) == 0 {
		return append([]float64(nil), current...)
	}
	if len(current) == 0 {
		if !positive {
			return nil
		}
		return normalize(append([]float64(nil), embedding...))
	}

	n := len(current)
	if len(embedding) < n {
		n = len(embedding)
	}

	updated := make([]float64, n)
	if positive {
		for i := 0; i < n; i++ {
			updated[i] = current[i]*(1-learningRate) + embedding[i]*learningRate
		}
	} else {
		for i := 0; i < n; i++ {
			updated[i] = current[i]*(1+learningRate) - embedding[i]*learningRate
		}
	}
	return normalize(updated)
}

// normalize scales v to unit L2 norm in place and returns it. A zero
// vector is returned unchanged.
func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}
