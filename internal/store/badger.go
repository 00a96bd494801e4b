// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

// Package store persists world definitions and job records in BadgerDB.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// gcInterval is how often value-log garbage collection runs.
const gcInterval = 10 * time.Minute

// gcDiscardRatio triggers a rewrite when at least half a value log file is
// garbage.
const gcDiscardRatio = 0.5

// Open opens (or creates) the BadgerDB database at path. Badger's own
// logger is silenced; operational visibility comes from the GC runner and
// the stores.
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return db, nil
}

// OpenInMemory opens an ephemeral database, used by tests.
func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return db, nil
}

// RunGC runs periodic value-log garbage collection until the context is
// canceled. Suitable as a supervised service body.
func RunGC(ctx context.Context, db *badger.DB, logger zerolog.Logger) error {
	log := logger.With().Str("component", "badger_gc").Logger()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// RunValueLogGC returns ErrNoRewrite when nothing qualified;
			// that is the common, uninteresting case.
			for {
				if err := db.RunValueLogGC(gcDiscardRatio); err != nil {
					break
				}
				log.Debug().Msg("Value log file rewritten")
			}
		}
	}
}
