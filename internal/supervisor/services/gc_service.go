// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package services

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/mvance/tasteworlds/internal/store"
)

// GCService runs Badger's periodic value-log garbage collection.
type GCService struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewGCService wraps the Badger GC loop as a supervised service.
func NewGCService(db *badger.DB, logger zerolog.Logger) *GCService {
	return &GCService{db: db, logger: logger}
}

// Serve implements suture.Service.
func (s *GCService) Serve(ctx context.Context) error {
	return store.RunGC(ctx, s.db, s.logger)
}

// String implements fmt.Stringer for suture's event log.
func (s *GCService) String() string {
	return "badger-gc"
}
