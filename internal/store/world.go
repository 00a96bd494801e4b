// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/mvance/tasteworlds/internal/taste"
)

// Key prefixes for BadgerDB storage
const (
	worldKeyPrefix      = "world:"
	worldOwnerKeyPrefix = "world_owner:"
)

// ErrWorldNotFound is returned when no world exists for an ID or owner.
var ErrWorldNotFound = errors.New("world not found")

// WorldStore persists world definitions. A world is replaced wholesale on
// rebuild; there is no partial mutation path.
type WorldStore struct {
	db *badger.DB
}

// NewWorldStore creates a BadgerDB-backed world store.
func NewWorldStore(db *badger.DB) *WorldStore {
	return &WorldStore{db: db}
}

// Save stores the world by ID and updates the owner index. Saving a new
// world for an owner who already has one replaces the owner mapping; the
// previous world record stays addressable by its own ID until overwritten.
func (s *WorldStore) Save(_ context.Context, world *taste.WorldDefinition) error {
	data, err := json.Marshal(world)
	if err != nil {
		return fmt.Errorf("marshal world: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		worldKey := []byte(worldKeyPrefix + world.ID)
		if err := txn.Set(worldKey, data); err != nil {
			return fmt.Errorf("set world: %w", err)
		}

		ownerKey := []byte(worldOwnerKeyPrefix + world.OwnerID)
		if err := txn.Set(ownerKey, []byte(world.ID)); err != nil {
			return fmt.Errorf("set owner mapping: %w", err)
		}

		return nil
	})
}

// Get retrieves a world by ID.
func (s *WorldStore) Get(_ context.Context, id string) (*taste.WorldDefinition, error) {
	var world taste.WorldDefinition

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(worldKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrWorldNotFound
		}
		if err != nil {
			return fmt.Errorf("get world: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &world)
		})
	})
	if err != nil {
		return nil, err
	}

	return &world, nil
}

// GetByOwner retrieves the owner's current world via the owner index.
func (s *WorldStore) GetByOwner(ctx context.Context, ownerID string) (*taste.WorldDefinition, error) {
	var worldID string

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(worldOwnerKeyPrefix + ownerID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrWorldNotFound
		}
		if err != nil {
			return fmt.Errorf("get owner mapping: %w", err)
		}

		return item.Value(func(val []byte) error {
			worldID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, worldID)
}
