// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/mvance/tasteworlds/internal/jobs"
)

const jobKeyPrefix = "job:"

// DefaultJobRetention is how long terminal job records stay readable.
const DefaultJobRetention = 24 * time.Hour

// JobStore persists job records in BadgerDB. Terminal records carry a TTL
// so stale jobs age out of the store instead of accumulating forever.
type JobStore struct {
	db        *badger.DB
	retention time.Duration
}

var _ jobs.JobStore = (*JobStore)(nil)

// NewJobStore creates a BadgerDB-backed job store. A non-positive
// retention falls back to DefaultJobRetention.
func NewJobStore(db *badger.DB, retention time.Duration) *JobStore {
	if retention <= 0 {
		retention = DefaultJobRetention
	}
	return &JobStore{db: db, retention: retention}
}

// Put writes the job record, attaching the retention TTL once the job has
// reached a terminal state.
func (s *JobStore) Put(_ context.Context, job *jobs.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(jobKeyPrefix + job.ID)
		entry := badger.NewEntry(key, data)
		if job.Status.Terminal() {
			entry = entry.WithTTL(s.retention)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set job: %w", err)
		}
		return nil
	})
}

// Get retrieves a job record by ID.
func (s *JobStore) Get(_ context.Context, id string) (*jobs.Job, error) {
	var job jobs.Job

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(jobKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return jobs.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// ListActive returns non-terminal job records, newest first. Used for
// operational visibility, not by the pipeline itself.
func (s *JobStore) ListActive(_ context.Context) ([]*jobs.Job, error) {
	var active []*jobs.Job

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var job jobs.Job
				if err := json.Unmarshal(val, &job); err != nil {
					return fmt.Errorf("unmarshal job: %w", err)
				}
				if !job.Status.Terminal() {
					active = append(active, &job)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return active, nil
}
