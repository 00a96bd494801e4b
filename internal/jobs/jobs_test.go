// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mvance/tasteworlds/internal/pipeline"
	"github.com/mvance/tasteworlds/internal/taste"
)

// memJobStore is an in-memory JobStore for tests.
type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]Job

	// progressLog records every persisted progress value per job.
	progressLog map[string][]int
}

func newMemJobStore() *memJobStore {
	return &memJobStore{
		jobs:        make(map[string]Job),
		progressLog: make(map[string][]int),
	}
}

func (s *memJobStore) Put(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	s.progressLog[job.ID] = append(s.progressLog[job.ID], job.Progress)
	return nil
}

func (s *memJobStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

// memWorldStore is an in-memory WorldStore for tests.
type memWorldStore struct {
	mu     sync.Mutex
	worlds map[string]taste.WorldDefinition
}

func newMemWorldStore() *memWorldStore {
	return &memWorldStore{worlds: make(map[string]taste.WorldDefinition)}
}

func (s *memWorldStore) Save(_ context.Context, world *taste.WorldDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worlds[world.ID] = *world
	return nil
}

func (s *memWorldStore) Get(_ context.Context, id string) (*taste.WorldDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	world, ok := s.worlds[id]
	if !ok {
		return nil, errors.New("world not found")
	}
	return &world, nil
}

type stubBuilder struct {
	err error
}

func (b *stubBuilder) Build(_ context.Context, ownerID string, seeds []taste.EnrichedTrack, _ taste.Answers) (*taste.WorldDefinition, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &taste.WorldDefinition{ID: "world-1", OwnerID: ownerID, SeedTrackIDs: seedIDsOf(seeds)}, nil
}

func seedIDsOf(seeds []taste.EnrichedTrack) []string {
	ids := make([]string, len(seeds))
	for i, seed := range seeds {
		ids[i] = seed.ID
	}
	return ids
}

type stubGenerator struct {
	err error
}

func (g *stubGenerator) Generate(_ context.Context, world *taste.WorldDefinition, progress pipeline.ProgressFunc) ([]taste.PlaylistManifest, error) {
	if g.err != nil {
		return nil, g.err
	}
	if progress != nil {
		progress(25, "harvested candidates")
		progress(55, "scored candidates")
		progress(100, "materialized playlists")
	}
	return []taste.PlaylistManifest{{Intersection: "Main", PlaylistID: "pl-1", TrackIDs: []string{"t1"}}}, nil
}

// harness wires an orchestrator and runner over one in-process queue.
type harness struct {
	orch   *Orchestrator
	store  *memJobStore
	worlds *memWorldStore
	cancel context.CancelFunc
}

func newHarness(t *testing.T, builder ModelBuilder, generator PlaylistGenerator) *harness {
	t.Helper()

	queue := NewQueue(0, zerolog.Nop())
	store := newMemJobStore()
	worlds := newMemWorldStore()

	runner := NewRunner(queue, store, worlds, builder, generator, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = runner.Run(ctx)
	}()
	t.Cleanup(cancel)
	t.Cleanup(func() { queue.Close() })

	// Give the subscriber a beat to attach before anything publishes.
	time.Sleep(20 * time.Millisecond)

	return &harness{
		orch:   NewOrchestrator(store, queue, zerolog.Nop()),
		store:  store,
		worlds: worlds,
		cancel: cancel,
	}
}

func (h *harness) waitTerminal(t *testing.T, jobID string) *Job {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("job %s never reached a terminal state", jobID)
		case <-time.After(10 * time.Millisecond):
			job, err := h.orch.PollStatus(context.Background(), jobID)
			if err != nil {
				t.Fatalf("PollStatus() error = %v", err)
			}
			if job.Status.Terminal() {
				return job
			}
		}
	}
}

func TestBuildJobLifecycle(t *testing.T) {
	h := newHarness(t, &stubBuilder{}, &stubGenerator{})

	seeds := []taste.EnrichedTrack{{Track: taste.Track{ID: "s1"}}}
	jobID, err := h.orch.StartBuild(context.Background(), "owner-1", seeds, taste.Answers{Transcript: "hello"})
	if err != nil {
		t.Fatalf("StartBuild() error = %v", err)
	}

	job := h.waitTerminal(t, jobID)
	if job.Status != StatusComplete {
		t.Fatalf("status = %s, error = %q", job.Status, job.Error)
	}
	if job.Kind != KindBuild {
		t.Errorf("kind = %s", job.Kind)
	}
	if job.ResultRef != "world-1" {
		t.Errorf("result ref = %q, want world-1", job.ResultRef)
	}
	if job.Progress != 100 {
		t.Errorf("progress = %d, want 100", job.Progress)
	}

	if _, err := h.worlds.Get(context.Background(), "world-1"); err != nil {
		t.Errorf("world was not persisted: %v", err)
	}
}

func TestGenerateJobLifecycle(t *testing.T) {
	h := newHarness(t, &stubBuilder{}, &stubGenerator{})

	world := &taste.WorldDefinition{ID: "world-1", OwnerID: "owner-1"}
	if err := h.worlds.Save(context.Background(), world); err != nil {
		t.Fatal(err)
	}

	jobID, err := h.orch.StartGenerate(context.Background(), "owner-1", "world-1")
	if err != nil {
		t.Fatalf("StartGenerate() error = %v", err)
	}

	job := h.waitTerminal(t, jobID)
	if job.Status != StatusComplete {
		t.Fatalf("status = %s, error = %q", job.Status, job.Error)
	}

	updated, err := h.worlds.Get(context.Background(), "world-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Playlists) != 1 || updated.Playlists[0].PlaylistID != "pl-1" {
		t.Errorf("manifests = %+v", updated.Playlists)
	}
}

func TestFailedJobCapturesError(t *testing.T) {
	h := newHarness(t, &stubBuilder{err: taste.ErrInsufficientSeedData}, &stubGenerator{})

	jobID, err := h.orch.StartBuild(context.Background(), "owner-1", nil, taste.Answers{})
	if err != nil {
		t.Fatalf("StartBuild() error = %v", err)
	}

	job := h.waitTerminal(t, jobID)
	if job.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.Error == "" {
		t.Error("failed job must carry a human-readable error")
	}
}

func TestGenerateJobFailsWhenWorldMissing(t *testing.T) {
	h := newHarness(t, &stubBuilder{}, &stubGenerator{})

	jobID, err := h.orch.StartGenerate(context.Background(), "owner-1", "no-such-world")
	if err != nil {
		t.Fatalf("StartGenerate() error = %v", err)
	}

	job := h.waitTerminal(t, jobID)
	if job.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	h := newHarness(t, &stubBuilder{}, &stubGenerator{})

	world := &taste.WorldDefinition{ID: "world-1", OwnerID: "owner-1"}
	if err := h.worlds.Save(context.Background(), world); err != nil {
		t.Fatal(err)
	}

	jobID, err := h.orch.StartRegenerate(context.Background(), "owner-1", "world-1")
	if err != nil {
		t.Fatalf("StartRegenerate() error = %v", err)
	}
	job := h.waitTerminal(t, jobID)
	if job.Kind != KindRegenerate {
		t.Errorf("kind = %s", job.Kind)
	}

	h.store.mu.Lock()
	log := h.store.progressLog[jobID]
	h.store.mu.Unlock()

	for i := 1; i < len(log); i++ {
		if log[i] < log[i-1] {
			t.Fatalf("progress regressed: %v", log)
		}
	}
	if log[len(log)-1] != 100 {
		t.Errorf("final progress = %d, want 100", log[len(log)-1])
	}
}

func TestDistinctJobIDsPerRun(t *testing.T) {
	h := newHarness(t, &stubBuilder{}, &stubGenerator{})

	world := &taste.WorldDefinition{ID: "world-1", OwnerID: "owner-1"}
	if err := h.worlds.Save(context.Background(), world); err != nil {
		t.Fatal(err)
	}

	first, err := h.orch.StartGenerate(context.Background(), "owner-1", "world-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.orch.StartGenerate(context.Background(), "owner-1", "world-1")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("re-running must allocate a fresh job ID")
	}
}

func TestPollStatusUnknownJob(t *testing.T) {
	h := newHarness(t, &stubBuilder{}, &stubGenerator{})

	if _, err := h.orch.PollStatus(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("PollStatus() error = %v, want ErrJobNotFound", err)
	}
}
