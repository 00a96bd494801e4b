// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mvance/tasteworlds/internal/metrics"
	"github.com/mvance/tasteworlds/internal/taste"
)

// request is the queue payload: everything the runner needs to execute the
// job without touching the request boundary again.
type request struct {
	JobID   string `json:"job_id"`
	Kind    Kind   `json:"kind"`
	OwnerID string `json:"owner_id"`

	// Build input.
	Seeds   []taste.EnrichedTrack `json:"seeds,omitempty"`
	Answers taste.Answers         `json:"answers,omitempty"`

	// Generate/regenerate input.
	WorldID string `json:"world_id,omitempty"`
}

// Orchestrator is the request-boundary side of the job model: it creates
// pending records, enqueues work, and answers status polls. It never runs
// pipeline code itself.
type Orchestrator struct {
	store     JobStore
	publisher message.Publisher
	logger    zerolog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(store JobStore, publisher message.Publisher, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		publisher: publisher,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
	}
}

// StartBuild enqueues a taste model build and returns its fresh job ID.
func (o *Orchestrator) StartBuild(ctx context.Context, ownerID string, seeds []taste.EnrichedTrack, answers taste.Answers) (string, error) {
	return o.start(ctx, request{
		Kind:    KindBuild,
		OwnerID: ownerID,
		Seeds:   seeds,
		Answers: answers,
	})
}

// StartGenerate enqueues a playlist generation for an existing world.
func (o *Orchestrator) StartGenerate(ctx context.Context, ownerID, worldID string) (string, error) {
	return o.start(ctx, request{
		Kind:    KindGenerate,
		OwnerID: ownerID,
		WorldID: worldID,
	})
}

// StartRegenerate enqueues a regeneration that replaces the world's
// previously materialized playlists. Same pipeline as generate; the kind is
// kept distinct for reporting.
func (o *Orchestrator) StartRegenerate(ctx context.Context, ownerID, worldID string) (string, error) {
	return o.start(ctx, request{
		Kind:    KindRegenerate,
		OwnerID: ownerID,
		WorldID: worldID,
	})
}

// PollStatus returns the current job record.
func (o *Orchestrator) PollStatus(ctx context.Context, jobID string) (*Job, error) {
	return o.store.Get(ctx, jobID)
}

// start writes the pending record first, then publishes. A record without a
// queued message is a visible failed-to-start; a message without a record
// would be an orphan run, which is worse.
func (o *Orchestrator) start(ctx context.Context, req request) (string, error) {
	req.JobID = uuid.New().String()
	now := time.Now().UTC()

	job := &Job{
		ID:        req.JobID,
		Kind:      req.Kind,
		OwnerID:   req.OwnerID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.Put(ctx, job); err != nil {
		return "", fmt.Errorf("create job record: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal job request: %w", err)
	}

	msg := message.NewMessage(req.JobID, payload)
	if err := o.publisher.Publish(TopicJobs, msg); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	metrics.JobsStarted.WithLabelValues(string(req.Kind)).Inc()
	o.logger.Info().
		Str("job_id", req.JobID).
		Str("kind", string(req.Kind)).
		Str("owner_id", req.OwnerID).
		Msg("Job enqueued")

	return req.JobID, nil
}
