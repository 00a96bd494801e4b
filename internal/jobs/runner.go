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
	"github.com/rs/zerolog"

	"github.com/mvance/tasteworlds/internal/metrics"
	"github.com/mvance/tasteworlds/internal/pipeline"
	"github.com/mvance/tasteworlds/internal/taste"
)

// ModelBuilder builds a world definition from seeds and answers.
type ModelBuilder interface {
	Build(ctx context.Context, ownerID string, seeds []taste.EnrichedTrack, answers taste.Answers) (*taste.WorldDefinition, error)
}

// PlaylistGenerator runs the generation pipeline for a world.
type PlaylistGenerator interface {
	Generate(ctx context.Context, world *taste.WorldDefinition, progress pipeline.ProgressFunc) ([]taste.PlaylistManifest, error)
}

// WorldStore is the slice of world persistence the runner needs.
type WorldStore interface {
	Save(ctx context.Context, world *taste.WorldDefinition) error
	Get(ctx context.Context, id string) (*taste.WorldDefinition, error)
}

// Build-job progress checkpoints. Generate jobs take their checkpoints
// from the pipeline directly.
const (
	buildProgressModeling = 20
	buildProgressSaving   = 85
)

// Runner consumes job requests from the queue and executes them. Each
// message runs one job end-to-end; there is no mid-pipeline cancellation,
// and a failed job is terminal (re-running means a fresh job ID).
type Runner struct {
	subscriber message.Subscriber
	store      JobStore
	worlds     WorldStore
	builder    ModelBuilder
	generator  PlaylistGenerator
	logger     zerolog.Logger
}

// NewRunner creates a runner.
func NewRunner(subscriber message.Subscriber, store JobStore, worlds WorldStore, builder ModelBuilder, generator PlaylistGenerator, logger zerolog.Logger) *Runner {
	return &Runner{
		subscriber: subscriber,
		store:      store,
		worlds:     worlds,
		builder:    builder,
		generator:  generator,
		logger:     logger.With().Str("component", "job_runner").Logger(),
	}
}

// Run consumes the jobs topic until the context is canceled. Suitable as a
// supervised service body.
func (r *Runner) Run(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, TopicJobs)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicJobs, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, msg)
			// Failures are captured in the job record; redelivery
			// would re-run a terminally failed job.
			msg.Ack()
		}
	}
}

func (r *Runner) handle(ctx context.Context, msg *message.Message) {
	var req request
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		r.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping unparseable job request")
		return
	}

	log := r.logger.With().Str("job_id", req.JobID).Str("kind", string(req.Kind)).Logger()

	job, err := r.store.Get(ctx, req.JobID)
	if err != nil {
		log.Error().Err(err).Msg("Job record missing, dropping request")
		return
	}
	if job.Status.Terminal() {
		log.Warn().Str("status", string(job.Status)).Msg("Job already terminal, dropping request")
		return
	}

	started := time.Now()
	job.Status = StatusRunning
	r.checkpoint(ctx, job, 0, "starting")

	var runErr error
	switch req.Kind {
	case KindBuild:
		runErr = r.runBuild(ctx, job, &req)
	case KindGenerate, KindRegenerate:
		runErr = r.runGenerate(ctx, job, &req)
	default:
		runErr = fmt.Errorf("unknown job kind %q", req.Kind)
	}

	if runErr != nil {
		// Straight to failed; partial work already committed stays.
		job.Status = StatusFailed
		job.Error = runErr.Error()
		job.UpdatedAt = time.Now().UTC()
		if err := r.store.Put(ctx, job); err != nil {
			log.Error().Err(err).Msg("Failed to persist job failure")
		}
		metrics.JobsCompleted.WithLabelValues(string(job.Kind), string(StatusFailed)).Inc()
		metrics.JobDuration.WithLabelValues(string(job.Kind)).Observe(time.Since(started).Seconds())
		log.Error().Err(runErr).Msg("Job failed")
		return
	}

	job.Status = StatusComplete
	r.checkpoint(ctx, job, 100, "complete")
	metrics.JobsCompleted.WithLabelValues(string(job.Kind), string(StatusComplete)).Inc()
	metrics.JobDuration.WithLabelValues(string(job.Kind)).Observe(time.Since(started).Seconds())
	log.Info().Dur("duration", time.Since(started)).Msg("Job complete")
}

// runBuild executes a taste model build and persists the resulting world.
func (r *Runner) runBuild(ctx context.Context, job *Job, req *request) error {
	r.checkpoint(ctx, job, buildProgressModeling, "building taste model")

	world, err := r.builder.Build(ctx, req.OwnerID, req.Seeds, req.Answers)
	if err != nil {
		return err
	}

	r.checkpoint(ctx, job, buildProgressSaving, "saving world")
	if err := r.worlds.Save(ctx, world); err != nil {
		return fmt.Errorf("save world: %w", err)
	}

	job.ResultRef = world.ID
	return nil
}

// runGenerate executes the generation pipeline against a stored world and
// records the playlist manifests on it. The world definition itself is
// read-only during generation; a rebuild racing this job may hand us a
// stale or fresh definition, which is accepted.
func (r *Runner) runGenerate(ctx context.Context, job *Job, req *request) error {
	world, err := r.worlds.Get(ctx, req.WorldID)
	if err != nil {
		return fmt.Errorf("load world %s: %w", req.WorldID, err)
	}

	manifests, err := r.generator.Generate(ctx, world, func(pct int, step string) {
		r.checkpoint(ctx, job, pct, step)
	})
	if err != nil {
		return err
	}

	world.Playlists = manifests
	if err := r.worlds.Save(ctx, world); err != nil {
		return fmt.Errorf("save playlist manifests: %w", err)
	}

	job.ResultRef = world.ID
	return nil
}

// checkpoint writes a cumulative progress update. Progress never moves
// backwards within a run, and terminal states written elsewhere are never
// overwritten here.
func (r *Runner) checkpoint(ctx context.Context, job *Job, progress int, step string) {
	if progress > job.Progress {
		job.Progress = progress
	}
	job.CurrentStep = step
	job.UpdatedAt = time.Now().UTC()

	if err := r.store.Put(ctx, job); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist job checkpoint")
	}
}
