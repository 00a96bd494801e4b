// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

// Package api provides the HTTP surface for taste world building and
// playlist generation, routed with Chi.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/mvance/tasteworlds/internal/jobs"
	"github.com/mvance/tasteworlds/internal/store"
	"github.com/mvance/tasteworlds/internal/taste"
)

var validate = validator.New()

// JobService starts background jobs and reports their status.
type JobService interface {
	StartBuild(ctx context.Context, ownerID string, seeds []taste.EnrichedTrack, answers taste.Answers) (string, error)
	StartGenerate(ctx context.Context, ownerID, worldID string) (string, error)
	StartRegenerate(ctx context.Context, ownerID, worldID string) (string, error)
	PollStatus(ctx context.Context, jobID string) (*jobs.Job, error)
}

// WorldReader reads persisted world definitions.
type WorldReader interface {
	Get(ctx context.Context, id string) (*taste.WorldDefinition, error)
	GetByOwner(ctx context.Context, ownerID string) (*taste.WorldDefinition, error)
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	jobs   JobService
	worlds WorldReader
	logger zerolog.Logger
}

// NewHandler creates the API handler set.
func NewHandler(jobService JobService, worlds WorldReader, logger zerolog.Logger) *Handler {
	return &Handler{
		jobs:   jobService,
		worlds: worlds,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// createWorldRequest is the body for POST /api/v1/worlds.
type createWorldRequest struct {
	OwnerID string                `json:"owner_id" validate:"required"`
	Seeds   []taste.EnrichedTrack `json:"seeds" validate:"required,min=1"`
	Answers taste.Answers         `json:"answers"`
}

// jobStartedResponse is returned by every job-starting endpoint.
type jobStartedResponse struct {
	JobID string `json:"job_id"`
}

// CreateWorld accepts seed tracks and interview answers and queues a
// model-build job.
//
// Method: POST
// Path: /api/v1/worlds
func (h *Handler) CreateWorld(w http.ResponseWriter, r *http.Request) {
	var req createWorldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body", err)
		return
	}

	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", err)
		return
	}

	jobID, err := h.jobs.StartBuild(r.Context(), req.OwnerID, req.Seeds, req.Answers)
	if err != nil {
		h.logger.Error().Err(err).Str("owner_id", req.OwnerID).Msg("Failed to start build job")
		respondError(w, http.StatusInternalServerError, "JOB_START_FAILED", "Failed to start build job", err)
		return
	}

	h.logger.Info().
		Str("owner_id", req.OwnerID).
		Str("job_id", jobID).
		Int("seeds", len(req.Seeds)).
		Msg("Build job queued")

	respondJSON(w, http.StatusAccepted, &apiResponse{
		Status:   "success",
		Data:     jobStartedResponse{JobID: jobID},
		Metadata: metadata{Timestamp: time.Now()},
	})
}

// GenerateWorld queues playlist generation for an existing world.
//
// Method: POST
// Path: /api/v1/worlds/{worldID}/generate
func (h *Handler) GenerateWorld(w http.ResponseWriter, r *http.Request) {
	h.startGeneration(w, r, h.jobs.StartGenerate)
}

// RegenerateWorld requeues playlist generation, replacing the world's
// current playlists.
//
// Method: POST
// Path: /api/v1/worlds/{worldID}/regenerate
func (h *Handler) RegenerateWorld(w http.ResponseWriter, r *http.Request) {
	h.startGeneration(w, r, h.jobs.StartRegenerate)
}

func (h *Handler) startGeneration(w http.ResponseWriter, r *http.Request, start func(context.Context, string, string) (string, error)) {
	worldID := chi.URLParam(r, "worldID")

	// The owner comes from the stored world, never from the caller.
	world, err := h.worlds.Get(r.Context(), worldID)
	if err != nil {
		if errors.Is(err, store.ErrWorldNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "World not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to load world", err)
		return
	}

	jobID, err := start(r.Context(), world.OwnerID, world.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("world_id", world.ID).Msg("Failed to start generation job")
		respondError(w, http.StatusInternalServerError, "JOB_START_FAILED", "Failed to start generation job", err)
		return
	}

	h.logger.Info().
		Str("world_id", world.ID).
		Str("job_id", jobID).
		Msg("Generation job queued")

	respondJSON(w, http.StatusAccepted, &apiResponse{
		Status:   "success",
		Data:     jobStartedResponse{JobID: jobID},
		Metadata: metadata{Timestamp: time.Now()},
	})
}

// GetWorld returns a world definition including its playlist manifests.
//
// Method: GET
// Path: /api/v1/worlds/{worldID}
func (h *Handler) GetWorld(w http.ResponseWriter, r *http.Request) {
	world, err := h.worlds.Get(r.Context(), chi.URLParam(r, "worldID"))
	if err != nil {
		if errors.Is(err, store.ErrWorldNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "World not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to load world", err)
		return
	}

	respondJSON(w, http.StatusOK, &apiResponse{
		Status:   "success",
		Data:     world,
		Metadata: metadata{Timestamp: time.Now()},
	})
}

// GetOwnerWorld returns the world belonging to an owner.
//
// Method: GET
// Path: /api/v1/users/{ownerID}/world
func (h *Handler) GetOwnerWorld(w http.ResponseWriter, r *http.Request) {
	world, err := h.worlds.GetByOwner(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		if errors.Is(err, store.ErrWorldNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "No world for this user", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to load world", err)
		return
	}

	respondJSON(w, http.StatusOK, &apiResponse{
		Status:   "success",
		Data:     world,
		Metadata: metadata{Timestamp: time.Now()},
	})
}

// GetJob returns the current status of a job.
//
// Method: GET
// Path: /api/v1/jobs/{jobID}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.PollStatus(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to load job", err)
		return
	}

	respondJSON(w, http.StatusOK, &apiResponse{
		Status:   "success",
		Data:     job,
		Metadata: metadata{Timestamp: time.Now()},
	})
}

// Health reports liveness.
//
// Method: GET
// Path: /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &apiResponse{
		Status:   "success",
		Data:     map[string]string{"status": "ok"},
		Metadata: metadata{Timestamp: time.Now()},
	})
}
