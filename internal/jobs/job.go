// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

// Package jobs provides the asynchronous job model: the orchestrator that
// creates job records and hands work to the queue, and the runner that
// executes build and generate pipelines while checkpointing progress.
package jobs

import (
	"context"
	"errors"
	"time"
)

// Kind identifies what a job does.
type Kind string

const (
	KindBuild      Kind = "build"
	KindGenerate   Kind = "generate"
	KindRegenerate Kind = "regenerate"
)

// Status is the job lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// ErrJobNotFound is returned when no record exists for a job ID.
var ErrJobNotFound = errors.New("job not found")

// Job is the durable record of one logical run. Progress is cumulative and
// monotonically non-decreasing while running; terminal states are immutable
// once written. A job ID maps to exactly one run; re-running means a fresh
// ID, never in-place reuse.
type Job struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	OwnerID string `json:"owner_id"`
	Status  Status `json:"status"`

	// Progress is 0-100, cumulative per checkpoint.
	Progress    int    `json:"progress"`
	CurrentStep string `json:"current_step,omitempty"`

	// ResultRef points at the produced artifact (a world ID).
	ResultRef string `json:"result_ref,omitempty"`

	// Error is the captured failure message for failed jobs, reported
	// verbatim to pollers.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobStore persists job records. Implementations must keep terminal
// records readable for a retention window so pollers never see a job
// silently vanish mid-conversation.
type JobStore interface {
	Put(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
}
