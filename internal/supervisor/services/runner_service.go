// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package services

import "context"

// JobRunner matches jobs.Runner's blocking consume loop.
type JobRunner interface {
	Run(ctx context.Context) error
}

// RunnerService wraps the job runner as a supervised service so a panic in
// a job handler restarts the consumer without dropping the queue.
type RunnerService struct {
	runner JobRunner
}

// NewRunnerService wraps a job runner.
func NewRunnerService(runner JobRunner) *RunnerService {
	return &RunnerService{runner: runner}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

// String implements fmt.Stringer for suture's event log.
func (s *RunnerService) String() string {
	return "job-runner"
}
