// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package jobs

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// TopicJobs is the queue topic job requests travel on.
const TopicJobs = "tasteworlds.jobs"

// DefaultQueueBuffer is the queue depth before publishers block.
const DefaultQueueBuffer = 64

// NewQueue creates the in-process Pub/Sub the orchestrator publishes to and
// the runner consumes from. The request boundary only creates the job
// record and enqueues; all pipeline work happens on the consumer side.
func NewQueue(buffer int, logger zerolog.Logger) *gochannel.GoChannel {
	if buffer <= 0 {
		buffer = DefaultQueueBuffer
	}
	return gochannel.NewGoChannel(gochannel.Config{
		// Buffer so a burst of job submissions does not block handlers.
		OutputChannelBuffer: int64(buffer),
	}, newWatermillLogger(logger))
}

// watermillLogger adapts zerolog to watermill's LoggerAdapter.
type watermillLogger struct {
	logger zerolog.Logger
	fields watermill.LogFields
}

var _ watermill.LoggerAdapter = (*watermillLogger)(nil)

func newWatermillLogger(logger zerolog.Logger) *watermillLogger {
	return &watermillLogger{logger: logger.With().Str("component", "queue").Logger()}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.logger.Error().Err(err), fields).Msg(msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.logger.Info(), fields).Msg(msg)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.logger.Debug(), fields).Msg(msg)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.logger.Trace(), fields).Msg(msg)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{logger: l.logger, fields: l.fields.Add(fields)}
}

func (l *watermillLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for key, value := range l.fields.Add(fields) {
		e = e.Interface(key, value)
	}
	return e
}
