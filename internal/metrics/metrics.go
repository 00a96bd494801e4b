// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

// Package metrics exposes Prometheus instrumentation for the job pipeline,
// the upstream catalog client, and the embedding provider.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job metrics.

	JobsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasteworlds_jobs_started_total",
			Help: "Total number of jobs started, by kind",
		},
		[]string{"kind"},
	)

	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasteworlds_jobs_completed_total",
			Help: "Total number of jobs reaching a terminal state, by kind and status",
		},
		[]string{"kind", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasteworlds_job_duration_seconds",
			Help:    "Wall-clock duration of jobs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	// Upstream catalog metrics.

	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasteworlds_catalog_requests_total",
			Help: "Total catalog API requests, by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: success, failure, rate_limited
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasteworlds_catalog_request_duration_seconds",
			Help:    "Duration of catalog API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Circuit breaker metrics.

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tasteworlds_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasteworlds_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasteworlds_circuit_breaker_requests_total",
			Help: "Total requests through the circuit breaker, by result",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	// Embedding provider metrics.

	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasteworlds_embedding_requests_total",
			Help: "Total embedding batch requests, by outcome",
		},
		[]string{"outcome"},
	)

	EmbeddingTexts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tasteworlds_embedding_texts_total",
			Help: "Total texts embedded",
		},
	)

	// Pipeline metrics.

	CandidatesHarvested = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tasteworlds_candidates_harvested",
			Help:    "Candidate pool size after dedup and blocklist filtering",
			Buckets: []float64{0, 50, 100, 200, 300, 400, 500},
		},
	)

	CandidatesScored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tasteworlds_candidates_scored",
			Help:    "Candidates surviving the coarse filter and scoring",
			Buckets: []float64{0, 25, 50, 100, 200, 300, 400},
		},
	)

	// HTTP metrics.

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasteworlds_http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasteworlds_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
