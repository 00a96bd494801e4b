// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mvance/tasteworlds/internal/metrics"
	"github.com/mvance/tasteworlds/internal/taste"
)

// BreakerClient wraps a Catalog with the circuit breaker pattern so that a
// degraded upstream fails fast instead of stalling every running job.
//
// DETERMINISM NOTE: The circuit breaker uses real time (via sony/gobreaker)
// for its interval and timeout calculations. Tests should exercise the
// wrapped client directly rather than racing the breaker's clock.
type BreakerClient struct {
	inner  Catalog
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
	logger zerolog.Logger
}

var _ Catalog = (*BreakerClient)(nil)

// NewBreakerClient wraps the given catalog with a circuit breaker.
// Configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewBreakerClient(inner Catalog, logger zerolog.Logger) *BreakerClient {
	cbName := "catalog-api"
	cbLogger := logger.With().Str("component", "catalog_breaker").Logger()

	// Initialize circuit breaker state metrics
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		// Opens when failure rate >= 60% with minimum 10 requests
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false // Need at least 10 requests for statistical significance
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				cbLogger.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			cbLogger.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerClient{
		inner:  inner,
		cb:     cb,
		name:   cbName,
		logger: cbLogger,
	}
}

// execute wraps a catalog call with circuit breaker protection
func (b *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			b.logger.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// castResult safely type-casts the circuit breaker result with error checking
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func (b *BreakerClient) SearchSimilar(ctx context.Context, seedIDs []string, targets map[string]float64, limit int) ([]taste.Track, error) {
	return castResult[[]taste.Track](b.execute(func() (interface{}, error) {
		return b.inner.SearchSimilar(ctx, seedIDs, targets, limit)
	}))
}

func (b *BreakerClient) BatchFeatures(ctx context.Context, trackIDs []string) (map[string]taste.AudioFeatures, error) {
	return castResult[map[string]taste.AudioFeatures](b.execute(func() (interface{}, error) {
		return b.inner.BatchFeatures(ctx, trackIDs)
	}))
}

func (b *BreakerClient) BatchArtists(ctx context.Context, artistIDs []string) (map[string]ArtistInfo, error) {
	return castResult[map[string]ArtistInfo](b.execute(func() (interface{}, error) {
		return b.inner.BatchArtists(ctx, artistIDs)
	}))
}

func (b *BreakerClient) CreatePlaylist(ctx context.Context, ownerID, name, description string) (string, error) {
	return castResult[string](b.execute(func() (interface{}, error) {
		return b.inner.CreatePlaylist(ctx, ownerID, name, description)
	}))
}

func (b *BreakerClient) ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.ReplaceTracks(ctx, playlistID, trackIDs)
	})
	return err
}

func (b *BreakerClient) UploadCover(ctx context.Context, playlistID string, image []byte) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.UploadCover(ctx, playlistID, image)
	})
	return err
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
