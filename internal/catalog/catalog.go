// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

// Package catalog talks to the upstream music catalog API: similarity
// search, batched audio feature and artist lookups, and playlist writes.
// The HTTP client is rate limited with an injected token bucket, retries
// HTTP 429 with exponential backoff, and is wrapped by a circuit breaker in
// production wiring.
package catalog

import (
	"context"
	"errors"

	"github.com/mvance/tasteworlds/internal/taste"
)

// ErrRateLimited is returned when the upstream keeps responding 429 after
// the bounded retry budget is exhausted.
var ErrRateLimited = errors.New("catalog rate limit exceeded")

// ErrUnavailable is returned for non-retryable upstream failures. It
// surfaces as a job failure rather than being retried within the job.
var ErrUnavailable = errors.New("catalog unavailable")

// ArtistInfo is the genre-bearing slice of artist metadata the scorer needs.
type ArtistInfo struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// Catalog is the upstream surface the pipeline consumes. Read operations
// feed harvesting and scoring; write operations are used only by playlist
// materialization.
type Catalog interface {
	// SearchSimilar returns up to limit tracks similar to the seed IDs,
	// steered toward the given target feature biases (absolute target
	// values keyed by feature name).
	SearchSimilar(ctx context.Context, seedIDs []string, targets map[string]float64, limit int) ([]taste.Track, error)

	// BatchFeatures resolves audio features for up to 100 track IDs per
	// upstream call; larger inputs are chunked. Tracks the upstream
	// cannot resolve are absent from the result rather than failing the
	// batch.
	BatchFeatures(ctx context.Context, trackIDs []string) (map[string]taste.AudioFeatures, error)

	// BatchArtists resolves artist metadata for up to 50 artist IDs per
	// upstream call; larger inputs are chunked.
	BatchArtists(ctx context.Context, artistIDs []string) (map[string]ArtistInfo, error)

	// CreatePlaylist creates an empty playlist for the owner and returns
	// its upstream ID.
	CreatePlaylist(ctx context.Context, ownerID, name, description string) (string, error)

	// ReplaceTracks replaces the playlist's contents wholesale.
	ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// UploadCover sets the playlist cover image (JPEG bytes).
	UploadCover(ctx context.Context, playlistID string, image []byte) error
}
