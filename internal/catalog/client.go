// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package catalog

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mvance/tasteworlds/internal/metrics"
	"github.com/mvance/tasteworlds/internal/taste"
)

const (
	// featureBatchSize is the upstream cap on audio-features lookups per call.
	featureBatchSize = 100

	// artistBatchSize is the upstream cap on artist lookups per call.
	artistBatchSize = 50

	defaultTimeout = 30 * time.Second
)

// ClientConfig configures the HTTP catalog client.
type ClientConfig struct {
	BaseURL string
	Token   string

	// Timeout bounds each individual HTTP attempt.
	Timeout time.Duration
}

// Client is the HTTP implementation of Catalog. All requests pass through
// the injected rate limiter before hitting the wire, and HTTP 429 responses
// are retried with exponential backoff.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// Compile-time interface check
var _ Catalog = (*Client)(nil)

// NewClient creates a catalog client. The limiter is shared by all
// operations so that harvest, scoring, and playlist writes draw from the
// same request budget.
func NewClient(cfg ClientConfig, limiter *rate.Limiter, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger.With().Str("component", "catalog").Logger(),
	}
}

// requestConfig holds configuration for building catalog API requests
type requestConfig struct {
	operation   string // metric label, e.g. "search_similar"
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// doRequest executes a catalog API request and decodes the JSON response
// into result when a non-nil pointer is provided.
func (c *Client) doRequest(ctx context.Context, cfg requestConfig, result interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	reqURL := fmt.Sprintf("%s%s", c.baseURL, cfg.path)

	var bodyReader *bytes.Reader
	if cfg.body != nil {
		bodyReader = bytes.NewReader(cfg.body)
	}

	var req *http.Request
	var err error
	if bodyReader != nil {
		req, err = http.NewRequestWithContext(ctx, cfg.method, reqURL, bodyReader)
	} else {
		req, err = http.NewRequestWithContext(ctx, cfg.method, reqURL, http.NoBody)
	}
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if cfg.contentType != "" {
		req.Header.Set("Content-Type", cfg.contentType)
	}
	if len(cfg.query) > 0 {
		req.URL.RawQuery = cfg.query.Encode()
	}

	timer := prometheus.NewTimer(metrics.CatalogRequestDuration.WithLabelValues(cfg.operation))
	resp, err := c.doRequestWithRateLimit(req)
	timer.ObserveDuration()
	if err != nil {
		if strings.Contains(err.Error(), "rate limit exceeded") {
			metrics.CatalogRequests.WithLabelValues(cfg.operation, "rate_limited").Inc()
			return fmt.Errorf("%s: %w", cfg.operation, ErrRateLimited)
		}
		metrics.CatalogRequests.WithLabelValues(cfg.operation, "failure").Inc()
		return fmt.Errorf("%s: %w", cfg.operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		metrics.CatalogRequests.WithLabelValues(cfg.operation, "failure").Inc()
		return fmt.Errorf("%s: unexpected status %d: %w", cfg.operation, resp.StatusCode, ErrUnavailable)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			metrics.CatalogRequests.WithLabelValues(cfg.operation, "failure").Inc()
			return fmt.Errorf("%s: decode response: %w", cfg.operation, err)
		}
	}

	metrics.CatalogRequests.WithLabelValues(cfg.operation, "success").Inc()
	return nil
}

// doRequestWithRateLimit executes an HTTP request with automatic retry on
// rate limiting (HTTP 429)
//
// Retry behavior:
//   - Max 5 retry attempts
//   - Exponential backoff: 1s, 2s, 4s, 8s, 16s
//   - Respects Retry-After header (RFC 6585) if present
//   - Only retries on HTTP 429 (Too Many Requests)
func (c *Client) doRequestWithRateLimit(req *http.Request) (*http.Response, error) {
	const maxRetries = 5
	baseDelay := 1 * time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Rewind the body for retried POST/PUT requests
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Rate limited - close response and retry
		resp.Body.Close()

		if attempt == maxRetries {
			return nil, fmt.Errorf("rate limit exceeded after %d retries", maxRetries)
		}

		retryDelay := baseDelay * (1 << attempt) // 1s, 2s, 4s, 8s, 16s

		// Retry-After (RFC 6585) overrides the computed backoff
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				retryDelay = seconds
			}
		}

		c.logger.Warn().
			Dur("retry_delay", retryDelay).
			Int("attempt", attempt+1).
			Int("max_retries", maxRetries).
			Str("path", req.URL.Path).
			Msg("Catalog API rate limited (HTTP 429), retrying")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(retryDelay):
			// Continue to next retry
		}
	}

	return nil, fmt.Errorf("unreachable code: retry loop should return or error")
}

// similarResponse is the wire shape of the similarity search endpoint.
type similarResponse struct {
	Tracks []taste.Track `json:"tracks"`
}

// SearchSimilar queries the recommendation endpoint with up to five seed
// IDs and optional absolute feature targets.
func (c *Client) SearchSimilar(ctx context.Context, seedIDs []string, targets map[string]float64, limit int) ([]taste.Track, error) {
	query := url.Values{}
	query.Set("seed_tracks", strings.Join(seedIDs, ","))
	query.Set("limit", fmt.Sprintf("%d", limit))
	for feature, value := range targets {
		query.Set("target_"+feature, fmt.Sprintf("%.3f", value))
	}

	var result similarResponse
	if err := c.doRequest(ctx, requestConfig{
		operation: "search_similar",
		method:    http.MethodGet,
		path:      "/v1/recommendations",
		query:     query,
	}, &result); err != nil {
		return nil, err
	}

	return result.Tracks, nil
}

// featuresResponse is the wire shape of the batched audio-features endpoint.
// Entries the upstream cannot resolve come back as null and are skipped.
type featuresResponse struct {
	AudioFeatures []*audioFeaturesEntry `json:"audio_features"`
}

type audioFeaturesEntry struct {
	ID string `json:"id"`
	taste.AudioFeatures
}

// BatchFeatures resolves audio features for the given track IDs, chunking
// into upstream-sized batches.
func (c *Client) BatchFeatures(ctx context.Context, trackIDs []string) (map[string]taste.AudioFeatures, error) {
	features := make(map[string]taste.AudioFeatures, len(trackIDs))

	for start := 0; start < len(trackIDs); start += featureBatchSize {
		end := start + featureBatchSize
		if end > len(trackIDs) {
			end = len(trackIDs)
		}

		query := url.Values{}
		query.Set("ids", strings.Join(trackIDs[start:end], ","))

		var result featuresResponse
		if err := c.doRequest(ctx, requestConfig{
			operation: "batch_features",
			method:    http.MethodGet,
			path:      "/v1/audio-features",
			query:     query,
		}, &result); err != nil {
			return nil, err
		}

		for _, entry := range result.AudioFeatures {
			if entry == nil || entry.ID == "" {
				continue
			}
			features[entry.ID] = entry.AudioFeatures
		}
	}

	return features, nil
}

// artistsResponse is the wire shape of the batched artist endpoint.
type artistsResponse struct {
	Artists []*ArtistInfo `json:"artists"`
}

// BatchArtists resolves artist metadata for the given artist IDs, chunking
// into upstream-sized batches.
func (c *Client) BatchArtists(ctx context.Context, artistIDs []string) (map[string]ArtistInfo, error) {
	artists := make(map[string]ArtistInfo, len(artistIDs))

	for start := 0; start < len(artistIDs); start += artistBatchSize {
		end := start + artistBatchSize
		if end > len(artistIDs) {
			end = len(artistIDs)
		}

		query := url.Values{}
		query.Set("ids", strings.Join(artistIDs[start:end], ","))

		var result artistsResponse
		if err := c.doRequest(ctx, requestConfig{
			operation: "batch_artists",
			method:    http.MethodGet,
			path:      "/v1/artists",
			query:     query,
		}, &result); err != nil {
			return nil, err
		}

		for _, entry := range result.Artists {
			if entry == nil || entry.ID == "" {
				continue
			}
			artists[entry.ID] = *entry
		}
	}

	return artists, nil
}

// createPlaylistRequest is the wire shape of the playlist creation endpoint.
type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type createPlaylistResponse struct {
	ID string `json:"id"`
}

// CreatePlaylist creates an empty private playlist and returns its ID.
func (c *Client) CreatePlaylist(ctx context.Context, ownerID, name, description string) (string, error) {
	body, err := json.Marshal(createPlaylistRequest{
		Name:        name,
		Description: description,
		Public:      false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal playlist request: %w", err)
	}

	var result createPlaylistResponse
	if err := c.doRequest(ctx, requestConfig{
		operation:   "create_playlist",
		method:      http.MethodPost,
		path:        fmt.Sprintf("/v1/users/%s/playlists", url.PathEscape(ownerID)),
		body:        body,
		contentType: "application/json",
	}, &result); err != nil {
		return "", err
	}

	if result.ID == "" {
		return "", fmt.Errorf("create playlist: empty playlist ID: %w", ErrUnavailable)
	}

	return result.ID, nil
}

// replaceTracksRequest is the wire shape of the playlist tracks endpoint.
type replaceTracksRequest struct {
	TrackIDs []string `json:"track_ids"`
}

// ReplaceTracks replaces the playlist's contents wholesale.
func (c *Client) ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	body, err := json.Marshal(replaceTracksRequest{TrackIDs: trackIDs})
	if err != nil {
		return fmt.Errorf("marshal tracks request: %w", err)
	}

	return c.doRequest(ctx, requestConfig{
		operation:   "replace_tracks",
		method:      http.MethodPut,
		path:        fmt.Sprintf("/v1/playlists/%s/tracks", url.PathEscape(playlistID)),
		body:        body,
		contentType: "application/json",
	}, nil)
}

// UploadCover sets the playlist cover image. The upstream expects raw JPEG
// bytes rather than JSON.
func (c *Client) UploadCover(ctx context.Context, playlistID string, image []byte) error {
	return c.doRequest(ctx, requestConfig{
		operation:   "upload_cover",
		method:      http.MethodPut,
		path:        fmt.Sprintf("/v1/playlists/%s/cover", url.PathEscape(playlistID)),
		body:        image,
		contentType: "image/jpeg",
	}, nil)
}
