// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mvance/tasteworlds/internal/catalog"
	"github.com/mvance/tasteworlds/internal/taste"
)

// searchCall records one SearchSimilar invocation.
type searchCall struct {
	seedIDs []string
	targets map[string]float64
	limit   int
}

// fakeCatalog is an in-memory Catalog for pipeline tests.
type fakeCatalog struct {
	mu sync.Mutex

	// searchResults maps the first seed ID of a slice to its results so
	// tests can steer per-slice responses. searchDefault serves slices
	// without an entry.
	searchResults map[string][]taste.Track
	searchDefault []taste.Track
	searchErrFor  map[string]error

	features map[string]taste.AudioFeatures
	artists  map[string]catalog.ArtistInfo

	featuresErr error
	artistsErr  error

	createErr  error
	replaceErr error

	searchCalls    []searchCall
	createdNames   []string
	replacedTracks map[string][]string
	nextPlaylistID int
}

var _ catalog.Catalog = (*fakeCatalog)(nil)

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		searchResults:  make(map[string][]taste.Track),
		searchErrFor:   make(map[string]error),
		features:       make(map[string]taste.AudioFeatures),
		artists:        make(map[string]catalog.ArtistInfo),
		replacedTracks: make(map[string][]string),
	}
}

func (f *fakeCatalog) SearchSimilar(_ context.Context, seedIDs []string, targets map[string]float64, limit int) ([]taste.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.searchCalls = append(f.searchCalls, searchCall{seedIDs: seedIDs, targets: targets, limit: limit})

	if len(seedIDs) == 0 {
		return nil, errors.New("no seeds")
	}
	if err, ok := f.searchErrFor[seedIDs[0]]; ok {
		return nil, err
	}
	if tracks, ok := f.searchResults[seedIDs[0]]; ok {
		return tracks, nil
	}
	return f.searchDefault, nil
}

func (f *fakeCatalog) BatchFeatures(_ context.Context, trackIDs []string) (map[string]taste.AudioFeatures, error) {
	if f.featuresErr != nil {
		return nil, f.featuresErr
	}
	out := make(map[string]taste.AudioFeatures, len(trackIDs))
	for _, id := range trackIDs {
		if feat, ok := f.features[id]; ok {
			out[id] = feat
		}
	}
	return out, nil
}

func (f *fakeCatalog) BatchArtists(_ context.Context, artistIDs []string) (map[string]catalog.ArtistInfo, error) {
	if f.artistsErr != nil {
		return nil, f.artistsErr
	}
	out := make(map[string]catalog.ArtistInfo, len(artistIDs))
	for _, id := range artistIDs {
		if info, ok := f.artists[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}

func (f *fakeCatalog) CreatePlaylist(_ context.Context, _, name, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextPlaylistID++
	f.createdNames = append(f.createdNames, name)
	return playlistID(f.nextPlaylistID), nil
}

func (f *fakeCatalog) ReplaceTracks(_ context.Context, playlistID string, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replacedTracks[playlistID] = trackIDs
	return nil
}

func (f *fakeCatalog) UploadCover(_ context.Context, _ string, _ []byte) error {
	return nil
}

func playlistID(n int) string {
	return fmt.Sprintf("pl-%d", n)
}

// fakeEmbedder returns a fixed vector per text, defaulting to unit-x.
type fakeEmbedder struct {
	batchLimit int
	vector     []float64
	err        error
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	vector := f.vector
	if vector == nil {
		vector = []float64{1, 0}
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = vector
	}
	return out, nil
}

func (f *fakeEmbedder) BatchLimit() int {
	if f.batchLimit > 0 {
		return f.batchLimit
	}
	return 100
}
