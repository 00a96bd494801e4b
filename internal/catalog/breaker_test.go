// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mvance/tasteworlds/internal/taste"
)

// stubCatalog returns canned results for breaker tests.
type stubCatalog struct {
	searchErr error
}

func (s *stubCatalog) SearchSimilar(_ context.Context, _ []string, _ map[string]float64, _ int) ([]taste.Track, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return []taste.Track{{ID: "t1"}}, nil
}

func (s *stubCatalog) BatchFeatures(_ context.Context, ids []string) (map[string]taste.AudioFeatures, error) {
	out := make(map[string]taste.AudioFeatures, len(ids))
	for _, id := range ids {
		out[id] = taste.AudioFeatures{Valence: 0.5}
	}
	return out, nil
}

func (s *stubCatalog) BatchArtists(_ context.Context, _ []string) (map[string]ArtistInfo, error) {
	return map[string]ArtistInfo{}, nil
}

func (s *stubCatalog) CreatePlaylist(_ context.Context, _, _, _ string) (string, error) {
	return "pl-1", nil
}

func (s *stubCatalog) ReplaceTracks(_ context.Context, _ string, _ []string) error {
	return nil
}

func (s *stubCatalog) UploadCover(_ context.Context, _ string, _ []byte) error {
	return nil
}

func TestBreakerPassesThroughResults(t *testing.T) {
	breaker := NewBreakerClient(&stubCatalog{}, zerolog.Nop())

	tracks, err := breaker.SearchSimilar(context.Background(), []string{"s1"}, nil, 10)
	if err != nil {
		t.Fatalf("SearchSimilar() error = %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != "t1" {
		t.Errorf("unexpected tracks: %+v", tracks)
	}

	features, err := breaker.BatchFeatures(context.Background(), []string{"t1"})
	if err != nil {
		t.Fatalf("BatchFeatures() error = %v", err)
	}
	if features["t1"].Valence != 0.5 {
		t.Errorf("unexpected features: %+v", features)
	}

	id, err := breaker.CreatePlaylist(context.Background(), "o", "n", "d")
	if err != nil || id != "pl-1" {
		t.Errorf("CreatePlaylist() = %q, %v", id, err)
	}

	if err := breaker.ReplaceTracks(context.Background(), "pl-1", []string{"t1"}); err != nil {
		t.Errorf("ReplaceTracks() error = %v", err)
	}
}

func TestBreakerPropagatesErrors(t *testing.T) {
	wantErr := errors.New("upstream exploded")
	breaker := NewBreakerClient(&stubCatalog{searchErr: wantErr}, zerolog.Nop())

	_, err := breaker.SearchSimilar(context.Background(), []string{"s1"}, nil, 10)
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	stub := &stubCatalog{searchErr: errors.New("boom")}
	breaker := NewBreakerClient(stub, zerolog.Nop())

	// Trip threshold: at least 10 requests with >= 60% failures.
	for i := 0; i < 10; i++ {
		_, _ = breaker.SearchSimilar(context.Background(), []string{"s1"}, nil, 10)
	}

	stub.searchErr = nil
	_, err := breaker.SearchSimilar(context.Background(), []string{"s1"}, nil, 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable while circuit is open", err)
	}
}
