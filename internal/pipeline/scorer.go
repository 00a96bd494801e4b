// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mvance/tasteworlds/internal/catalog"
	"github.com/mvance/tasteworlds/internal/metrics"
	"github.com/mvance/tasteworlds/internal/taste"
	"github.com/mvance/tasteworlds/internal/vectormath"
)

// Score component weights. Fixed constants, never runtime-tunable: changing
// them changes recommendation character and is a versioned decision.
const (
	weightSemantic  = 0.4
	weightFeature   = 0.3
	weightNovelty   = 0.2
	weightDiversity = 0.1
)

// Fails to compile if the weights stop summing to exactly 1.
const _ int = weightSemantic + weightFeature + weightNovelty + weightDiversity

// Coarse filter padding around the world's observed feature ranges. The
// centroid describes typical taste, not hard bounds; tightening this
// collapses the candidate pool.
const (
	valencePadding      = 0.2
	energyPadding       = 0.2
	tempoPadding        = 20.0
	acousticnessPadding = 0.2
)

// Novelty and diversity bonus constants, computed over the current
// candidate batch rather than global history.
const (
	noveltyBonus = 0.15

	diversityBonusRare     = 0.10
	diversityBonusUncommon = 0.05
	diversityRareBelow     = 10
	diversityUncommonBelow = 30

	// noGenreFrequency is the synthetic frequency assigned to candidates
	// with zero resolved genres, denying them a diversity bonus.
	noGenreFrequency = 1000
)

// Scorer enriches harvested candidates with features, genres, and an
// embedding, then populates every score component.
type Scorer struct {
	catalog  catalog.Catalog
	embedder taste.Embedder
	logger   zerolog.Logger
}

// NewScorer creates a scorer backed by the given catalog and embedder.
func NewScorer(cat catalog.Catalog, embedder taste.Embedder, logger zerolog.Logger) *Scorer {
	return &Scorer{
		catalog:  cat,
		embedder: embedder,
		logger:   logger.With().Str("component", "scorer").Logger(),
	}
}

// Score enriches and scores the candidate pool against the world. A
// candidate whose features cannot be resolved is dropped rather than
// failing the batch; batch-level external failures (an embedding call, a
// whole feature fetch) abort scoring.
func (s *Scorer) Score(ctx context.Context, candidates []taste.CandidateTrack, world *taste.WorldDefinition) ([]taste.CandidateTrack, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	kept, err := s.enrichFeatures(ctx, candidates, world)
	if err != nil {
		return nil, err
	}
	if len(kept) == 0 {
		return nil, nil
	}

	if err := s.resolveGenres(ctx, kept); err != nil {
		return nil, err
	}

	embeddings, err := s.embedCandidates(ctx, kept)
	if err != nil {
		return nil, err
	}

	topArtists := lowerSet(world.TopArtists)
	genreFreq := genreFrequencies(kept)

	for i := range kept {
		cand := &kept[i]

		semantic, err := vectormath.CosineSimilarity(embeddings[i], world.SemanticCentroid)
		if err != nil {
			return nil, fmt.Errorf("semantic score for %s: %w", cand.ID, err)
		}

		distance, err := vectormath.EuclideanDistance(cand.Features.Vector(), world.TasteCentroid)
		if err != nil {
			return nil, fmt.Errorf("feature score for %s: %w", cand.ID, err)
		}

		cand.SemanticScore = semantic
		// A similarity, so it goes negative past distance 1. Accepted,
		// not clamped.
		cand.FeatureScore = 1 - distance
		cand.NoveltyBonus = noveltyBonusFor(cand, topArtists)
		cand.DiversityBonus = diversityBonusFor(cand, genreFreq)
		cand.Score = weightSemantic*cand.SemanticScore +
			weightFeature*cand.FeatureScore +
			weightNovelty*cand.NoveltyBonus +
			weightDiversity*cand.DiversityBonus
	}

	metrics.CandidatesScored.Observe(float64(len(kept)))
	s.logger.Info().
		Int("harvested", len(candidates)).
		Int("scored", len(kept)).
		Msg("Scoring complete")

	return kept, nil
}

// enrichFeatures batch-fetches audio features and applies the coarse range
// filter. Candidates without resolvable features are dropped.
func (s *Scorer) enrichFeatures(ctx context.Context, candidates []taste.CandidateTrack, world *taste.WorldDefinition) ([]taste.CandidateTrack, error) {
	ids := make([]string, len(candidates))
	for i, cand := range candidates {
		ids[i] = cand.ID
	}

	features, err := s.catalog.BatchFeatures(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch candidate features: %w", err)
	}

	kept := make([]taste.CandidateTrack, 0, len(candidates))
	for _, cand := range candidates {
		f, ok := features[cand.ID]
		if !ok {
			continue
		}
		if !withinPaddedRanges(f, world.FeatureRanges) {
			continue
		}
		cand.Features = &f
		kept = append(kept, cand)
	}
	return kept, nil
}

// withinPaddedRanges applies the coarse filter. Acousticness is bounded
// below only; a world of acoustic seeds should still admit more-acoustic
// candidates.
func withinPaddedRanges(f taste.AudioFeatures, ranges map[string]taste.FeatureRange) bool {
	if r, ok := ranges[taste.FeatureValence]; ok {
		if f.Valence < r.Min-valencePadding || f.Valence > r.Max+valencePadding {
			return false
		}
	}
	if r, ok := ranges[taste.FeatureEnergy]; ok {
		if f.Energy < r.Min-energyPadding || f.Energy > r.Max+energyPadding {
			return false
		}
	}
	if r, ok := ranges[taste.FeatureTempo]; ok {
		if f.Tempo < r.Min-tempoPadding || f.Tempo > r.Max+tempoPadding {
			return false
		}
	}
	if r, ok := ranges[taste.FeatureAcousticness]; ok {
		if f.Acousticness < r.Min-acousticnessPadding {
			return false
		}
	}
	return true
}

// resolveGenres attaches each candidate's genre set, the deduplicated union
// over its artists. A candidate whose artists resolve to nothing keeps an
// empty genre set rather than being dropped.
func (s *Scorer) resolveGenres(ctx context.Context, candidates []taste.CandidateTrack) error {
	seen := make(map[string]struct{})
	var artistIDs []string
	for _, cand := range candidates {
		for _, artist := range cand.Artists {
			if artist.ID == "" {
				continue
			}
			if _, dup := seen[artist.ID]; dup {
				continue
			}
			seen[artist.ID] = struct{}{}
			artistIDs = append(artistIDs, artist.ID)
		}
	}
	if len(artistIDs) == 0 {
		return nil
	}

	artists, err := s.catalog.BatchArtists(ctx, artistIDs)
	if err != nil {
		return fmt.Errorf("fetch candidate artists: %w", err)
	}

	for i := range candidates {
		cand := &candidates[i]
		genreSeen := make(map[string]struct{})
		for _, artist := range cand.Artists {
			info, ok := artists[artist.ID]
			if !ok {
				continue
			}
			for _, genre := range info.Genres {
				if _, dup := genreSeen[genre]; dup {
					continue
				}
				genreSeen[genre] = struct{}{}
				cand.Genres = append(cand.Genres, genre)
			}
		}
	}
	return nil
}

// embedCandidates generates one embedding per candidate from the shared
// description template, chunked around the provider batch limit.
func (s *Scorer) embedCandidates(ctx context.Context, candidates []taste.CandidateTrack) ([][]float64, error) {
	texts := make([]string, len(candidates))
	for i, cand := range candidates {
		texts[i] = taste.TrackDescription(cand.Track, cand.Features, cand.Genres)
	}

	embeddings, err := taste.EmbedChunked(ctx, s.embedder, texts)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}
	if len(embeddings) != len(candidates) {
		return nil, fmt.Errorf("embed candidates: got %d vectors for %d candidates", len(embeddings), len(candidates))
	}
	return embeddings, nil
}

// noveltyBonusFor rewards candidates none of whose artists already sit in
// the world's top artists.
func noveltyBonusFor(cand *taste.CandidateTrack, topArtists map[string]struct{}) float64 {
	for _, artist := range cand.Artists {
		if _, known := topArtists[strings.ToLower(artist.Name)]; known {
			return 0
		}
	}
	return noveltyBonus
}

// genreFrequencies counts genre occurrences across the current batch.
func genreFrequencies(candidates []taste.CandidateTrack) map[string]int {
	freq := make(map[string]int)
	for _, cand := range candidates {
		for _, genre := range cand.Genres {
			freq[genre]++
		}
	}
	return freq
}

// diversityBonusFor steps the bonus down as the candidate's genres get more
// common within the batch.
func diversityBonusFor(cand *taste.CandidateTrack, freq map[string]int) float64 {
	avg := float64(noGenreFrequency)
	if len(cand.Genres) > 0 {
		total := 0
		for _, genre := range cand.Genres {
			total += freq[genre]
		}
		avg = float64(total) / float64(len(cand.Genres))
	}

	switch {
	case avg < diversityRareBelow:
		return diversityBonusRare
	case avg < diversityUncommonBelow:
		return diversityBonusUncommon
	default:
		return 0
	}
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}
