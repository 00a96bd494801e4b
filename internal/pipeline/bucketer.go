// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package pipeline

import (
	"math"
	"sort"

	"github.com/mvance/tasteworlds/internal/taste"
)

// Bucketing constants.
const (
	// biasWindowSize is how many top-biased-score candidates the greedy
	// diversity pass considers per intersection.
	biasWindowSize = 80

	// playlistTrackLimit caps tracks per playlist.
	playlistTrackLimit = 50

	// primaryGenreCap caps tracks sharing a primary genre per playlist.
	primaryGenreCap = 8

	// biasProximityWeight scales the per-feature proximity reward added
	// on top of the base score.
	biasProximityWeight = 0.1

	// tempoBiasScale normalizes tempo deltas (in BPM) before the
	// proximity shape.
	tempoBiasScale = 100.0
)

// Bucketer turns one scored candidate pool into one playlist per
// intersection. It is deterministic for deterministic input: the sort is
// stable and the greedy pass is first-come-first-served within equal
// scores.
type Bucketer struct{}

// NewBucketer creates a bucketer.
func NewBucketer() *Bucketer {
	return &Bucketer{}
}

// Bucket builds a playlist for every intersection in the world. An empty
// candidate pool yields playlists with zero tracks, never an error.
func (b *Bucketer) Bucket(candidates []taste.CandidateTrack, world *taste.WorldDefinition) []taste.Playlist {
	playlists := make([]taste.Playlist, 0, len(world.Intersections))
	for _, intersection := range world.Intersections {
		playlists = append(playlists, taste.Playlist{
			Intersection: intersection,
			Tracks:       b.bucketOne(candidates, intersection, world.TasteCentroid),
		})
	}
	return playlists
}

// bucketOne runs the bias pass, the stable sort, and the greedy diversity
// selection for a single intersection.
func (b *Bucketer) bucketOne(candidates []taste.CandidateTrack, intersection taste.Intersection, centroid []float64) []taste.CandidateTrack {
	if len(candidates) == 0 {
		return nil
	}

	// BiasedScore is derived per intersection; Score itself is never
	// touched after scoring.
	window := make([]taste.CandidateTrack, len(candidates))
	copy(window, candidates)
	for i := range window {
		window[i].BiasedScore = window[i].Score + biasProximity(&window[i], intersection, centroid)
	}

	sort.SliceStable(window, func(i, j int) bool {
		return window[i].BiasedScore > window[j].BiasedScore
	})

	if len(window) > biasWindowSize {
		window = window[:biasWindowSize]
	}

	usedArtists := make(map[string]struct{})
	usedAlbums := make(map[string]struct{})
	genreCounts := make(map[string]int)

	var selected []taste.CandidateTrack
	for _, cand := range window {
		if len(selected) >= playlistTrackLimit {
			break
		}
		if sharesArtist(&cand, usedArtists) {
			continue
		}
		if cand.AlbumID != "" {
			if _, used := usedAlbums[cand.AlbumID]; used {
				continue
			}
		}
		genre := cand.PrimaryGenre()
		if genreCounts[genre] >= primaryGenreCap {
			continue
		}

		selected = append(selected, cand)
		for _, artist := range cand.Artists {
			key := artist.ID
			if key == "" {
				key = artist.Name
			}
			usedArtists[key] = struct{}{}
		}
		if cand.AlbumID != "" {
			usedAlbums[cand.AlbumID] = struct{}{}
		}
		genreCounts[genre]++
	}

	return selected
}

// biasProximity rewards closeness to the intersection's target point. Bias
// offsets are deltas on the world centroid; each feature contributes
// (1 - |candidate - target|) * 0.1, clamped at zero, with tempo deltas
// divided by 100 first.
func biasProximity(cand *taste.CandidateTrack, intersection taste.Intersection, centroid []float64) float64 {
	if cand.Features == nil || len(intersection.Bias) == 0 {
		return 0
	}

	total := 0.0
	for _, feature := range orderedBiasFeatures(intersection.Bias) {
		delta := intersection.Bias[feature]
		target := centroidFeature(centroid, feature) + delta

		value, ok := candidateFeature(cand.Features, feature)
		if !ok {
			continue
		}

		distance := math.Abs(value - target)
		if feature == taste.FeatureTempo {
			distance /= tempoBiasScale
		}

		contribution := (1 - distance) * biasProximityWeight
		if contribution > 0 {
			total += contribution
		}
	}
	return total
}

// orderedBiasFeatures returns bias map keys in a fixed order so the sum is
// reproducible across runs (float addition is order-sensitive).
func orderedBiasFeatures(bias map[string]float64) []string {
	features := make([]string, 0, len(bias))
	for feature := range bias {
		features = append(features, feature)
	}
	sort.Strings(features)
	return features
}

// candidateFeature reads one named raw-unit feature off the candidate.
func candidateFeature(f *taste.AudioFeatures, name string) (float64, bool) {
	switch name {
	case taste.FeatureValence:
		return f.Valence, true
	case taste.FeatureEnergy:
		return f.Energy, true
	case taste.FeatureAcousticness:
		return f.Acousticness, true
	case taste.FeatureTempo:
		return f.Tempo, true
	case taste.FeatureInstrumentalness:
		return f.Instrumentalness, true
	case taste.FeatureDanceability:
		return f.Danceability, true
	default:
		return 0, false
	}
}

// sharesArtist reports whether any of the candidate's artists were already
// selected. Artists without IDs fall back to name comparison.
func sharesArtist(cand *taste.CandidateTrack, used map[string]struct{}) bool {
	for _, artist := range cand.Artists {
		key := artist.ID
		if key == "" {
			key = artist.Name
		}
		if _, taken := used[key]; taken {
			return true
		}
	}
	return false
}
