// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

// Package pipeline implements the playlist generation pipeline: harvesting
// candidate tracks from the catalog, scoring them against the world's taste
// and semantic centroids, and bucketing them into per-intersection playlists.
package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mvance/tasteworlds/internal/catalog"
	"github.com/mvance/tasteworlds/internal/metrics"
	"github.com/mvance/tasteworlds/internal/taste"
)

// Harvest tuning constants. The slicing width and bias magnitudes are
// empirically chosen in production use; they are deliberately constants,
// not configuration.
const (
	// harvestSeedLimit caps how many seed tracks feed similarity queries.
	harvestSeedLimit = 30

	// harvestSliceSize is the number of seeds per similarity query.
	harvestSliceSize = 5

	// harvestResultLimit caps results per similarity query.
	harvestResultLimit = 100

	// darkerBiasDelta shifts valence and energy below the centroid for the
	// "darker" harvest call.
	darkerBiasDelta = 0.15

	// organicBiasDelta shifts acousticness above the centroid for the
	// "organic" harvest call.
	organicBiasDelta = 0.15
)

// Harvester gathers a deduplicated candidate pool from the catalog by
// issuing one similarity query per seed slice, each steered toward a
// different region of the world's taste space.
type Harvester struct {
	catalog catalog.Catalog
	logger  zerolog.Logger
}

// NewHarvester creates a harvester backed by the given catalog.
func NewHarvester(cat catalog.Catalog, logger zerolog.Logger) *Harvester {
	return &Harvester{
		catalog: cat,
		logger:  logger.With().Str("component", "harvester").Logger(),
	}
}

// Harvest queries the catalog for tracks similar to the world's seeds and
// returns them as unenriched candidates, deduplicated by track ID with the
// first occurrence winning so that order keeps encoding which biased call
// produced each track. Seed tracks themselves are filtered out. An empty
// pool is a valid result; scoring and bucketing must cope with it.
func (h *Harvester) Harvest(ctx context.Context, world *taste.WorldDefinition) ([]taste.CandidateTrack, error) {
	if len(world.SeedTrackIDs) == 0 {
		return nil, taste.ErrNoSeedTracks
	}

	seeds := world.SeedTrackIDs
	if len(seeds) > harvestSeedLimit {
		seeds = seeds[:harvestSeedLimit]
	}

	slices := sliceSeeds(seeds, harvestSliceSize)
	results := make([][]taste.Track, len(slices))

	// Slice queries are independent; a failed slice drops only its own
	// results, never the job.
	var wg sync.WaitGroup
	for i, slice := range slices {
		wg.Add(1)
		go func(i int, slice []string) {
			defer wg.Done()

			targets := harvestTargets(i, world.TasteCentroid)
			tracks, err := h.catalog.SearchSimilar(ctx, slice, targets, harvestResultLimit)
			if err != nil {
				h.logger.Warn().Err(err).Int("slice", i).Msg("Harvest slice query failed, dropping slice")
				return
			}
			results[i] = tracks
		}(i, slice)
	}
	wg.Wait()

	blocklist := make(map[string]struct{}, len(world.SeedTrackIDs))
	for _, id := range world.SeedTrackIDs {
		blocklist[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	var pool []taste.CandidateTrack
	for _, tracks := range results {
		for _, track := range tracks {
			if _, dup := seen[track.ID]; dup {
				continue
			}
			seen[track.ID] = struct{}{}
			if _, seeded := blocklist[track.ID]; seeded {
				continue
			}
			pool = append(pool, taste.CandidateTrack{Track: track})
		}
	}

	metrics.CandidatesHarvested.Observe(float64(len(pool)))
	h.logger.Info().
		Int("slices", len(slices)).
		Int("candidates", len(pool)).
		Msg("Harvest complete")

	return pool, nil
}

// sliceSeeds partitions seed IDs into disjoint slices of at most size.
func sliceSeeds(seeds []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(seeds); start += size {
		end := start + size
		if end > len(seeds) {
			end = len(seeds)
		}
		out = append(out, seeds[start:end])
	}
	return out
}

// harvestTargets returns the absolute target-feature biases for the given
// slice index. Each slice leans toward a different region of taste space:
//
//	0: unbiased
//	1: valence/energy/acousticness at the centroid
//	2: valence/energy shifted below the centroid ("darker")
//	3: acousticness shifted above the centroid ("organic")
//	4: unbiased
//	5: danceability at the centroid (reached only with a full 30 seeds)
func harvestTargets(sliceIndex int, centroid []float64) map[string]float64 {
	switch sliceIndex {
	case 1:
		return map[string]float64{
			taste.FeatureValence:      centroidFeature(centroid, taste.FeatureValence),
			taste.FeatureEnergy:       centroidFeature(centroid, taste.FeatureEnergy),
			taste.FeatureAcousticness: centroidFeature(centroid, taste.FeatureAcousticness),
		}
	case 2:
		return map[string]float64{
			taste.FeatureValence: clampUnit(centroidFeature(centroid, taste.FeatureValence) - darkerBiasDelta),
			taste.FeatureEnergy:  clampUnit(centroidFeature(centroid, taste.FeatureEnergy) - darkerBiasDelta),
		}
	case 3:
		return map[string]float64{
			taste.FeatureAcousticness: clampUnit(centroidFeature(centroid, taste.FeatureAcousticness) + organicBiasDelta),
		}
	case 5:
		return map[string]float64{
			taste.FeatureDanceability: centroidFeature(centroid, taste.FeatureDanceability),
		}
	default:
		return nil
	}
}

// Centroid vector indices, matching taste.AudioFeatures.Vector order.
const (
	centroidIdxDanceability     = 0
	centroidIdxEnergy           = 1
	centroidIdxAcousticness     = 3
	centroidIdxInstrumentalness = 4
	centroidIdxValence          = 6
	centroidIdxTempo            = 7
)

// centroidFeature reads one named feature out of the 9-d taste centroid,
// undoing the tempo soft normalization so callers work in raw units.
func centroidFeature(centroid []float64, name string) float64 {
	if len(centroid) < taste.FeatureVectorDim {
		return 0
	}
	switch name {
	case taste.FeatureDanceability:
		return centroid[centroidIdxDanceability]
	case taste.FeatureEnergy:
		return centroid[centroidIdxEnergy]
	case taste.FeatureAcousticness:
		return centroid[centroidIdxAcousticness]
	case taste.FeatureInstrumentalness:
		return centroid[centroidIdxInstrumentalness]
	case taste.FeatureValence:
		return centroid[centroidIdxValence]
	case taste.FeatureTempo:
		return centroid[centroidIdxTempo] * 200.0
	default:
		return 0
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
