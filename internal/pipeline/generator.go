// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mvance/tasteworlds/internal/catalog"
	"github.com/mvance/tasteworlds/internal/taste"
)

// ProgressFunc receives cumulative progress checkpoints as a generation
// advances. Progress is 0-100 and never decreases within one run.
type ProgressFunc func(progress int, step string)

// Progress checkpoints per generation step.
const (
	progressHarvested    = 25
	progressScored       = 55
	progressBucketed     = 70
	progressMaterialized = 100
)

// CoverFunc renders a cover image for a materialized playlist. A nil
// CoverFunc or a nil return skips the cover upload.
type CoverFunc func(playlist taste.Playlist) []byte

// Generator drives a full playlist generation: harvest, score, bucket, then
// materialize the playlists upstream. The world definition is read-only
// throughout; the returned manifests are the only output.
type Generator struct {
	harvester *Harvester
	scorer    *Scorer
	bucketer  *Bucketer
	catalog   catalog.Catalog
	cover     CoverFunc
	logger    zerolog.Logger
}

// NewGenerator assembles a generator from its pipeline stages.
func NewGenerator(cat catalog.Catalog, embedder taste.Embedder, cover CoverFunc, logger zerolog.Logger) *Generator {
	return &Generator{
		harvester: NewHarvester(cat, logger),
		scorer:    NewScorer(cat, embedder, logger),
		bucketer:  NewBucketer(),
		catalog:   cat,
		cover:     cover,
		logger:    logger.With().Str("component", "generator").Logger(),
	}
}

// Generate runs the pipeline end-to-end for one world and returns the
// manifests of the materialized playlists. An empty harvested pool still
// completes, producing one empty manifest per intersection. The progress
// callback may be nil.
func (g *Generator) Generate(ctx context.Context, world *taste.WorldDefinition, progress ProgressFunc) ([]taste.PlaylistManifest, error) {
	report := func(pct int, step string) {
		if progress != nil {
			progress(pct, step)
		}
	}

	candidates, err := g.harvester.Harvest(ctx, world)
	if err != nil {
		return nil, fmt.Errorf("harvest: %w", err)
	}
	report(progressHarvested, "harvested candidates")

	scored, err := g.scorer.Score(ctx, candidates, world)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	report(progressScored, "scored candidates")

	playlists := g.bucketer.Bucket(scored, world)
	report(progressBucketed, "bucketed playlists")

	manifests := g.materialize(ctx, world, playlists)
	report(progressMaterialized, "materialized playlists")

	return manifests, nil
}

// materialize creates each playlist upstream and replaces its contents.
// A single playlist's failure is logged and recorded as a manifest without
// an upstream ID; the other playlists still materialize.
func (g *Generator) materialize(ctx context.Context, world *taste.WorldDefinition, playlists []taste.Playlist) []taste.PlaylistManifest {
	manifests := make([]taste.PlaylistManifest, 0, len(playlists))

	for _, playlist := range playlists {
		trackIDs := make([]string, len(playlist.Tracks))
		for i, track := range playlist.Tracks {
			trackIDs[i] = track.ID
		}

		manifest := taste.PlaylistManifest{
			Intersection: playlist.Intersection.Name,
			TrackIDs:     trackIDs,
		}

		if len(trackIDs) == 0 {
			g.logger.Info().
				Str("intersection", playlist.Intersection.Name).
				Msg("Skipping materialization of empty playlist")
			manifests = append(manifests, manifest)
			continue
		}

		playlistID, err := g.catalog.CreatePlaylist(ctx, world.OwnerID, playlist.Intersection.Name, playlist.Intersection.Description)
		if err != nil {
			g.logger.Error().Err(err).
				Str("intersection", playlist.Intersection.Name).
				Msg("Playlist creation failed")
			manifests = append(manifests, manifest)
			continue
		}

		if err := g.catalog.ReplaceTracks(ctx, playlistID, trackIDs); err != nil {
			g.logger.Error().Err(err).
				Str("playlist_id", playlistID).
				Msg("Track replacement failed")
			manifests = append(manifests, manifest)
			continue
		}

		if g.cover != nil {
			if image := g.cover(playlist); image != nil {
				if err := g.catalog.UploadCover(ctx, playlistID, image); err != nil {
					// Cover upload is cosmetic; the playlist stands.
					g.logger.Warn().Err(err).
						Str("playlist_id", playlistID).
						Msg("Cover upload failed")
				}
			}
		}

		manifest.PlaylistID = playlistID
		manifests = append(manifests, manifest)

		g.logger.Info().
			Str("playlist_id", playlistID).
			Str("intersection", playlist.Intersection.Name).
			Int("tracks", len(trackIDs)).
			Msg("Playlist materialized")
	}

	return manifests
}
