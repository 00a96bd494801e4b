// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package taste

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mvance/tasteworlds/internal/vectormath"
)

// Feature names used as FeatureRanges keys and bias map keys.
const (
	FeatureValence          = "valence"
	FeatureEnergy           = "energy"
	FeatureAcousticness     = "acousticness"
	FeatureTempo            = "tempo"
	FeatureInstrumentalness = "instrumentalness"
	FeatureDanceability     = "danceability"
)

// DefaultPCAComponents is the number of principal components retained in a
// world definition unless configured otherwise.
const DefaultPCAComponents = 8

// topListLimit bounds the TopGenres and TopArtists lists.
const topListLimit = 10

// BuilderConfig holds taste model builder parameters.
type BuilderConfig struct {
	// PCAComponents is the requested component count, clamped at build
	// time to seed count minus one. Default: DefaultPCAComponents.
	PCAComponents int
}

// Builder turns a seed track set and onboarding answers into a
// WorldDefinition. It is stateless between builds and safe for concurrent
// use.
type Builder struct {
	embedder  Embedder
	extractor Extractor
	pcaK      int
	logger    zerolog.Logger
}

// NewBuilder creates a taste model builder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBuilder(embedder Embedder, extractor Extractor, cfg BuilderConfig, logger zerolog.Logger) *Builder {
	k := cfg.PCAComponents
	if k <= 0 {
		k = DefaultPCAComponents
	}
	return &Builder{
		embedder:  embedder,
		extractor: extractor,
		pcaK:      k,
		logger:    logger.With().Str("component", "taste-builder").Logger(),
	}
}

// Build constructs a WorldDefinition for ownerID from seed tracks and
// answers. It fails with ErrInsufficientSeedData before any external call if
// no seed carries audio features, and with ErrWorldExtractionFailed when the
// language model's structured output cannot be used.
func (b *Builder) Build(ctx context.Context, ownerID string, seeds []EnrichedTrack, answers Answers) (*WorldDefinition, error) {
	usable := seedsWithFeatures(seeds)
	if len(usable) == 0 {
		return nil, ErrInsufficientSeedData
	}

	matrix := make([][]float64, len(usable))
	for i, s := range usable {
		matrix[i] = s.Features.Vector()
	}

	centroid, err := vectormath.Centroid(matrix)
	if err != nil {
		return nil, fmt.Errorf("taste centroid: %w", err)
	}

	k := b.pcaK
	if max := len(usable) - 1; max > 0 && k > max {
		k = max
	}
	if k < 1 {
		k = 1
	}
	pca, err := vectormath.PCA(matrix, k)
	if err != nil {
		return nil, fmt.Errorf("pca: %w", err)
	}

	semanticCentroid, err := b.embedSeeds(ctx, usable)
	if err != nil {
		return nil, fmt.Errorf("seed embeddings: %w", err)
	}

	topGenres := topCounts(genreOccurrences(usable), topListLimit)
	topArtists := topCounts(artistOccurrences(usable), topListLimit)

	extracted, err := b.extractor.ExtractWorld(ctx, ExtractRequest{
		Transcript:     answers.Transcript,
		TasteSummary:   tasteSummary(centroid),
		TopGenres:      topGenres,
		CustomKeywords: answers.CustomKeywords,
	})
	if err != nil {
		return nil, fmt.Errorf("extract world: %w", err)
	}

	intersections := make([]Intersection, 0, len(extracted.Intersections))
	for _, ex := range extracted.Intersections {
		intersections = append(intersections, Intersection{
			Name:        ex.Name,
			Description: ex.Description,
			Bias:        BiasFromDescription(ex.BiasDescription),
		})
	}

	seedIDs := make([]string, len(seeds))
	for i, s := range seeds {
		seedIDs[i] = s.ID
	}

	world := &WorldDefinition{
		ID:                   uuid.New().String(),
		OwnerID:              ownerID,
		Name:                 extracted.WorldName,
		Description:          extracted.Description,
		CreatedAt:            time.Now().UTC(),
		TasteCentroid:        centroid,
		PCAComponents:        pca.Components,
		PCAExplainedVariance: pca.ExplainedVariance,
		SemanticCentroid:     semanticCentroid,
		FeatureRanges:        featureRanges(usable),
		EmotionalGeometry:    extracted.EmotionalGeometry,
		Keywords:             extracted.Keywords,
		ExcludeKeywords:      extracted.ExcludeKeywords,
		TopGenres:            topGenres,
		TopArtists:           topArtists,
		SeedTrackIDs:         seedIDs,
		Intersections:        intersections,
	}

	b.logger.Info().
		Str("owner", ownerID).
		Str("world", world.ID).
		Int("seeds", len(usable)).
		Int("intersections", len(intersections)).
		Msg("world built")

	return world, nil
}

// embedSeeds embeds one description per seed, chunked around the provider
// batch limit, and returns the mean embedding.
func (b *Builder) embedSeeds(ctx context.Context, seeds []EnrichedTrack) ([]float64, error) {
	texts := make([]string, len(seeds))
	for i, s := range seeds {
		texts[i] = TrackDescription(s.Track, s.Features, s.Genres)
	}

	vectors, err := EmbedChunked(ctx, b.embedder, texts)
	if err != nil {
		return nil, err
	}

	centroid, err := vectormath.Centroid(vectors)
	if err != nil {
		return nil, err
	}
	return centroid, nil
}

// EmbedChunked calls the embedder in slices no larger than its batch limit
// and concatenates the results in input order.
func EmbedChunked(ctx context.Context, embedder Embedder, texts []string) ([][]float64, error) {
	limit := embedder.BatchLimit()
	if limit <= 0 {
		limit = len(texts)
	}
	if limit <= 0 {
		return nil, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += limit {
		end := start + limit
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embed batch [%d:%d]: got %d vectors", start, end, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func seedsWithFeatures(seeds []EnrichedTrack) []EnrichedTrack {
	usable := make([]EnrichedTrack, 0, len(seeds))
	for _, s := range seeds {
		if s.Features != nil {
			usable = append(usable, s)
		}
	}
	return usable
}

// featureRanges computes per-feature [min, max] over the seed set for the six
// features the coarse filter and bias passes operate on.
func featureRanges(seeds []EnrichedTrack) map[string]FeatureRange {
	extract := map[string]func(AudioFeatures) float64{
		FeatureValence:          func(f AudioFeatures) float64 { return f.Valence },
		FeatureEnergy:           func(f AudioFeatures) float64 { return f.Energy },
		FeatureAcousticness:     func(f AudioFeatures) float64 { return f.Acousticness },
		FeatureTempo:            func(f AudioFeatures) float64 { return f.Tempo },
		FeatureInstrumentalness: func(f AudioFeatures) float64 { return f.Instrumentalness },
		FeatureDanceability:     func(f AudioFeatures) float64 { return f.Danceability },
	}

	ranges := make(map[string]FeatureRange, len(extract))
	for name, fn := range extract {
		r := FeatureRange{Min: fn(*seeds[0].Features), Max: fn(*seeds[0].Features)}
		for _, s := range seeds[1:] {
			v := fn(*s.Features)
			if v < r.Min {
				r.Min = v
			}
			if v > r.Max {
				r.Max = v
			}
		}
		ranges[name] = r
	}
	return ranges
}

// tasteSummary renders the centroid as a short prose summary for the
// extraction prompt.
func tasteSummary(centroid []float64) string {
	if len(centroid) != FeatureVectorDim {
		return ""
	}
	return fmt.Sprintf(
		"mean danceability %.2f, energy %.2f, acousticness %.2f, instrumentalness %.2f, valence %.2f, tempo %.0f bpm",
		centroid[0], centroid[1], centroid[3], centroid[4], centroid[6], centroid[7]*200,
	)
}

func genreOccurrences(seeds []EnrichedTrack) []string {
	var out []string
	for _, s := range seeds {
		out = append(out, s.Genres...)
	}
	return out
}

func artistOccurrences(seeds []EnrichedTrack) []string {
	var out []string
	for _, s := range seeds {
		for _, a := range s.Artists {
			out = append(out, a.Name)
		}
	}
	return out
}

// topCounts returns up to limit distinct values ordered by occurrence count
// descending, ties broken by first appearance. Matching on lowercased values
// keeps "Indie Folk" and "indie folk" as one entry.
func topCounts(values []string, limit int) []string {
	counts := make(map[string]int)
	display := make(map[string]string)
	var order []string

	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
			display[key] = strings.TrimSpace(v)
		}
		counts[key]++
	}

	// Stable selection sort keeps first-appearance order among equals.
	top := make([]string, 0, limit)
	used := make(map[string]bool)
	for len(top) < limit {
		bestKey := ""
		bestCount := 0
		for _, key := range order {
			if used[key] {
				continue
			}
			if counts[key] > bestCount {
				bestKey = key
				bestCount = counts[key]
			}
		}
		if bestKey == "" {
			break
		}
		used[bestKey] = true
		top = append(top, display[bestKey])
	}
	return top
}
