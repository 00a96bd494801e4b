// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

// Package taste defines the taste-modeling domain: the world definition built
// from a user's seed tracks, the candidate tracks flowing through the
// generation pipeline, and the builder that turns seeds plus onboarding
// answers into a WorldDefinition.
package taste

import (
	"context"
	"time"
)

// AudioFeatures is the fixed numeric profile of a track as reported by the
// upstream catalog. Immutable once fetched.
type AudioFeatures struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`

	// Tempo is in BPM, not normalized.
	Tempo float64 `json:"tempo"`

	// Loudness is in dB, typically in [-60, 0].
	Loudness float64 `json:"loudness"`
}

// FeatureVectorDim is the dimensionality of the audio feature vector.
const FeatureVectorDim = 9

// Vector flattens the features into a fixed-order 9-dimensional vector.
// Tempo is divided by 200 and loudness by -60 as soft normalizations; extreme
// inputs may land outside [0, 1], which downstream scoring accepts.
func (f AudioFeatures) Vector() []float64 {
	return []float64{
		f.Danceability,
		f.Energy,
		f.Speechiness,
		f.Acousticness,
		f.Instrumentalness,
		f.Liveness,
		f.Valence,
		f.Tempo / 200.0,
		f.Loudness / -60.0,
	}
}

// Artist identifies a performing artist on a track.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is the catalog identity of a song.
type Track struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Artists     []Artist `json:"artists"`
	Album       string   `json:"album"`
	AlbumID     string   `json:"album_id"`
	ReleaseYear int      `json:"release_year"`
}

// PrimaryArtist returns the first artist's name, or "" when unknown.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// EnrichedTrack is a track with its audio features and resolved genres
// attached. Seed tracks enter the model builder in this form.
type EnrichedTrack struct {
	Track

	// Features is nil when the catalog could not resolve audio features.
	Features *AudioFeatures `json:"features,omitempty"`

	// Genres is the deduplicated union over the track's artists.
	Genres []string `json:"genres,omitempty"`
}

// CandidateTrack is a track accumulating state as it passes through
// harvest, scoring, and bucketing. Fields only ever gain values; Score is
// never mutated after scoring, only shadowed by the per-intersection
// BiasedScore.
type CandidateTrack struct {
	Track

	Features *AudioFeatures `json:"features,omitempty"`
	Genres   []string       `json:"genres,omitempty"`

	SemanticScore  float64 `json:"semantic_score"`
	FeatureScore   float64 `json:"feature_score"`
	NoveltyBonus   float64 `json:"novelty_bonus"`
	DiversityBonus float64 `json:"diversity_bonus"`
	Score          float64 `json:"score"`

	// BiasedScore is derived per intersection during bucketing.
	BiasedScore float64 `json:"biased_score,omitempty"`
}

// PrimaryGenre returns the first resolved genre, or "unknown".
func (c CandidateTrack) PrimaryGenre() string {
	if len(c.Genres) == 0 {
		return "unknown"
	}
	return c.Genres[0]
}

// Intersection is a named, biased point of view into a world. Bias offsets
// are deltas applied on top of the world's centroid, never absolute values.
type Intersection struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Bias        map[string]float64 `json:"bias"`
}

// EmotionalGeometry places the world on three bipolar axes, each in [-1, 1].
type EmotionalGeometry struct {
	// Darkness runs from dark (-1) to warm (+1).
	Darkness float64 `json:"darkness"`

	// Expanse runs from intimate (-1) to expansive (+1).
	Expanse float64 `json:"expanse"`

	// Texture runs from acoustic (-1) to electronic (+1).
	Texture float64 `json:"texture"`
}

// FeatureRange is an observed [min, max] interval for one audio feature
// across the seed set.
type FeatureRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PlaylistManifest records which tracks were materialized for an
// intersection. Only the manifest persists; the scored candidate pool is
// discarded once playlists exist.
type PlaylistManifest struct {
	Intersection string   `json:"intersection"`
	PlaylistID   string   `json:"playlist_id,omitempty"`
	TrackIDs     []string `json:"track_ids"`
}

// WorldDefinition is the complete taste model for one user. It is created
// once per build job, replaced wholesale on rebuild, and read-only during
// playlist generation.
type WorldDefinition struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	// TasteCentroid is the mean 9-d audio feature vector over seeds.
	// TasteCentroid and PCAComponents derive from the same seed matrix and
	// are always recomputed together.
	TasteCentroid []float64 `json:"taste_centroid"`

	// PCAComponents holds the top-K orthonormal directions of the seed
	// feature matrix, with their explained variance ratios.
	PCAComponents        [][]float64 `json:"pca_components"`
	PCAExplainedVariance []float64   `json:"pca_explained_variance"`

	// SemanticCentroid is the mean text-embedding vector over seed track
	// descriptions. Provider-defined dimensionality, treated as opaque.
	SemanticCentroid []float64 `json:"semantic_centroid"`

	// FeatureRanges holds per-feature [min, max] over seeds, keyed by
	// feature name (valence, energy, acousticness, tempo,
	// instrumentalness, danceability).
	FeatureRanges map[string]FeatureRange `json:"feature_ranges"`

	EmotionalGeometry EmotionalGeometry `json:"emotional_geometry"`

	Keywords        []string `json:"keywords"`
	ExcludeKeywords []string `json:"exclude_keywords"`
	TopGenres       []string `json:"top_genres"`
	TopArtists      []string `json:"top_artists"`

	// SeedTrackIDs are ordered; they seed harvesting and double as an
	// implicit blocklist during generation.
	SeedTrackIDs []string `json:"seed_track_ids"`

	Intersections []Intersection `json:"intersections"`

	// Playlists is the manifest of the most recent generation, if any.
	Playlists []PlaylistManifest `json:"playlists,omitempty"`
}

// Playlist is one generated track list for an intersection, ready for
// materialization.
type Playlist struct {
	Intersection Intersection     `json:"intersection"`
	Tracks       []CandidateTrack `json:"tracks"`
}

// Answers carries the user's free-text onboarding responses.
type Answers struct {
	// Transcript is the concatenated question/answer text.
	Transcript string `json:"transcript"`

	// CustomKeywords are terms the user explicitly asked for.
	CustomKeywords []string `json:"custom_keywords,omitempty"`
}

// Embedder turns text batches into embedding vectors. The provider enforces
// an opaque per-call batch limit; callers chunk around it.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// BatchLimit returns the maximum number of texts per EmbedBatch call.
	BatchLimit() int
}

// ExtractRequest is the input to the structured world-extraction call.
type ExtractRequest struct {
	Transcript     string
	TasteSummary   string
	TopGenres      []string
	CustomKeywords []string
}

// ExtractedIntersection is one intersection as returned by the language
// model, before its free-text bias description is mapped to numeric offsets.
type ExtractedIntersection struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	BiasDescription string `json:"bias_description"`
}

// ExtractedWorld is the machine-parseable shape the extraction call must
// return.
type ExtractedWorld struct {
	WorldName         string                  `json:"world_name"`
	Description       string                  `json:"description"`
	EmotionalGeometry EmotionalGeometry       `json:"emotional_geometry"`
	Keywords          []string                `json:"keywords"`
	ExcludeKeywords   []string                `json:"exclude_keywords"`
	Intersections     []ExtractedIntersection `json:"intersections"`
}

// Extractor maps free-text answers plus taste context to an ExtractedWorld
// via a structured-output language model call. A response that cannot be
// parsed is a hard failure, never silently defaulted.
type Extractor interface {
	ExtractWorld(ctx context.Context, req ExtractRequest) (*ExtractedWorld, error)
}
