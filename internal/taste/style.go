// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package taste

import (
	"fmt"
	"strings"
)

// InferStyle derives a short list of style tags from audio features through a
// fixed rule cascade. The cascade order and thresholds are load-bearing: the
// tags feed the embedding text that both world building and candidate scoring
// depend on, so identical features must always yield the identical tag list.
func InferStyle(f AudioFeatures) []string {
	var tags []string

	// Mood: at most one tag, first matching rule wins.
	switch {
	case f.Energy > 0.7 && f.Valence > 0.6:
		tags = append(tags, "upbeat")
	case f.Energy < 0.4 && f.Valence < 0.4:
		tags = append(tags, "melancholic")
	case f.Energy > 0.6 && f.Valence < 0.4:
		tags = append(tags, "intense")
	case f.Energy < 0.5 && f.Valence > 0.5:
		tags = append(tags, "calm-warm")
	}

	// Texture.
	if f.Acousticness > 0.7 {
		tags = append(tags, "acoustic")
	} else if f.Acousticness < 0.3 {
		tags = append(tags, "electronic")
	}

	if f.Instrumentalness > 0.5 {
		tags = append(tags, "instrumental")
	}

	// Pace: always exactly one tag.
	switch {
	case f.Tempo < 80:
		tags = append(tags, "slow")
	case f.Tempo > 140:
		tags = append(tags, "fast")
	default:
		tags = append(tags, "mid-tempo")
	}

	if f.Danceability > 0.7 {
		tags = append(tags, "groovy")
	}

	return tags
}

// TrackDescription renders the human-readable description embedded for a
// track. The same template is used for seed tracks at build time and for
// candidates at scoring time, so the semantic centroid and candidate
// embeddings live in the same text distribution.
func TrackDescription(track Track, features *AudioFeatures, genres []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%q by %s", track.Title, track.PrimaryArtist())
	if track.Album != "" {
		fmt.Fprintf(&b, " from the album %q", track.Album)
	}
	if track.ReleaseYear > 0 {
		fmt.Fprintf(&b, ", released %d", track.ReleaseYear)
	}
	if len(genres) > 0 {
		fmt.Fprintf(&b, ". Genres: %s", strings.Join(genres, ", "))
	}
	if features != nil {
		fmt.Fprintf(&b, ". Style: %s", strings.Join(InferStyle(*features), ", "))
	}
	b.WriteString(".")

	return b.String()
}
