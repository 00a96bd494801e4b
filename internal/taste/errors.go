// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package taste

import "errors"

// ErrInsufficientSeedData is returned when a build is attempted with no seed
// tracks carrying resolved audio features. Raised before any external call.
var ErrInsufficientSeedData = errors.New("insufficient seed data: no seed tracks with audio features")

// ErrNoSeedTracks is returned when generation is attempted against a world
// with an empty seed track list.
var ErrNoSeedTracks = errors.New("world has no seed tracks")

// ErrWorldExtractionFailed is returned when the language model's structured
// world extraction cannot be parsed. There is no silent fallback; the build
// job fails with this error.
var ErrWorldExtractionFailed = errors.New("world extraction failed")
