// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package pipeline

import (
	"bytes"
	"hash/fnv"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/mvance/tasteworlds/internal/taste"
)

const coverSize = 640

// GradientCover renders a deterministic two-tone vertical gradient seeded
// from the intersection name, so a playlist keeps its cover across
// regenerations. Returns nil on encode failure; covers are cosmetic.
func GradientCover(playlist taste.Playlist) []byte {
	h := fnv.New32a()
	h.Write([]byte(playlist.Intersection.Name))
	seed := h.Sum32()

	top := color.RGBA{
		R: uint8(seed >> 24),
		G: uint8(seed >> 16),
		B: uint8(seed >> 8),
		A: 255,
	}
	bottom := color.RGBA{
		R: top.R / 3,
		G: top.G / 3,
		B: top.B / 3,
		A: 255,
	}

	img := image.NewRGBA(image.Rect(0, 0, coverSize, coverSize))
	for y := 0; y < coverSize; y++ {
		c := color.RGBA{
			R: lerp(top.R, bottom.R, y),
			G: lerp(top.G, bottom.G, y),
			B: lerp(top.B, bottom.B, y),
			A: 255,
		}
		for x := 0; x < coverSize; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil
	}
	return buf.Bytes()
}

func lerp(a, b uint8, y int) uint8 {
	return uint8(int(a) + (int(b)-int(a))*y/coverSize)
}
