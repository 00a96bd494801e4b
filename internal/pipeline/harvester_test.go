// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mvance/tasteworlds/internal/taste"
)

func testCentroid() []float64 {
	return taste.AudioFeatures{
		Danceability: 0.5,
		Energy:       0.5,
		Speechiness:  0.05,
		Acousticness: 0.5,
		Liveness:     0.1,
		Valence:      0.5,
		Tempo:        120,
		Loudness:     -10,
	}.Vector()
}

func seedIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "s" + string(rune('a'+i/10)) + string(rune('0'+i%10))
	}
	return ids
}

func TestHarvestFailsWithoutSeeds(t *testing.T) {
	h := NewHarvester(newFakeCatalog(), zerolog.Nop())

	_, err := h.Harvest(context.Background(), &taste.WorldDefinition{})
	if !errors.Is(err, taste.ErrNoSeedTracks) {
		t.Fatalf("error = %v, want ErrNoSeedTracks", err)
	}
}

func TestHarvestSlicesAndBiasProfiles(t *testing.T) {
	cat := newFakeCatalog()
	h := NewHarvester(cat, zerolog.Nop())

	world := &taste.WorldDefinition{
		SeedTrackIDs:  seedIDs(30),
		TasteCentroid: testCentroid(),
	}

	if _, err := h.Harvest(context.Background(), world); err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}

	if len(cat.searchCalls) != 6 {
		t.Fatalf("got %d similarity calls, want 6", len(cat.searchCalls))
	}

	// Calls run concurrently; index them by first seed ID.
	byFirstSeed := make(map[string]searchCall)
	for _, call := range cat.searchCalls {
		if len(call.seedIDs) != 5 {
			t.Errorf("slice size = %d, want 5", len(call.seedIDs))
		}
		if call.limit != 100 {
			t.Errorf("limit = %d, want 100", call.limit)
		}
		byFirstSeed[call.seedIDs[0]] = call
	}

	seeds := world.SeedTrackIDs

	if targets := byFirstSeed[seeds[0]].targets; targets != nil {
		t.Errorf("slice 0 targets = %v, want unbiased", targets)
	}

	slice1 := byFirstSeed[seeds[5]].targets
	if got := slice1[taste.FeatureValence]; got != 0.5 {
		t.Errorf("slice 1 valence target = %v, want centroid 0.5", got)
	}
	if _, ok := slice1[taste.FeatureAcousticness]; !ok {
		t.Error("slice 1 missing acousticness target")
	}

	slice2 := byFirstSeed[seeds[10]].targets
	if got := slice2[taste.FeatureValence]; math.Abs(got-0.35) > 1e-9 {
		t.Errorf("darker slice valence target = %v, want 0.35", got)
	}
	if got := slice2[taste.FeatureEnergy]; math.Abs(got-0.35) > 1e-9 {
		t.Errorf("darker slice energy target = %v, want 0.35", got)
	}

	slice3 := byFirstSeed[seeds[15]].targets
	if got := slice3[taste.FeatureAcousticness]; math.Abs(got-0.65) > 1e-9 {
		t.Errorf("organic slice acousticness target = %v, want 0.65", got)
	}

	slice5 := byFirstSeed[seeds[25]].targets
	if _, ok := slice5[taste.FeatureDanceability]; !ok {
		t.Error("sixth slice missing danceability target")
	}
}

func TestHarvestCapsSeedsAtThirty(t *testing.T) {
	cat := newFakeCatalog()
	h := NewHarvester(cat, zerolog.Nop())

	world := &taste.WorldDefinition{
		SeedTrackIDs:  seedIDs(45),
		TasteCentroid: testCentroid(),
	}

	if _, err := h.Harvest(context.Background(), world); err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(cat.searchCalls) != 6 {
		t.Errorf("got %d similarity calls, want 6", len(cat.searchCalls))
	}
}

func TestHarvestDedupesAndFiltersSeeds(t *testing.T) {
	cat := newFakeCatalog()
	seeds := seedIDs(10)

	// Slice 0 and slice 1 overlap on t2; slice 1 also returns a seed.
	cat.searchResults[seeds[0]] = []taste.Track{{ID: "t1"}, {ID: "t2"}}
	cat.searchResults[seeds[5]] = []taste.Track{{ID: "t2"}, {ID: seeds[3]}, {ID: "t3"}}

	h := NewHarvester(cat, zerolog.Nop())
	world := &taste.WorldDefinition{
		SeedTrackIDs:  seeds,
		TasteCentroid: testCentroid(),
	}

	pool, err := h.Harvest(context.Background(), world)
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}

	got := make([]string, len(pool))
	for i, cand := range pool {
		got[i] = cand.ID
	}

	want := []string{"t1", "t2", "t3"}
	if len(got) != len(want) {
		t.Fatalf("pool = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pool = %v, want %v (call order must be preserved)", got, want)
		}
	}
}

func TestHarvestDropsFailedSliceOnly(t *testing.T) {
	cat := newFakeCatalog()
	seeds := seedIDs(10)

	cat.searchResults[seeds[0]] = []taste.Track{{ID: "t1"}}
	cat.searchErrFor[seeds[5]] = errors.New("upstream hiccup")

	h := NewHarvester(cat, zerolog.Nop())
	world := &taste.WorldDefinition{
		SeedTrackIDs:  seeds,
		TasteCentroid: testCentroid(),
	}

	pool, err := h.Harvest(context.Background(), world)
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(pool) != 1 || pool[0].ID != "t1" {
		t.Errorf("pool = %+v, want just t1", pool)
	}
}

func TestHarvestEmptyPoolIsNotAnError(t *testing.T) {
	cat := newFakeCatalog()
	seeds := seedIDs(5)

	// Upstream only returns tracks the user already has.
	cat.searchDefault = []taste.Track{{ID: seeds[0]}, {ID: seeds[1]}}

	h := NewHarvester(cat, zerolog.Nop())
	world := &taste.WorldDefinition{
		SeedTrackIDs:  seeds,
		TasteCentroid: testCentroid(),
	}

	pool, err := h.Harvest(context.Background(), world)
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(pool) != 0 {
		t.Errorf("pool = %+v, want empty", pool)
	}
}

func TestSliceSeeds(t *testing.T) {
	tests := []struct {
		name  string
		seeds int
		want  []int
	}{
		{"empty", 0, nil},
		{"partial slice", 3, []int{3}},
		{"exact", 10, []int{5, 5}},
		{"trailing partial", 12, []int{5, 5, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sliceSeeds(seedIDs(tt.seeds), 5)
			sizes := make([]int, len(got))
			for i, slice := range got {
				sizes[i] = len(slice)
			}
			if len(sizes) != len(tt.want) {
				t.Fatalf("slice sizes = %v, want %v", sizes, tt.want)
			}
			for i := range tt.want {
				if sizes[i] != tt.want[i] {
					t.Fatalf("slice sizes = %v, want %v", sizes, tt.want)
				}
			}
		})
	}
}
