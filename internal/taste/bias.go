// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package taste

import "strings"

// biasRule maps a keyword appearing in an intersection's free-text bias
// description to a signed offset on one feature.
type biasRule struct {
	keyword string
	feature string
	delta   float64
}

// biasRules is evaluated in order against the lowercased bias description.
// Every matching rule writes its offset, so a later match for the same
// feature overwrites an earlier one (last-match-wins). The table is data, not
// control flow, so it can be extended and verified independently.
var biasRules = []biasRule{
	{"darker", "valence", -0.15},
	{"melancholic", "valence", -0.15},
	{"brighter", "valence", 0.15},
	{"uplifting", "valence", 0.15},
	{"slower", "energy", -0.15},
	{"slower", "tempo", -10},
	{"calm", "energy", -0.15},
	{"calm", "tempo", -10},
	{"faster", "tempo", 10},
	{"organic", "acousticness", 0.15},
	{"acoustic", "acousticness", 0.15},
	{"electronic", "acousticness", -0.15},
}

// BiasFromDescription maps a free-text bias description to numeric feature
// offsets using the fixed keyword table. Unrecognized text yields an empty
// map; the intersection then scores candidates on the base score alone.
func BiasFromDescription(description string) map[string]float64 {
	lowered := strings.ToLower(description)
	bias := make(map[string]float64)
	for _, rule := range biasRules {
		if strings.Contains(lowered, rule.keyword) {
			bias[rule.feature] = rule.delta
		}
	}
	return bias
}
