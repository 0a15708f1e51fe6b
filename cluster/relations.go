// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"sort"
)

// TruthRelations sums the truth contributions of the given digits, per
// truth particle. Relations are sorted by particle index.
// Digits without truth information contribute no relation.
func TruthRelations(src TruthSource, digits []DigitRelation) []TruthRelation {
	if src == nil {
		return nil
	}

	var (
		sum  = make(map[int]float64)
		keys []int
	)
	for _, d := range digits {
		for _, tr := range src.Truths(d.Digit) {
			if _, dup := sum[tr.Particle]; !dup {
				keys = append(keys, tr.Particle)
			}
			sum[tr.Particle] += tr.Weight
		}
	}
	if len(keys) == 0 {
		return nil
	}

	sort.Ints(keys)
	out := make([]TruthRelation, len(keys))
	for i, k := range keys {
		out[i] = TruthRelation{Particle: k, Weight: sum[k]}
	}
	return out
}
