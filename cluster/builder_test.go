// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"reflect"
	"testing"
)

func TestBuilder(t *testing.T) {
	for _, tc := range []struct {
		name   string
		digits []Digit
		seed   float64
		adj    float64
		n      int
		tags   []int
	}{
		{
			name: "empty",
			seed: 1000,
			adj:  600,
			n:    0,
			tags: []int{},
		},
		{
			name: "noise",
			digits: []Digit{
				{U: 1, V: 1, Charge: 999},
				{U: 1, V: 2, Charge: 800},
			},
			seed: 1000,
			adj:  600,
			n:    0,
			tags: []int{0, 0},
		},
		{
			name: "single",
			digits: []Digit{
				{U: 1, V: 1, Charge: 999},
				{U: 1, V: 2, Charge: 1000},
				{U: 1, V: 3, Charge: 500}, // below adjacent cut
				{U: 1, V: 4, Charge: 800},
			},
			seed: 1000,
			adj:  600,
			n:    1,
			tags: []int{1, 1, 0, 0},
		},
		{
			name: "separated",
			digits: []Digit{
				{U: 0, V: 0, Charge: 2000},
				{U: 5, V: 5, Charge: 3000},
				{U: 2, V: 2, Charge: 700},
			},
			seed: 1000,
			adj:  600,
			n:    2,
			tags: []int{2, 1, 0},
		},
		{
			name: "diagonal",
			digits: []Digit{
				{U: 10, V: 10, Charge: 2000},
				{U: 11, V: 11, Charge: 700},
				{U: 12, V: 12, Charge: 700},
			},
			seed: 1000,
			adj:  600,
			n:    1,
			tags: []int{1, 1, 0},
		},
		{
			name: "merge",
			digits: []Digit{
				{U: 10, V: 10, Charge: 5000},
				{U: 10, V: 11, Charge: 700},
				{U: 10, V: 12, Charge: 1100},
				{U: 10, V: 13, Charge: 700},
				{U: 10, V: 14, Charge: 4000},
			},
			seed: 1000,
			adj:  600,
			n:    1,
			tags: []int{1, 1, 1, 1, 1},
		},
		{
			name: "chain",
			digits: []Digit{
				{U: 20, V: 10, Charge: 1500},
				{U: 21, V: 10, Charge: 1400},
				{U: 22, V: 10, Charge: 1300},
				{U: 23, V: 10, Charge: 1200},
				{U: 24, V: 10, Charge: 1100},
			},
			seed: 1000,
			adj:  600,
			n:    1,
			tags: []int{1, 1, 1, 1, 1},
		},
		{
			name: "assigned-seed",
			digits: []Digit{
				{U: 10, V: 10, Charge: 5000},
				{U: 10, V: 11, Charge: 2000}, // seed, attached by the first one
				{U: 10, V: 12, Charge: 700},  // only next to the attached seed
			},
			seed: 1000,
			adj:  600,
			n:    1,
			tags: []int{1, 1, 0},
		},
		{
			name: "assigned-seed-reached",
			digits: []Digit{
				{U: 10, V: 10, Charge: 5000},
				{U: 10, V: 11, Charge: 2000},
				{U: 10, V: 12, Charge: 1500}, // unassigned seed next to the attached one
				{U: 10, V: 13, Charge: 700},
			},
			seed: 1000,
			adj:  600,
			n:    1,
			tags: []int{1, 1, 1, 1},
		},
		{
			name: "seed-below-adjacent",
			digits: []Digit{
				{U: 10, V: 10, Charge: 600},
				{U: 10, V: 11, Charge: 1000},
				{U: 50, V: 50, Charge: 500},
			},
			seed: 400,
			adj:  800,
			n:    2,
			tags: []int{1, 1, 2},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			idx := NewIndex(newTestSensor(sid1), tc.digits, tc.adj)
			n, err := NewBuilder(idx).Build(tc.seed)
			if err != nil {
				t.Fatalf("could not build clusters: %+v", err)
			}
			if n != tc.n {
				t.Fatalf("invalid number of clusters: got=%d, want=%d", n, tc.n)
			}
			tags := make([]int, idx.Len())
			for i := range tags {
				tags[i] = idx.Tag(i)
			}
			if !reflect.DeepEqual(tags, tc.tags) {
				t.Fatalf("invalid tags: got=%v, want=%v", tags, tc.tags)
			}
			if got, want := len(idx.Tags()), tc.n; got != want {
				t.Fatalf("invalid number of live tags: got=%d, want=%d", got, want)
			}
		})
	}
}

func TestBuilderDeterminism(t *testing.T) {
	digits := randomDigits(sid1, 42, 2000)
	run := func() []int {
		idx := NewIndex(newTestSensor(sid1), digits, 600)
		_, err := NewBuilder(idx).Build(1000)
		if err != nil {
			t.Fatalf("could not build clusters: %+v", err)
		}
		tags := make([]int, idx.Len())
		for i := range tags {
			tags[i] = idx.Tag(i)
		}
		return tags
	}

	want := run()
	for i := 0; i < 5; i++ {
		got := run()
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: non deterministic cluster tags", i)
		}
	}
}
