// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilter(t *testing.T) {
	digits := []Digit{
		{U: 0, V: 0, Charge: 2000},
		{U: 5, V: 5, Charge: 3000},
		{U: 2, V: 2, Charge: 700},
		{U: 5, V: 6, Charge: 800},
	}
	idx := NewIndex(newTestSensor(sid1), digits, 600)
	_, err := NewBuilder(idx).Build(1000)
	if err != nil {
		t.Fatalf("could not build clusters: %+v", err)
	}

	all, err := Clusters(idx)
	if err != nil {
		t.Fatalf("could not collect clusters: %+v", err)
	}

	want := []Cluster{
		{Tag: 1, Members: []int{1, 3}, Charge: 3800},
		{Tag: 2, Members: []int{0}, Charge: 2000},
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Fatalf("invalid clusters (-want +got):\n%s", diff)
	}

	for _, tc := range []struct {
		name string
		cut  float64
		tags []int
	}{
		{"none", 0, []int{1, 2}},
		{"at-cut", 2000, []int{1, 2}},
		{"one", 2500, []int{1}},
		{"all", 5000, []int{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Filter(all, tc.cut)
			tags := make([]int, len(got))
			for i, cl := range got {
				tags[i] = cl.Tag
			}
			if diff := cmp.Diff(tc.tags, tags); diff != "" {
				t.Fatalf("invalid filtered tags (-want +got):\n%s", diff)
			}
		})
	}

	// rejected clusters keep their tags.
	_ = Filter(all, 1e6)
	if got, want := idx.Tag(0), 2; got != want {
		t.Fatalf("invalid tag: got=%d, want=%d", got, want)
	}
}

func TestClustersInvariant(t *testing.T) {
	idx := NewIndex(newTestSensor(sid1), []Digit{{U: 1, V: 1, Charge: 2000}}, 600)
	idx.bytag[3] = nil

	_, err := Clusters(idx)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrInvariant)
	}
}
