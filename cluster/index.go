// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"sort"

	"github.com/go-lpc/pxd/vxd"
)

type cell struct {
	u, v int
}

// Index holds the lookup structures needed to cluster the digits of
// one sensor: digits by cell, digits by charge and digits by cluster tag.
//
// All structures refer to digits by their position in the flat list of
// digits of the sensor.
type Index struct {
	sensor *vxd.Sensor

	digits []Digit
	tags   []int // cluster tag per digit: 0=unassigned, >0 cluster id

	cells  map[cell]int  // digits above the adjacent cut, by cell
	charge []int         // digits, by descending charge
	bytag  map[int][]int // digits, by cluster tag
}

// NewIndex builds the lookup structures over the digits of one sensor.
//
// Only digits whose charge is above adjacentCut are visible from
// neighbour lookups. When two digits claim the same cell, the later one
// wins the cell lookup; both stay in the flat list of digits.
func NewIndex(sensor *vxd.Sensor, digits []Digit, adjacentCut float64) *Index {
	idx := &Index{
		sensor: sensor,
		digits: digits,
		tags:   make([]int, len(digits)),
		cells:  make(map[cell]int, len(digits)),
		charge: make([]int, len(digits)),
		bytag:  make(map[int][]int),
	}

	for i, d := range digits {
		idx.charge[i] = i
		if d.Charge < adjacentCut {
			continue
		}
		idx.cells[cell{d.U, d.V}] = i
	}

	sort.SliceStable(idx.charge, func(i, j int) bool {
		return digits[idx.charge[i]].Charge > digits[idx.charge[j]].Charge
	})

	return idx
}

// Len returns the number of digits in the index.
func (idx *Index) Len() int { return len(idx.digits) }

// Digit returns the i-th digit.
func (idx *Index) Digit(i int) Digit { return idx.digits[i] }

// Tag returns the cluster tag of the i-th digit.
func (idx *Index) Tag(i int) int { return idx.tags[i] }

// Neighbours returns the digits found in the 3x3 cells neighbourhood
// centred on (u, v), including the cell itself.
func (idx *Index) Neighbours(u, v int) []int {
	out := make([]int, 0, 9)
	for du := -1; du <= 1; du++ {
		uu := u + du
		if idx.sensor != nil && !idx.sensor.InRange(vxd.U, uu) {
			continue
		}
		for dv := -1; dv <= 1; dv++ {
			vv := v + dv
			if idx.sensor != nil && !idx.sensor.InRange(vxd.V, vv) {
				continue
			}
			if i, ok := idx.cells[cell{uu, vv}]; ok {
				out = append(out, i)
			}
		}
	}
	return out
}

// Seeds returns the digits whose charge is at least threshold, by
// descending charge. Digits with the same charge are returned in the
// order they were provided.
func (idx *Index) Seeds(threshold float64) []int {
	n := sort.Search(len(idx.charge), func(i int) bool {
		return idx.digits[idx.charge[i]].Charge < threshold
	})
	return idx.charge[:n:n]
}

// WithTag returns the digits currently tagged with the given cluster tag.
func (idx *Index) WithTag(tag int) []int {
	return idx.bytag[tag]
}

// setTag assigns a cluster tag to the i-th digit, keeping the tag view consistent.
func (idx *Index) setTag(i, tag int) {
	old := idx.tags[i]
	if old == tag {
		return
	}
	if old != 0 {
		lst := idx.bytag[old]
		for j, v := range lst {
			if v == i {
				lst = append(lst[:j], lst[j+1:]...)
				break
			}
		}
		if len(lst) == 0 {
			delete(idx.bytag, old)
		} else {
			idx.bytag[old] = lst
		}
	}
	idx.tags[i] = tag
	if tag != 0 {
		idx.bytag[tag] = append(idx.bytag[tag], i)
	}
}

// Tags returns the sorted list of live cluster tags.
func (idx *Index) Tags() []int {
	tags := make([]int, 0, len(idx.bytag))
	for tag := range idx.bytag {
		tags = append(tags, tag)
	}
	sort.Ints(tags)
	return tags
}
