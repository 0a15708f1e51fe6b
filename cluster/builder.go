// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"fmt"
)

// Builder grows clusters from seed digits over an Index.
//
// Cluster membership is tracked with a disjoint set over digit indices.
// Each set carries the lowest tag among the clusters it absorbed.
type Builder struct {
	idx *Index

	parent []int // -1: digit not assigned to any cluster
	rank   []int
	label  []int // cluster tag of each set root
	ntags  int
}

// NewBuilder creates a cluster builder over the digits of idx.
func NewBuilder(idx *Index) *Builder {
	n := idx.Len()
	b := &Builder{
		idx:    idx,
		parent: make([]int, n),
		rank:   make([]int, n),
		label:  make([]int, n),
	}
	for i := range b.parent {
		b.parent[i] = -1
	}
	return b
}

// Build visits every unassigned digit with a charge of at least seedCut,
// by descending charge, and attaches its neighbourhood to the lowest
// tagged cluster found there, merging all other clusters of that
// neighbourhood into it. Seeds already attached to a cluster by an
// earlier neighbourhood are not grown.
//
// Build writes the final cluster tags back into the index and returns
// the number of distinct clusters.
func (b *Builder) Build(seedCut float64) (int, error) {
	seeds := b.idx.Seeds(seedCut)
	for _, seed := range seeds {
		if b.parent[seed] >= 0 {
			continue
		}
		b.grow(seed)
	}

	if b.ntags > len(seeds) {
		return 0, fmt.Errorf(
			"%w: %d cluster tags for %d seeds",
			ErrInvariant, b.ntags, len(seeds),
		)
	}

	roots := make(map[int]struct{})
	for i := range b.parent {
		if b.parent[i] < 0 {
			continue
		}
		root := b.find(i)
		roots[root] = struct{}{}
		b.idx.setTag(i, b.label[root])
	}

	return len(roots), nil
}

func (b *Builder) grow(seed int) {
	d := b.idx.Digit(seed)
	nbrs := b.idx.Neighbours(d.U, d.V)
	if !contains(nbrs, seed) {
		// seed hidden from the cell index: below the adjacent cut or
		// shadowed by a later digit on the same cell.
		nbrs = append(nbrs, seed)
	}

	root := -1
	for _, n := range nbrs {
		if b.parent[n] < 0 {
			continue
		}
		r := b.find(n)
		if root < 0 || b.label[r] < b.label[root] {
			root = r
		}
	}

	if root < 0 {
		b.ntags++
		root = seed
		b.parent[seed] = seed
		b.label[seed] = b.ntags
	}

	for _, n := range nbrs {
		if b.parent[n] < 0 {
			b.parent[n] = root
			continue
		}
		root = b.union(root, b.find(n))
	}
}

func (b *Builder) find(i int) int {
	for b.parent[i] != i {
		b.parent[i] = b.parent[b.parent[i]]
		i = b.parent[i]
	}
	return i
}

// union merges the sets rooted at x and y, and returns the new root.
// The merged set keeps the lowest of both tags.
func (b *Builder) union(x, y int) int {
	if x == y {
		return x
	}
	tag := min(b.label[x], b.label[y])
	switch {
	case b.rank[x] < b.rank[y]:
		x, y = y, x
	case b.rank[x] == b.rank[y]:
		b.rank[x]++
	}
	b.parent[y] = x
	b.label[x] = tag
	return x
}

func contains(vs []int, v int) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}
