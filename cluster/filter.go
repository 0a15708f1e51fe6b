// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"fmt"
)

// Cluster is the set of digits sharing a cluster tag.
type Cluster struct {
	Tag     int
	Members []int   // digits of the cluster, as indices into the Index
	Charge  float64 // total charge of the members
}

// Clusters collects the tagged digits of idx into clusters, by ascending tag.
func Clusters(idx *Index) ([]Cluster, error) {
	tags := idx.Tags()
	out := make([]Cluster, 0, len(tags))
	for _, tag := range tags {
		members := idx.WithTag(tag)
		if len(members) == 0 {
			return nil, fmt.Errorf("%w: cluster %d has no member", ErrInvariant, tag)
		}
		cl := Cluster{
			Tag:     tag,
			Members: members,
		}
		for _, i := range members {
			cl.Charge += idx.Digit(i).Charge
		}
		out = append(out, cl)
	}
	return out, nil
}

// Filter returns the clusters whose total charge is at least cut.
// Digits of rejected clusters keep their tag.
func Filter(clusters []Cluster, cut float64) []Cluster {
	out := make([]Cluster, 0, len(clusters))
	for _, cl := range clusters {
		if cl.Charge < cut {
			continue
		}
		out = append(out, cl)
	}
	return out
}
