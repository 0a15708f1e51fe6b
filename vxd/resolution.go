// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vxd

import (
	"math"
	"sort"
)

// Resolution gives the intrinsic position resolution of a sensor for a
// hit seen under the polar angle theta (in radians).
type Resolution interface {
	Resolution(id ID, theta float64) (uErr, vErr float64)
}

// BinaryResolution is the resolution of a digital readout: pitch/sqrt(12).
type BinaryResolution struct {
	Geometry Geometry
}

func (res BinaryResolution) Resolution(id ID, theta float64) (uErr, vErr float64) {
	if res.Geometry == nil {
		return 0, 0
	}
	s, err := res.Geometry.Sensor(id)
	if err != nil {
		return 0, 0
	}
	const isqrt12 = 0.28867513459481287 // 1/sqrt(12)
	return s.UPitch * isqrt12, s.VPitch * isqrt12
}

// ResolutionBin is the resolution of a sensor for polar angles in
// [ThetaMin, ThetaMax).
//
// A zero Ladder (resp. Sensor) makes the bin apply to all the ladders of
// the layer (resp. all the sensors of the ladder).
type ResolutionBin struct {
	Layer    int     `json:"layer"`
	Ladder   int     `json:"ladder,omitempty"`
	Sensor   int     `json:"sensor,omitempty"`
	ThetaMin float64 `json:"theta_min"`
	ThetaMax float64 `json:"theta_max"`
	UErr     float64 `json:"u_err"`
	VErr     float64 `json:"v_err"`
}

// ID returns the identifier of the sensors the bin applies to.
func (bin ResolutionBin) ID() ID { return NewID(bin.Layer, bin.Ladder, bin.Sensor) }

// ResolutionTable holds theta-binned resolutions, per sensor, ladder or
// layer. A lookup uses the bins of the sensor, then those of its ladder,
// then those of its layer.
// Lookups outside of the table are delegated to Fallback, when set.
type ResolutionTable struct {
	Fallback Resolution

	bins map[ID][]ResolutionBin
}

// NewResolutionTable creates a resolution table from the provided bins.
func NewResolutionTable(fallback Resolution, bins ...ResolutionBin) *ResolutionTable {
	tbl := &ResolutionTable{
		Fallback: fallback,
		bins:     make(map[ID][]ResolutionBin),
	}
	for _, bin := range bins {
		tbl.Add(bin)
	}
	return tbl
}

// Add adds a bin to the table.
func (tbl *ResolutionTable) Add(bin ResolutionBin) {
	key := bin.ID()
	bins := append(tbl.bins[key], bin)
	sort.SliceStable(bins, func(i, j int) bool {
		return bins[i].ThetaMin < bins[j].ThetaMin
	})
	tbl.bins[key] = bins
}

// Len returns the number of bins in the table.
func (tbl *ResolutionTable) Len() int {
	n := 0
	for _, bins := range tbl.bins {
		n += len(bins)
	}
	return n
}

func (tbl *ResolutionTable) Resolution(id ID, theta float64) (uErr, vErr float64) {
	if !math.IsNaN(theta) {
		for _, key := range []ID{
			id.Base(),
			NewID(id.Layer(), id.Ladder(), 0),
			NewID(id.Layer(), 0, 0),
		} {
			if bin, ok := tbl.lookup(key, theta); ok {
				return bin.UErr, bin.VErr
			}
		}
	}
	if tbl.Fallback == nil {
		return 0, 0
	}
	return tbl.Fallback.Resolution(id, theta)
}

func (tbl *ResolutionTable) lookup(key ID, theta float64) (ResolutionBin, bool) {
	bins := tbl.bins[key]
	i := sort.Search(len(bins), func(i int) bool {
		return bins[i].ThetaMax > theta
	})
	if i < len(bins) && bins[i].ThetaMin <= theta {
		return bins[i], true
	}
	return ResolutionBin{}, false
}

var (
	_ Resolution = (*BinaryResolution)(nil)
	_ Resolution = (*ResolutionTable)(nil)
)
