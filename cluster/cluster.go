// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cluster reconstructs pixel hits from raw pixel charges.
//
// The digits of each sensor are grouped into 8-connected clusters grown
// from seed digits, clusters with too little charge are discarded and a
// sub-pixel position is estimated for each surviving cluster, together
// with its truth-particle relations.
package cluster // import "github.com/go-lpc/pxd/cluster"

import (
	"github.com/go-lpc/pxd/vxd"
)

// Digit is one raw charge measurement on a sensor.
type Digit struct {
	Sensor vxd.ID
	U      int     // cell index along u
	V      int     // cell index along v
	Charge float64 // collected charge
	Index  int     // index of the digit in the input store
}

// Truth is the contribution of a simulated particle to the charge of a digit.
type Truth struct {
	Particle int // index of the particle in the truth store
	Weight   float64
}

// TruthSource gives access to the truth contributions of digits.
type TruthSource interface {
	// Truths returns the truth contributions of the digit whose input
	// store index is digit.
	Truths(digit int) []Truth
}

// TruthMap is a TruthSource keyed by digit index.
type TruthMap map[int][]Truth

func (m TruthMap) Truths(digit int) []Truth { return m[digit] }

// Hit is a reconstructed position on a sensor, in local coordinates.
type Hit struct {
	Sensor vxd.ID
	U      float64
	V      float64
	UErr   float64
	VErr   float64
	UVCov  float64 // always 0: no correlation model
	EDep   float64 // total charge of the cluster

	SeedCharge float64 // charge of the highest digit of the cluster
	Size       int     // number of digits
	USize      int     // number of cells spanned along u
	VSize      int     // number of cells spanned along v

	Truths []TruthRelation
	Digits []DigitRelation
}

// TruthRelation relates a hit to a truth particle.
type TruthRelation struct {
	Particle int
	Weight   float64 // sum of the weights of the particle over the cluster digits
}

// DigitRelation relates a hit to one of its digits.
type DigitRelation struct {
	Digit  int     // index of the digit in the input store
	Charge float64 // charge contributed to the hit
}
