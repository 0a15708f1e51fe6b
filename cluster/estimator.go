// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"math"

	"github.com/go-lpc/pxd/vxd"
	"gonum.org/v1/gonum/spatial/r3"
)

// Estimator computes hit positions and errors from cluster charges.
type Estimator struct {
	Sensor     *vxd.Sensor
	Resolution vxd.Resolution
	TanLorentz float64 // tangent of the Lorentz angle
}

// Position estimates the position of the cluster along dir, in local
// sensor coordinates, and returns the number of cells spanned.
//
//   - 1 cell: centre of the cell,
//   - 2 cells: charge weighted interpolation between both cell centres,
//   - more: analog head-tail, from the edge charges and the mean
//     interior charge.
func (est *Estimator) Position(dir vxd.Direction, digits []Digit) (float64, int) {
	coord := func(d Digit) int {
		if dir == vxd.U {
			return d.U
		}
		return d.V
	}

	low, high := coord(digits[0]), coord(digits[0])
	for _, d := range digits[1:] {
		c := coord(d)
		low = min(low, c)
		high = max(high, c)
	}

	var (
		width = high - low + 1
		pitch = est.Sensor.Pitch(dir)
		qlow  float64
		qhigh float64
		qmid  float64
	)
	for _, d := range digits {
		switch coord(d) {
		case low:
			qlow += d.Charge
		case high:
			qhigh += d.Charge
		default:
			qmid += d.Charge
		}
	}

	switch width {
	case 1:
		return est.Sensor.CellPosition(dir, low), width
	case 2:
		eta := 0.5
		if sum := qhigh + qlow; sum > 0 {
			eta = qhigh / sum
		}
		return est.Sensor.CellPosition(dir, low) + eta*pitch, width
	}

	var (
		plow  = est.Sensor.CellPosition(dir, low)
		phigh = est.Sensor.CellPosition(dir, high)
		mid   = 0.5 * (plow + phigh)
	)
	centre := qmid / float64(width-2)
	if centre <= 0 {
		// no charge between the edges.
		return mid, width
	}
	return mid + 0.5*(qhigh-qlow)/centre*pitch, width
}

// Hit builds the hit of a cluster.
// Truth relations are not filled.
func (est *Estimator) Hit(idx *Index, cl Cluster) Hit {
	digits := make([]Digit, len(cl.Members))
	for i, m := range cl.Members {
		digits[i] = idx.Digit(m)
	}

	hit := Hit{
		Sensor: est.Sensor.ID,
		EDep:   cl.Charge,
		Size:   len(digits),
		Digits: make([]DigitRelation, len(digits)),
	}
	for i, d := range digits {
		hit.SeedCharge = max(hit.SeedCharge, d.Charge)
		hit.Digits[i] = DigitRelation{Digit: d.Index, Charge: d.Charge}
	}

	hit.U, hit.USize = est.Position(vxd.U, digits)
	hit.V, hit.VSize = est.Position(vxd.V, digits)

	// drift along u.
	hit.U -= 0.5 * est.Sensor.Thickness * est.TanLorentz

	pos := est.Sensor.LocalToGlobal(r3.Vec{X: hit.U, Y: hit.V})
	theta := math.Atan2(math.Hypot(pos.X, pos.Y), pos.Z)
	hit.UErr, hit.VErr = est.Resolution.Resolution(est.Sensor.ID, theta)

	return hit
}
