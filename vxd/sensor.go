// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vxd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Direction is one of the two measurement directions of a sensor.
type Direction uint8

const (
	U Direction = iota // r-phi direction, along which charges drift
	V                  // z direction
)

func (dir Direction) String() string {
	switch dir {
	case U:
		return "u"
	case V:
		return "v"
	}
	return fmt.Sprintf("Direction(%d)", uint8(dir))
}

// SensorType describes the technology of a sensor.
type SensorType uint8

const (
	Unknown SensorType = iota
	PXD                // pixel sensor
	SVD                // double-sided strip sensor
	Tel                // telescope sensor
)

func (typ SensorType) String() string {
	switch typ {
	case PXD:
		return "PXD"
	case SVD:
		return "SVD"
	case Tel:
		return "TEL"
	}
	return "UNKNOWN"
}

// MarshalText implements encoding.TextMarshaler.
func (typ SensorType) MarshalText() ([]byte, error) {
	return []byte(typ.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (typ *SensorType) UnmarshalText(p []byte) error {
	switch string(p) {
	case "PXD":
		*typ = PXD
	case "SVD":
		*typ = SVD
	case "TEL":
		*typ = Tel
	case "UNKNOWN":
		*typ = Unknown
	default:
		return fmt.Errorf("vxd: invalid sensor type %q", p)
	}
	return nil
}

// Sensor holds the geometry of a planar sensor.
//
// Local coordinates are centred on the sensor: cell 0 starts at -Width/2.
// The placement of the sensor in the global frame is given by the global
// position of the local origin and by the global directions of the local
// u, v and w axes.
type Sensor struct {
	ID        ID
	Type      SensorType
	UPitch    float64
	VPitch    float64
	UCells    int
	VCells    int
	Thickness float64

	Origin r3.Vec
	Axes   [3]r3.Vec // global directions of the local u, v, w axes
}

// NewSensor creates a sensor located at the global origin, with its local
// axes aligned with the global ones.
func NewSensor(id ID, typ SensorType, upitch, vpitch float64, ucells, vcells int, thickness float64) *Sensor {
	return &Sensor{
		ID:        id,
		Type:      typ,
		UPitch:    upitch,
		VPitch:    vpitch,
		UCells:    ucells,
		VCells:    vcells,
		Thickness: thickness,
		Axes:      identity(),
	}
}

func identity() [3]r3.Vec {
	return [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
}

// Pitch returns the size of a cell along the given direction.
func (s *Sensor) Pitch(dir Direction) float64 {
	if dir == U {
		return s.UPitch
	}
	return s.VPitch
}

// Cells returns the number of cells along the given direction.
func (s *Sensor) Cells(dir Direction) int {
	if dir == U {
		return s.UCells
	}
	return s.VCells
}

// Width returns the size of the sensitive area along the given direction.
func (s *Sensor) Width(dir Direction) float64 {
	return float64(s.Cells(dir)) * s.Pitch(dir)
}

// InRange returns whether cell is a valid cell index along dir.
func (s *Sensor) InRange(dir Direction, cell int) bool {
	return 0 <= cell && cell < s.Cells(dir)
}

// CellPosition returns the local position of the centre of a cell.
func (s *Sensor) CellPosition(dir Direction, cell int) float64 {
	pitch := s.Pitch(dir)
	return (float64(cell)+0.5)*pitch - 0.5*s.Width(dir)
}

// CellID returns the cell containing the local position pos.
// Positions outside of the sensor are clamped to the first or last cell.
func (s *Sensor) CellID(dir Direction, pos float64) int {
	n := s.Cells(dir)
	cell := int(math.Floor((pos + 0.5*s.Width(dir)) / s.Pitch(dir)))
	switch {
	case cell < 0:
		return 0
	case cell >= n:
		return n - 1
	}
	return cell
}

// LocalToGlobal transforms a point from the local frame of the sensor
// to the global frame.
func (s *Sensor) LocalToGlobal(local r3.Vec) r3.Vec {
	axes := s.Axes
	if axes == [3]r3.Vec{} {
		axes = identity()
	}
	pos := s.Origin
	pos = r3.Add(pos, r3.Scale(local.X, axes[0]))
	pos = r3.Add(pos, r3.Scale(local.Y, axes[1]))
	pos = r3.Add(pos, r3.Scale(local.Z, axes[2]))
	return pos
}

// Validate checks the sensor description is usable.
func (s *Sensor) Validate() error {
	switch {
	case s.UPitch <= 0 || s.VPitch <= 0:
		return fmt.Errorf("vxd: sensor %v has an invalid pitch (u=%g, v=%g)", s.ID, s.UPitch, s.VPitch)
	case s.UCells <= 0 || s.VCells <= 0:
		return fmt.Errorf("vxd: sensor %v has an invalid number of cells (u=%d, v=%d)", s.ID, s.UCells, s.VCells)
	case s.Thickness < 0:
		return fmt.Errorf("vxd: sensor %v has an invalid thickness (%g)", s.ID, s.Thickness)
	}
	return nil
}
