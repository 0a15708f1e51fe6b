// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vxd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

var ErrUnknownSensor = errors.New("vxd: unknown sensor")

// Geometry gives access to the description of sensors.
type Geometry interface {
	Sensor(id ID) (*Sensor, error)
}

// Cache is an in-memory Geometry.
type Cache struct {
	sensors map[ID]*Sensor
}

// NewCache creates a geometry cache holding the provided sensors.
func NewCache(sensors ...*Sensor) *Cache {
	geo := &Cache{sensors: make(map[ID]*Sensor, len(sensors))}
	for _, s := range sensors {
		geo.sensors[s.ID.Base()] = s
	}
	return geo
}

// Add adds (or replaces) a sensor description.
func (geo *Cache) Add(s *Sensor) error {
	err := s.Validate()
	if err != nil {
		return err
	}
	geo.sensors[s.ID.Base()] = s
	return nil
}

// Sensor returns the description of the sensor id.
// Segment information carried by id is ignored.
func (geo *Cache) Sensor(id ID) (*Sensor, error) {
	s, ok := geo.sensors[id.Base()]
	if !ok {
		return nil, fmt.Errorf("%w %v", ErrUnknownSensor, id)
	}
	return s, nil
}

// Len returns the number of sensors in the cache.
func (geo *Cache) Len() int { return len(geo.sensors) }

// IDs returns the sorted list of sensor identifiers.
func (geo *Cache) IDs() []ID {
	ids := make([]ID, 0, len(geo.sensors))
	for id := range geo.sensors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type jsonSensor struct {
	ID        ID           `json:"id"`
	Type      SensorType   `json:"type"`
	UPitch    float64      `json:"u_pitch"`
	VPitch    float64      `json:"v_pitch"`
	UCells    int          `json:"u_cells"`
	VCells    int          `json:"v_cells"`
	Thickness float64      `json:"thickness"`
	Origin    [3]float64   `json:"origin"`
	Axes      [][3]float64 `json:"axes,omitempty"`
}

// ReadJSON decodes a list of sensors from r.
func ReadJSON(r io.Reader) (*Cache, error) {
	var raw []jsonSensor
	err := json.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("vxd: could not decode geometry: %w", err)
	}

	geo := NewCache()
	for _, v := range raw {
		s := NewSensor(v.ID, v.Type, v.UPitch, v.VPitch, v.UCells, v.VCells, v.Thickness)
		s.Origin = vecFrom(v.Origin)
		switch len(v.Axes) {
		case 0:
		case 3:
			for i, ax := range v.Axes {
				s.Axes[i] = vecFrom(ax)
			}
		default:
			return nil, fmt.Errorf("vxd: sensor %v: invalid number of axes (got=%d, want=3)", v.ID, len(v.Axes))
		}
		err = geo.Add(s)
		if err != nil {
			return nil, fmt.Errorf("vxd: could not add sensor: %w", err)
		}
	}
	return geo, nil
}

// WriteJSON encodes the geometry to w.
func WriteJSON(w io.Writer, geo *Cache) error {
	raw := make([]jsonSensor, 0, geo.Len())
	for _, id := range geo.IDs() {
		s := geo.sensors[id]
		v := jsonSensor{
			ID:        s.ID,
			Type:      s.Type,
			UPitch:    s.UPitch,
			VPitch:    s.VPitch,
			UCells:    s.UCells,
			VCells:    s.VCells,
			Thickness: s.Thickness,
			Origin:    arrFrom(s.Origin),
		}
		if s.Axes != identity() {
			v.Axes = [][3]float64{arrFrom(s.Axes[0]), arrFrom(s.Axes[1]), arrFrom(s.Axes[2])}
		}
		raw = append(raw, v)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err := enc.Encode(raw)
	if err != nil {
		return fmt.Errorf("vxd: could not encode geometry: %w", err)
	}
	return nil
}

func vecFrom(v [3]float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }
func arrFrom(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

var (
	_ Geometry = (*Cache)(nil)
)
