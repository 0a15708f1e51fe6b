// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vxd describes the sensors of the vertex detector: their
// identifiers, their geometry and their intrinsic resolution.
package vxd // import "github.com/go-lpc/pxd/vxd"

import (
	"fmt"
)

const (
	segmentBits = 5
	sensorBits  = 3
	ladderBits  = 5
	layerBits   = 3

	segmentShift = 0
	sensorShift  = segmentShift + segmentBits
	ladderShift  = sensorShift + sensorBits
	layerShift   = ladderShift + ladderBits

	segmentMask = 1<<segmentBits - 1
	sensorMask  = 1<<sensorBits - 1
	ladderMask  = 1<<ladderBits - 1
	layerMask   = 1<<layerBits - 1
)

// ID identifies a sensor (and optionally a segment of that sensor).
//
// Layout (MSB to LSB): layer (3 bits), ladder (5 bits), sensor (3 bits),
// segment (5 bits).
type ID uint16

// NewID returns the identifier of the given sensor.
func NewID(layer, ladder, sensor int) ID {
	return NewSegmentID(layer, ladder, sensor, 0)
}

// NewSegmentID returns the identifier of a segment of the given sensor.
func NewSegmentID(layer, ladder, sensor, segment int) ID {
	return ID(uint16(layer&layerMask)<<layerShift |
		uint16(ladder&ladderMask)<<ladderShift |
		uint16(sensor&sensorMask)<<sensorShift |
		uint16(segment&segmentMask)<<segmentShift)
}

func (id ID) Layer() int   { return int(id>>layerShift) & layerMask }
func (id ID) Ladder() int  { return int(id>>ladderShift) & ladderMask }
func (id ID) Sensor() int  { return int(id>>sensorShift) & sensorMask }
func (id ID) Segment() int { return int(id>>segmentShift) & segmentMask }

// Base returns the identifier of the sensor, without its segment.
func (id ID) Base() ID {
	return id &^ segmentMask
}

func (id ID) String() string {
	if seg := id.Segment(); seg != 0 {
		return fmt.Sprintf("%d.%d.%d#%d", id.Layer(), id.Ladder(), id.Sensor(), seg)
	}
	return fmt.Sprintf("%d.%d.%d", id.Layer(), id.Ladder(), id.Sensor())
}

// ParseID parses a sensor identifier of the form "layer.ladder.sensor"
// or "layer.ladder.sensor#segment".
func ParseID(s string) (ID, error) {
	var (
		layer, ladder, sensor, segment int
		err                            error
	)
	_, err = fmt.Sscanf(s, "%d.%d.%d#%d", &layer, &ladder, &sensor, &segment)
	if err != nil {
		segment = 0
		_, err = fmt.Sscanf(s, "%d.%d.%d", &layer, &ladder, &sensor)
	}
	if err != nil {
		return 0, fmt.Errorf("vxd: could not parse sensor id %q: %w", s, err)
	}

	for _, v := range []struct {
		name string
		val  int
		mask int
	}{
		{"layer", layer, layerMask},
		{"ladder", ladder, ladderMask},
		{"sensor", sensor, sensorMask},
		{"segment", segment, segmentMask},
	} {
		if v.val < 0 || v.val > v.mask {
			return 0, fmt.Errorf("vxd: invalid %s value %d in sensor id %q", v.name, v.val, s)
		}
	}

	return NewSegmentID(layer, ladder, sensor, segment), nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(p []byte) error {
	v, err := ParseID(string(p))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
