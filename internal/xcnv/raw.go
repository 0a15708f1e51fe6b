// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"

	"github.com/go-lpc/pxd/cluster"
	"github.com/go-lpc/pxd/rawfmt"
	"github.com/go-lpc/pxd/vxd"
)

// FromRaw converts a raw event into a clusterizer event.
// Digits are indexed in the order of the frames and pixels of the raw event.
func FromRaw(raw *rawfmt.Event) cluster.Event {
	evt := cluster.Event{
		Run:    int(raw.Run),
		Number: int(raw.Number),
		Digits: make([]cluster.Digit, 0, raw.NumPixels()),
	}

	var truths cluster.TruthMap
	for _, frame := range raw.Frames {
		for _, pix := range frame.Pixels {
			i := len(evt.Digits)
			evt.Digits = append(evt.Digits, cluster.Digit{
				Sensor: vxd.ID(frame.Sensor),
				U:      int(pix.U),
				V:      int(pix.V),
				Charge: float64(pix.Charge),
				Index:  i,
			})
			if len(pix.Truths) == 0 {
				continue
			}
			if truths == nil {
				truths = make(cluster.TruthMap)
			}
			trs := make([]cluster.Truth, len(pix.Truths))
			for j, tr := range pix.Truths {
				trs[j] = cluster.Truth{
					Particle: int(tr.Particle),
					Weight:   float64(tr.Weight),
				}
			}
			truths[i] = trs
		}
	}
	if truths != nil {
		evt.Truths = truths
	}

	return evt
}

// ToRaw converts a clusterizer event into a raw event.
// Frames are created in the order sensors first appear in the event.
func ToRaw(evt cluster.Event) (rawfmt.Event, error) {
	raw := rawfmt.Event{
		Run:    uint32(evt.Run),
		Number: uint32(evt.Number),
	}

	frames := make(map[vxd.ID]int)
	for _, d := range evt.Digits {
		if d.U < 0 || d.U > 0xffff || d.V < 0 || d.V > 0xffff {
			return raw, fmt.Errorf(
				"xcnv: digit %d of sensor %v has invalid cell (%d, %d)",
				d.Index, d.Sensor, d.U, d.V,
			)
		}
		i, ok := frames[d.Sensor]
		if !ok {
			i = len(raw.Frames)
			frames[d.Sensor] = i
			raw.Frames = append(raw.Frames, rawfmt.Frame{Sensor: uint16(d.Sensor)})
		}
		pix := rawfmt.Pixel{
			U:      uint16(d.U),
			V:      uint16(d.V),
			Charge: float32(d.Charge),
		}
		if evt.Truths != nil {
			for _, tr := range evt.Truths.Truths(d.Index) {
				pix.Truths = append(pix.Truths, rawfmt.Truth{
					Particle: int32(tr.Particle),
					Weight:   float32(tr.Weight),
				})
			}
		}
		raw.Frames[i].Pixels = append(raw.Frames[i].Pixels, pix)
	}

	return raw, nil
}
