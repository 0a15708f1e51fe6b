// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/pxd/cluster"
	"github.com/go-lpc/pxd/rawfmt"
	"github.com/go-lpc/pxd/vxd"
	"go-hep.org/x/hep/lcio"
)

// Names of the LCIO collections holding pixel data.
const (
	DigitsName         = "PXDDigits"
	DigitsToTruthName  = "PXDDigitsToMCParticles"
	HitsName           = "PXDClusters"
	HitsToTruthName    = "PXDClustersToMCParticles"
	HitsToDigitsName   = "PXDClustersToPXDDigits"
	detector           = "PXD"
	collectionsVersion = 1
)

// RunHeader returns the LCIO run header of pixel data files.
func RunHeader(run int) lcio.RunHeader {
	return lcio.RunHeader{
		RunNumber: int32(run),
		Detector:  detector,
		Descr:     "",
		Params: lcio.Params{
			Ints: map[string][]int32{
				"PXDVersion": {collectionsVersion},
			},
		},
	}
}

// NewEvent creates a LCIO event holding the digits of evt and, when not
// nil, the hits of res with their relations.
//
// Collection layouts, one generic object per entry:
//   - PXDDigits: i32s={sensor, u, v}, f64s={charge}
//   - PXDDigitsToMCParticles: i32s={digit, particle}, f64s={weight}
//   - PXDClusters: i32s={sensor, size, u-size, v-size},
//     f64s={u, v, u-err, v-err, uv-cov, edep, seed-charge}
//   - PXDClustersToMCParticles: i32s={hit, particle}, f64s={weight}
//   - PXDClustersToPXDDigits: i32s={hit, digit}, f64s={charge}
func NewEvent(evt cluster.Event, res *cluster.Result) lcio.Event {
	out := lcio.Event{
		RunNumber:   int32(evt.Run),
		EventNumber: int32(evt.Number),
		Detector:    detector,
	}

	var (
		digits = &lcio.GenericObject{Data: make([]lcio.GenericObjectData, 0, len(evt.Digits))}
		truths = &lcio.GenericObject{}
	)
	for _, d := range evt.Digits {
		digits.Data = append(digits.Data, lcio.GenericObjectData{
			I32s: []int32{int32(d.Sensor), int32(d.U), int32(d.V)},
			F64s: []float64{d.Charge},
		})
		if evt.Truths == nil {
			continue
		}
		for _, tr := range evt.Truths.Truths(d.Index) {
			truths.Data = append(truths.Data, lcio.GenericObjectData{
				I32s: []int32{int32(d.Index), int32(tr.Particle)},
				F64s: []float64{tr.Weight},
			})
		}
	}
	out.Add(DigitsName, digits)
	out.Add(DigitsToTruthName, truths)

	if res == nil {
		return out
	}

	var (
		hits  = &lcio.GenericObject{Data: make([]lcio.GenericObjectData, 0, len(res.Hits))}
		h2mc  = &lcio.GenericObject{}
		h2dig = &lcio.GenericObject{}
	)
	for i, hit := range res.Hits {
		hits.Data = append(hits.Data, lcio.GenericObjectData{
			I32s: []int32{
				int32(hit.Sensor),
				int32(hit.Size), int32(hit.USize), int32(hit.VSize),
			},
			F64s: []float64{
				hit.U, hit.V,
				hit.UErr, hit.VErr, hit.UVCov,
				hit.EDep, hit.SeedCharge,
			},
		})
		for _, tr := range hit.Truths {
			h2mc.Data = append(h2mc.Data, lcio.GenericObjectData{
				I32s: []int32{int32(i), int32(tr.Particle)},
				F64s: []float64{tr.Weight},
			})
		}
		for _, rel := range hit.Digits {
			h2dig.Data = append(h2dig.Data, lcio.GenericObjectData{
				I32s: []int32{int32(i), int32(rel.Digit)},
				F64s: []float64{rel.Charge},
			})
		}
	}
	out.Add(HitsName, hits)
	out.Add(HitsToTruthName, h2mc)
	out.Add(HitsToDigitsName, h2dig)

	return out
}

func collection(evt *lcio.Event, name string) (*lcio.GenericObject, error) {
	obj, ok := evt.Get(name).(*lcio.GenericObject)
	if !ok || obj == nil {
		return nil, fmt.Errorf("xcnv: event %d has no %q collection", evt.EventNumber, name)
	}
	return obj, nil
}

func checkLayout(name string, i int, data lcio.GenericObjectData, ni, nd int) error {
	if len(data.I32s) != ni || len(data.F64s) != nd {
		return fmt.Errorf(
			"xcnv: invalid %s entry %d (i32s=%d, f64s=%d)",
			name, i, len(data.I32s), len(data.F64s),
		)
	}
	return nil
}

// FromLCIO extracts the digits of a LCIO event.
// A missing truth relations collection is not an error.
func FromLCIO(evt *lcio.Event) (cluster.Event, error) {
	out := cluster.Event{
		Run:    int(evt.RunNumber),
		Number: int(evt.EventNumber),
	}

	digits, err := collection(evt, DigitsName)
	if err != nil {
		return out, err
	}

	out.Digits = make([]cluster.Digit, len(digits.Data))
	for i, data := range digits.Data {
		err := checkLayout(DigitsName, i, data, 3, 1)
		if err != nil {
			return out, err
		}
		if data.I32s[0] < 0 || data.I32s[0] > 0xffff {
			return out, fmt.Errorf("xcnv: invalid sensor id %d for digit %d", data.I32s[0], i)
		}
		out.Digits[i] = cluster.Digit{
			Sensor: vxd.ID(data.I32s[0]),
			U:      int(data.I32s[1]),
			V:      int(data.I32s[2]),
			Charge: data.F64s[0],
			Index:  i,
		}
	}

	truths, err := collection(evt, DigitsToTruthName)
	if err != nil {
		return out, nil
	}
	if len(truths.Data) == 0 {
		return out, nil
	}

	tmap := make(cluster.TruthMap)
	for i, data := range truths.Data {
		err := checkLayout(DigitsToTruthName, i, data, 2, 1)
		if err != nil {
			return out, err
		}
		idx := int(data.I32s[0])
		if idx < 0 || idx >= len(out.Digits) {
			return out, fmt.Errorf("xcnv: truth relation %d has invalid digit index %d", i, idx)
		}
		tmap[idx] = append(tmap[idx], cluster.Truth{
			Particle: int(data.I32s[1]),
			Weight:   data.F64s[0],
		})
	}
	out.Truths = tmap

	return out, nil
}

// HitsFromLCIO extracts the hits, and their relations, of a LCIO event.
func HitsFromLCIO(evt *lcio.Event) ([]cluster.Hit, error) {
	objs, err := collection(evt, HitsName)
	if err != nil {
		return nil, err
	}

	hits := make([]cluster.Hit, len(objs.Data))
	for i, data := range objs.Data {
		err := checkLayout(HitsName, i, data, 4, 7)
		if err != nil {
			return nil, err
		}
		hits[i] = cluster.Hit{
			Sensor:     vxd.ID(data.I32s[0]),
			Size:       int(data.I32s[1]),
			USize:      int(data.I32s[2]),
			VSize:      int(data.I32s[3]),
			U:          data.F64s[0],
			V:          data.F64s[1],
			UErr:       data.F64s[2],
			VErr:       data.F64s[3],
			UVCov:      data.F64s[4],
			EDep:       data.F64s[5],
			SeedCharge: data.F64s[6],
		}
	}

	hitOf := func(name string, i int, data lcio.GenericObjectData) (*cluster.Hit, error) {
		err := checkLayout(name, i, data, 2, 1)
		if err != nil {
			return nil, err
		}
		ih := int(data.I32s[0])
		if ih < 0 || ih >= len(hits) {
			return nil, fmt.Errorf("xcnv: %s entry %d has invalid hit index %d", name, i, ih)
		}
		return &hits[ih], nil
	}

	if rels, err := collection(evt, HitsToTruthName); err == nil {
		for i, data := range rels.Data {
			hit, err := hitOf(HitsToTruthName, i, data)
			if err != nil {
				return nil, err
			}
			hit.Truths = append(hit.Truths, cluster.TruthRelation{
				Particle: int(data.I32s[1]),
				Weight:   data.F64s[0],
			})
		}
	}

	if rels, err := collection(evt, HitsToDigitsName); err == nil {
		for i, data := range rels.Data {
			hit, err := hitOf(HitsToDigitsName, i, data)
			if err != nil {
				return nil, err
			}
			hit.Digits = append(hit.Digits, cluster.DigitRelation{
				Digit:  int(data.I32s[1]),
				Charge: data.F64s[0],
			})
		}
	}

	return hits, nil
}

// RAW2LCIO converts a stream of raw events into LCIO events holding digits.
func RAW2LCIO(w *lcio.Writer, dec *rawfmt.Decoder, freq int, msg *log.Logger) error {
loop:
	for i := 0; ; i++ {
		if freq > 0 && i%freq == 0 {
			msg.Printf("processing evt %d...", i)
		}
		var raw rawfmt.Event
		err := dec.Decode(&raw)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return fmt.Errorf("could not decode raw event: %w", err)
		}

		evt := FromRaw(&raw)
		if i == 0 {
			rhdr := RunHeader(evt.Run)
			err = w.WriteRunHeader(&rhdr)
			if err != nil {
				return fmt.Errorf("could not write run header: %w", err)
			}
		}

		levt := NewEvent(evt, nil)
		err = w.WriteEvent(&levt)
		if err != nil {
			return fmt.Errorf("could not write LCIO event %d: %w", evt.Number, err)
		}
	}

	return nil
}

// LCIO2RAW converts the digits of LCIO events into a stream of raw events.
func LCIO2RAW(w io.Writer, r *lcio.Reader, freq int, msg *log.Logger) error {
	var (
		enc = rawfmt.NewEncoder(w)
		i   = 0
	)

	for r.Next() {
		if freq > 0 && i%freq == 0 {
			msg.Printf("processing evt %d...", i)
		}
		levt := r.Event()
		evt, err := FromLCIO(&levt)
		if err != nil {
			return fmt.Errorf("could not read digits: %w", err)
		}
		raw, err := ToRaw(evt)
		if err != nil {
			return fmt.Errorf("could not convert event %d: %w", evt.Number, err)
		}
		err = enc.Encode(&raw)
		if err != nil {
			return fmt.Errorf("could not encode raw event: %w", err)
		}
		i++
	}

	err := r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}

	return nil
}
