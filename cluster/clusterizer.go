// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/go-lpc/pxd/vxd"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotPXD is returned when digits are attached to a sensor that is
	// not a pixel sensor.
	ErrNotPXD = errors.New("cluster: not a PXD sensor")

	// ErrInvariant flags a broken internal bookkeeping of the clusterizer.
	ErrInvariant = errors.New("cluster: invariant violation")
)

// Event is the set of digits of one event.
type Event struct {
	Run    int
	Number int
	Digits []Digit
	Truths TruthSource // may be nil
}

// SensorContext holds everything needed to clusterize the digits of a
// single sensor.
type SensorContext struct {
	Sensor *vxd.Sensor
	Digits []Digit
	Truths TruthSource
}

// SensorResult is the outcome of the clusterization of one sensor.
type SensorResult struct {
	Sensor   vxd.ID
	Hits     []Hit
	Clusters int // number of clusters before the total charge cut
	Rejected int // number of clusters below the total charge cut
	Dropped  int // number of digits outside the sensor cells
}

// Skipped describes a sensor whose digits could not be clusterized.
type Skipped struct {
	Sensor vxd.ID
	Digits int
	Err    error
}

// Result is the outcome of the clusterization of one event.
type Result struct {
	Run     int
	Number  int
	Hits    []Hit // hits, by ascending sensor id
	Sensors []SensorResult
	Skipped []Skipped
}

// Clusterizer reconstructs pixel hits from the digits of events.
type Clusterizer struct {
	msg *log.Logger
	cfg Config
	geo vxd.Geometry
	res vxd.Resolution
}

// New creates a new clusterizer from the provided geometry and
// resolution services.
// When res is nil, the binary resolution of each sensor is used.
func New(geo vxd.Geometry, res vxd.Resolution, opts ...Option) (*Clusterizer, error) {
	if geo == nil {
		return nil, fmt.Errorf("cluster: nil geometry")
	}
	cfg := Defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("cluster: could not create clusterizer: %w", err)
	}
	if res == nil {
		res = vxd.BinaryResolution{Geometry: geo}
	}

	if cfg.SeedSN < cfg.AdjacentSN {
		cfg.msg.Printf(
			"seed S/N cut (%v) below adjacent S/N cut (%v): seeds may not see their neighbours",
			cfg.SeedSN, cfg.AdjacentSN,
		)
	}

	return &Clusterizer{
		msg: cfg.msg,
		cfg: cfg,
		geo: geo,
		res: res,
	}, nil
}

// Config returns the configuration of the clusterizer.
func (c *Clusterizer) Config() Config { return c.cfg }

// Process clusterizes all the digits of an event.
//
// Digits of unknown and non-pixel sensors are skipped and reported in
// the result. An invariant violation aborts the whole event.
func (c *Clusterizer) Process(ctx context.Context, evt Event) (Result, error) {
	out := Result{
		Run:    evt.Run,
		Number: evt.Number,
	}

	var (
		ids    []vxd.ID
		groups = make(map[vxd.ID][]Digit)
	)
	for _, d := range evt.Digits {
		id := d.Sensor.Base()
		if _, ok := groups[id]; !ok {
			ids = append(ids, id)
		}
		groups[id] = append(groups[id], d)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	sctxs := make([]SensorContext, 0, len(ids))
	for _, id := range ids {
		sensor, err := c.sensor(id)
		if err != nil {
			c.msg.Printf("run %d event %d: skipping %d digits of sensor %v: %+v",
				evt.Run, evt.Number, len(groups[id]), id, err,
			)
			measureSkipped(ctx, id.Layer())
			out.Skipped = append(out.Skipped, Skipped{
				Sensor: id,
				Digits: len(groups[id]),
				Err:    err,
			})
			continue
		}
		sctxs = append(sctxs, SensorContext{
			Sensor: sensor,
			Digits: groups[id],
			Truths: evt.Truths,
		})
	}

	out.Sensors = make([]SensorResult, len(sctxs))

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(c.cfg.Workers)
	for i := range sctxs {
		i := i
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.ProcessSensor(sctxs[i])
			if err != nil {
				return fmt.Errorf(
					"cluster: could not process sensor %v of event %d: %w",
					sctxs[i].Sensor.ID, evt.Number, err,
				)
			}
			measureSensor(ctx, sctxs[i].Sensor.ID.Layer(), res)
			out.Sensors[i] = res
			return nil
		})
	}
	err := grp.Wait()
	if err != nil {
		return out, err
	}

	n := 0
	for _, res := range out.Sensors {
		n += len(res.Hits)
	}
	out.Hits = make([]Hit, 0, n)
	for _, res := range out.Sensors {
		out.Hits = append(out.Hits, res.Hits...)
	}

	return out, nil
}

func (c *Clusterizer) sensor(id vxd.ID) (*vxd.Sensor, error) {
	sensor, err := c.geo.Sensor(id)
	if err != nil {
		return nil, err
	}
	if sensor.Type != vxd.PXD {
		return nil, fmt.Errorf("%w: sensor %v is a %v sensor", ErrNotPXD, id, sensor.Type)
	}
	return sensor, nil
}

// ProcessSensor clusterizes the digits of a single sensor.
// Hits are returned by ascending cluster tag.
func (c *Clusterizer) ProcessSensor(sctx SensorContext) (SensorResult, error) {
	if sctx.Sensor == nil {
		return SensorResult{}, fmt.Errorf("cluster: nil sensor")
	}
	if sctx.Sensor.Type != vxd.PXD {
		return SensorResult{}, fmt.Errorf("%w: sensor %v is a %v sensor", ErrNotPXD, sctx.Sensor.ID, sctx.Sensor.Type)
	}

	out := SensorResult{Sensor: sctx.Sensor.ID}
	digits := make([]Digit, 0, len(sctx.Digits))
	for _, d := range sctx.Digits {
		if !sctx.Sensor.InRange(vxd.U, d.U) || !sctx.Sensor.InRange(vxd.V, d.V) {
			out.Dropped++
			continue
		}
		d.Charge = c.cfg.quantize(d.Charge)
		digits = append(digits, d)
	}
	if out.Dropped > 0 {
		c.msg.Printf("sensor %v: dropped %d digits outside of the sensor", sctx.Sensor.ID, out.Dropped)
	}

	idx := NewIndex(sctx.Sensor, digits, c.cfg.adjacentCut())
	_, err := NewBuilder(idx).Build(c.cfg.seedCut())
	if err != nil {
		return out, err
	}

	clusters, err := Clusters(idx)
	if err != nil {
		return out, err
	}
	kept := Filter(clusters, c.cfg.clusterCut())
	out.Clusters = len(clusters)
	out.Rejected = len(clusters) - len(kept)

	est := Estimator{
		Sensor:     sctx.Sensor,
		Resolution: c.res,
		TanLorentz: c.cfg.TanLorentz,
	}
	out.Hits = make([]Hit, len(kept))
	for i, cl := range kept {
		hit := est.Hit(idx, cl)
		hit.Truths = TruthRelations(sctx.Truths, hit.Digits)
		out.Hits[i] = hit
	}

	return out, nil
}
