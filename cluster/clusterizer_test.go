// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/pxd/vxd"
	"github.com/google/go-cmp/cmp"
)

const noise = 200

func newTestGeometry() *vxd.Cache {
	svd := newTestSensor(sidT)
	svd.Type = vxd.SVD
	return vxd.NewCache(
		newTestSensor(sid1),
		newTestSensor(sid2),
		svd,
	)
}

func newTestClusterizer(t *testing.T, opts ...Option) *Clusterizer {
	t.Helper()
	opts = append([]Option{
		WithLogger(log.New(io.Discard, "", 0)),
		WithNoise(noise),
		WithTanLorentz(0),
	}, opts...)
	c, err := New(newTestGeometry(), nil, opts...)
	if err != nil {
		t.Fatalf("could not create clusterizer: %+v", err)
	}
	return c
}

// randomDigits generates n digits on distinct cells, with an exponential
// charge spectrum, in a small area to favour multi-digit clusters.
func randomDigits(id vxd.ID, seed int64, n int) []Digit {
	var (
		rnd    = rand.New(rand.NewSource(seed))
		used   = make(map[cell]struct{}, n)
		digits = make([]Digit, 0, n)
	)
	for len(digits) < n {
		c := cell{u: rnd.Intn(100), v: rnd.Intn(200)}
		if _, dup := used[c]; dup {
			continue
		}
		used[c] = struct{}{}
		digits = append(digits, Digit{
			Sensor: id,
			U:      c.u,
			V:      c.v,
			Charge: math.Round(rnd.ExpFloat64() * 3 * noise),
			Index:  len(digits),
		})
	}
	return digits
}

func randomEvent(seed int64) Event {
	var (
		d1     = randomDigits(sid1, seed, 3000)
		d2     = randomDigits(sid2, seed+1, 1500)
		digits = make([]Digit, 0, len(d1)+len(d2))
		truths = make(TruthMap)
	)
	// interleave sensors to check the grouping.
	for i := 0; i < len(d1) || i < len(d2); i++ {
		if i < len(d2) {
			digits = append(digits, d2[i])
		}
		if i < len(d1) {
			digits = append(digits, d1[i])
		}
	}
	for i := range digits {
		digits[i].Index = i
		truths[i] = []Truth{{Particle: i % 7, Weight: digits[i].Charge}}
	}
	return Event{Run: 1, Number: int(seed), Digits: digits, Truths: truths}
}

func TestScenarios(t *testing.T) {
	s := newTestSensor(sid1)
	for _, tc := range []struct {
		name   string
		opts   []Option
		digits []Digit
		want   []Hit
	}{
		{
			name: "A-isolated",
			digits: []Digit{
				{Sensor: sid1, U: 10, V: 10, Charge: 20 * noise, Index: 0},
			},
			want: []Hit{{
				Sensor:     sid1,
				U:          s.CellPosition(vxd.U, 10),
				V:          s.CellPosition(vxd.V, 10),
				EDep:       20 * noise,
				SeedCharge: 20 * noise,
				Size:       1, USize: 1, VSize: 1,
				Digits: []DigitRelation{{Digit: 0, Charge: 20 * noise}},
			}},
		},
		{
			name: "B-adjacent",
			digits: []Digit{
				{Sensor: sid1, U: 10, V: 10, Charge: 6 * noise, Index: 0},
				{Sensor: sid1, U: 10, V: 11, Charge: 4 * noise, Index: 1},
			},
			want: []Hit{{
				Sensor:     sid1,
				U:          s.CellPosition(vxd.U, 10),
				V:          s.CellPosition(vxd.V, 10) + (4.0*noise)/(4*noise+6*noise)*s.VPitch,
				EDep:       10 * noise,
				SeedCharge: 6 * noise,
				Size:       2, USize: 1, VSize: 2,
				Digits: []DigitRelation{
					{Digit: 0, Charge: 6 * noise},
					{Digit: 1, Charge: 4 * noise},
				},
			}},
		},
		{
			name: "C-head-tail",
			opts: []Option{WithSeedSN(3), WithAdjacentSN(2)},
			digits: []Digit{
				{Sensor: sid1, U: 5, V: 20, Charge: 3 * noise, Index: 0},
				{Sensor: sid1, U: 6, V: 20, Charge: 2 * noise, Index: 1},
				{Sensor: sid1, U: 7, V: 20, Charge: 3 * noise, Index: 2},
			},
			want: []Hit{{
				Sensor: sid1,
				U: 0.5*(s.CellPosition(vxd.U, 5)+s.CellPosition(vxd.U, 7)) +
					0.5*(3*noise-3*noise)/(2*noise)*s.UPitch,
				V:          s.CellPosition(vxd.V, 20),
				EDep:       8 * noise,
				SeedCharge: 3 * noise,
				Size:       3, USize: 3, VSize: 1,
				Digits: []DigitRelation{
					{Digit: 0, Charge: 3 * noise},
					{Digit: 1, Charge: 2 * noise},
					{Digit: 2, Charge: 3 * noise},
				},
			}},
		},
		{
			name: "D-separated",
			digits: []Digit{
				{Sensor: sid1, U: 0, V: 0, Charge: 10 * noise, Index: 0},
				{Sensor: sid1, U: 5, V: 5, Charge: 10 * noise, Index: 1},
			},
			want: []Hit{
				{
					Sensor:     sid1,
					U:          s.CellPosition(vxd.U, 0),
					V:          s.CellPosition(vxd.V, 0),
					EDep:       10 * noise,
					SeedCharge: 10 * noise,
					Size:       1, USize: 1, VSize: 1,
					Digits: []DigitRelation{{Digit: 0, Charge: 10 * noise}},
				},
				{
					Sensor:     sid1,
					U:          s.CellPosition(vxd.U, 5),
					V:          s.CellPosition(vxd.V, 5),
					EDep:       10 * noise,
					SeedCharge: 10 * noise,
					Size:       1, USize: 1, VSize: 1,
					Digits: []DigitRelation{{Digit: 1, Charge: 10 * noise}},
				},
			},
		},
		{
			name: "assigned-seed",
			digits: []Digit{
				{Sensor: sid1, U: 10, V: 10, Charge: 20 * noise, Index: 0},
				{Sensor: sid1, U: 10, V: 11, Charge: 10 * noise, Index: 1},
				{Sensor: sid1, U: 10, V: 12, Charge: 4 * noise, Index: 2},
			},
			want: []Hit{{
				Sensor:     sid1,
				U:          s.CellPosition(vxd.U, 10),
				V:          s.CellPosition(vxd.V, 10) + (10.0*noise)/(10*noise+20*noise)*s.VPitch,
				EDep:       30 * noise,
				SeedCharge: 20 * noise,
				Size:       2, USize: 1, VSize: 2,
				Digits: []DigitRelation{
					{Digit: 0, Charge: 20 * noise},
					{Digit: 1, Charge: 10 * noise},
				},
			}},
		},
		{
			name: "below-total-cut",
			digits: []Digit{
				{Sensor: sid1, U: 10, V: 10, Charge: 5 * noise, Index: 0},
				{Sensor: sid1, U: 10, V: 11, Charge: 3 * noise, Index: 1},
				{Sensor: sid1, U: 100, V: 100, Charge: 7 * noise, Index: 2},
			},
			want: []Hit{{
				Sensor:     sid1,
				U:          s.CellPosition(vxd.U, 10),
				V:          s.CellPosition(vxd.V, 10) + (3.0*noise)/(3*noise+5*noise)*s.VPitch,
				EDep:       8 * noise,
				SeedCharge: 5 * noise,
				Size:       2, USize: 1, VSize: 2,
				Digits: []DigitRelation{
					{Digit: 0, Charge: 5 * noise},
					{Digit: 1, Charge: 3 * noise},
				},
			}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClusterizer(t, tc.opts...)
			res, err := c.Process(context.Background(), Event{Digits: tc.digits})
			if err != nil {
				t.Fatalf("could not process event: %+v", err)
			}
			for i := range tc.want {
				tc.want[i].UErr = s.UPitch * 0.28867513459481287
				tc.want[i].VErr = s.VPitch * 0.28867513459481287
			}
			if diff := cmp.Diff(tc.want, res.Hits); diff != "" {
				t.Fatalf("invalid hits (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScenarioSeedBelowAdjacent(t *testing.T) {
	buf := new(bytes.Buffer)
	c, err := New(
		newTestGeometry(), nil,
		WithLogger(log.New(buf, "", 0)),
		WithNoise(noise),
		WithSeedSN(2),
		WithAdjacentSN(4),
		WithTotalSN(2),
	)
	if err != nil {
		t.Fatalf("could not create clusterizer: %+v", err)
	}
	if got, want := buf.String(), "seed S/N cut (2) below adjacent S/N cut (4)"; !strings.Contains(got, want) {
		t.Fatalf("invalid log message:\ngot= %q\nwant=%q", got, want)
	}

	res, err := c.Process(context.Background(), Event{
		Digits: []Digit{
			{Sensor: sid1, U: 10, V: 10, Charge: 3 * noise, Index: 0},
			{Sensor: sid1, U: 10, V: 11, Charge: 5 * noise, Index: 1},
			{Sensor: sid1, U: 50, V: 50, Charge: 2.5 * noise, Index: 2},
		},
	})
	if err != nil {
		t.Fatalf("could not process event: %+v", err)
	}

	if got, want := len(res.Hits), 2; got != want {
		t.Fatalf("invalid number of hits: got=%d, want=%d", got, want)
	}
	if got, want := res.Hits[0].EDep, 8.0*noise; got != want {
		t.Fatalf("invalid first hit charge: got=%v, want=%v", got, want)
	}
	if got, want := res.Hits[1].EDep, 2.5*noise; got != want {
		t.Fatalf("invalid second hit charge: got=%v, want=%v", got, want)
	}
}

func TestProcessSkipped(t *testing.T) {
	var (
		buf     = new(bytes.Buffer)
		unknown = vxd.NewID(4, 2, 1)
	)
	c := newTestClusterizer(t, WithLogger(log.New(buf, "pxd: ", 0)))
	res, err := c.Process(context.Background(), Event{
		Run:    2,
		Number: 3,
		Digits: []Digit{
			{Sensor: unknown, U: 1, V: 1, Charge: 4000, Index: 0},
			{Sensor: sidT, U: 1, V: 1, Charge: 4000, Index: 1},
			{Sensor: sidT, U: 1, V: 2, Charge: 4000, Index: 2},
			{Sensor: sid1, U: 1, V: 1, Charge: 4000, Index: 3},
		},
	})
	if err != nil {
		t.Fatalf("could not process event: %+v", err)
	}

	if got, want := len(res.Hits), 1; got != want {
		t.Fatalf("invalid number of hits: got=%d, want=%d", got, want)
	}
	if got, want := res.Hits[0].Digits[0].Digit, 3; got != want {
		t.Fatalf("invalid hit digit: got=%d, want=%d", got, want)
	}

	if got, want := len(res.Skipped), 2; got != want {
		t.Fatalf("invalid number of skipped sensors: got=%d, want=%d", got, want)
	}
	for i, tc := range []struct {
		id     vxd.ID
		digits int
		err    error
	}{
		{sidT, 2, ErrNotPXD},
		{unknown, 1, vxd.ErrUnknownSensor},
	} {
		sk := res.Skipped[i]
		if sk.Sensor != tc.id {
			t.Fatalf("skipped[%d]: invalid sensor: got=%v, want=%v", i, sk.Sensor, tc.id)
		}
		if sk.Digits != tc.digits {
			t.Fatalf("skipped[%d]: invalid number of digits: got=%d, want=%d", i, sk.Digits, tc.digits)
		}
		if !errors.Is(sk.Err, tc.err) {
			t.Fatalf("skipped[%d]: invalid error: got=%+v, want=%+v", i, sk.Err, tc.err)
		}
	}

	if got, want := strings.Count(buf.String(), "pxd: run 2 event 3: skipping"), 2; got != want {
		t.Fatalf("invalid number of log messages: got=%d, want=%d\n%s", got, want, buf.String())
	}
}

func TestProcessSensorErrors(t *testing.T) {
	c := newTestClusterizer(t)

	_, err := c.ProcessSensor(SensorContext{})
	if err == nil {
		t.Fatalf("expected an error")
	}

	svd := newTestSensor(sidT)
	svd.Type = vxd.SVD
	_, err = c.ProcessSensor(SensorContext{Sensor: svd})
	if !errors.Is(err, ErrNotPXD) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrNotPXD)
	}
}

func TestProcessSensorDropped(t *testing.T) {
	c := newTestClusterizer(t)
	res, err := c.ProcessSensor(SensorContext{
		Sensor: newTestSensor(sid1),
		Digits: []Digit{
			{U: -1, V: 10, Charge: 4000},
			{U: 250, V: 10, Charge: 4000},
			{U: 10, V: 768, Charge: 4000},
			{U: 10, V: 10, Charge: 4000},
		},
	})
	if err != nil {
		t.Fatalf("could not process sensor: %+v", err)
	}
	if got, want := res.Dropped, 3; got != want {
		t.Fatalf("invalid number of dropped digits: got=%d, want=%d", got, want)
	}
	if got, want := len(res.Hits), 1; got != want {
		t.Fatalf("invalid number of hits: got=%d, want=%d", got, want)
	}
}

func TestProcessEmpty(t *testing.T) {
	c := newTestClusterizer(t)
	res, err := c.Process(context.Background(), Event{Run: 1, Number: 2})
	if err != nil {
		t.Fatalf("could not process event: %+v", err)
	}
	if len(res.Hits) != 0 || len(res.Sensors) != 0 || len(res.Skipped) != 0 {
		t.Fatalf("invalid result: %+v", res)
	}
	if res.Run != 1 || res.Number != 2 {
		t.Fatalf("invalid event numbering: got=(%d, %d), want=(1, 2)", res.Run, res.Number)
	}
}

func TestProcessCanceled(t *testing.T) {
	c := newTestClusterizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Process(ctx, randomEvent(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, context.Canceled)
	}
}

func TestProcessProperties(t *testing.T) {
	c := newTestClusterizer(t)
	cfg := c.Config()

	for _, seed := range []int64{1, 2, 3} {
		evt := randomEvent(seed)
		res, err := c.Process(context.Background(), evt)
		if err != nil {
			t.Fatalf("seed=%d: could not process event: %+v", seed, err)
		}
		if len(res.Hits) == 0 {
			t.Fatalf("seed=%d: no hits", seed)
		}

		var (
			byIndex = make(map[int]Digit, len(evt.Digits))
			seen    = make(map[int]int)
			prev    vxd.ID
		)
		for _, d := range evt.Digits {
			byIndex[d.Index] = d
		}

		for ih, hit := range res.Hits {
			if hit.Sensor < prev {
				t.Fatalf("seed=%d: hits not sorted by sensor: %v after %v", seed, hit.Sensor, prev)
			}
			prev = hit.Sensor

			// charge conservation.
			var sum float64
			for _, rel := range hit.Digits {
				d := byIndex[rel.Digit]
				if rel.Charge != d.Charge {
					t.Fatalf("seed=%d hit=%d: invalid digit charge: got=%v, want=%v", seed, ih, rel.Charge, d.Charge)
				}
				if d.Sensor != hit.Sensor {
					t.Fatalf("seed=%d hit=%d: digit from sensor %v in hit of sensor %v", seed, ih, d.Sensor, hit.Sensor)
				}
				sum += d.Charge
				if j, dup := seen[rel.Digit]; dup {
					t.Fatalf("seed=%d: digit %d in hits %d and %d", seed, rel.Digit, j, ih)
				}
				seen[rel.Digit] = ih
			}
			if sum != hit.EDep {
				t.Fatalf("seed=%d hit=%d: charge not conserved: sum=%v, edep=%v", seed, ih, sum, hit.EDep)
			}

			// threshold.
			if hit.EDep < cfg.Noise*cfg.TotalSN {
				t.Fatalf("seed=%d hit=%d: charge below cut: %v", seed, ih, hit.EDep)
			}
			if hit.SeedCharge < cfg.Noise*cfg.SeedSN {
				t.Fatalf("seed=%d hit=%d: seed charge below cut: %v", seed, ih, hit.SeedCharge)
			}

			// connectivity.
			if !connected(hit, byIndex) {
				t.Fatalf("seed=%d hit=%d: disconnected cluster: %+v", seed, ih, hit.Digits)
			}

			// truth.
			var wsum float64
			for _, tr := range hit.Truths {
				wsum += tr.Weight
			}
			if math.Abs(wsum-hit.EDep) > 1e-9*hit.EDep {
				t.Fatalf("seed=%d hit=%d: invalid truth weights: got=%v, want=%v", seed, ih, wsum, hit.EDep)
			}
		}
	}
}

// connected checks all the digits of a hit are linked by 8-connected
// digits of the same hit.
func connected(hit Hit, digits map[int]Digit) bool {
	if len(hit.Digits) == 0 {
		return false
	}
	var (
		visited = make([]bool, len(hit.Digits))
		queue   = []int{0}
		n       = 1
	)
	visited[0] = true
	for len(queue) > 0 {
		cur := digits[hit.Digits[queue[0]].Digit]
		queue = queue[1:]
		for j, rel := range hit.Digits {
			if visited[j] {
				continue
			}
			d := digits[rel.Digit]
			if abs(d.U-cur.U) <= 1 && abs(d.V-cur.V) <= 1 {
				visited[j] = true
				queue = append(queue, j)
				n++
			}
		}
	}
	return n == len(hit.Digits)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestProcessDeterminism(t *testing.T) {
	evt := randomEvent(42)

	c := newTestClusterizer(t)
	want, err := c.Process(context.Background(), evt)
	if err != nil {
		t.Fatalf("could not process event: %+v", err)
	}

	for _, workers := range []int{1, 2, 4, 8} {
		c := newTestClusterizer(t, WithWorkers(workers))
		for i := 0; i < 3; i++ {
			got, err := c.Process(context.Background(), evt)
			if err != nil {
				t.Fatalf("workers=%d: could not process event: %+v", workers, err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("workers=%d run=%d: non deterministic result", workers, i)
			}
		}
	}
}

func TestProcessADC(t *testing.T) {
	c := newTestClusterizer(t, WithADC(64*noise, 6))
	res, err := c.Process(context.Background(), Event{
		Digits: []Digit{
			{Sensor: sid1, U: 10, V: 10, Charge: 20.7 * noise, Index: 0},
			{Sensor: sid1, U: 20, V: 20, Charge: 100 * noise, Index: 1},
			{Sensor: sid1, U: 30, V: 30, Charge: 7.9 * noise, Index: 2},
		},
	})
	if err != nil {
		t.Fatalf("could not process event: %+v", err)
	}

	var got []float64
	for _, hit := range res.Hits {
		got = append(got, hit.EDep)
	}
	// 7.9 noise units quantize to 7 units: below the total charge cut.
	want := []float64{63 * noise, 20 * noise}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid quantized charges: got=%v, want=%v", got, want)
	}
	if got, want := res.Sensors[0].Rejected, 1; got != want {
		t.Fatalf("invalid number of rejected clusters: got=%d, want=%d", got, want)
	}
}
