// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-lpc/pxd/cluster"
	"github.com/go-lpc/pxd/internal/xcnv"
	"github.com/go-lpc/pxd/rawfmt"
	"github.com/go-lpc/pxd/vxd"
	"go-hep.org/x/hep/lcio"
)

func init() {
	log.SetOutput(io.Discard)
}

func TestLCIO2RAW(t *testing.T) {
	tmp, err := os.MkdirTemp("", "pxd-lcio2raw-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	sid := vxd.NewID(2, 1, 1)
	evts := []cluster.Event{
		{
			Run: 42, Number: 1,
			Digits: []cluster.Digit{
				{Sensor: sid, U: 1, V: 2, Charge: 3000, Index: 0},
				{Sensor: sid, U: 1, V: 3, Charge: 1000, Index: 1},
			},
			Truths: cluster.TruthMap{1: {{Particle: 5, Weight: 1000}}},
		},
		{Run: 42, Number: 2},
	}

	fname := filepath.Join(tmp, "digits.lcio")
	w, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer w.Close()

	rhdr := xcnv.RunHeader(42)
	err = w.WriteRunHeader(&rhdr)
	if err != nil {
		t.Fatalf("could not write run header: %+v", err)
	}
	for _, evt := range evts {
		levt := xcnv.NewEvent(evt, nil)
		err = w.WriteEvent(&levt)
		if err != nil {
			t.Fatalf("could not write LCIO event: %+v", err)
		}
	}

	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}

	n, err := numEvents(fname)
	if err != nil {
		t.Fatalf("could not count events: %+v", err)
	}
	if got, want := n, int64(len(evts)); got != want {
		t.Fatalf("invalid number of events: got=%d, want=%d", got, want)
	}

	oname := filepath.Join(tmp, "out.raw")
	err = process(oname, fname, 1)
	if err != nil {
		t.Fatalf("could not convert LCIO file: %+v", err)
	}

	f, err := os.Open(oname)
	if err != nil {
		t.Fatalf("could not open raw file: %+v", err)
	}
	defer f.Close()

	var (
		dec = rawfmt.NewDecoder(bufio.NewReader(f))
		got []rawfmt.Event
	)
	for {
		var evt rawfmt.Event
		err := dec.Decode(&evt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatalf("could not decode raw event: %+v", err)
		}
		got = append(got, evt)
	}

	want := []rawfmt.Event{
		{
			Run: 42, Number: 1,
			Frames: []rawfmt.Frame{{
				Sensor: uint16(sid),
				Pixels: []rawfmt.Pixel{
					{U: 1, V: 2, Charge: 3000},
					{U: 1, V: 3, Charge: 1000, Truths: []rawfmt.Truth{{Particle: 5, Weight: 1000}}},
				},
			}},
		},
		{Run: 42, Number: 2},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid raw events:\ngot= %+v\nwant=%+v", got, want)
	}
}
