// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-lpc/pxd/rawfmt"
	"github.com/go-lpc/pxd/vxd"
)

func init() {
	msg.SetOutput(io.Discard)
}

func TestSplit(t *testing.T) {
	tmpdir, err := os.MkdirTemp("", "pxd-split-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpdir)

	oname := filepath.Join(tmpdir, "out.raw")

	f, err := os.Create(filepath.Join(tmpdir, "pxd.raw"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var (
		l1a = rawfmt.Frame{
			Sensor: uint16(vxd.NewID(1, 1, 1)),
			Pixels: []rawfmt.Pixel{{U: 1, V: 2, Charge: 3000}},
		}
		l1b = rawfmt.Frame{
			Sensor: uint16(vxd.NewID(1, 4, 2)),
			Pixels: []rawfmt.Pixel{{U: 3, V: 4, Charge: 2000}},
		}
		l2 = rawfmt.Frame{
			Sensor: uint16(vxd.NewID(2, 1, 1)),
			Pixels: []rawfmt.Pixel{{U: 5, V: 6, Charge: 1000}},
		}
	)

	evts := []rawfmt.Event{
		{Run: 63, Number: 1, Frames: []rawfmt.Frame{l2, l1a, l1b}},
		{Run: 63, Number: 2, Frames: []rawfmt.Frame{l1b}},
		{Run: 63, Number: 3},
	}

	enc := rawfmt.NewEncoder(f)
	for i := range evts {
		err = enc.Encode(&evts[i])
		if err != nil {
			t.Fatal(err)
		}
	}

	err = f.Close()
	if err != nil {
		t.Fatalf("could not close input file: %+v", err)
	}

	xmain([]string{"-o", oname, f.Name()})

	for _, tc := range []struct {
		fname string
		want  []rawfmt.Event
	}{
		{
			fname: filepath.Join(tmpdir, "out-L01.raw"),
			want: []rawfmt.Event{
				{Run: 63, Number: 1, Frames: []rawfmt.Frame{l1a, l1b}},
				{Run: 63, Number: 2, Frames: []rawfmt.Frame{l1b}},
			},
		},
		{
			fname: filepath.Join(tmpdir, "out-L02.raw"),
			want: []rawfmt.Event{
				{Run: 63, Number: 1, Frames: []rawfmt.Frame{l2}},
			},
		},
	} {
		f, err := os.Open(tc.fname)
		if err != nil {
			t.Fatalf("could not open split file: %+v", err)
		}
		defer f.Close()

		var (
			dec = rawfmt.NewDecoder(f)
			got []rawfmt.Event
		)
		for {
			var evt rawfmt.Event
			err := dec.Decode(&evt)
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				t.Fatalf("could not decode event from %q: %+v", tc.fname, err)
			}
			got = append(got, evt)
		}

		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("invalid split for %q:\ngot= %+v\nwant=%+v", tc.fname, got, tc.want)
		}
	}
}

func TestOutFileFrom(t *testing.T) {
	for _, tc := range []struct {
		fname string
		layer int
		want  string
	}{
		{"out.raw", 1, "out-L01.raw"},
		{"/data/pxd_063.raw", 2, "/data/pxd_063-L02.raw"},
		{"run.063.raw", 12, "run.063-L12.raw"},
	} {
		t.Run(tc.want, func(t *testing.T) {
			if got, want := outFileFrom(tc.fname, tc.layer), tc.want; got != want {
				t.Fatalf("invalid output file name: got=%q, want=%q", got, want)
			}
		})
	}
}
