// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pxd-split splits a raw pixel data file into n raw files,
// one per detector layer.
package main // import "github.com/go-lpc/pxd/cmd/pxd-split"

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-lpc/pxd/rawfmt"
	"github.com/go-lpc/pxd/vxd"
)

var (
	msg = log.New(os.Stdout, "pxd-split: ", 0)
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("pxd-split", flag.ExitOnError)

		oname = fset.String("o", "out.raw", "path to output raw file")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: pxd-split [OPTIONS] file.raw

ex:
 $> pxd-split -o out.raw ./pxd_063.raw
 pxd-split: creating output file "out-L01.raw"...
 pxd-split: creating output file "out-L02.raw"...

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		msg.Fatalf("missing input raw file")
	}

	if *oname == "" {
		fset.Usage()
		msg.Fatalf("invalid output raw file")
	}

	for _, arg := range fset.Args() {
		err := process(*oname, arg)
		if err != nil {
			msg.Fatalf("could not split raw file %q: %+v", arg, err)
		}
	}
}

type output struct {
	f   *os.File
	w   *bufio.Writer
	enc *rawfmt.Encoder
}

func process(oname string, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open raw file: %w", err)
	}
	defer f.Close()

	out := make(map[int]*output)
	defer func() {
		for _, o := range out {
			o.f.Close()
		}
	}()

	dec := rawfmt.NewDecoder(bufio.NewReader(f))

loop:
	for {
		var evt rawfmt.Event
		err := dec.Decode(&evt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return fmt.Errorf("could not decode raw event: %w", err)
		}

		for _, layer := range split(evt) {
			o, ok := out[layer.id]
			if !ok {
				oid := outFileFrom(oname, layer.id)
				msg.Printf("creating output file %q...", oid)
				f, err := os.Create(oid)
				if err != nil {
					return fmt.Errorf("could not create output file: %w", err)
				}
				w := bufio.NewWriter(f)
				o = &output{f: f, w: w, enc: rawfmt.NewEncoder(w)}
				out[layer.id] = o
			}

			err = o.enc.Encode(&layer.evt)
			if err != nil {
				return fmt.Errorf("could not encode raw event: %w", err)
			}
		}
	}

	for id, o := range out {
		err := o.w.Flush()
		if err != nil {
			return fmt.Errorf("could not flush output file for layer %d: %w", id, err)
		}
		err = o.f.Close()
		if err != nil {
			return fmt.Errorf("could not close output file for layer %d: %w", id, err)
		}
	}

	return nil
}

type layerEvent struct {
	id  int
	evt rawfmt.Event
}

// split splits an event into per-layer events, in ascending layer order.
func split(evt rawfmt.Event) []layerEvent {
	var (
		idx = make(map[int]int)
		out []layerEvent
	)
	for _, frame := range evt.Frames {
		layer := vxd.ID(frame.Sensor).Layer()
		i, ok := idx[layer]
		if !ok {
			i = len(out)
			idx[layer] = i
			out = append(out, layerEvent{
				id:  layer,
				evt: rawfmt.Event{Run: evt.Run, Number: evt.Number},
			})
		}
		out[i].evt.Frames = append(out[i].evt.Frames, frame)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].id < out[j].id
	})
	return out
}

func outFileFrom(fname string, layer int) string {
	var (
		ext   = filepath.Ext(fname)
		oname = strings.TrimSuffix(fname, ext) + fmt.Sprintf("-L%02d%s", layer, ext)
	)
	return oname
}
