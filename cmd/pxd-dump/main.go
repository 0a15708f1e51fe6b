// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// pxd-dump decodes and displays raw pixel data files.
//
// Usage: pxd-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> pxd-dump ./testdata/pxd_063.raw
//	=== event 1 (run 63) ===
//	frames:          1
//	pixels:          2
//	  sensor=1.1.1 pixels=2
//	    u=  10 v=  10 q=    3000.0
//	    u=  11 v=  10 q=    1500.0
//	[...]
package main // import "github.com/go-lpc/pxd/cmd/pxd-dump"

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/pxd/rawfmt"
	"github.com/go-lpc/pxd/vxd"
)

const usage = `pxd-dump decodes and displays raw pixel data files.

Usage: pxd-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> pxd-dump ./testdata/pxd_063.raw
 === event 1 (run 63) ===
 frames:          1
 pixels:          2
   sensor=1.1.1 pixels=2
     u=  10 v=  10 q=    3000.0
     u=  11 v=  10 q=    1500.0
 [...]

`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("pxd-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("pxd-dump", flag.ExitOnError)

		truth = fset.Bool("truth", false, "display simulated truth contributions")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input raw file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *truth)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, truth bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

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
		fmt.Fprintf(wbuf, "=== event %d (run %d) ===\n", evt.Number, evt.Run)
		fmt.Fprintf(wbuf, "frames: % 10d\n", len(evt.Frames))
		fmt.Fprintf(wbuf, "pixels: % 10d\n", evt.NumPixels())

		for _, frame := range evt.Frames {
			fmt.Fprintf(wbuf, "  sensor=%v pixels=%d\n", vxd.ID(frame.Sensor), len(frame.Pixels))
			for _, pix := range frame.Pixels {
				fmt.Fprintf(wbuf, "    u=% 4d v=% 4d q=% 10.1f\n", pix.U, pix.V, pix.Charge)
				if !truth {
					continue
				}
				for _, tr := range pix.Truths {
					fmt.Fprintf(wbuf, "      particle=%d weight=%g\n", tr.Particle, tr.Weight)
				}
			}
		}
	}

	return nil
}
