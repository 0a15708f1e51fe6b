// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// lcio-dump decodes and displays pixel digits and hits embedded in LCIO files.
//
// Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> lcio-dump ./testdata/pxd_063.lcio
//	=== event 1 (run 63) ===
//	digits:          3
//	  sensor=1.1.1 u=  10 v=  10 q=    3000.0
//	  sensor=1.1.1 u=  11 v=  10 q=    1500.0
//	  sensor=1.1.1 u= 100 v= 300 q=     900.0
//	hits:            1
//	  sensor=1.1.1 u=-0.572500 v=-2.801250 size=2 (2x1) q=    4500.0 seed=    3000.0
//	[...]
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/pxd/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

const usage = `lcio-dump decodes and displays pixel digits and hits embedded in LCIO files.

Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> lcio-dump ./testdata/pxd_063.lcio
 === event 1 (run 63) ===
 digits:          3
   sensor=1.1.1 u=  10 v=  10 q=    3000.0
   sensor=1.1.1 u=  11 v=  10 q=    1500.0
   sensor=1.1.1 u= 100 v= 300 q=     900.0
 hits:            1
   sensor=1.1.1 u=-0.572500 v=-2.801250 size=2 (2x1) q=    4500.0 seed=    3000.0
 [...]

`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("lcio-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("lcio", flag.ExitOnError)

		digits = fset.Bool("digits", true, "display digits")
		hits   = fset.Bool("hits", true, "display hits")
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
		log.Fatalf("missing path to input LCIO file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *digits, *hits)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, digits, hits bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	for r.Next() {
		levt := r.Event()
		evt, err := xcnv.FromLCIO(&levt)
		if err != nil {
			return fmt.Errorf("could not decode digits: %w", err)
		}

		fmt.Fprintf(wbuf, "=== event %d (run %d) ===\n", evt.Number, evt.Run)
		if digits {
			fmt.Fprintf(wbuf, "digits: % 10d\n", len(evt.Digits))
			for _, d := range evt.Digits {
				fmt.Fprintf(wbuf, "  sensor=%v u=% 4d v=% 4d q=% 10.1f\n", d.Sensor, d.U, d.V, d.Charge)
			}
		}

		if !hits || levt.Get(xcnv.HitsName) == nil {
			continue
		}

		hs, err := xcnv.HitsFromLCIO(&levt)
		if err != nil {
			return fmt.Errorf("could not decode hits: %w", err)
		}
		fmt.Fprintf(wbuf, "hits:   % 10d\n", len(hs))
		for _, h := range hs {
			fmt.Fprintf(wbuf,
				"  sensor=%v u=%f v=%f size=%d (%dx%d) q=% 10.1f seed=% 10.1f\n",
				h.Sensor, h.U, h.V, h.Size, h.USize, h.VSize, h.EDep, h.SeedCharge,
			)
		}
	}

	err = r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}

	return nil
}
