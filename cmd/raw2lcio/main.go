// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command raw2lcio converts a raw pixel data file to an LCIO one.
package main // import "github.com/go-lpc/pxd/cmd/raw2lcio"

import (
	"compress/flate"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-lpc/pxd/internal/mmap"
	"github.com/go-lpc/pxd/internal/xcnv"
	"github.com/go-lpc/pxd/rawfmt"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "raw2lcio: ", 0)
)

func main() {
	var (
		oname = flag.String("o", "out.lcio", "path to output LCIO file")
		compr = flag.Int("lvl", flate.DefaultCompression, "compression level for output LCIO file")
		freq  = flag.Int("freq", 100, "event frequency for progress reports")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: raw2lcio [OPTIONS] file.raw

ex:
 $> raw2lcio -o out.lcio -lvl=9 ./pxd_063.raw

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input raw file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output LCIO file name")
	}

	err := process(*oname, *compr, *freq, flag.Arg(0))
	if err != nil {
		msg.Fatalf("could not convert raw file: %+v", err)
	}
}

func process(oname string, lvl, freq int, fname string) error {
	h, err := mmap.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open raw file: %w", err)
	}
	defer h.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	dec := rawfmt.NewDecoder(h.Reader())
	err = xcnv.RAW2LCIO(w, dec, freq, msg)
	if err != nil {
		return fmt.Errorf("could not convert raw file to LCIO: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	return nil
}
