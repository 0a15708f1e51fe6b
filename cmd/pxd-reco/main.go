// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pxd-reco reconstructs pixel hits from raw or LCIO digits files.
//
// Usage: pxd-reco [OPTIONS] FILE
//
// Example:
//
//	$> pxd-reco -geo ./geometry.json -o out.lcio -dqm out.yoda ./pxd_063.raw
//	pxd-reco: processing evt 0...
//	pxd-reco: processing evt 100...
//	pxd-reco: processed 142 events
package main // import "github.com/go-lpc/pxd/cmd/pxd-reco"

import (
	"compress/flate"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-lpc/pxd"
	"github.com/go-lpc/pxd/cluster"
	"github.com/go-lpc/pxd/conddb"
	"github.com/go-lpc/pxd/dqm"
	"github.com/go-lpc/pxd/internal/mmap"
	"github.com/go-lpc/pxd/internal/xcnv"
	"github.com/go-lpc/pxd/rawfmt"
	"github.com/go-lpc/pxd/vxd"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "pxd-reco: ", 0)
)

const usage = `Usage: pxd-reco [OPTIONS] FILE

ex:
 $> pxd-reco -geo ./geometry.json -o out.lcio -dqm out.yoda ./pxd_063.raw
 $> pxd-reco -db pxdcond -run 63 -o out.lcio -j 4 ./pxd_063.slcio

options:
`

type config struct {
	geo   string // path to a JSON geometry file
	db    string // name of the condition database
	run   int    // run number for the condition database parameters
	oname string
	lvl   int
	dqm   string // path to the output YODA file
	plots string // output directory of DQM plots
	freq  int
	nproc int

	opts []cluster.Option // explicit clusterizer settings
}

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	log.SetPrefix("pxd-reco: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("pxd-reco", flag.ExitOnError)
		cfg  config

		noise   = fset.Float64("noise", 200, "electronic noise (e-)")
		adjSN   = fset.Float64("adjacent-sn", 3, "S/N cut for adjacent digits")
		seedSN  = fset.Float64("seed-sn", 5, "S/N cut for seed digits")
		totalSN = fset.Float64("total-sn", 8, "S/N cut for cluster charge")
		tanLA   = fset.Float64("tan-lorentz", 0.25, "tangent of the Lorentz angle")
	)

	fset.StringVar(&cfg.geo, "geo", "", "path to JSON geometry file")
	fset.StringVar(&cfg.db, "db", "", "name of the condition database")
	fset.IntVar(&cfg.run, "run", -1, "run number for the condition database")
	fset.StringVar(&cfg.oname, "o", "out.lcio", "path to output LCIO file")
	fset.IntVar(&cfg.lvl, "lvl", flate.DefaultCompression, "compression level for output LCIO file")
	fset.StringVar(&cfg.dqm, "dqm", "", "path to output DQM YODA file")
	fset.StringVar(&cfg.plots, "plots", "", "output directory for DQM plots")
	fset.IntVar(&cfg.freq, "freq", 100, "event frequency for progress reports")
	fset.IntVar(&cfg.nproc, "j", 1, "number of concurrent sensor workers")

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		log.Fatalf("missing input digits file")
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "noise":
			cfg.opts = append(cfg.opts, cluster.WithNoise(*noise))
		case "adjacent-sn":
			cfg.opts = append(cfg.opts, cluster.WithAdjacentSN(*adjSN))
		case "seed-sn":
			cfg.opts = append(cfg.opts, cluster.WithSeedSN(*seedSN))
		case "total-sn":
			cfg.opts = append(cfg.opts, cluster.WithTotalSN(*totalSN))
		case "tan-lorentz":
			cfg.opts = append(cfg.opts, cluster.WithTanLorentz(*tanLA))
		}
	})

	vers, _ := pxd.Version()
	msg.Printf("pxd version %s", vers)

	err = process(context.Background(), cfg, fset.Arg(0))
	if err != nil {
		log.Fatalf("could not reconstruct %q: %+v", fset.Arg(0), err)
	}
}

func process(ctx context.Context, cfg config, fname string) error {
	clz, err := newClusterizer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("could not setup clusterizer: %w", err)
	}

	w, err := lcio.Create(cfg.oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(cfg.lvl)

	var (
		hists = dqm.New()
		n     = 0
	)
	err = readEvents(fname, func(evt cluster.Event) error {
		if cfg.freq > 0 && n%cfg.freq == 0 {
			msg.Printf("processing evt %d...", n)
		}
		if n == 0 {
			rhdr := xcnv.RunHeader(evt.Run)
			err := w.WriteRunHeader(&rhdr)
			if err != nil {
				return fmt.Errorf("could not write run header: %w", err)
			}
		}
		n++

		res, err := clz.Process(ctx, evt)
		if err != nil {
			return fmt.Errorf("could not clusterize event %d: %w", evt.Number, err)
		}
		hists.Fill(res)

		levt := xcnv.NewEvent(evt, &res)
		err = w.WriteEvent(&levt)
		if err != nil {
			return fmt.Errorf("could not write LCIO event %d: %w", evt.Number, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	if cfg.dqm != "" {
		err = writeDQM(cfg.dqm, hists)
		if err != nil {
			return fmt.Errorf("could not write DQM file: %w", err)
		}
	}

	if cfg.plots != "" {
		err = hists.Plot(cfg.plots)
		if err != nil {
			return fmt.Errorf("could not plot DQM histograms: %w", err)
		}
	}

	msg.Printf("processed %d events", n)
	return nil
}

func newClusterizer(ctx context.Context, cfg config) (*cluster.Clusterizer, error) {
	var (
		geo  *vxd.Cache
		res  vxd.Resolution
		opts []cluster.Option
	)

	switch {
	case cfg.geo != "" && cfg.db != "":
		return nil, fmt.Errorf("geometry file and condition database are mutually exclusive")

	case cfg.geo != "":
		f, err := os.Open(cfg.geo)
		if err != nil {
			return nil, fmt.Errorf("could not open geometry file: %w", err)
		}
		defer f.Close()

		geo, err = vxd.ReadJSON(f)
		if err != nil {
			return nil, fmt.Errorf("could not read geometry file %q: %w", cfg.geo, err)
		}

	case cfg.db != "":
		db, err := conddb.Open(cfg.db)
		if err != nil {
			return nil, fmt.Errorf("could not open condition database: %w", err)
		}
		defer db.Close()

		geo, err = db.Sensors(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not retrieve geometry: %w", err)
		}

		res, err = db.Resolutions(ctx, vxd.BinaryResolution{Geometry: geo})
		if err != nil {
			return nil, fmt.Errorf("could not retrieve resolutions: %w", err)
		}

		if cfg.run >= 0 {
			params, err := db.Params(ctx, cfg.run)
			switch {
			case errors.Is(err, conddb.ErrNoParams):
				msg.Printf("no clusterizer parameters for run %d, using defaults", cfg.run)
			case err != nil:
				return nil, fmt.Errorf("could not retrieve clusterizer parameters: %w", err)
			default:
				opts = append(opts, params.Options()...)
			}
		}

	default:
		return nil, fmt.Errorf("missing geometry file or condition database")
	}

	opts = append(opts, cfg.opts...)
	opts = append(opts, cluster.WithWorkers(cfg.nproc), cluster.WithLogger(msg))

	return cluster.New(geo, res, opts...)
}

func readEvents(fname string, f func(evt cluster.Event) error) error {
	switch filepath.Ext(fname) {
	case ".lcio", ".slcio":
		return readLCIO(fname, f)
	default:
		return readRaw(fname, f)
	}
}

func readRaw(fname string, f func(evt cluster.Event) error) error {
	h, err := mmap.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open raw file: %w", err)
	}
	defer h.Close()

	dec := rawfmt.NewDecoder(h.Reader())
	for {
		var raw rawfmt.Event
		err := dec.Decode(&raw)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("could not decode raw event: %w", err)
		}

		err = f(xcnv.FromRaw(&raw))
		if err != nil {
			return err
		}
	}
}

func readLCIO(fname string, f func(evt cluster.Event) error) error {
	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	for r.Next() {
		levt := r.Event()
		evt, err := xcnv.FromLCIO(&levt)
		if err != nil {
			return fmt.Errorf("could not read digits: %w", err)
		}
		err = f(evt)
		if err != nil {
			return err
		}
	}

	err = r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}
	return nil
}

func writeDQM(fname string, hists *dqm.DQM) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create DQM file: %w", err)
	}
	defer f.Close()

	err = hists.WriteYODA(f)
	if err != nil {
		return err
	}

	return f.Close()
}
