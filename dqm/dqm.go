// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dqm provides data quality monitoring histograms for the
// reconstructed pixel hits.
package dqm // import "github.com/go-lpc/pxd/dqm"

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-lpc/pxd/cluster"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/vg"
)

// DQM holds the monitoring histograms.
type DQM struct {
	Size   *hbook.H1D // number of digits per hit
	USize  *hbook.H1D // number of columns per hit
	VSize  *hbook.H1D // number of rows per hit
	Charge *hbook.H1D // hit charge
	Seed   *hbook.H1D // seed charge
	Hits   *hbook.H1D // number of hits per event

	hists []*hbook.H1D
	nevts int
}

type h1d struct {
	name  string
	title string
	nbins int
	xmin  float64
	xmax  float64
}

func newH1D(p h1d) *hbook.H1D {
	h := hbook.NewH1D(p.nbins, p.xmin, p.xmax)
	h.Annotation()["name"] = p.name
	h.Annotation()["title"] = p.title
	return h
}

// New creates a new set of monitoring histograms.
func New() *DQM {
	dqm := &DQM{
		Size:   newH1D(h1d{"cluster-size", "cluster size", 20, 0, 20}),
		USize:  newH1D(h1d{"cluster-usize", "cluster u-size", 10, 0, 10}),
		VSize:  newH1D(h1d{"cluster-vsize", "cluster v-size", 10, 0, 10}),
		Charge: newH1D(h1d{"cluster-charge", "cluster charge (e-)", 100, 0, 100e3}),
		Seed:   newH1D(h1d{"seed-charge", "seed charge (e-)", 100, 0, 50e3}),
		Hits:   newH1D(h1d{"hits", "hits per event", 100, 0, 500}),
	}
	dqm.hists = []*hbook.H1D{
		dqm.Size, dqm.USize, dqm.VSize,
		dqm.Charge, dqm.Seed, dqm.Hits,
	}
	return dqm
}

// Fill fills the histograms with the hits of an event.
func (dqm *DQM) Fill(res cluster.Result) {
	dqm.nevts++
	dqm.Hits.Fill(float64(len(res.Hits)), 1)
	for _, hit := range res.Hits {
		dqm.Size.Fill(float64(hit.Size), 1)
		dqm.USize.Fill(float64(hit.USize), 1)
		dqm.VSize.Fill(float64(hit.VSize), 1)
		dqm.Charge.Fill(hit.EDep, 1)
		dqm.Seed.Fill(hit.SeedCharge, 1)
	}
}

// Events returns the number of events filled so far.
func (dqm *DQM) Events() int { return dqm.nevts }

// WriteYODA writes all the histograms in the YODA format.
func (dqm *DQM) WriteYODA(w io.Writer) error {
	for _, h := range dqm.hists {
		raw, err := h.MarshalYODA()
		if err != nil {
			return fmt.Errorf("dqm: could not marshal %q: %w", h.Name(), err)
		}
		_, err = w.Write(raw)
		if err != nil {
			return fmt.Errorf("dqm: could not write %q: %w", h.Name(), err)
		}
	}
	return nil
}

// Plot saves one PNG file per histogram under dir.
func (dqm *DQM) Plot(dir string) error {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("dqm: could not create output directory: %w", err)
	}

	for _, h := range dqm.hists {
		p := hplot.New()
		p.Title.Text = h.Annotation()["title"].(string)
		p.Y.Label.Text = "entries"
		p.Add(hplot.NewH1D(h), hplot.NewGrid())

		fname := filepath.Join(dir, h.Name()+".png")
		err := p.Save(10*vg.Centimeter, 7*vg.Centimeter, fname)
		if err != nil {
			return fmt.Errorf("dqm: could not save plot %q: %w", fname, err)
		}
	}
	return nil
}
