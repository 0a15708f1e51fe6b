// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pxd-sql inspects the content of the condition database and
// exports the detector geometry to a JSON file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/go-lpc/pxd/conddb"
	"github.com/go-lpc/pxd/vxd"
)

func main() {
	log.SetPrefix("pxd-sql: ")
	log.SetFlags(0)

	var (
		dbname = flag.String("db", "pxdcond", "name of the condition database")
		run    = flag.Int("run", -1, "run number to inspect")
		oname  = flag.String("o", "", "path to output JSON geometry file")
	)

	flag.Parse()

	log.Printf("db:  %q", *dbname)
	log.Printf("run: %d", *run)

	db, err := conddb.Open(*dbname)
	if err != nil {
		log.Fatalf("could not open condition db: %+v", err)
	}
	defer db.Close()

	err = doQuery(db, *run, *oname)
	if err != nil {
		log.Fatalf("could not do query: %+v", err)
	}
}

func doQuery(db *conddb.DB, run int, oname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	geo, err := db.Sensors(ctx)
	if err != nil {
		return fmt.Errorf("could not get sensors: %w", err)
	}
	log.Printf("sensors: %d", geo.Len())

	var (
		layers = make(map[int]int)
		ids    []int
	)
	for _, id := range geo.IDs() {
		if _, dup := layers[id.Layer()]; !dup {
			ids = append(ids, id.Layer())
		}
		layers[id.Layer()]++
	}
	sort.Ints(ids)
	for _, layer := range ids {
		log.Printf(">>> layer=%02d, sensors=%d", layer, layers[layer])
	}

	tbl, err := db.Resolutions(ctx, vxd.BinaryResolution{Geometry: geo})
	if err != nil {
		return fmt.Errorf("could not get resolutions: %w", err)
	}
	log.Printf("resolution bins: %d", tbl.Len())

	if run >= 0 {
		params, err := db.Params(ctx, run)
		switch {
		case errors.Is(err, conddb.ErrNoParams):
			log.Printf("no clusterizer parameters for run %d", run)
		case err != nil:
			return fmt.Errorf("could not get clusterizer parameters for run %d: %w", run, err)
		default:
			log.Printf("params: %#v", params)
		}
	}

	if oname == "" {
		return nil
	}

	f, err := os.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create geometry file: %w", err)
	}
	defer f.Close()

	err = vxd.WriteJSON(f, geo)
	if err != nil {
		return fmt.Errorf("could not write geometry file: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close geometry file: %w", err)
	}

	return nil
}
