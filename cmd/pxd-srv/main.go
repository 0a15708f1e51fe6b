// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pxd-srv starts a TDAQ process reconstructing pixel hits.
//
// pxd-srv receives raw events on its /digits input port and publishes
// the encoded hits on its /hits output port.
package main // import "github.com/go-lpc/pxd/cmd/pxd-srv"

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/pxd/cluster"
)

var (
	geoFile = flag.String("geo", "geometry.json", "path to JSON geometry file")
	nproc   = flag.Int("j", 1, "number of concurrent sensor workers")
	noise   = flag.Float64("noise", 200, "electronic noise (e-)")
)

func main() {
	cmd := flags.New()

	dev := newServer(
		*geoFile,
		cluster.WithWorkers(*nproc),
		cluster.WithNoise(*noise),
	)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.InputHandle("/digits", dev.digits)
	srv.OutputHandle("/hits", dev.output)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
