// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/pxd/cluster"
	"github.com/go-lpc/pxd/internal/xcnv"
	"github.com/go-lpc/pxd/rawfmt"
	"github.com/go-lpc/pxd/vxd"
)

type server struct {
	fname string // path to the JSON geometry file
	opts  []cluster.Option

	geo  *vxd.Cache
	clz  *cluster.Clusterizer
	hits chan []byte
	n    int64 // number of processed events
}

func newServer(fname string, opts ...cluster.Option) *server {
	return &server{
		fname: fname,
		opts:  opts,
	}
}

func (srv *server) loadGeometry(fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open geometry file: %w", err)
	}
	defer f.Close()

	geo, err := vxd.ReadJSON(f)
	if err != nil {
		return fmt.Errorf("could not read geometry file %q: %w", fname, err)
	}

	srv.fname = fname
	srv.geo = geo
	return nil
}

// OnConfig loads the geometry.
// The request body may hold the path to the JSON geometry file to use.
func (srv *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	fname := srv.fname
	if len(req.Body) > 0 {
		dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
		fname = dec.ReadStr()
		if err := dec.Err(); err != nil {
			ctx.Msg.Errorf("could not decode /config request: %+v", err)
			return fmt.Errorf("could not decode /config request: %w", err)
		}
	}

	err := srv.loadGeometry(fname)
	if err != nil {
		ctx.Msg.Errorf("could not load geometry: %+v", err)
		return fmt.Errorf("could not load geometry: %w", err)
	}
	ctx.Msg.Infof("loaded %d sensors from %q", srv.geo.Len(), fname)

	return nil
}

func (srv *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	if srv.geo == nil {
		ctx.Msg.Errorf("no geometry loaded")
		return fmt.Errorf("no geometry loaded")
	}

	opts := append([]cluster.Option{cluster.WithLogger(log.New(io.Discard, "", 0))}, srv.opts...)
	clz, err := cluster.New(srv.geo, nil, opts...)
	if err != nil {
		ctx.Msg.Errorf("could not create clusterizer: %+v", err)
		return fmt.Errorf("could not create clusterizer: %w", err)
	}

	srv.clz = clz
	srv.hits = make(chan []byte, 1024)
	atomic.StoreInt64(&srv.n, 0)
	return nil
}

func (srv *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	srv.hits = make(chan []byte, 1024)
	atomic.StoreInt64(&srv.n, 0)
	return nil
}

func (srv *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return nil
}

func (srv *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	n := atomic.LoadInt64(&srv.n)
	ctx.Msg.Debugf("received /stop command... -> n=%d", n)
	return nil
}

func (srv *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

func (srv *server) digits(ctx tdaq.Context, src tdaq.Frame) error {
	out, err := srv.process(ctx.Ctx, src.Body)
	if err != nil {
		ctx.Msg.Errorf("could not process digits: %+v", err)
		return fmt.Errorf("could not process digits: %w", err)
	}

	select {
	case <-ctx.Ctx.Done():
		return nil
	case srv.hits <- out:
		atomic.AddInt64(&srv.n, 1)
	}
	return nil
}

func (srv *server) output(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.hits:
		dst.Body = data
	}
	return nil
}

// process clusterizes a raw event and returns the encoded hits.
func (srv *server) process(ctx context.Context, body []byte) ([]byte, error) {
	if srv.clz == nil {
		return nil, fmt.Errorf("clusterizer not initialized")
	}

	var raw rawfmt.Event
	err := rawfmt.NewDecoder(bytes.NewReader(body)).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("could not decode raw event: %w", err)
	}

	res, err := srv.clz.Process(ctx, xcnv.FromRaw(&raw))
	if err != nil {
		return nil, fmt.Errorf("could not clusterize event %d: %w", raw.Number, err)
	}

	buf := new(bytes.Buffer)
	err = encodeHits(buf, res)
	if err != nil {
		return nil, fmt.Errorf("could not encode hits of event %d: %w", raw.Number, err)
	}

	return buf.Bytes(), nil
}
