// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pxd holds code for the reconstruction of pixel detector hits.
//
// Raw pixel charges ("digits") read from the DAQ stream (package rawfmt) or
// from LCIO files are grouped into clusters, and one hit is estimated per
// cluster (package cluster), using the sensor geometry and resolution
// services of package vxd. Run conditions are retrieved from the condition
// database (package conddb).
package pxd // import "github.com/go-lpc/pxd"

import (
	"fmt"
	"runtime/debug"
)

const modpath = "github.com/go-lpc/pxd"

// Version returns the version of pxd and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	if b.Main.Path == modpath {
		return b.Main.Version, b.Main.Sum
	}

	for _, m := range b.Deps {
		if m.Path != modpath {
			continue
		}
		if m.Replace == nil {
			return m.Version, m.Sum
		}
		r := m.Replace
		switch {
		case r.Version != "" && r.Path != "":
			return fmt.Sprintf("%s %s", r.Path, r.Version), r.Sum
		case r.Version != "":
			return r.Version, r.Sum
		case r.Path != "":
			return r.Path, r.Sum
		default:
			return m.Version + "*", ""
		}
	}
	return "", ""
}
