// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import (
	"context"
	"fmt"

	"github.com/go-lpc/pxd/vxd"
	"gonum.org/v1/gonum/spatial/r3"
)

const querySensors = `
SELECT
	id, type,
	u_pitch, v_pitch, u_cells, v_cells, thickness,
	ox, oy, oz,
	ux, uy, uz,
	vx, vy, vz,
	wx, wy, wz
FROM sensors ORDER BY id
`

// Sensors retrieves the description of all the sensors.
func (db *DB) Sensors(ctx context.Context) (*vxd.Cache, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	geo := vxd.NewCache()
	rows, err := db.db.QueryContext(ctx, querySensors)
	if err != nil {
		return geo, fmt.Errorf("conddb: could not run sensors query: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var (
			id   int64
			typ  string
			s    vxd.Sensor
			o, u r3.Vec
			v, w r3.Vec
		)
		err = rows.Scan(
			&id, &typ,
			&s.UPitch, &s.VPitch, &s.UCells, &s.VCells, &s.Thickness,
			&o.X, &o.Y, &o.Z,
			&u.X, &u.Y, &u.Z,
			&v.X, &v.Y, &v.Z,
			&w.X, &w.Y, &w.Z,
		)
		if err != nil {
			return geo, fmt.Errorf("conddb: could not scan row %d for sensors: %w", i, err)
		}
		i++

		if id < 0 || id > 0xffff {
			return geo, fmt.Errorf("conddb: invalid sensor id %d", id)
		}
		s.ID = vxd.ID(id)
		err = s.Type.UnmarshalText([]byte(typ))
		if err != nil {
			return geo, fmt.Errorf("conddb: invalid type for sensor %v: %w", s.ID, err)
		}
		s.Origin = o
		s.Axes = [3]r3.Vec{u, v, w}

		err = geo.Add(&s)
		if err != nil {
			return geo, fmt.Errorf("conddb: could not add sensor %v: %w", s.ID, err)
		}
	}

	if err := rows.Err(); err != nil {
		return geo, fmt.Errorf("conddb: could not scan db for sensors: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return geo, fmt.Errorf("conddb: context error while retrieving sensors: %w", err)
	}

	return geo, nil
}

const queryResolutions = `
SELECT layer, ladder, sensor, theta_min, theta_max, u_err, v_err
FROM resolutions ORDER BY layer, ladder, sensor, theta_min
`

// Resolutions retrieves the theta-binned resolutions of all the sensors.
// A zero ladder or sensor column applies the row to the whole ladder or layer.
// fallback is used for the lookups outside of the table.
func (db *DB) Resolutions(ctx context.Context, fallback vxd.Resolution) (*vxd.ResolutionTable, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tbl := vxd.NewResolutionTable(fallback)
	rows, err := db.db.QueryContext(ctx, queryResolutions)
	if err != nil {
		return tbl, fmt.Errorf("conddb: could not run resolutions query: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var bin vxd.ResolutionBin
		err = rows.Scan(
			&bin.Layer, &bin.Ladder, &bin.Sensor,
			&bin.ThetaMin, &bin.ThetaMax, &bin.UErr, &bin.VErr,
		)
		if err != nil {
			return tbl, fmt.Errorf("conddb: could not scan row %d for resolutions: %w", i, err)
		}
		i++
		if !(bin.ThetaMin < bin.ThetaMax) {
			return tbl, fmt.Errorf(
				"conddb: invalid resolution bin for %v (theta=[%v, %v))",
				bin.ID(), bin.ThetaMin, bin.ThetaMax,
			)
		}
		tbl.Add(bin)
	}

	if err := rows.Err(); err != nil {
		return tbl, fmt.Errorf("conddb: could not scan db for resolutions: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return tbl, fmt.Errorf("conddb: context error while retrieving resolutions: %w", err)
	}

	return tbl, nil
}
