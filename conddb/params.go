// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-lpc/pxd/cluster"
)

// ErrNoParams is returned when no clusterizer parameters are valid for a run.
var ErrNoParams = errors.New("conddb: no clusterizer parameters")

// Params holds the run-level parameters of the clusterizer.
type Params struct {
	RunMin     int     `json:"run_min"`
	RunMax     int     `json:"run_max"`
	Noise      float64 `json:"noise"`
	AdjacentSN float64 `json:"adjacent_sn"`
	SeedSN     float64 `json:"seed_sn"`
	TotalSN    float64 `json:"total_sn"`
	TanLorentz float64 `json:"tan_lorentz"`
	ADCRange   float64 `json:"adc_range"`
	ADCBits    int     `json:"adc_bits"`
}

// Options returns the clusterizer options corresponding to the parameters.
func (p Params) Options() []cluster.Option {
	return []cluster.Option{
		cluster.WithNoise(p.Noise),
		cluster.WithAdjacentSN(p.AdjacentSN),
		cluster.WithSeedSN(p.SeedSN),
		cluster.WithTotalSN(p.TotalSN),
		cluster.WithTanLorentz(p.TanLorentz),
		cluster.WithADC(p.ADCRange, p.ADCBits),
	}
}

const queryParams = `
SELECT
	run_min, run_max,
	noise, adjacent_sn, seed_sn, total_sn,
	tan_lorentz, adc_range, adc_bits
FROM clusterizer
WHERE (
	run_min<=? AND ?<=run_max
)
ORDER BY datetime DESC LIMIT 1
`

// Params retrieves the most recent clusterizer parameters valid for run.
func (db *DB) Params(ctx context.Context, run int) (Params, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		p     Params
		found = false
	)
	rows, err := db.db.QueryContext(ctx, queryParams, run, run)
	if err != nil {
		return p, fmt.Errorf("conddb: could not run clusterizer query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(
			&p.RunMin, &p.RunMax,
			&p.Noise, &p.AdjacentSN, &p.SeedSN, &p.TotalSN,
			&p.TanLorentz, &p.ADCRange, &p.ADCBits,
		)
		if err != nil {
			return p, fmt.Errorf("conddb: could not scan clusterizer parameters: %w", err)
		}
		found = true
	}

	if err := rows.Err(); err != nil {
		return p, fmt.Errorf("conddb: could not scan db for clusterizer parameters: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return p, fmt.Errorf("conddb: context error while retrieving clusterizer parameters: %w", err)
	}

	if !found {
		return p, fmt.Errorf("%w for run %d", ErrNoParams, run)
	}

	return p, nil
}
