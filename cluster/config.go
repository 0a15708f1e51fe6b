// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"fmt"
	"log"
	"math"
	"os"
)

// Config holds the run-level parameters of the clusterizer.
type Config struct {
	Noise      float64 // electronic noise, in charge units
	AdjacentSN float64 // S/N cut for digits to be added to a cluster
	SeedSN     float64 // S/N cut for digits to seed a cluster
	TotalSN    float64 // S/N cut on the total cluster charge
	TanLorentz float64 // tangent of the Lorentz angle

	ADC struct {
		Range float64 // full scale charge
		Bits  int     // 0: quantization disabled
	}

	Workers int // number of sensors processed concurrently

	msg *log.Logger
}

// Defaults returns the default clusterizer configuration.
func Defaults() Config {
	return Config{
		Noise:      200,
		AdjacentSN: 3,
		SeedSN:     5,
		TotalSN:    8,
		TanLorentz: 0.25,
		Workers:    1,
		msg:        log.New(os.Stdout, "pxd: ", 0),
	}
}

// Option configures a clusterizer.
type Option func(*Config)

// WithNoise sets the electronic noise.
func WithNoise(v float64) Option {
	return func(cfg *Config) {
		cfg.Noise = v
	}
}

// WithAdjacentSN sets the S/N cut of neighbour digits.
func WithAdjacentSN(v float64) Option {
	return func(cfg *Config) {
		cfg.AdjacentSN = v
	}
}

// WithSeedSN sets the S/N cut of seed digits.
func WithSeedSN(v float64) Option {
	return func(cfg *Config) {
		cfg.SeedSN = v
	}
}

// WithTotalSN sets the S/N cut on the total charge of clusters.
func WithTotalSN(v float64) Option {
	return func(cfg *Config) {
		cfg.TotalSN = v
	}
}

// WithTanLorentz sets the tangent of the Lorentz angle.
func WithTanLorentz(v float64) Option {
	return func(cfg *Config) {
		cfg.TanLorentz = v
	}
}

// WithADC enables the quantization of digit charges with an ADC of the
// given full scale range and number of bits.
func WithADC(rng float64, bits int) Option {
	return func(cfg *Config) {
		cfg.ADC.Range = rng
		cfg.ADC.Bits = bits
	}
}

// WithWorkers sets the number of sensors processed concurrently.
func WithWorkers(n int) Option {
	return func(cfg *Config) {
		cfg.Workers = n
	}
}

// WithLogger sets the logger of the clusterizer.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *Config) {
		cfg.msg = msg
	}
}

// Validate checks the consistency of the configuration.
func (cfg Config) Validate() error {
	switch {
	case !(cfg.Noise > 0):
		return fmt.Errorf("cluster: invalid electronic noise (%v)", cfg.Noise)
	case !(cfg.AdjacentSN >= 0):
		return fmt.Errorf("cluster: invalid adjacent S/N cut (%v)", cfg.AdjacentSN)
	case !(cfg.SeedSN >= 0):
		return fmt.Errorf("cluster: invalid seed S/N cut (%v)", cfg.SeedSN)
	case !(cfg.TotalSN >= 0):
		return fmt.Errorf("cluster: invalid total S/N cut (%v)", cfg.TotalSN)
	case math.IsNaN(cfg.TanLorentz) || math.IsInf(cfg.TanLorentz, 0):
		return fmt.Errorf("cluster: invalid tan(Lorentz angle) (%v)", cfg.TanLorentz)
	case cfg.Workers < 1:
		return fmt.Errorf("cluster: invalid number of workers (%d)", cfg.Workers)
	}

	if cfg.ADC.Bits != 0 {
		if cfg.ADC.Bits < 1 || cfg.ADC.Bits > 16 {
			return fmt.Errorf("cluster: invalid number of ADC bits (%d)", cfg.ADC.Bits)
		}
		if !(cfg.ADC.Range > 0) {
			return fmt.Errorf("cluster: invalid ADC range (%v)", cfg.ADC.Range)
		}
	}

	return nil
}

func (cfg Config) seedCut() float64     { return cfg.Noise * cfg.SeedSN }
func (cfg Config) adjacentCut() float64 { return cfg.Noise * cfg.AdjacentSN }
func (cfg Config) clusterCut() float64  { return cfg.Noise * cfg.TotalSN }

// quantize converts a charge into ADC counts and back.
// quantize is the identity when the ADC is disabled.
func (cfg Config) quantize(q float64) float64 {
	if cfg.ADC.Bits == 0 {
		return q
	}
	var (
		top  = float64(int(1)<<cfg.ADC.Bits - 1)
		unit = cfg.ADC.Range / (top + 1)
		adc  = math.Floor(q / unit)
	)
	switch {
	case adc < 0:
		adc = 0
	case adc > top:
		adc = top
	}
	return adc * unit
}
