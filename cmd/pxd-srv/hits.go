// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/pxd/cluster"
	"github.com/go-lpc/pxd/vxd"
)

// encodeHits writes the hits of an event, with their relations, as:
//
//	run:u32 event:u32 nhits:u32 hit*
//	hit := sensor:u32 u,v,uerr,verr,uvcov,edep,seed:f64 size,usize,vsize:u32
//	       ntruths:u32 (particle:u32 weight:f64)*
//	       ndigits:u32 (digit:u32 charge:f64)*
func encodeHits(w io.Writer, res cluster.Result) error {
	enc := tdaq.NewEncoder(w)
	enc.WriteU32(uint32(res.Run))
	enc.WriteU32(uint32(res.Number))
	enc.WriteU32(uint32(len(res.Hits)))
	for _, hit := range res.Hits {
		enc.WriteU32(uint32(hit.Sensor))
		enc.WriteF64(hit.U)
		enc.WriteF64(hit.V)
		enc.WriteF64(hit.UErr)
		enc.WriteF64(hit.VErr)
		enc.WriteF64(hit.UVCov)
		enc.WriteF64(hit.EDep)
		enc.WriteF64(hit.SeedCharge)
		enc.WriteU32(uint32(hit.Size))
		enc.WriteU32(uint32(hit.USize))
		enc.WriteU32(uint32(hit.VSize))
		enc.WriteU32(uint32(len(hit.Truths)))
		for _, tr := range hit.Truths {
			enc.WriteU32(uint32(int32(tr.Particle)))
			enc.WriteF64(tr.Weight)
		}
		enc.WriteU32(uint32(len(hit.Digits)))
		for _, rel := range hit.Digits {
			enc.WriteU32(uint32(rel.Digit))
			enc.WriteF64(rel.Charge)
		}
	}
	return enc.Err()
}

func decodeHits(r io.Reader) (cluster.Result, error) {
	var (
		res cluster.Result
		dec = tdaq.NewDecoder(r)
	)
	res.Run = int(dec.ReadU32())
	res.Number = int(dec.ReadU32())
	n := int(dec.ReadU32())
	if err := dec.Err(); err != nil {
		return res, fmt.Errorf("could not decode hits header: %w", err)
	}

	if n > 0 {
		res.Hits = make([]cluster.Hit, n)
	}
	for i := range res.Hits {
		hit := &res.Hits[i]
		hit.Sensor = vxd.ID(dec.ReadU32())
		hit.U = dec.ReadF64()
		hit.V = dec.ReadF64()
		hit.UErr = dec.ReadF64()
		hit.VErr = dec.ReadF64()
		hit.UVCov = dec.ReadF64()
		hit.EDep = dec.ReadF64()
		hit.SeedCharge = dec.ReadF64()
		hit.Size = int(dec.ReadU32())
		hit.USize = int(dec.ReadU32())
		hit.VSize = int(dec.ReadU32())
		if nt := int(dec.ReadU32()); nt > 0 && dec.Err() == nil {
			hit.Truths = make([]cluster.TruthRelation, nt)
			for j := range hit.Truths {
				hit.Truths[j].Particle = int(int32(dec.ReadU32()))
				hit.Truths[j].Weight = dec.ReadF64()
			}
		}
		if nd := int(dec.ReadU32()); nd > 0 && dec.Err() == nil {
			hit.Digits = make([]cluster.DigitRelation, nd)
			for j := range hit.Digits {
				hit.Digits[j].Digit = int(dec.ReadU32())
				hit.Digits[j].Charge = dec.ReadF64()
			}
		}
		if err := dec.Err(); err != nil {
			return res, fmt.Errorf("could not decode hit %d: %w", i, err)
		}
	}

	return res, nil
}
