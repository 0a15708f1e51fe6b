// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawfmt

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/go-lpc/pxd/internal/crc16"
	"golang.org/x/xerrors"
)

// Encoder writes raw events to an underlying data sink.
// Encoder computes the CRC-16 checksum of each event on the fly.
type Encoder struct {
	w io.Writer

	buf []byte
	err error
	crc crc16.Hash16
}

// NewEncoder creates an encoder that writes data to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 8),
		crc: crc16.New(nil),
	}
}

// Encode writes the event to the underlying data sink.
func (enc *Encoder) Encode(evt *Event) error {
	if enc.err != nil {
		return enc.err
	}

	if n := len(evt.Frames); n > MaxFrames {
		return xerrors.Errorf("rawfmt: event %d has too many frames (%d > %d)", evt.Number, n, MaxFrames)
	}
	for _, frame := range evt.Frames {
		if n := len(frame.Pixels); n > MaxPixels {
			return xerrors.Errorf(
				"rawfmt: event %d sensor 0x%04x has too many pixels (%d > %d)",
				evt.Number, frame.Sensor, n, MaxPixels,
			)
		}
		for i, pix := range frame.Pixels {
			if n := len(pix.Truths); n > MaxTruths {
				return xerrors.Errorf(
					"rawfmt: event %d sensor 0x%04x pixel %d has too many truth contributions (%d > %d)",
					evt.Number, frame.Sensor, i, n, MaxTruths,
				)
			}
		}
	}

	enc.crc.Reset()

	enc.writeU8(gbHeader)
	enc.writeU32(evt.Run)
	enc.writeU32(evt.Number)
	enc.writeU16(uint16(len(evt.Frames)))

	for _, frame := range evt.Frames {
		enc.writeU8(frHeader)
		enc.writeU16(frame.Sensor)
		enc.writeU16(uint16(len(frame.Pixels)))
		for _, pix := range frame.Pixels {
			enc.writeU16(pix.U)
			enc.writeU16(pix.V)
			enc.writeF32(pix.Charge)
			enc.writeU8(uint8(len(pix.Truths)))
			for _, tr := range pix.Truths {
				enc.writeU32(uint32(tr.Particle))
				enc.writeF32(tr.Weight)
			}
		}
		enc.writeU8(frTrailer)
	}

	enc.writeU8(gbTrailer)

	crc := enc.crc.Sum16()
	binary.BigEndian.PutUint16(enc.buf[:2], crc)
	enc.write(enc.buf[:2])

	if enc.err != nil {
		return xerrors.Errorf("rawfmt: could not encode event %d: %w", evt.Number, enc.err)
	}
	return nil
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
}

func (enc *Encoder) writec(p []byte) {
	_, _ = enc.crc.Write(p) // can not fail.
	enc.write(p)
}

func (enc *Encoder) writeU8(v uint8) {
	enc.buf[0] = v
	enc.writec(enc.buf[:1])
}

func (enc *Encoder) writeU16(v uint16) {
	binary.BigEndian.PutUint16(enc.buf[:2], v)
	enc.writec(enc.buf[:2])
}

func (enc *Encoder) writeU32(v uint32) {
	binary.BigEndian.PutUint32(enc.buf[:4], v)
	enc.writec(enc.buf[:4])
}

func (enc *Encoder) writeF32(v float32) {
	enc.writeU32(math.Float32bits(v))
}
