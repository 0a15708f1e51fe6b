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

// Decoder reads (and validates) raw events from an underlying data source.
// Decoder computes CRC-16 checksums on the fly, during the acquisition
// of frames.
type Decoder struct {
	r io.Reader

	buf []byte
	err error
	crc crc16.Hash16
}

// NewDecoder creates a decoder that reads and validates data from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 8),
		crc: crc16.New(nil),
	}
}

// Decode decodes the next event.
// Decode returns io.EOF when no more event is available.
func (dec *Decoder) Decode(evt *Event) error {
	dec.crc.Reset()

	v := dec.readU8()
	if dec.err != nil {
		return xerrors.Errorf("rawfmt: could not read global header marker: %w", dec.err)
	}
	if v != gbHeader {
		return xerrors.Errorf("rawfmt: invalid global header marker (got=0x%x)", v)
	}

	evt.Run = dec.readU32()
	evt.Number = dec.readU32()
	n := int(dec.readU16())
	if dec.err != nil {
		return xerrors.Errorf("rawfmt: could not read event header: %w", dec.unexpected())
	}

	evt.Frames = evt.Frames[:0]
	for i := 0; i < n; i++ {
		var frame Frame
		err := dec.decodeFrame(&frame)
		if err != nil {
			return xerrors.Errorf(
				"rawfmt: event %d could not decode frame %d: %w",
				evt.Number, i, err,
			)
		}
		evt.Frames = append(evt.Frames, frame)
	}

	v = dec.readU8()
	if dec.err != nil {
		return xerrors.Errorf(
			"rawfmt: event %d could not read global trailer: %w",
			evt.Number, dec.unexpected(),
		)
	}
	if v != gbTrailer {
		return xerrors.Errorf(
			"rawfmt: event %d invalid global trailer marker (got=0x%x)",
			evt.Number, v,
		)
	}

	compCRC := dec.crc.Sum16()
	recvCRC := dec.readU16nocrc()
	if dec.err != nil {
		return xerrors.Errorf(
			"rawfmt: event %d could not receive CRC-16: %w",
			evt.Number, dec.unexpected(),
		)
	}

	if compCRC != recvCRC {
		return xerrors.Errorf(
			"rawfmt: event %d inconsistent CRC: recv=0x%04x comp=0x%04x",
			evt.Number, recvCRC, compCRC,
		)
	}

	return nil
}

func (dec *Decoder) decodeFrame(frame *Frame) error {
	v := dec.readU8()
	if dec.err != nil {
		return xerrors.Errorf("could not read frame header: %w", dec.unexpected())
	}
	if v != frHeader {
		return xerrors.Errorf("invalid frame header marker (got=0x%x)", v)
	}

	frame.Sensor = dec.readU16()
	n := int(dec.readU16())
	if dec.err != nil {
		return xerrors.Errorf("could not read frame header: %w", dec.unexpected())
	}

	frame.Pixels = nil
	if n > 0 {
		frame.Pixels = make([]Pixel, n)
	}
	for i := range frame.Pixels {
		pix := &frame.Pixels[i]
		pix.U = dec.readU16()
		pix.V = dec.readU16()
		pix.Charge = dec.readF32()
		ntruth := int(dec.readU8())
		if ntruth > 0 {
			pix.Truths = make([]Truth, ntruth)
			for j := range pix.Truths {
				pix.Truths[j].Particle = int32(dec.readU32())
				pix.Truths[j].Weight = dec.readF32()
			}
		}
		if dec.err != nil {
			return xerrors.Errorf(
				"sensor 0x%04x could not read pixel %d: %w",
				frame.Sensor, i, dec.unexpected(),
			)
		}
	}

	v = dec.readU8()
	if dec.err != nil {
		return xerrors.Errorf(
			"sensor 0x%04x could not read frame trailer: %w",
			frame.Sensor, dec.unexpected(),
		)
	}
	if v != frTrailer {
		return xerrors.Errorf(
			"sensor 0x%04x invalid frame trailer marker (got=0x%x)",
			frame.Sensor, v,
		)
	}

	return nil
}

// unexpected converts a clean end of stream in the middle of an event
// into io.ErrUnexpectedEOF.
func (dec *Decoder) unexpected() error {
	if xerrors.Is(dec.err, io.EOF) {
		dec.err = io.ErrUnexpectedEOF
	}
	return dec.err
}

func (dec *Decoder) readU8() uint8 {
	dec.load(1)
	return dec.buf[0]
}

func (dec *Decoder) readU16() uint16 {
	const n = 2
	dec.load(n)
	return binary.BigEndian.Uint16(dec.buf[:n])
}

func (dec *Decoder) readU16nocrc() uint16 {
	const n = 2
	if dec.err != nil {
		return 0
	}
	_, dec.err = io.ReadFull(dec.r, dec.buf[:n])
	return binary.BigEndian.Uint16(dec.buf[:n])
}

func (dec *Decoder) readU32() uint32 {
	const n = 4
	dec.load(n)
	return binary.BigEndian.Uint32(dec.buf[:n])
}

func (dec *Decoder) readF32() float32 {
	return math.Float32frombits(dec.readU32())
}

// load reads n bytes into the internal buffer and adds them to the
// on-going CRC-16 computation.
func (dec *Decoder) load(n int) {
	if dec.err != nil {
		dec.buf = dec.buf[:n]
		for i := range dec.buf {
			dec.buf[i] = 0
		}
		return
	}
	dec.buf = dec.buf[:n]
	_, dec.err = io.ReadFull(dec.r, dec.buf)
	if dec.err != nil {
		return
	}
	_, _ = dec.crc.Write(dec.buf) // can not fail.
}
