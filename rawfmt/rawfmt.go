// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rawfmt describes and handles raw pixel data, as sent by the
// readout of the pixel detector.
//
// An event is laid out as:
//
//	event  := 0xb0 run:u32 event:u32 nframes:u16 frame* 0xa0 crc:u16
//	frame  := 0xb4 sensor:u16 npixels:u16 pixel* 0xa3
//	pixel  := u:u16 v:u16 charge:f32 ntruth:u8 truth*
//	truth  := particle:i32 weight:f32
//
// All values are big-endian. The CRC-16 covers all the bytes of an
// event, from the global header marker to the global trailer marker.
package rawfmt // import "github.com/go-lpc/pxd/rawfmt"

const (
	gbHeader  = 0xb0 // global header marker
	gbTrailer = 0xa0 // global trailer marker

	frHeader  = 0xb4 // frame header marker
	frTrailer = 0xa3 // frame trailer marker
)

const (
	MaxFrames = 1<<16 - 1 // max number of sensor frames per event
	MaxPixels = 1<<16 - 1 // max number of pixels per frame
	MaxTruths = 1<<8 - 1  // max number of truth contributions per pixel
)

// Event holds the raw data of all the sensors for one trigger.
type Event struct {
	Run    uint32
	Number uint32
	Frames []Frame
}

// Frame holds the fired pixels of one sensor.
type Frame struct {
	Sensor uint16 // sensor identifier (vxd.ID)
	Pixels []Pixel
}

// Pixel is one fired pixel.
type Pixel struct {
	U      uint16
	V      uint16
	Charge float32
	Truths []Truth // simulated contributions, empty for real data
}

// Truth is the contribution of a simulated particle to a pixel charge.
type Truth struct {
	Particle int32
	Weight   float32
}

// NumPixels returns the total number of pixels in the event.
func (evt *Event) NumPixels() int {
	n := 0
	for _, frame := range evt.Frames {
		n += len(frame.Pixels)
	}
	return n
}
