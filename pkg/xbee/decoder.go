// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import (
	"fmt"
	"time"
)

// Decoder implements the API mode 2 frame decoder state machine
type Decoder struct {
	state      int
	length     int
	data       []byte
	escapeNext bool
	rawBuffer  []byte // Accumulate raw bytes including framing
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		data:      make([]byte, 0, MaxFrameDataSize),
		rawBuffer: make([]byte, 0, MaxFrameDataSize*2),
	}
}

// Reset resets the decoder state to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.length = 0
	d.escapeNext = false
	d.data = d.data[:0]
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the accumulated raw bytes since the last frame
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// DecodeByte processes a single byte through the decoder state machine
// Returns a completed frame, or nil if the frame is incomplete
// Returns an error if decoding fails
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	// An unescaped start byte always begins a new frame
	if b == StartByte {
		wasInFrame := d.state != stateIdle
		d.Reset()
		d.rawBuffer = append(d.rawBuffer, b)
		d.state = stateLengthHi
		if wasInFrame {
			return nil, fmt.Errorf("%w: frame interrupted by start byte", ErrFrameLength)
		}
		return nil, nil
	}

	if d.state == stateIdle {
		return nil, nil
	}

	d.rawBuffer = append(d.rawBuffer, b)

	if b == EscByte && !d.escapeNext {
		d.escapeNext = true
		return nil, nil
	}
	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	switch d.state {
	case stateLengthHi:
		d.length = int(b) << 8
		d.state = stateLengthLo
		return nil, nil

	case stateLengthLo:
		d.length |= int(b)
		if d.length == 0 || d.length > MaxFrameDataSize {
			length := d.length
			d.Reset()
			return nil, fmt.Errorf("%w: %d (max %d)", ErrFrameLength, length, MaxFrameDataSize)
		}
		d.state = stateData
		return nil, nil

	case stateData:
		d.data = append(d.data, b)
		if len(d.data) >= d.length {
			d.state = stateChecksum
		}
		return nil, nil

	case stateChecksum:
		if !VerifyChecksum(d.data, b) {
			err := fmt.Errorf("%w: expected 0x%02X, got 0x%02X", ErrChecksum, Checksum(d.data), b)
			d.Reset()
			return nil, err
		}
		frame := NewFrame(d.data[0], d.data[1:])
		frame.timestamp = time.Now()
		d.state = stateIdle
		d.data = d.data[:0]
		return frame, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// Decode feeds a chunk of bytes through the decoder and returns every
// completed frame along with any errors encountered.
func (d *Decoder) Decode(chunk []byte) ([]*Frame, []error) {
	var frames []*Frame
	var errs []error
	for _, b := range chunk {
		frame, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames, errs
}
