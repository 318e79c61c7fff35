// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import (
	"errors"
	"fmt"
)

// Frame errors
var (
	ErrChecksum    = errors.New("checksum mismatch")
	ErrFrameLength = errors.New("invalid frame length")
	ErrNoStart     = errors.New("missing start delimiter")
)

// EncodeFrame returns the escaped wire form of f.
func EncodeFrame(f *Frame) ([]byte, error) {
	data := f.Data()
	if len(data) > MaxFrameDataSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameLength, len(data), MaxFrameDataSize)
	}

	// Length, frame data and checksum are escaped; the start delimiter is not
	raw := make([]byte, 0, len(data)+3)
	raw = append(raw, byte(len(data)>>8), byte(len(data)))
	raw = append(raw, data...)
	raw = append(raw, Checksum(data))

	escaped := Escape(raw)
	out := make([]byte, 0, len(escaped)+1)
	out = append(out, StartByte)
	out = append(out, escaped...)
	return out, nil
}

// MustEncodeFrame encodes f, panicking on error.
func MustEncodeFrame(f *Frame) []byte {
	out, err := EncodeFrame(f)
	if err != nil {
		panic(fmt.Sprintf("xbee: encode error: %v", err))
	}
	return out
}

// ParseUnescaped validates a complete frame that has already been unescaped
// (start delimiter included) and returns it.
func ParseUnescaped(raw []byte) (*Frame, error) {
	if len(raw) < HeaderSize+2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameLength, len(raw))
	}
	if raw[0] != StartByte {
		return nil, ErrNoStart
	}
	length := int(raw[1])<<8 | int(raw[2])
	if length == 0 || length > MaxFrameDataSize || len(raw) != HeaderSize+length+1 {
		return nil, fmt.Errorf("%w: declared %d, have %d", ErrFrameLength, length, len(raw)-HeaderSize-1)
	}
	data := raw[HeaderSize : HeaderSize+length]
	checksum := raw[len(raw)-1]
	if !VerifyChecksum(data, checksum) {
		return nil, fmt.Errorf("%w: expected 0x%02X, got 0x%02X", ErrChecksum, Checksum(data), checksum)
	}
	return NewFrame(data[0], data[1:]), nil
}

// DecodeFrame unescapes and validates a single complete wire frame.
func DecodeFrame(wire []byte) (*Frame, error) {
	if len(wire) == 0 || wire[0] != StartByte {
		return nil, ErrNoStart
	}
	rest, err := Unescape(wire[1:])
	if err != nil {
		return nil, err
	}
	return ParseUnescaped(append([]byte{StartByte}, rest...))
}
