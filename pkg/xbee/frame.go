// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import "time"

// Frame is a decoded API frame: the API identifier and the bytes that follow it.
type Frame struct {
	apiID     byte
	body      []byte
	checksum  byte
	timestamp time.Time
}

// NewFrame creates a frame with the given API identifier and body.
func NewFrame(apiID byte, body []byte) *Frame {
	b := make([]byte, len(body))
	copy(b, body)
	data := append([]byte{apiID}, b...)
	return &Frame{
		apiID:     apiID,
		body:      b,
		checksum:  Checksum(data),
		timestamp: time.Now(),
	}
}

// Type returns the API identifier.
func (f *Frame) Type() byte {
	return f.apiID
}

// Body returns the frame data following the API identifier.
func (f *Frame) Body() []byte {
	return f.body
}

// Data returns the full frame data (API identifier + body), which is what the
// length field counts and the checksum covers.
func (f *Frame) Data() []byte {
	return append([]byte{f.apiID}, f.body...)
}

// Checksum returns the frame checksum.
func (f *Frame) Checksum() byte {
	return f.checksum
}

// Timestamp returns when the frame was decoded or created.
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// TypeName returns a human-readable name for the frame's API identifier.
func (f *Frame) TypeName() string {
	return TypeName(f.apiID)
}

// TypeName returns a human-readable name for an API identifier.
func TypeName(apiID byte) string {
	switch apiID {
	case FrameTxRequest:
		return "TX_REQUEST"
	case FrameModemStatus:
		return "MODEM_STATUS"
	case FrameTxStatus:
		return "TX_STATUS"
	case FrameRxPacket:
		return "RX_PACKET"
	case FrameIOSample:
		return "IO_SAMPLE"
	case FrameATCommand:
		return "AT_COMMAND"
	case FrameATCmdReponse:
		return "AT_RESPONSE"
	default:
		return "UNKNOWN"
	}
}
