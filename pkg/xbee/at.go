// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// AT command response status values
const (
	ATStatusOK               = 0x00
	ATStatusError            = 0x01
	ATStatusInvalidCommand   = 0x02
	ATStatusInvalidParameter = 0x03
)

// Node device types reported by node discovery
const (
	DeviceCoordinator = 0x00
	DeviceRouter      = 0x01
	DeviceEndDevice   = 0x02
)

// ATResponse is a local AT command response (0x88).
type ATResponse struct {
	FrameID byte
	Command string
	Status  byte
	Data    []byte
}

// NodeInfo is one node discovery ("ND") result.
type NodeInfo struct {
	Network      uint16
	Address      Address
	Identifier   string
	Parent       uint16
	DeviceType   byte
	Profile      uint16
	Manufacturer uint16
}

// NewATCommand builds a local AT command frame. command must be two
// characters.
func NewATCommand(frameID byte, command string, param []byte) (*Frame, error) {
	if len(command) != 2 {
		return nil, fmt.Errorf("invalid AT command %q: expected 2 characters", command)
	}
	body := make([]byte, 0, 3+len(param))
	body = append(body, frameID, command[0], command[1])
	body = append(body, param...)
	return NewFrame(FrameATCommand, body), nil
}

// ParseATResponse parses a local AT command response frame.
func ParseATResponse(f *Frame) (*ATResponse, error) {
	if f.Type() != FrameATCmdReponse {
		return nil, fmt.Errorf("not an AT response: 0x%02X", f.Type())
	}
	b := f.Body()
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: AT response body %d bytes", ErrFrameLength, len(b))
	}
	return &ATResponse{
		FrameID: b[0],
		Command: string(b[1:3]),
		Status:  b[3],
		Data:    b[4:],
	}, nil
}

// ParseNodeInfo decodes the data of an "ND" response:
// [MY 2][SH 4][SL 4][NI ... 0x00][parent 2][type][status][profile 2][mfg 2].
func ParseNodeInfo(data []byte) (*NodeInfo, error) {
	if len(data) < 11 {
		return nil, fmt.Errorf("%w: node info %d bytes", ErrFrameLength, len(data))
	}
	n := &NodeInfo{
		Network: binary.BigEndian.Uint16(data[0:2]),
		Address: AddressFromBytes(data[2:10]),
	}
	rest := data[10:]
	end := bytes.IndexByte(rest, 0x00)
	if end < 0 {
		return nil, fmt.Errorf("%w: unterminated node identifier", ErrFrameLength)
	}
	n.Identifier = string(rest[:end])
	rest = rest[end+1:]
	if len(rest) < 8 {
		return nil, fmt.Errorf("%w: node info trailer %d bytes", ErrFrameLength, len(rest))
	}
	n.Parent = binary.BigEndian.Uint16(rest[0:2])
	n.DeviceType = rest[2]
	n.Profile = binary.BigEndian.Uint16(rest[4:6])
	n.Manufacturer = binary.BigEndian.Uint16(rest[6:8])
	return n, nil
}

// ATStatusName returns a human-readable name for an AT response status.
func ATStatusName(status byte) string {
	switch status {
	case ATStatusOK:
		return "OK"
	case ATStatusError:
		return "ERROR"
	case ATStatusInvalidCommand:
		return "INVALID_COMMAND"
	case ATStatusInvalidParameter:
		return "INVALID_PARAMETER"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", status)
	}
}

// DeviceTypeName returns a human-readable name for a node device type.
func DeviceTypeName(t byte) string {
	switch t {
	case DeviceCoordinator:
		return "coordinator"
	case DeviceRouter:
		return "router"
	case DeviceEndDevice:
		return "end device"
	default:
		return fmt.Sprintf("unknown(0x%02X)", t)
	}
}
