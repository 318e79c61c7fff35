// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import (
	"encoding/binary"
	"fmt"
)

// TxRequest is a transmit request (0x10).
type TxRequest struct {
	FrameID     byte
	Destination Address
	Network     uint16
	Radius      byte
	Options     byte
	Data        []byte
}

// RxPacket is a received RF packet (0x90).
type RxPacket struct {
	Source  Address
	Network uint16
	Options byte
	Data    []byte
}

// TxStatus reports the delivery outcome of a transmit request (0x8B).
type TxStatus struct {
	FrameID   byte
	Network   uint16
	Retries   byte
	Delivery  byte
	Discovery byte
}

// ModemStatus is an unsolicited modem status report (0x8A).
type ModemStatus struct {
	Status byte
}

// AnalogChannel identifies an IO sample analog input.
type AnalogChannel uint8

// Analog channels, in analog mask bit order
const (
	AnalogA0     AnalogChannel = 0
	AnalogA1     AnalogChannel = 1
	AnalogA2     AnalogChannel = 2
	AnalogA3     AnalogChannel = 3
	AnalogSupply AnalogChannel = 7
)

// IOSample is an IO data sample indicator (0x92).
type IOSample struct {
	Source      Address
	Network     uint16
	Options     byte
	DigitalMask uint16
	AnalogMask  byte
	Digital     uint16
	analog      map[AnalogChannel]uint16
}

// Analog returns the raw 10-bit reading of channel ch, if it was sampled.
func (s *IOSample) Analog(ch AnalogChannel) (uint16, bool) {
	v, ok := s.analog[ch]
	return v, ok
}

// NewTxRequest builds a transmit request frame. Broadcast radius is left at
// the network maximum and the 16-bit destination is unknown.
func NewTxRequest(frameID byte, dest Address, data []byte) *Frame {
	return EncodeTxRequest(TxRequest{
		FrameID:     frameID,
		Destination: dest,
		Network:     NetworkUnknown,
		Options:     TxOptionDisableAck,
		Data:        data,
	})
}

// EncodeTxRequest builds a transmit request frame from its fields.
func EncodeTxRequest(req TxRequest) *Frame {
	body := make([]byte, 0, 13+len(req.Data))
	body = append(body, req.FrameID)
	body = binary.BigEndian.AppendUint64(body, uint64(req.Destination))
	body = binary.BigEndian.AppendUint16(body, req.Network)
	body = append(body, req.Radius, req.Options)
	body = append(body, req.Data...)
	return NewFrame(FrameTxRequest, body)
}

// ParseTxRequest parses a transmit request frame.
func ParseTxRequest(f *Frame) (*TxRequest, error) {
	if f.Type() != FrameTxRequest {
		return nil, fmt.Errorf("not a TX request: 0x%02X", f.Type())
	}
	b := f.Body()
	if len(b) < 13 {
		return nil, fmt.Errorf("%w: TX request body %d bytes", ErrFrameLength, len(b))
	}
	return &TxRequest{
		FrameID:     b[0],
		Destination: AddressFromBytes(b[1:9]),
		Network:     binary.BigEndian.Uint16(b[9:11]),
		Radius:      b[11],
		Options:     b[12],
		Data:        b[13:],
	}, nil
}

// ParseRxPacket parses a receive packet frame.
func ParseRxPacket(f *Frame) (*RxPacket, error) {
	if f.Type() != FrameRxPacket {
		return nil, fmt.Errorf("not an RX packet: 0x%02X", f.Type())
	}
	b := f.Body()
	if len(b) < 11 {
		return nil, fmt.Errorf("%w: RX packet body %d bytes", ErrFrameLength, len(b))
	}
	return &RxPacket{
		Source:  AddressFromBytes(b[0:8]),
		Network: binary.BigEndian.Uint16(b[8:10]),
		Options: b[10],
		Data:    b[11:],
	}, nil
}

// EncodeRxPacket builds a receive packet frame, as the modem would deliver
// it.
func EncodeRxPacket(p RxPacket) *Frame {
	body := make([]byte, 0, 11+len(p.Data))
	body = binary.BigEndian.AppendUint64(body, uint64(p.Source))
	body = binary.BigEndian.AppendUint16(body, p.Network)
	body = append(body, p.Options)
	body = append(body, p.Data...)
	return NewFrame(FrameRxPacket, body)
}

// ParseTxStatus parses a transmit status frame.
func ParseTxStatus(f *Frame) (*TxStatus, error) {
	if f.Type() != FrameTxStatus {
		return nil, fmt.Errorf("not a TX status: 0x%02X", f.Type())
	}
	b := f.Body()
	if len(b) < 6 {
		return nil, fmt.Errorf("%w: TX status body %d bytes", ErrFrameLength, len(b))
	}
	return &TxStatus{
		FrameID:   b[0],
		Network:   binary.BigEndian.Uint16(b[1:3]),
		Retries:   b[3],
		Delivery:  b[4],
		Discovery: b[5],
	}, nil
}

// ParseModemStatus parses a modem status frame.
func ParseModemStatus(f *Frame) (*ModemStatus, error) {
	if f.Type() != FrameModemStatus {
		return nil, fmt.Errorf("not a modem status: 0x%02X", f.Type())
	}
	if len(f.Body()) < 1 {
		return nil, fmt.Errorf("%w: empty modem status", ErrFrameLength)
	}
	return &ModemStatus{Status: f.Body()[0]}, nil
}

// ParseIOSample parses an IO data sample frame. Digital samples are present
// only when the digital mask is non-zero; analog samples follow in ascending
// channel order.
func ParseIOSample(f *Frame) (*IOSample, error) {
	if f.Type() != FrameIOSample {
		return nil, fmt.Errorf("not an IO sample: 0x%02X", f.Type())
	}
	b := f.Body()
	if len(b) < 15 {
		return nil, fmt.Errorf("%w: IO sample body %d bytes", ErrFrameLength, len(b))
	}
	s := &IOSample{
		Source:      AddressFromBytes(b[0:8]),
		Network:     binary.BigEndian.Uint16(b[8:10]),
		Options:     b[10],
		DigitalMask: binary.BigEndian.Uint16(b[12:14]),
		AnalogMask:  b[14],
		analog:      make(map[AnalogChannel]uint16),
	}
	pos := 15
	if s.DigitalMask != 0 {
		if len(b) < pos+2 {
			return nil, fmt.Errorf("%w: missing digital samples", ErrFrameLength)
		}
		s.Digital = binary.BigEndian.Uint16(b[pos : pos+2])
		pos += 2
	}
	for bit := 0; bit < 8; bit++ {
		if s.AnalogMask&(1<<bit) == 0 {
			continue
		}
		if len(b) < pos+2 {
			return nil, fmt.Errorf("%w: missing analog sample %d", ErrFrameLength, bit)
		}
		s.analog[AnalogChannel(bit)] = binary.BigEndian.Uint16(b[pos : pos+2])
		pos += 2
	}
	return s, nil
}

// DeliveryStatusName returns a human-readable delivery status.
func DeliveryStatusName(status byte) string {
	switch status {
	case DeliverySuccess:
		return "success"
	case DeliveryMACAckFailure:
		return "mac_ack_failure"
	case DeliveryNetworkAck:
		return "network_ack_failure"
	case DeliveryNotJoined:
		return "not_joined"
	case DeliveryAddressNotFnd:
		return "address_not_found"
	case DeliveryRouteNotFound:
		return "route_not_found"
	case DeliveryPayloadTooBig:
		return "payload_too_large"
	default:
		return fmt.Sprintf("status_0x%02X", status)
	}
}

// ModemStatusName returns a human-readable modem status.
func ModemStatusName(status byte) string {
	switch status {
	case ModemHardwareReset:
		return "hardware_reset"
	case ModemWatchdogReset:
		return "watchdog_reset"
	case ModemJoinedNetwork:
		return "joined_network"
	case ModemDisassociated:
		return "disassociated"
	case ModemCoordinatorUp:
		return "coordinator_started"
	case ModemNetworkWokeUp:
		return "network_woke_up"
	case ModemNetworkAsleep:
		return "network_asleep"
	case ModemVoltageTooHigh:
		return "voltage_too_high"
	default:
		return fmt.Sprintf("status_0x%02X", status)
	}
}
