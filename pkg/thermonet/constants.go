// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package thermonet implements the thermostat command set carried inside
// XBee RF payloads: text request parsing, binary command encoding, reply
// decoding and sensor telemetry decoding.
package thermonet

// Command codes (first byte of every RF payload)
const (
	CmdThermoPower = 0x01
	CmdOverride    = 0x02
	CmdRuleChange  = 0x03
	CmdSensorData  = 0x04
	CmdTimeRequest = 0x05
	CmdStatus      = 0x06
)

// Sub-command codes
const (
	SubNack   = 0x00
	SubAck    = 0x01
	SubOff    = 0x02
	SubOn     = 0x03
	SubGet    = 0x04
	SubAdd    = 0x05
	SubDelete = 0x06
	SubMove   = 0x07
	SubUpdate = 0x08
)

// Payload sizes
const (
	RuleBlockSize   = 9  // [day][time f32][temp f32]
	ReadingSize     = 5  // [tag][value f32]
	StatusReplySize = 11 // [cmd][thermo][relay][temp f32][target f32]
	ClockFieldCount = 7
)

// Rule positions
const (
	PositionAppend = 0xFF // TR:ADD with position -1
)

// Analog conversion and pressure correction constants
const (
	AnalogReference      = 1.2
	AnalogFullScale      = 1023.0
	DefaultSupplyVoltage = 3.3
	StationElevation     = 167.64 // metres
)

// CommandName returns the text prefix for a command code, or "" if the code
// is unknown.
func CommandName(code byte) string {
	switch code {
	case CmdThermoPower:
		return "TS"
	case CmdOverride:
		return "PO"
	case CmdRuleChange:
		return "TR"
	case CmdSensorData:
		return "SENSOR"
	case CmdTimeRequest:
		return "CR"
	case CmdStatus:
		return "ST"
	default:
		return ""
	}
}
