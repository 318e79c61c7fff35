// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package thermonet

import (
	"fmt"
	"strconv"
)

// Command is a request bound for the relay thermostat. The set of
// implementations is closed: ThermoPower, Override, RuleCommand, TimeCommand
// and StatusQuery.
type Command interface {
	// Code is the command code carried in the first payload byte.
	Code() byte
	// Payload is the binary RF payload.
	Payload() []byte
	// Prefix is the two-letter text command ("TS", "PO", "TR", "CR", "ST").
	Prefix() string
	// NackText is the response delivered when the exchange fails.
	NackText() string
	// String is the canonical text form accepted by ParseRequest.
	String() string

	command()
}

// onOff returns the sub-command byte for a power state
func onOff(on bool) byte {
	if on {
		return SubOn
	}
	return SubOff
}

func onOffText(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// formatFloat renders a float the way the text protocol expects it back
func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

// ============================================================
// Thermostat power
// ============================================================

// ThermoPower turns the thermostat on or off (TS).
type ThermoPower struct {
	On bool
}

func (ThermoPower) command()          {}
func (ThermoPower) Code() byte        { return CmdThermoPower }
func (ThermoPower) Prefix() string    { return "TS" }
func (ThermoPower) NackText() string  { return "TS:NACK" }
func (c ThermoPower) String() string  { return "TS:" + onOffText(c.On) }
func (c ThermoPower) Payload() []byte { return []byte{CmdThermoPower, onOff(c.On)} }

// ============================================================
// Program override
// ============================================================

// Override holds a fixed setpoint in place of the rule schedule (PO).
type Override struct {
	On     bool
	Target float32
}

func (Override) command()         {}
func (Override) Code() byte       { return CmdOverride }
func (Override) Prefix() string   { return "PO" }
func (Override) NackText() string { return "PO:NACK" }

func (c Override) String() string {
	if !c.On {
		return "PO:OFF"
	}
	return "PO:ON:" + formatFloat(c.Target)
}

func (c Override) Payload() []byte {
	return AppendFloat32([]byte{CmdOverride, onOff(c.On)}, c.Target)
}

// ============================================================
// Rule changes
// ============================================================

// RuleOp is a rule list operation.
type RuleOp uint8

// Rule operations
const (
	RuleGet RuleOp = iota
	RuleAdd
	RuleDelete
	RuleMove
	RuleUpdate
)

// Sub returns the sub-command byte for the operation.
func (op RuleOp) Sub() byte {
	switch op {
	case RuleAdd:
		return SubAdd
	case RuleDelete:
		return SubDelete
	case RuleMove:
		return SubMove
	case RuleUpdate:
		return SubUpdate
	default:
		return SubGet
	}
}

func (op RuleOp) String() string {
	switch op {
	case RuleGet:
		return "GET"
	case RuleAdd:
		return "ADD"
	case RuleDelete:
		return "DELETE"
	case RuleMove:
		return "MOVE"
	case RuleUpdate:
		return "UPDATE"
	default:
		return fmt.Sprintf("RULE_OP_%d", uint8(op))
	}
}

// RuleCommand reads or edits the thermostat's rule list (TR).
// Pos1 is the insert, delete, update or move-from position; Pos2 is the
// move-to position. Rule is used by Add and Update.
type RuleCommand struct {
	Op   RuleOp
	Pos1 uint8
	Pos2 uint8
	Rule TemperatureRule
}

func (RuleCommand) command()           {}
func (RuleCommand) Code() byte         { return CmdRuleChange }
func (RuleCommand) Prefix() string     { return "TR" }
func (c RuleCommand) NackText() string { return "TR:" + c.Op.String() + ":NACK" }

func (c RuleCommand) String() string {
	switch c.Op {
	case RuleAdd, RuleUpdate:
		pos := strconv.Itoa(int(c.Pos1))
		if c.Op == RuleAdd && c.Pos1 == PositionAppend {
			pos = "-1"
		}
		return fmt.Sprintf("TR:%s:%s:%d:%s:%s", c.Op, pos, c.Rule.Days,
			formatFloat(c.Rule.Time), formatFloat(c.Rule.Temperature))
	case RuleDelete:
		return fmt.Sprintf("TR:%s:%d", c.Op, c.Pos1)
	case RuleMove:
		return fmt.Sprintf("TR:%s:%d:%d", c.Op, c.Pos1, c.Pos2)
	default:
		return "TR:GET"
	}
}

func (c RuleCommand) Payload() []byte {
	b := []byte{CmdRuleChange, c.Op.Sub()}
	switch c.Op {
	case RuleAdd, RuleUpdate:
		b = append(b, c.Pos1)
		b = c.Rule.appendBinary(b)
	case RuleDelete:
		b = append(b, c.Pos1)
	case RuleMove:
		b = append(b, c.Pos1, c.Pos2)
	}
	return b
}

// ============================================================
// Relay clock
// ============================================================

// TimeOp is a relay clock operation.
type TimeOp uint8

// Clock operations
const (
	TimeGet TimeOp = iota
	TimeSet
)

func (op TimeOp) String() string {
	if op == TimeSet {
		return "SET"
	}
	return "GET"
}

// ClockTime holds the relay real-time clock fields in wire order.
type ClockTime struct {
	Second  uint8
	Minute  uint8
	Hour    uint8
	Weekday uint8
	Day     uint8
	Month   uint8
	Year    uint8 // years since 2000
}

// Bytes returns the clock fields in wire order.
func (t ClockTime) Bytes() []byte {
	return []byte{t.Second, t.Minute, t.Hour, t.Weekday, t.Day, t.Month, t.Year}
}

// TimeCommand reads or sets the relay clock (CR).
type TimeCommand struct {
	Op    TimeOp
	Clock ClockTime
}

func (TimeCommand) command()         {}
func (TimeCommand) Code() byte       { return CmdTimeRequest }
func (TimeCommand) Prefix() string   { return "CR" }
func (TimeCommand) NackText() string { return "CR:NACK" }

func (c TimeCommand) String() string {
	if c.Op != TimeSet {
		return "CR:GET"
	}
	k := c.Clock
	return fmt.Sprintf("CR:SET:%d:%d:%d:%d:%d:%d:%d", k.Second, k.Minute, k.Hour, k.Weekday, k.Day, k.Month, k.Year)
}

func (c TimeCommand) Payload() []byte {
	if c.Op != TimeSet {
		return []byte{CmdTimeRequest, SubGet}
	}
	return append([]byte{CmdTimeRequest, SubUpdate}, c.Clock.Bytes()...)
}

// ============================================================
// Status
// ============================================================

// StatusQuery asks the relay for its current status (ST).
type StatusQuery struct{}

func (StatusQuery) command()         {}
func (StatusQuery) Code() byte       { return CmdStatus }
func (StatusQuery) Prefix() string   { return "ST" }
func (StatusQuery) NackText() string { return "ST:NACK" }
func (StatusQuery) String() string   { return "ST" }
func (StatusQuery) Payload() []byte  { return []byte{CmdStatus} }

// SensorAck is the acknowledgment sent to a relay after it pushes sensor data.
func SensorAck() []byte {
	return []byte{CmdSensorData, SubAck}
}
