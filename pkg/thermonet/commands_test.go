// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package thermonet

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

// ============================================================
// Encoder Tests
// ============================================================

func TestCommand_Payload(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected []byte
	}{
		{"thermo on", ThermoPower{On: true}, []byte{0x01, 0x03}},
		{"thermo off", ThermoPower{On: false}, []byte{0x01, 0x02}},
		{"override on", Override{On: true, Target: 21.5}, []byte{0x02, 0x03, 0x00, 0x00, 0xAC, 0x41}},
		{"override off", Override{On: false}, []byte{0x02, 0x02, 0x00, 0x00, 0x00, 0x00}},
		{"rule get", RuleCommand{Op: RuleGet}, []byte{0x03, 0x04}},
		{"rule delete", RuleCommand{Op: RuleDelete, Pos1: 2}, []byte{0x03, 0x06, 0x02}},
		{"rule move", RuleCommand{Op: RuleMove, Pos1: 1, Pos2: 4}, []byte{0x03, 0x07, 0x01, 0x04}},
		{
			"rule add",
			RuleCommand{Op: RuleAdd, Pos1: 0, Rule: TemperatureRule{Days: Weekdays, Time: 6.5, Temperature: 21}},
			[]byte{0x03, 0x05, 0x00, 0x07, 0x00, 0x00, 0xD0, 0x40, 0x00, 0x00, 0xA8, 0x41},
		},
		{
			"rule update",
			RuleCommand{Op: RuleUpdate, Pos1: 3, Rule: TemperatureRule{Days: Sunday, Time: 0, Temperature: -2}},
			[]byte{0x03, 0x08, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xC0},
		},
		{"time get", TimeCommand{Op: TimeGet}, []byte{0x05, 0x04}},
		{
			"time set",
			TimeCommand{Op: TimeSet, Clock: ClockTime{Second: 30, Minute: 15, Hour: 8, Weekday: 2, Day: 14, Month: 10, Year: 25}},
			[]byte{0x05, 0x08, 30, 15, 8, 2, 14, 10, 25},
		},
		{"status", StatusQuery{}, []byte{0x06}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cmd.Payload()
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Payload() = % X, want % X", got, tt.expected)
			}
			if got[0] != tt.cmd.Code() {
				t.Errorf("first byte 0x%02X != Code() 0x%02X", got[0], tt.cmd.Code())
			}
		})
	}
}

func TestCommand_NackText(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{ThermoPower{On: true}, "TS:NACK"},
		{Override{On: true, Target: 20}, "PO:NACK"},
		{RuleCommand{Op: RuleGet}, "TR:GET:NACK"},
		{RuleCommand{Op: RuleMove}, "TR:MOVE:NACK"},
		{TimeCommand{Op: TimeSet}, "CR:NACK"},
		{StatusQuery{}, "ST:NACK"},
	}
	for _, tt := range tests {
		if got := tt.cmd.NackText(); got != tt.want {
			t.Errorf("%s NackText() = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

// ============================================================
// Rule Tests
// ============================================================

func TestTemperatureRule_RoundTrip(t *testing.T) {
	rules := []TemperatureRule{
		{Days: Sunday, Time: 0, Temperature: 0},
		{Days: Saturday, Time: 23.75, Temperature: 18.25},
		{Days: Weekdays, Time: 6.5, Temperature: 21},
		{Days: Weekends, Time: 9.25, Temperature: -5.5},
		{Days: Everyday, Time: 12, Temperature: float32(math.SmallestNonzeroFloat32)},
		{Days: Everyday, Time: 1.0 / 3.0, Temperature: -273.15},
	}
	for _, r := range rules {
		b, err := r.MarshalBinary()
		if err != nil {
			t.Fatalf("MarshalBinary error: %v", err)
		}
		if len(b) != RuleBlockSize {
			t.Fatalf("block size = %d", len(b))
		}
		var back TemperatureRule
		if err := back.UnmarshalBinary(b); err != nil {
			t.Fatalf("UnmarshalBinary error: %v", err)
		}
		if back.Days != r.Days ||
			math.Float32bits(back.Time) != math.Float32bits(r.Time) ||
			math.Float32bits(back.Temperature) != math.Float32bits(r.Temperature) {
			t.Errorf("round trip: got %+v, want %+v", back, r)
		}
	}
}

func TestTemperatureRule_UnmarshalLength(t *testing.T) {
	var r TemperatureRule
	if err := r.UnmarshalBinary(make([]byte, 8)); !errors.Is(err, ErrRuleLength) {
		t.Errorf("expected ErrRuleLength, got %v", err)
	}
}

func TestDayType_String(t *testing.T) {
	if Weekends.String() != "WEEKENDS" || Sunday.String() != "SUNDAY" {
		t.Error("unexpected day names")
	}
	if DayType(10).Valid() {
		t.Error("day type 10 should be invalid")
	}
}

func buildRuleList(entries ...TemperatureRule) []byte {
	b := []byte{byte(len(entries))}
	for _, r := range entries {
		block, _ := r.MarshalBinary()
		b = append(b, block...)
	}
	return b
}

func TestDecodeRuleList(t *testing.T) {
	data := buildRuleList(
		TemperatureRule{Days: Sunday, Time: 6.5, Temperature: 21},
		TemperatureRule{Days: Wednesday, Time: 22, Temperature: 17.5},
	)
	entries, err := DecodeRuleList(data)
	if err != nil {
		t.Fatalf("DecodeRuleList error: %v", err)
	}
	if got := FormatRuleList(entries); got != "2:0-6.50-21.00:3-22.00-17.50" {
		t.Errorf("FormatRuleList = %q", got)
	}

	empty, err := DecodeRuleList([]byte{0})
	if err != nil || FormatRuleList(empty) != "0" {
		t.Errorf("empty list: %v %q", err, FormatRuleList(empty))
	}

	if _, err := DecodeRuleList(data[:len(data)-1]); !errors.Is(err, ErrRuleLength) {
		t.Errorf("expected ErrRuleLength for truncated list, got %v", err)
	}
	if _, err := DecodeRuleList(nil); !errors.Is(err, ErrRuleLength) {
		t.Errorf("expected ErrRuleLength for empty input, got %v", err)
	}
}

func TestCommandName(t *testing.T) {
	cmds := []Command{ThermoPower{}, Override{}, RuleCommand{}, TimeCommand{}, StatusQuery{}}
	for _, c := range cmds {
		if got := CommandName(c.Code()); got != c.Prefix() {
			t.Errorf("CommandName(0x%02X) = %q, want %q", c.Code(), got, c.Prefix())
		}
	}
	if CommandName(CmdSensorData) != "SENSOR" {
		t.Errorf("CommandName(sensor) = %q", CommandName(CmdSensorData))
	}
	if CommandName(0x42) != "" {
		t.Errorf("CommandName(0x42) = %q, want empty", CommandName(0x42))
	}
}
