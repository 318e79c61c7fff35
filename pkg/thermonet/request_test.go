// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package thermonet

import (
	"errors"
	"testing"
)

func TestParseRequest_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"TS:ON", ThermoPower{On: true}},
		{"ts:off\r\n", ThermoPower{On: false}},
		{"PO:ON:21.5", Override{On: true, Target: 21.5}},
		{"PO:OFF", Override{On: false}},
		{"PO:OFF:0", Override{On: false}},
		{"TR:GET", RuleCommand{Op: RuleGet}},
		{"TR:ADD:0:7:6.5:21", RuleCommand{Op: RuleAdd, Pos1: 0, Rule: TemperatureRule{Days: Weekdays, Time: 6.5, Temperature: 21}}},
		{"TR:ADD:-1:9:22:16", RuleCommand{Op: RuleAdd, Pos1: PositionAppend, Rule: TemperatureRule{Days: Everyday, Time: 22, Temperature: 16}}},
		{"TR:update:2:8:7.25:-3.5", RuleCommand{Op: RuleUpdate, Pos1: 2, Rule: TemperatureRule{Days: Weekends, Time: 7.25, Temperature: -3.5}}},
		{"TR:DELETE:4", RuleCommand{Op: RuleDelete, Pos1: 4}},
		{"TR:MOVE:1:3", RuleCommand{Op: RuleMove, Pos1: 1, Pos2: 3}},
		{"CR:GET", TimeCommand{Op: TimeGet}},
		{"CR:SET:0:30:12:3:15:6:25", TimeCommand{Op: TimeSet, Clock: ClockTime{Second: 0, Minute: 30, Hour: 12, Weekday: 3, Day: 15, Month: 6, Year: 25}}},
		{"ST", StatusQuery{}},
		{"ST\x00\x00", StatusQuery{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRequest(tt.input)
			if err != nil {
				t.Fatalf("ParseRequest error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		input string
		nack  string
	}{
		{"", "NACK"},
		{"XX:ON", "NACK"},
		{"TS", "TS:NACK"},
		{"TS:MAYBE", "TS:NACK"},
		{"TS:ON:1", "TS:NACK"},
		{"PO:ON", "PO:NACK"},
		{"PO:ON:warm", "PO:NACK"},
		{"PO:ON:NaN", "PO:NACK"},
		{"TR", "TR:NACK"},
		{"TR:SWAP:1:2", "TR:NACK"},
		{"TR:ADD:0:7:6.5", "TR:NACK"},
		{"TR:ADD:0:10:6.5:21", "TR:NACK"},
		{"TR:ADD:256:1:6.5:21", "TR:NACK"},
		{"TR:UPDATE:-1:1:6.5:21", "TR:NACK"},
		{"TR:DELETE", "TR:NACK"},
		{"TR:MOVE:1", "TR:NACK"},
		{"CR:SET:1:2:3", "CR:NACK"},
		{"CR:SET:0:30:12:3:15:6:300", "CR:NACK"},
		{"CR:NOW", "CR:NACK"},
		{"ST:1", "ST:NACK"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseRequest(tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := NackText(err); got != tt.nack {
				t.Errorf("NackText = %q, want %q", got, tt.nack)
			}
		})
	}
}

func TestParseRequest_ErrorKinds(t *testing.T) {
	_, err := ParseRequest("ZZ")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}

	_, err = ParseRequest("TS:DIM")
	var argErr *ArgumentError
	if !errors.As(err, &argErr) || argErr.Prefix != "TS" {
		t.Errorf("expected ArgumentError for TS, got %v", err)
	}
}

func TestCommand_StringParsesBack(t *testing.T) {
	cmds := []Command{
		ThermoPower{On: true},
		Override{On: true, Target: 19.75},
		Override{On: false},
		RuleCommand{Op: RuleGet},
		RuleCommand{Op: RuleAdd, Pos1: PositionAppend, Rule: TemperatureRule{Days: Friday, Time: 17.5, Temperature: 20.5}},
		RuleCommand{Op: RuleUpdate, Pos1: 1, Rule: TemperatureRule{Days: Weekdays, Time: 6, Temperature: -1.25}},
		RuleCommand{Op: RuleDelete, Pos1: 9},
		RuleCommand{Op: RuleMove, Pos1: 2, Pos2: 0},
		TimeCommand{Op: TimeGet},
		TimeCommand{Op: TimeSet, Clock: ClockTime{Second: 59, Minute: 59, Hour: 23, Weekday: 6, Day: 31, Month: 12, Year: 99}},
		StatusQuery{},
	}
	for _, cmd := range cmds {
		got, err := ParseRequest(cmd.String())
		if err != nil {
			t.Errorf("ParseRequest(%q) error: %v", cmd.String(), err)
			continue
		}
		if got != cmd {
			t.Errorf("ParseRequest(%q) = %#v, want %#v", cmd.String(), got, cmd)
		}
	}
}
