// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package thermonet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownCommand is returned for a request with an unrecognised prefix.
var ErrUnknownCommand = errors.New("unknown command")

// ArgumentError reports a malformed request for a known command.
type ArgumentError struct {
	Prefix string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Prefix, e.Reason)
}

func argError(prefix, format string, args ...any) error {
	return &ArgumentError{Prefix: prefix, Reason: fmt.Sprintf(format, args...)}
}

// NackText returns the immediate response for a request that failed to parse.
func NackText(err error) string {
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return argErr.Prefix + ":NACK"
	}
	return "NACK"
}

// ParseRequest parses a text request ("TS:ON", "TR:ADD:0:7:6.5:21").
// Fields are ':'-separated; keywords are case-insensitive.
func ParseRequest(text string) (Command, error) {
	text = strings.TrimSpace(strings.TrimRight(text, "\x00"))
	if text == "" {
		return nil, fmt.Errorf("%w: empty request", ErrUnknownCommand)
	}

	args := strings.Split(text, ":")
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}

	switch prefix := strings.ToUpper(args[0]); prefix {
	case "TS":
		return parseThermoPower(args)
	case "PO":
		return parseOverride(args)
	case "TR":
		return parseRuleCommand(args)
	case "CR":
		return parseTimeCommand(args)
	case "ST":
		if len(args) != 1 {
			return nil, argError("ST", "status takes no arguments")
		}
		return StatusQuery{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
	}
}

func parseThermoPower(args []string) (Command, error) {
	if len(args) != 2 {
		return nil, argError("TS", "requires 2 arguments, got %d", len(args))
	}
	switch strings.ToUpper(args[1]) {
	case "ON":
		return ThermoPower{On: true}, nil
	case "OFF":
		return ThermoPower{On: false}, nil
	default:
		return nil, argError("TS", "unknown state %q", args[1])
	}
}

func parseOverride(args []string) (Command, error) {
	if len(args) < 2 {
		return nil, argError("PO", "missing state")
	}
	switch strings.ToUpper(args[1]) {
	case "ON":
		if len(args) != 3 {
			return nil, argError("PO", "ON requires a temperature")
		}
		target, err := parseFloat(args[2])
		if err != nil {
			return nil, argError("PO", "temperature: %v", err)
		}
		return Override{On: true, Target: target}, nil
	case "OFF":
		if len(args) > 3 {
			return nil, argError("PO", "too many arguments")
		}
		return Override{On: false}, nil
	default:
		return nil, argError("PO", "unknown state %q", args[1])
	}
}

func parseRuleCommand(args []string) (Command, error) {
	if len(args) < 2 {
		return nil, argError("TR", "missing operation")
	}

	var cmd RuleCommand
	var err error
	switch op := strings.ToUpper(args[1]); op {
	case "GET":
		if len(args) != 2 {
			return nil, argError("TR", "GET takes no arguments")
		}
		cmd.Op = RuleGet

	case "ADD", "UPDATE":
		if len(args) != 6 {
			return nil, argError("TR", "%s requires 6 arguments, got %d", op, len(args))
		}
		cmd.Op = RuleUpdate
		if op == "ADD" {
			cmd.Op = RuleAdd
		}
		if cmd.Op == RuleAdd && args[2] == "-1" {
			cmd.Pos1 = PositionAppend
		} else if cmd.Pos1, err = parseByte(args[2]); err != nil {
			return nil, argError("TR", "position: %v", err)
		}
		day, err := parseByte(args[3])
		if err != nil || !DayType(day).Valid() {
			return nil, argError("TR", "day type %q out of range 0-9", args[3])
		}
		cmd.Rule.Days = DayType(day)
		if cmd.Rule.Time, err = parseFloat(args[4]); err != nil {
			return nil, argError("TR", "time: %v", err)
		}
		if cmd.Rule.Temperature, err = parseFloat(args[5]); err != nil {
			return nil, argError("TR", "temperature: %v", err)
		}

	case "DELETE":
		if len(args) != 3 {
			return nil, argError("TR", "DELETE requires 3 arguments, got %d", len(args))
		}
		cmd.Op = RuleDelete
		if cmd.Pos1, err = parseByte(args[2]); err != nil {
			return nil, argError("TR", "position: %v", err)
		}

	case "MOVE":
		if len(args) != 4 {
			return nil, argError("TR", "MOVE requires 4 arguments, got %d", len(args))
		}
		cmd.Op = RuleMove
		if cmd.Pos1, err = parseByte(args[2]); err != nil {
			return nil, argError("TR", "from position: %v", err)
		}
		if cmd.Pos2, err = parseByte(args[3]); err != nil {
			return nil, argError("TR", "to position: %v", err)
		}

	default:
		return nil, argError("TR", "unknown operation %q", args[1])
	}
	return cmd, nil
}

func parseTimeCommand(args []string) (Command, error) {
	if len(args) < 2 {
		return nil, argError("CR", "missing operation")
	}
	switch strings.ToUpper(args[1]) {
	case "GET":
		if len(args) != 2 {
			return nil, argError("CR", "GET takes no arguments")
		}
		return TimeCommand{Op: TimeGet}, nil
	case "SET":
		if len(args) != 2+ClockFieldCount {
			return nil, argError("CR", "SET requires %d arguments, got %d", 2+ClockFieldCount, len(args))
		}
		var fields [ClockFieldCount]uint8
		for i := range fields {
			v, err := parseByte(args[2+i])
			if err != nil {
				return nil, argError("CR", "field %d: %v", i+1, err)
			}
			fields[i] = v
		}
		return TimeCommand{Op: TimeSet, Clock: ClockTime{
			Second:  fields[0],
			Minute:  fields[1],
			Hour:    fields[2],
			Weekday: fields[3],
			Day:     fields[4],
			Month:   fields[5],
			Year:    fields[6],
		}}, nil
	default:
		return nil, argError("CR", "unknown operation %q", args[1])
	}
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%q is not a byte value", s)
	}
	return uint8(v), nil
}

func parseFloat(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return float32(v), nil
}
