// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package thermonet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRuleLength is returned when a rule block or rule list is truncated.
var ErrRuleLength = errors.New("invalid rule length")

// DayType selects the days a temperature rule applies to.
type DayType uint8

// Day types
const (
	Sunday DayType = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Weekdays
	Weekends
	Everyday
)

var dayNames = [...]string{
	"SUNDAY", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY",
	"WEEKDAYS", "WEEKENDS", "EVERYDAY",
}

// Valid reports whether d is one of the ten defined day types.
func (d DayType) Valid() bool {
	return d <= Everyday
}

func (d DayType) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DAY_%d", uint8(d))
	}
	return dayNames[d]
}

// TemperatureRule is a scheduled setpoint stored on the thermostat.
// Time is the hour of day as a decimal (6.5 = 06:30).
type TemperatureRule struct {
	Days        DayType
	Time        float32
	Temperature float32
}

// MarshalBinary encodes the rule as a 9-byte block.
func (r TemperatureRule) MarshalBinary() ([]byte, error) {
	return r.appendBinary(make([]byte, 0, RuleBlockSize)), nil
}

func (r TemperatureRule) appendBinary(b []byte) []byte {
	b = append(b, byte(r.Days))
	b = AppendFloat32(b, r.Time)
	return AppendFloat32(b, r.Temperature)
}

// UnmarshalBinary decodes a 9-byte block.
func (r *TemperatureRule) UnmarshalBinary(b []byte) error {
	if len(b) != RuleBlockSize {
		return fmt.Errorf("%w: %d bytes (want %d)", ErrRuleLength, len(b), RuleBlockSize)
	}
	r.Days = DayType(b[0])
	r.Time = Float32(b[1:5])
	r.Temperature = Float32(b[5:9])
	return nil
}

// RuleEntry is one block of a rule list reply. Lead is the block's first
// byte as sent by the thermostat.
type RuleEntry struct {
	Lead byte
	Rule TemperatureRule
}

// DecodeRuleList decodes [N][N x 9-byte block].
func DecodeRuleList(b []byte) ([]RuleEntry, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("%w: missing rule count", ErrRuleLength)
	}
	n := int(b[0])
	if len(b) < 1+n*RuleBlockSize {
		return nil, fmt.Errorf("%w: %d rules need %d bytes, have %d", ErrRuleLength, n, 1+n*RuleBlockSize, len(b))
	}
	entries := make([]RuleEntry, n)
	for i := range entries {
		block := b[1+i*RuleBlockSize : 1+(i+1)*RuleBlockSize]
		entries[i].Lead = block[0]
		if err := entries[i].Rule.UnmarshalBinary(block); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// FormatRuleList renders "N:<lead>-<time>-<temp>:..." with two decimals.
func FormatRuleList(entries []RuleEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&sb, ":%d-%.2f-%.2f", e.Lead, e.Rule.Time, e.Rule.Temperature)
	}
	return sb.String()
}
