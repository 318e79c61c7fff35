// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a 64-bit radio hardware address (serial number high + low).
type Address uint64

// ParseAddress parses 16 hex digits, optionally separated by spaces, colons
// or dashes ("0013A20040AEB97F", "00 13 A2 00 40 AE B9 7F").
func ParseAddress(s string) (Address, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "-", "").Replace(strings.TrimSpace(s))
	if len(clean) != AddressSize*2 {
		return 0, fmt.Errorf("invalid address %q: expected %d hex digits", s, AddressSize*2)
	}
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return Address(binary.BigEndian.Uint64(raw)), nil
}

// AddressFromBytes reads a big-endian address from the first 8 bytes of b.
func AddressFromBytes(b []byte) Address {
	return Address(binary.BigEndian.Uint64(b[:AddressSize]))
}

// Bytes returns the address in wire (big-endian) order.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	binary.BigEndian.PutUint64(b, uint64(a))
	return b
}

// String returns the address as 16 upper-case hex digits.
func (a Address) String() string {
	return fmt.Sprintf("%016X", uint64(a))
}

// Short returns the serial number low word as 8 lower-case hex digits. This
// is the radio_id used by the telemetry database.
func (a Address) Short() string {
	return fmt.Sprintf("%08x", uint32(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
