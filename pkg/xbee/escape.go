// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import "errors"

// ErrTruncatedEscape is returned when data ends with an escape byte.
var ErrTruncatedEscape = errors.New("incomplete escape sequence at end of data")

// NeedsEscape reports whether b must be escaped in API mode 2.
func NeedsEscape(b byte) bool {
	switch b {
	case StartByte, EscByte, XonByte, XoffByte:
		return true
	}
	return false
}

// Escape applies API mode 2 escaping to data.
func Escape(data []byte) []byte {
	result := make([]byte, 0, len(data)+len(data)/8)
	for _, b := range data {
		if NeedsEscape(b) {
			result = append(result, EscByte, b^EscXor)
		} else {
			result = append(result, b)
		}
	}
	return result
}

// Unescape removes API mode 2 escaping from data.
func Unescape(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data))
	escaped := false
	for _, b := range data {
		if escaped {
			result = append(result, b^EscXor)
			escaped = false
			continue
		}
		if b == EscByte {
			escaped = true
			continue
		}
		result = append(result, b)
	}
	if escaped {
		return nil, ErrTruncatedEscape
	}
	return result, nil
}
