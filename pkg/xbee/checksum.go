// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

// Checksum returns 0xFF minus the low byte of the sum of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return 0xFF - sum
}

// VerifyChecksum reports whether the sum of data and checksum is 0xFF.
func VerifyChecksum(data []byte, checksum byte) bool {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum+checksum == 0xFF
}
