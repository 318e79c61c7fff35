// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package thermonet

import (
	"encoding/binary"
	"math"
)

// Float32 reads a little-endian IEEE-754 float from the first 4 bytes of b.
func Float32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// AppendFloat32 appends v to b as a little-endian IEEE-754 float.
func AppendFloat32(b []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
}
