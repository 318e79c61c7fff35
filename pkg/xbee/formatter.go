// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import (
	"fmt"
	"strings"
)

// FormatHex renders bytes as dash-separated upper-case hex ("7E-00-0F").
func FormatHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte('-')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n", timestamp, f.TypeName(), f.apiID, len(f.body)+1)

	switch f.apiID {
	case FrameRxPacket:
		if rx, err := ParseRxPacket(f); err == nil {
			result += fmt.Sprintf("  src=%s net=0x%04X opts=0x%02X\n", rx.Source, rx.Network, rx.Options)
			result += fmt.Sprintf("  data=%s\n", FormatHex(rx.Data))
			return result
		}
	case FrameTxRequest:
		if tx, err := ParseTxRequest(f); err == nil {
			result += fmt.Sprintf("  id=%d dst=%s net=0x%04X opts=0x%02X\n", tx.FrameID, tx.Destination, tx.Network, tx.Options)
			result += fmt.Sprintf("  data=%s\n", FormatHex(tx.Data))
			return result
		}
	case FrameTxStatus:
		if st, err := ParseTxStatus(f); err == nil {
			result += fmt.Sprintf("  id=%d retries=%d delivery=%s\n", st.FrameID, st.Retries, DeliveryStatusName(st.Delivery))
			return result
		}
	case FrameModemStatus:
		if ms, err := ParseModemStatus(f); err == nil {
			result += fmt.Sprintf("  status=%s\n", ModemStatusName(ms.Status))
			return result
		}
	case FrameIOSample:
		if s, err := ParseIOSample(f); err == nil {
			result += fmt.Sprintf("  src=%s dmask=0x%04X amask=0x%02X", s.Source, s.DigitalMask, s.AnalogMask)
			for _, ch := range []AnalogChannel{AnalogA0, AnalogA1, AnalogA2, AnalogA3, AnalogSupply} {
				if v, ok := s.Analog(ch); ok {
					result += fmt.Sprintf(" a%d=%d", ch, v)
				}
			}
			return result + "\n"
		}
	}

	return result + fmt.Sprintf("  body=%s\n", FormatHex(f.body))
}
