// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strings"
	"testing"

	"github.com/Thermoquad/thermogate/pkg/thermonet"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

const (
	testRelay  xbee.Address = 0x0013A20040AEB97F
	testSensor xbee.Address = 0x0013A20040AEBA93
)

func rxFrame(source xbee.Address, payload []byte) *xbee.Frame {
	return xbee.EncodeRxPacket(xbee.RxPacket{Source: source, Network: 0xFFFE, Options: xbee.RxOptionAcknowledged, Data: xbee.Escape(payload)})
}

func TestDescribeFrame(t *testing.T) {
	temp := thermonet.EncodeReadings([]thermonet.SensorReading{{Kind: thermonet.Temperature, Value: 21.5}})
	// Remote sensor nodes forward a whole unescaped TX request frame
	inner := xbee.NewTxRequest(0, xbee.AddressCoordinator, temp)
	raw := append([]byte{xbee.StartByte, 0x00, byte(len(inner.Data()))}, inner.Data()...)
	raw = append(raw, inner.Checksum())

	tests := []struct {
		name  string
		frame *xbee.Frame
		want  string
	}{
		{
			name:  "status reply",
			frame: rxFrame(testRelay, []byte{thermonet.CmdStatus, 0x03, 0x02}),
			want:  "ST reply: 03-02",
		},
		{
			name:  "sensor data",
			frame: rxFrame(testSensor, append([]byte{thermonet.CmdSensorData}, temp...)),
			want:  "sensor data: radio_id=40aeba93&temperature=21.50",
		},
		{
			name:  "bad sensor data",
			frame: rxFrame(testSensor, []byte{thermonet.CmdSensorData, 0x03, 0, 0, 0, 0}),
			want:  "sensor data: ",
		},
		{
			name:  "remote sensor frame",
			frame: rxFrame(testRelay, raw),
			want:  "remote sensor: radio_id=40aeb97f&temperature=21.50",
		},
		{
			name:  "unknown code",
			frame: rxFrame(testRelay, []byte{0x42}),
			want:  "unknown code 0x42",
		},
		{
			name:  "empty payload",
			frame: rxFrame(testRelay, nil),
			want:  "empty payload",
		},
		{
			name:  "outgoing command",
			frame: xbee.NewTxRequest(1, testRelay, thermonet.ThermoPower{On: true}.Payload()),
			want:  "TS command: 03",
		},
		{
			name:  "outgoing sensor ack",
			frame: xbee.NewTxRequest(1, testSensor, thermonet.SensorAck()),
			want:  "sensor ack",
		},
		{
			name: "io sample",
			frame: xbee.NewFrame(xbee.FrameIOSample, []byte{
				0x00, 0x13, 0xA2, 0x00, 0x40, 0xAE, 0xBA, 0x93,
				0x12, 0x34,
				0x01,
				0x01,
				0x00, 0x00,
				0x03,
				0x02, 0x00,
				0x01, 0x00,
			}),
			want: "io sample: radio_id=40aeba93&temperature=10.06&luminosity=0.30&power=3.30",
		},
		{
			name:  "modem status",
			frame: xbee.NewFrame(xbee.FrameModemStatus, []byte{xbee.ModemJoinedNetwork}),
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeFrame(tt.frame, true)
			if tt.want == "" {
				if got != "" {
					t.Errorf("describeFrame() = %q, want empty", got)
				}
				return
			}
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("describeFrame() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestDescribeFrame_EscapedPayload(t *testing.T) {
	// 0x11 must be escaped inside the RF payload
	frame := rxFrame(testRelay, []byte{thermonet.CmdStatus, 0x11})

	if got := describeFrame(frame, true); got != "ST reply: 11" {
		t.Errorf("unescaped = %q", got)
	}
	if got := describeFrame(frame, false); got != "ST reply: 7D-31" {
		t.Errorf("raw = %q", got)
	}
}

func TestInspectFrame_Issues(t *testing.T) {
	tests := []struct {
		name  string
		frame *xbee.Frame
		issue bool
	}{
		{"reply", rxFrame(testRelay, []byte{thermonet.CmdThermoPower, thermonet.SubAck}), false},
		{"unknown code", rxFrame(testRelay, []byte{0x42}), true},
		{"empty", rxFrame(testRelay, nil), true},
		{"dangling escape", xbee.EncodeRxPacket(xbee.RxPacket{Source: testRelay, Data: []byte{0x06, xbee.EscByte}}), true},
		{"delivered", xbee.NewFrame(xbee.FrameTxStatus, []byte{0x01, 0xFF, 0xFE, 0x00, xbee.DeliverySuccess, 0x00}), false},
		{"delivery failed", xbee.NewFrame(xbee.FrameTxStatus, []byte{0x01, 0xFF, 0xFE, 0x02, xbee.DeliveryRouteNotFound, 0x00}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := inspectFrame(tt.frame, true)
			if (info.issue != nil) != tt.issue {
				t.Errorf("issue = %v, want issue %v", info.issue, tt.issue)
			}
		})
	}
}
