// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package thermonet

import (
	"errors"
	"testing"
)

func TestDecodeReply_Text(t *testing.T) {
	status := []byte{CmdStatus, 1, 0}
	status = AppendFloat32(status, 21.5)
	status = AppendFloat32(status, 20)

	ruleList := append([]byte{CmdRuleChange, SubGet}, buildRuleList(
		TemperatureRule{Days: Sunday, Time: 6.5, Temperature: 21},
		TemperatureRule{Days: Wednesday, Time: 22, Temperature: 17.5},
	)...)

	tests := []struct {
		name    string
		cmd     Command
		payload []byte
		want    string
	}{
		{"thermo ack", ThermoPower{On: true}, []byte{0x01, 0x01}, "TS:ACK"},
		{"thermo nack", ThermoPower{On: true}, []byte{0x01, 0x00}, "TS:NACK"},
		{"override ack", Override{On: true, Target: 20}, []byte{0x02, 0x01}, "PO:ACK"},
		{"override other", Override{On: false}, []byte{0x02, 0x03}, "PO:NACK"},
		{"rule list", RuleCommand{Op: RuleGet}, ruleList, "TR:GET:2:0-6.50-21.00:3-22.00-17.50"},
		{"rule add ack", RuleCommand{Op: RuleAdd}, []byte{0x03, 0x05, 0x01}, "TR:ADD:ACK"},
		{"rule delete nack", RuleCommand{Op: RuleDelete}, []byte{0x03, 0x06, 0x00}, "TR:DELETE:NACK"},
		{"rule move ack", RuleCommand{Op: RuleMove}, []byte{0x03, 0x07, 0x01}, "TR:MOVE:ACK"},
		{"rule update ack", RuleCommand{Op: RuleUpdate}, []byte{0x03, 0x08, 0x01}, "TR:UPDATE:ACK"},
		{"rule unknown op", RuleCommand{Op: RuleAdd}, []byte{0x03, 0x09}, "TR:NACK"},
		{"clock get", TimeCommand{Op: TimeGet}, []byte{0x05, 0x04, 30, 15, 8, 2, 14, 10, 25}, "CR:30:15:8:2:14:10:25"},
		{"clock set ack", TimeCommand{Op: TimeSet}, []byte{0x05, 0x08, 0x01}, "CR:ACK"},
		{"clock unknown op", TimeCommand{Op: TimeGet}, []byte{0x05, 0x02}, "CR:NACK"},
		{"status", StatusQuery{}, status, "ST:ON:OFF:21.50:20.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeReply(tt.cmd, tt.payload)
			if err != nil {
				t.Fatalf("DecodeReply error: %v", err)
			}
			if got := resp.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeReply_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		payload []byte
		err     error
	}{
		{"empty", ThermoPower{}, nil, ErrReplyLength},
		{"mismatch", ThermoPower{}, []byte{0x06, 0x01}, ErrReplyMismatch},
		{"thermo short", ThermoPower{}, []byte{0x01}, ErrReplyLength},
		{"status short", StatusQuery{}, []byte{0x06, 1, 1}, ErrReplyLength},
		{"status long", StatusQuery{}, make12(CmdStatus), ErrReplyLength},
		{"rule list truncated", RuleCommand{Op: RuleGet}, []byte{0x03, 0x04, 0x02, 0x00}, ErrRuleLength},
		{"rule ack short", RuleCommand{Op: RuleAdd}, []byte{0x03, 0x05}, ErrReplyLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeReply(tt.cmd, tt.payload)
			if !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func make12(code byte) []byte {
	b := make([]byte, 12)
	b[0] = code
	return b
}
