// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package thermonet

import (
	"errors"
	"fmt"
	"strings"
)

// Reply errors
var (
	ErrReplyMismatch = errors.New("reply does not match pending command")
	ErrReplyLength   = errors.New("invalid reply length")
)

// Response is a decoded relay reply, rendered for the requesting client.
type Response interface {
	Text() string
}

// AckResponse is an ACK or NACK for Prefix ("TS", "TR:ADD", ...).
type AckResponse struct {
	Prefix string
	Ack    bool
}

func (r AckResponse) Text() string {
	if r.Ack {
		return r.Prefix + ":ACK"
	}
	return r.Prefix + ":NACK"
}

// RuleListResponse is the reply to TR:GET.
type RuleListResponse struct {
	Entries []RuleEntry
}

func (r RuleListResponse) Text() string {
	return "TR:GET:" + FormatRuleList(r.Entries)
}

// ClockResponse is the reply to CR:GET; Fields are the raw clock bytes.
type ClockResponse struct {
	Fields []byte
}

func (r ClockResponse) Text() string {
	var sb strings.Builder
	sb.WriteString("CR")
	for _, b := range r.Fields {
		fmt.Fprintf(&sb, ":%d", b)
	}
	return sb.String()
}

// StatusResponse is the reply to ST.
type StatusResponse struct {
	ThermoOn    bool
	RelayOn     bool
	Temperature float32
	Target      float32
}

func (r StatusResponse) Text() string {
	return fmt.Sprintf("ST:%s:%s:%.2f:%.2f", onOffText(r.ThermoOn), onOffText(r.RelayOn), r.Temperature, r.Target)
}

// DecodeReply decodes the relay's reply to cmd. The payload's first byte
// must equal cmd's command code.
func DecodeReply(cmd Command, payload []byte) (Response, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrReplyLength)
	}
	if payload[0] != cmd.Code() {
		return nil, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrReplyMismatch, payload[0], cmd.Code())
	}

	switch cmd.(type) {
	case ThermoPower, Override:
		if len(payload) < 2 {
			return nil, fmt.Errorf("%w: %s reply %d bytes", ErrReplyLength, cmd.Prefix(), len(payload))
		}
		return AckResponse{Prefix: cmd.Prefix(), Ack: payload[1] == SubAck}, nil

	case RuleCommand:
		return decodeRuleReply(payload)

	case TimeCommand:
		return decodeTimeReply(payload)

	case StatusQuery:
		return decodeStatus(payload)

	default:
		return nil, fmt.Errorf("%w: unsupported command %T", ErrReplyMismatch, cmd)
	}
}

func decodeRuleReply(payload []byte) (Response, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("%w: TR reply %d bytes", ErrReplyLength, len(payload))
	}
	var op RuleOp
	switch payload[1] {
	case SubGet:
		entries, err := DecodeRuleList(payload[2:])
		if err != nil {
			return nil, err
		}
		return RuleListResponse{Entries: entries}, nil
	case SubAdd:
		op = RuleAdd
	case SubDelete:
		op = RuleDelete
	case SubMove:
		op = RuleMove
	case SubUpdate:
		op = RuleUpdate
	default:
		return AckResponse{Prefix: "TR", Ack: false}, nil
	}
	if len(payload) < 3 {
		return nil, fmt.Errorf("%w: TR:%s reply %d bytes", ErrReplyLength, op, len(payload))
	}
	return AckResponse{Prefix: "TR:" + op.String(), Ack: payload[2] == SubAck}, nil
}

func decodeTimeReply(payload []byte) (Response, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("%w: CR reply %d bytes", ErrReplyLength, len(payload))
	}
	switch payload[1] {
	case SubGet:
		fields := make([]byte, len(payload)-2)
		copy(fields, payload[2:])
		return ClockResponse{Fields: fields}, nil
	case SubUpdate:
		if len(payload) < 3 {
			return nil, fmt.Errorf("%w: CR:SET reply %d bytes", ErrReplyLength, len(payload))
		}
		return AckResponse{Prefix: "CR", Ack: payload[2] == SubAck}, nil
	default:
		return AckResponse{Prefix: "CR", Ack: false}, nil
	}
}

func decodeStatus(payload []byte) (Response, error) {
	if len(payload) != StatusReplySize {
		return nil, fmt.Errorf("%w: ST reply %d bytes (want %d)", ErrReplyLength, len(payload), StatusReplySize)
	}
	return StatusResponse{
		ThermoOn:    payload[1] != 0,
		RelayOn:     payload[2] != 0,
		Temperature: Float32(payload[3:7]),
		Target:      Float32(payload[7:11]),
	}, nil
}
