// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/thermogate/pkg/thermonet"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

// frameInfo is what the tools know about a frame's thermostat payload.
type frameInfo struct {
	desc      string
	issue     error // payload problem the gateway would drop the frame for
	telemetry *thermonet.Telemetry
}

// describeFrame interprets the thermostat payload carried by a frame, for
// the logging and replay tools. It returns "" for frames without one.
func describeFrame(f *xbee.Frame, unescape bool) string {
	return inspectFrame(f, unescape).desc
}

func inspectFrame(f *xbee.Frame, unescape bool) frameInfo {
	switch f.Type() {
	case xbee.FrameRxPacket:
		rx, err := xbee.ParseRxPacket(f)
		if err != nil {
			return frameInfo{issue: err}
		}
		return inspectPayload(rx.Source, rx.Data, unescape, true)

	case xbee.FrameTxRequest:
		tx, err := xbee.ParseTxRequest(f)
		if err != nil {
			return frameInfo{issue: err}
		}
		return inspectPayload(tx.Destination, tx.Data, false, false)

	case xbee.FrameIOSample:
		s, err := xbee.ParseIOSample(f)
		if err != nil {
			return frameInfo{issue: err}
		}
		t := thermonet.Telemetry{Source: s.Source, Readings: thermonet.AnalogSampleFromIO(s).Readings(), ReceivedAt: f.Timestamp()}
		return frameInfo{desc: "io sample: " + t.Query(), telemetry: &t}

	case xbee.FrameTxStatus:
		st, err := xbee.ParseTxStatus(f)
		if err != nil {
			return frameInfo{issue: err}
		}
		if st.Delivery != xbee.DeliverySuccess {
			return frameInfo{issue: fmt.Errorf("delivery failed: %s", xbee.DeliveryStatusName(st.Delivery))}
		}
	}
	return frameInfo{}
}

func inspectPayload(addr xbee.Address, data []byte, unescape, inbound bool) frameInfo {
	payload := data
	if unescape {
		var err error
		if payload, err = xbee.Unescape(data); err != nil {
			return problem("malformed payload", err)
		}
	}
	if len(payload) == 0 {
		return problem("empty payload", nil)
	}

	if inbound && len(payload) > 3 && payload[0] == xbee.StartByte && payload[3] == xbee.FrameTxRequest {
		frame, err := xbee.ParseUnescaped(payload)
		if err != nil {
			return problem("remote sensor frame", err)
		}
		tx, err := xbee.ParseTxRequest(frame)
		if err != nil {
			return problem("remote sensor frame", err)
		}
		return inspectReadings("remote sensor", addr, tx.Data)
	}

	name := thermonet.CommandName(payload[0])
	switch {
	case name == "":
		return problem(fmt.Sprintf("unknown code 0x%02X", payload[0]), nil)
	case payload[0] == thermonet.CmdSensorData && inbound:
		return inspectReadings("sensor data", addr, payload[1:])
	case payload[0] == thermonet.CmdSensorData:
		return frameInfo{desc: "sensor ack"}
	case inbound:
		return frameInfo{desc: fmt.Sprintf("%s reply: %s", name, xbee.FormatHex(payload[1:]))}
	default:
		return frameInfo{desc: fmt.Sprintf("%s command: %s", name, xbee.FormatHex(payload[1:]))}
	}
}

func inspectReadings(label string, addr xbee.Address, block []byte) frameInfo {
	readings, err := thermonet.DecodeReadings(block)
	if err != nil {
		return problem(label, err)
	}
	t := thermonet.Telemetry{Source: addr, Readings: readings}
	return frameInfo{desc: label + ": " + t.Query(), telemetry: &t}
}

func problem(what string, err error) frameInfo {
	if err == nil {
		return frameInfo{desc: what, issue: errors.New(what)}
	}
	err = fmt.Errorf("%s: %w", what, err)
	return frameInfo{desc: err.Error(), issue: err}
}
