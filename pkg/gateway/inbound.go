// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Thermoquad/thermogate/pkg/capture"
	"github.com/Thermoquad/thermogate/pkg/metrics"
	"github.com/Thermoquad/thermogate/pkg/thermonet"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

// HandleFrame routes one received API frame. Telemetry is forwarded
// directly; anything else is treated as a reply and handed to the engine
// goroutine.
func (e *Engine) HandleFrame(ctx context.Context, f *xbee.Frame) {
	metrics.RecordFrame(metrics.DirectionRx, f.TypeName())

	switch f.Type() {
	case xbee.FrameRxPacket:
		rx, err := xbee.ParseRxPacket(f)
		if err != nil {
			e.log.Warnw("malformed RX packet", "error", err)
			e.drop(0, "malformed_frame")
			return
		}
		e.handlePayload(ctx, rx.Source, rx.Data, f.Timestamp())

	case xbee.FrameIOSample:
		s, err := xbee.ParseIOSample(f)
		if err != nil {
			e.log.Warnw("malformed IO sample", "error", err)
			e.drop(0, "malformed_frame")
			return
		}
		e.PublishTelemetry(ctx, thermonet.Telemetry{
			Source:     s.Source,
			Readings:   thermonet.AnalogSampleFromIO(s).Readings(),
			ReceivedAt: f.Timestamp(),
		})

	case xbee.FrameTxStatus:
		st, err := xbee.ParseTxStatus(f)
		if err != nil {
			e.log.Warnw("malformed TX status", "error", err)
			return
		}
		if st.Delivery != xbee.DeliverySuccess {
			metrics.RecordRadioError("delivery_" + xbee.DeliveryStatusName(st.Delivery))
			e.log.Warnw("radio delivery failed", "frame_id", st.FrameID, "retries", st.Retries,
				"status", xbee.DeliveryStatusName(st.Delivery))
			return
		}
		e.log.Debugw("radio delivery confirmed", "frame_id", st.FrameID, "retries", st.Retries)

	case xbee.FrameModemStatus:
		ms, err := xbee.ParseModemStatus(f)
		if err != nil {
			return
		}
		e.log.Infow("modem status", "status", xbee.ModemStatusName(ms.Status))
		e.hub.Publish(Event{Kind: EventModemStatus, Text: xbee.ModemStatusName(ms.Status)})

	default:
		e.log.Debugw("ignoring frame", "type", f.TypeName(), "body", xbee.FormatHex(f.Body()))
	}
}

// isEmbeddedFrame reports whether an RF payload carries a whole TX request
// frame, as forwarded by remote sensor nodes.
func isEmbeddedFrame(payload []byte) bool {
	return len(payload) > 3 && payload[0] == xbee.StartByte && payload[3] == xbee.FrameTxRequest
}

func (e *Engine) handlePayload(ctx context.Context, source xbee.Address, data []byte, received time.Time) {
	payload := data
	if e.opts.UnescapePayloads {
		var err error
		if payload, err = xbee.Unescape(data); err != nil {
			e.log.Warnw("malformed RF payload", "source", source, "error", err)
			e.drop(source, "malformed_frame")
			return
		}
	}
	if len(payload) == 0 {
		e.drop(source, "empty_payload")
		return
	}

	e.log.Debugw("payload received", "source", source, "payload", xbee.FormatHex(payload))

	switch {
	case isEmbeddedFrame(payload):
		frame, err := xbee.ParseUnescaped(payload)
		if err != nil {
			e.log.Warnw("malformed embedded frame", "source", source, "error", err)
			e.drop(source, "malformed_frame")
			return
		}
		tx, err := xbee.ParseTxRequest(frame)
		if err != nil {
			e.log.Warnw("malformed embedded frame", "source", source, "error", err)
			e.drop(source, "malformed_frame")
			return
		}
		e.publishReadings(ctx, source, tx.Data, received)

	case payload[0] == thermonet.CmdSensorData:
		e.publishReadings(ctx, source, payload[1:], received)
		if err := e.radio.Send(ctx, source, thermonet.SensorAck()); err != nil {
			e.log.Warnw("sensor acknowledgment failed", "source", source, "error", err)
		}

	default:
		select {
		case e.replies <- inboundReply{source: source, payload: payload, received: received}:
		case <-ctx.Done():
		case <-e.done:
		}
	}
}

func (e *Engine) publishReadings(ctx context.Context, source xbee.Address, block []byte, received time.Time) {
	readings, err := thermonet.DecodeReadings(block)
	if err != nil {
		e.log.Warnw("dropping sensor data", "source", source, "error", err, "data", xbee.FormatHex(block))
		e.drop(source, "malformed_telemetry")
		return
	}
	e.PublishTelemetry(ctx, thermonet.Telemetry{Source: source, Readings: readings, ReceivedAt: received})
}

// PublishTelemetry forwards telemetry to the sink and the event hub.
func (e *Engine) PublishTelemetry(ctx context.Context, t thermonet.Telemetry) {
	if t.ReceivedAt.IsZero() {
		t.ReceivedAt = time.Now()
	}
	for _, r := range t.Readings {
		metrics.RecordReading(r.Kind.Key())
	}
	e.log.Infow("telemetry", "source", t.RadioID(), "query", t.Query())
	e.hub.Publish(Event{
		Kind:     EventTelemetry,
		Time:     t.ReceivedAt,
		Source:   t.RadioID(),
		Readings: t.Readings,
	})
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, t); err != nil {
		e.log.Warnw("telemetry sink failed", "source", t.RadioID(), "error", err)
	}
}

func (e *Engine) drop(source xbee.Address, reason string) {
	metrics.RecordDrop(reason)
	ev := Event{Kind: EventDropped, Outcome: reason}
	if source != 0 {
		ev.Source = source.Short()
	}
	e.hub.Publish(ev)
}

// Pump decodes frames from r and hands them to HandleFrame until r returns
// an error or ctx is cancelled. Raw bytes are copied to rec when it is
// non-nil.
func (e *Engine) Pump(ctx context.Context, r io.Reader, rec CaptureSink) error {
	decoder := xbee.NewDecoder()
	buf := make([]byte, 256)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := r.Read(buf)
		if n > 0 && rec != nil {
			if cerr := rec.Write(capture.DirectionRx, buf[:n]); cerr != nil {
				e.log.Warnw("capture write failed", "error", cerr)
			}
		}
		for i := 0; i < n; i++ {
			frame, derr := decoder.DecodeByte(buf[i])
			if derr != nil {
				e.log.Warnw("frame decode error", "error", derr)
				switch {
				case errors.Is(derr, xbee.ErrChecksum):
					metrics.RecordRadioError("checksum")
				default:
					metrics.RecordRadioError("framing")
				}
				continue
			}
			if frame != nil {
				e.HandleFrame(ctx, frame)
			}
		}
		if err != nil {
			return err
		}
	}
}
