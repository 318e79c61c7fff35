// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Thermoquad/thermogate/pkg/capture"
	"github.com/Thermoquad/thermogate/pkg/metrics"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

// XBeeRadio sends RF payloads as TX request frames on a serial byte stream.
// Safe for concurrent use.
type XBeeRadio struct {
	mu      sync.Mutex
	w       io.Writer
	frameID byte
	rec     CaptureSink
}

// NewXBeeRadio wraps the modem's write side.
func NewXBeeRadio(w io.Writer) *XBeeRadio {
	return &XBeeRadio{w: w}
}

// SetCapture records every transmitted frame to rec.
func (r *XBeeRadio) SetCapture(rec CaptureSink) {
	r.mu.Lock()
	r.rec = rec
	r.mu.Unlock()
}

// nextFrameID cycles 1..255; frame ID 0 suppresses the TX status report.
func (r *XBeeRadio) nextFrameID() byte {
	r.frameID++
	if r.frameID == 0 {
		r.frameID = 1
	}
	return r.frameID
}

func (r *XBeeRadio) Send(ctx context.Context, dest xbee.Address, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	wire, err := xbee.EncodeFrame(xbee.NewTxRequest(r.nextFrameID(), dest, payload))
	if err != nil {
		return fmt.Errorf("encode TX request: %w", err)
	}
	if _, err := r.w.Write(wire); err != nil {
		metrics.RecordRadioError("write")
		return fmt.Errorf("write TX request to %s: %w", dest, err)
	}
	metrics.RecordFrame(metrics.DirectionTx, xbee.TypeName(xbee.FrameTxRequest))
	if r.rec != nil {
		_ = r.rec.Write(capture.DirectionTx, wire)
	}
	return nil
}
