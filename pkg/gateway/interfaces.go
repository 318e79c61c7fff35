// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gateway runs the protocol engine that bridges TCP text clients to
// the radio mesh: one command exchange in flight at a time, unsolicited
// telemetry forwarded to sinks.
package gateway

import (
	"context"
	"time"

	"github.com/Thermoquad/thermogate/pkg/thermonet"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

// Radio transmits an RF payload to a node.
type Radio interface {
	Send(ctx context.Context, dest xbee.Address, payload []byte) error
}

// TelemetrySink receives decoded sensor telemetry.
type TelemetrySink interface {
	Publish(ctx context.Context, t thermonet.Telemetry) error
}

// ExchangeLog records finished exchanges.
type ExchangeLog interface {
	Record(ctx context.Context, rec ExchangeRecord) error
}

// CaptureSink records raw wire traffic.
type CaptureSink interface {
	Write(dir string, wire []byte) error
}

// Exchange outcomes
const (
	OutcomeReply          = "reply"
	OutcomeNack           = "nack"
	OutcomeTimeout        = "timeout"
	OutcomeOverwritten    = "overwritten"
	OutcomeTransportError = "transport_error"
	OutcomeRejected       = "rejected"
)

// ExchangeRecord describes a finished command exchange.
type ExchangeRecord struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Target     string    `json:"target"`
	Response   string    `json:"response,omitempty"`
	Outcome    string    `json:"outcome"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
