// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sink delivers decoded telemetry to external systems.
package sink

import (
	"context"
	"errors"

	"github.com/Thermoquad/thermogate/pkg/thermonet"
)

// Sink accepts telemetry.
type Sink interface {
	Publish(ctx context.Context, t thermonet.Telemetry) error
}

// Multi publishes to every sink in order. A failing sink does not stop the
// others; all failures are returned joined.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, t thermonet.Telemetry) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
