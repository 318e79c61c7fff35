// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/thermogate/pkg/logger"
	"github.com/Thermoquad/thermogate/pkg/thermonet"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

// Sensor is a locally attached sensor.
type Sensor interface {
	Read(ctx context.Context) ([]thermonet.SensorReading, error)
}

// TelemetryPublisher accepts telemetry for fan-out.
type TelemetryPublisher interface {
	PublishTelemetry(ctx context.Context, t thermonet.Telemetry)
}

// FileSensor reads a temperature from a sysfs-style file holding a single
// number, e.g. /sys/bus/iio/devices/iio:device0/in_temp_input (millidegrees).
type FileSensor struct {
	Path  string
	Scale float64 // multiplier to degrees Celsius; 0 means 0.001
}

func (s FileSensor) Read(ctx context.Context) ([]thermonet.SensorReading, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read sensor %s: %w", s.Path, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return nil, fmt.Errorf("parse sensor %s: %w", s.Path, err)
	}
	scale := s.Scale
	if scale == 0 {
		scale = 0.001
	}
	return []thermonet.SensorReading{{Kind: thermonet.Temperature, Value: float32(v * scale)}}, nil
}

// Poller periodically reads the gateway's own sensor and publishes it as
// telemetry from the gateway radio.
type Poller struct {
	source   xbee.Address
	sensor   Sensor
	pub      TelemetryPublisher
	interval time.Duration
	log      *logger.Logger
}

// NewPoller creates a poller. interval defaults to one minute.
func NewPoller(source xbee.Address, sensor Sensor, pub TelemetryPublisher, interval time.Duration, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{source: source, sensor: sensor, pub: pub, interval: interval, log: log.Named("poller")}
}

// Poll reads the sensor once and publishes the result. A power reading of
// DefaultSupplyVoltage is added when the sensor does not report one.
func (p *Poller) Poll(ctx context.Context) error {
	readings, err := p.sensor.Read(ctx)
	if err != nil {
		return err
	}
	hasPower := false
	for _, r := range readings {
		if r.Kind == thermonet.Power {
			hasPower = true
		}
	}
	if !hasPower {
		readings = append(readings, thermonet.SensorReading{Kind: thermonet.Power, Value: thermonet.DefaultSupplyVoltage})
	}
	p.pub.PublishTelemetry(ctx, thermonet.Telemetry{Source: p.source, Readings: readings, ReceivedAt: time.Now()})
	return nil
}

// Run polls immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Infow("local sensor polling", "radio_id", p.source.Short(), "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.Poll(ctx); err != nil {
			p.log.Warnw("local sensor read failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
