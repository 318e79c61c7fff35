// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exposes gateway counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame directions
const (
	DirectionRx = "rx"
	DirectionTx = "tx"
)

var (
	registerOnce sync.Once

	radioFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thermogate",
			Subsystem: "radio",
			Name:      "frames_total",
			Help:      "XBee API frames sent and received.",
		},
		[]string{"direction", "type"},
	)
	radioErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thermogate",
			Subsystem: "radio",
			Name:      "errors_total",
			Help:      "Radio link errors by reason.",
		},
		[]string{"reason"},
	)
	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thermogate",
			Subsystem: "exchange",
			Name:      "total",
			Help:      "Command exchanges by command and outcome.",
		},
		[]string{"command", "outcome"},
	)
	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thermogate",
			Subsystem: "exchange",
			Name:      "duration_seconds",
			Help:      "Time from command transmission to resolution.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"command", "outcome"},
	)
	exchangePending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "thermogate",
			Subsystem: "exchange",
			Name:      "pending",
			Help:      "1 while a command awaits its reply.",
		},
	)
	telemetryReadings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thermogate",
			Subsystem: "telemetry",
			Name:      "readings_total",
			Help:      "Sensor readings forwarded to sinks.",
		},
		[]string{"kind"},
	)
	droppedPayloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thermogate",
			Subsystem: "telemetry",
			Name:      "dropped_total",
			Help:      "Inbound payloads dropped by reason.",
		},
		[]string{"reason"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thermogate",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP API requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thermogate",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP API request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RegisterMetrics registers all collectors with the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(radioFrames, radioErrors, exchanges, exchangeDuration,
			exchangePending, telemetryReadings, droppedPayloads, httpRequests, httpDuration)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordFrame(direction, frameType string) {
	RegisterMetrics()
	radioFrames.WithLabelValues(direction, frameType).Inc()
}

func RecordRadioError(reason string) {
	RegisterMetrics()
	radioErrors.WithLabelValues(reason).Inc()
}

func RecordExchange(command, outcome string, duration time.Duration) {
	RegisterMetrics()
	exchanges.WithLabelValues(command, outcome).Inc()
	exchangeDuration.WithLabelValues(command, outcome).Observe(duration.Seconds())
}

func SetPending(pending bool) {
	RegisterMetrics()
	if pending {
		exchangePending.Set(1)
	} else {
		exchangePending.Set(0)
	}
}

func RecordReading(kind string) {
	RegisterMetrics()
	telemetryReadings.WithLabelValues(kind).Inc()
}

func RecordDrop(reason string) {
	RegisterMetrics()
	droppedPayloads.WithLabelValues(reason).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
