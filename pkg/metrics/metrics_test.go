// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_ExposesRecordedMetrics(t *testing.T) {
	RecordFrame(DirectionRx, "RX_PACKET")
	RecordExchange("TS", "reply", 120*time.Millisecond)
	RecordReading("temperature")
	RecordDrop("malformed_telemetry")
	RecordRadioError("checksum")
	SetPending(true)
	RecordHTTPRequest("GET", "/api/status", 200, 3*time.Millisecond)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`thermogate_radio_frames_total{direction="rx",type="RX_PACKET"}`,
		`thermogate_exchange_total{command="TS",outcome="reply"}`,
		`thermogate_telemetry_readings_total{kind="temperature"}`,
		`thermogate_telemetry_dropped_total{reason="malformed_telemetry"}`,
		`thermogate_radio_errors_total{reason="checksum"}`,
		`thermogate_exchange_pending 1`,
		`thermogate_api_requests_total{method="GET",path="/api/status",status="200"}`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
