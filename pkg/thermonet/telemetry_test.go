// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package thermonet

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/Thermoquad/thermogate/pkg/xbee"
)

func TestDecodeReadings(t *testing.T) {
	data := EncodeReadings([]SensorReading{
		{Kind: Temperature, Value: 21.25},
		{Kind: Humidity, Value: 45.5},
		{Kind: ThermoOn, Value: 1},
	})
	readings, err := DecodeReadings(data)
	if err != nil {
		t.Fatalf("DecodeReadings error: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	want := []SensorReading{{Temperature, 21.25}, {Humidity, 45.5}, {ThermoOn, 1}}
	for i := range want {
		if readings[i] != want[i] {
			t.Errorf("reading %d = %+v, want %+v", i, readings[i], want[i])
		}
	}

	tel := Telemetry{Source: xbee.Address(0x0013A20040AEBA93), Readings: readings}
	if got := tel.Query(); got != "radio_id=40aeba93&temperature=21.25&humidity=45.50&thermo_on=1.00" {
		t.Errorf("Query() = %q", got)
	}
}

func TestDecodeReadings_Pressure(t *testing.T) {
	readings, err := DecodeReadings(EncodeReadings([]SensorReading{{Kind: Pressure, Value: 101325}}))
	if err != nil {
		t.Fatalf("DecodeReadings error: %v", err)
	}
	pmb := 1013.25
	expected := math.Pow(1+8.422881e-5*(167.64/math.Pow(pmb-0.3, 0.190284)), 1/0.190284) * (pmb - 0.3)
	if math.Abs(float64(readings[0].Value)-expected) > 0.05 {
		t.Errorf("corrected pressure = %.3f, want %.3f", readings[0].Value, expected)
	}
	if readings[0].Value < 1030 || readings[0].Value > 1036 {
		t.Errorf("corrected pressure %.2f outside expected range", readings[0].Value)
	}
}

func TestDecodeReadings_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"short", []byte{0x01, 0x00, 0x00}, ErrMalformedTelemetry},
		{"unknown tag", []byte{0x03, 0x00, 0x00, 0x00, 0x00}, ErrUnknownTag},
		{"unknown after valid", append(EncodeReadings([]SensorReading{{Temperature, 20}}), 0x00, 0, 0, 0, 0), ErrUnknownTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readings, err := DecodeReadings(tt.data)
			if !errors.Is(err, tt.err) || !errors.Is(err, ErrMalformedTelemetry) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
			if readings != nil {
				t.Errorf("malformed block produced readings: %+v", readings)
			}
		})
	}
}

func TestDecodeReadings_Empty(t *testing.T) {
	readings, err := DecodeReadings(nil)
	if err != nil || len(readings) != 0 {
		t.Errorf("empty block: %v %v", readings, err)
	}
}

func TestAnalogSample_Readings(t *testing.T) {
	tests := []struct {
		name   string
		sample AnalogSample
		want   map[SensorKind]float64
	}{
		{
			name:   "all channels",
			sample: AnalogSample{Temperature: 512, Luminosity: 256, Supply: 1023, HasTemperature: true, HasLuminosity: true, HasSupply: true},
			want: map[SensorKind]float64{
				Temperature: 100 * (1.2*512/1023.0 - 0.5),
				Luminosity:  1.2 * 256 / 1023.0,
				Power:       1.2,
			},
		},
		{
			name:   "no supply",
			sample: AnalogSample{Temperature: 600, HasTemperature: true},
			want: map[SensorKind]float64{
				Temperature: 100 * (1.2*600/1023.0 - 0.5),
				Power:       3.3,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readings := tt.sample.Readings()
			if len(readings) != len(tt.want) {
				t.Fatalf("got %d readings, want %d", len(readings), len(tt.want))
			}
			for _, r := range readings {
				want, ok := tt.want[r.Kind]
				if !ok {
					t.Errorf("unexpected kind %s", r.Kind)
					continue
				}
				if math.Abs(float64(r.Value)-want) > 1e-4 {
					t.Errorf("%s = %f, want %f", r.Kind, r.Value, want)
				}
			}
		})
	}
}

func TestSensorKind_JSON(t *testing.T) {
	data, err := json.Marshal(SensorReading{Kind: LuminosityLux, Value: 2})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != `{"kind":"luminosity_lux","value":2}` {
		t.Errorf("json = %s", data)
	}
	var back SensorReading
	if err := json.Unmarshal(data, &back); err != nil || back.Kind != LuminosityLux {
		t.Errorf("Unmarshal = %+v, %v", back, err)
	}
}
