// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package thermonet

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Thermoquad/thermogate/pkg/xbee"
)

// Telemetry errors
var (
	ErrMalformedTelemetry = errors.New("malformed telemetry")
	ErrUnknownTag         = errors.New("unknown sensor tag")
)

// SensorKind is the tag byte identifying a reading.
type SensorKind uint8

// Sensor tags
const (
	Temperature   SensorKind = 0x01
	Luminosity    SensorKind = 0x02
	Pressure      SensorKind = 0x04
	Humidity      SensorKind = 0x08
	Power         SensorKind = 0x10
	LuminosityLux SensorKind = 0x20
	HeatingOn     SensorKind = 0x40
	ThermoOn      SensorKind = 0x80
)

// Key returns the upload query key for the kind.
func (k SensorKind) Key() string {
	switch k {
	case Temperature:
		return "temperature"
	case Luminosity:
		return "luminosity"
	case Pressure:
		return "pressure"
	case Humidity:
		return "humidity"
	case Power:
		return "power"
	case LuminosityLux:
		return "luminosity_lux"
	case HeatingOn:
		return "heating_on"
	case ThermoOn:
		return "thermo_on"
	default:
		return ""
	}
}

// Valid reports whether k is a known tag.
func (k SensorKind) Valid() bool {
	return k.Key() != ""
}

func (k SensorKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("tag_0x%02X", uint8(k))
	}
	return k.Key()
}

// MarshalText implements encoding.TextMarshaler.
func (k SensorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SensorKind) UnmarshalText(text []byte) error {
	for _, kind := range AllSensorKinds() {
		if kind.Key() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownTag, text)
}

// AllSensorKinds returns every known kind in tag order.
func AllSensorKinds() []SensorKind {
	return []SensorKind{Temperature, Luminosity, Pressure, Humidity, Power, LuminosityLux, HeatingOn, ThermoOn}
}

// SensorReading is one decoded value.
type SensorReading struct {
	Kind  SensorKind `json:"kind"`
	Value float32    `json:"value"`
}

// Telemetry is a set of readings from one radio.
type Telemetry struct {
	Source     xbee.Address    `json:"source"`
	Readings   []SensorReading `json:"readings"`
	ReceivedAt time.Time       `json:"received_at"`
}

// RadioID returns the telemetry database identifier of the source radio.
func (t Telemetry) RadioID() string {
	return t.Source.Short()
}

// Query renders "radio_id=<id>&<key>=<value>&..." with two decimals.
func (t Telemetry) Query() string {
	var sb strings.Builder
	sb.WriteString("radio_id=")
	sb.WriteString(t.RadioID())
	for _, r := range t.Readings {
		fmt.Fprintf(&sb, "&%s=%.2f", r.Kind.Key(), r.Value)
	}
	return sb.String()
}

// DecodeReadings decodes a tagged block of [tag][f32 LE] groups. Pressure
// readings arrive in pascals and are returned as sea-level corrected
// millibars. Any malformed group rejects the whole block.
func DecodeReadings(b []byte) ([]SensorReading, error) {
	if len(b)%ReadingSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformedTelemetry, len(b), ReadingSize)
	}
	readings := make([]SensorReading, 0, len(b)/ReadingSize)
	for i := 0; i < len(b); i += ReadingSize {
		kind := SensorKind(b[i])
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: %w 0x%02X at offset %d", ErrMalformedTelemetry, ErrUnknownTag, b[i], i)
		}
		value := Float32(b[i+1 : i+ReadingSize])
		if kind == Pressure {
			value = AltimeterPressure(value)
		}
		readings = append(readings, SensorReading{Kind: kind, Value: value})
	}
	return readings, nil
}

// EncodeReadings is the inverse of DecodeReadings for raw values. Used by
// the sensor simulator and tests.
func EncodeReadings(readings []SensorReading) []byte {
	b := make([]byte, 0, len(readings)*ReadingSize)
	for _, r := range readings {
		b = append(b, byte(r.Kind))
		b = AppendFloat32(b, r.Value)
	}
	return b
}

// AltimeterPressure converts station pressure in pascals to altimeter
// setting in millibars for StationElevation.
func AltimeterPressure(pascals float32) float32 {
	const n = 0.190284
	pmb := 0.01 * float64(pascals)
	base := pmb - 0.3
	corrected := math.Pow(1+8.422881e-5*(StationElevation/math.Pow(base, n)), 1/n) * base
	return float32(corrected)
}

// AnalogSample holds raw 10-bit ADC readings from an IO sample frame.
type AnalogSample struct {
	Temperature    uint16
	Luminosity     uint16
	Supply         uint16
	HasTemperature bool
	HasLuminosity  bool
	HasSupply      bool
}

// AnalogSampleFromIO maps IO sample channels A0 (temperature), A1
// (luminosity) and the supply voltage channel.
func AnalogSampleFromIO(s *xbee.IOSample) AnalogSample {
	var a AnalogSample
	a.Temperature, a.HasTemperature = s.Analog(xbee.AnalogA0)
	a.Luminosity, a.HasLuminosity = s.Analog(xbee.AnalogA1)
	a.Supply, a.HasSupply = s.Analog(xbee.AnalogSupply)
	return a
}

func analogVolts(raw uint16) float64 {
	return AnalogReference * float64(raw) / AnalogFullScale
}

// Readings converts the sample to engineering units. Power defaults to
// DefaultSupplyVoltage when the supply channel was not sampled.
func (a AnalogSample) Readings() []SensorReading {
	var readings []SensorReading
	if a.HasTemperature {
		readings = append(readings, SensorReading{Kind: Temperature, Value: float32(100 * (analogVolts(a.Temperature) - 0.5))})
	}
	if a.HasLuminosity {
		readings = append(readings, SensorReading{Kind: Luminosity, Value: float32(analogVolts(a.Luminosity))})
	}
	power := float32(DefaultSupplyVoltage)
	if a.HasSupply {
		power = float32(analogVolts(a.Supply))
	}
	return append(readings, SensorReading{Kind: Power, Value: power})
}
