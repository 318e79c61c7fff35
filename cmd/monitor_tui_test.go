// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Thermoquad/thermogate/pkg/thermonet"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{61 * time.Second, "1 minute and 1 second"},
		{2*time.Hour + 5*time.Minute + time.Second, "2 hours, 5 minutes, and 1 second"},
		{26 * time.Hour, "1 day and 2 hours"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// chunkConn serves fixed chunks and then fails like a dropped link.
type chunkConn struct {
	chunks [][]byte
}

func (c *chunkConn) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}
func (c *chunkConn) Write(p []byte) (int, error) { return len(p), nil }
func (c *chunkConn) Close() error                { return nil }

func TestReadFrames(t *testing.T) {
	temp := thermonet.EncodeReadings([]thermonet.SensorReading{{Kind: thermonet.Temperature, Value: 20}})
	good := xbee.MustEncodeFrame(rxFrame(testSensor, append([]byte{thermonet.CmdSensorData}, temp...)))
	unknown := xbee.MustEncodeFrame(rxFrame(testRelay, []byte{0x42}))
	corrupt := append([]byte(nil), good...)
	corrupt[len(corrupt)-1] ^= 0x01

	// Leading noise with a bad checksum frame before sync
	conn := &chunkConn{chunks: [][]byte{corrupt, good, bytes.Clone(unknown), corrupt}}

	var msgs []tea.Msg
	readFrames(conn, true, func(msg tea.Msg) { msgs = append(msgs, msg) })

	if len(msgs) != 5 {
		t.Fatalf("got %d messages: %#v", len(msgs), msgs)
	}
	if s, ok := msgs[0].(syncMsg); !ok || s.invalidBytes != 1 {
		t.Errorf("msgs[0] = %#v, want sync after 1 error", msgs[0])
	}
	if f, ok := msgs[1].(frameMsg); !ok || f.info.telemetry == nil {
		t.Errorf("msgs[1] = %#v, want telemetry frame", msgs[1])
	}
	if f, ok := msgs[2].(frameMsg); !ok || f.info.issue == nil {
		t.Errorf("msgs[2] = %#v, want payload issue", msgs[2])
	}
	if f, ok := msgs[3].(frameMsg); !ok || !errors.Is(f.decodeErr, xbee.ErrChecksum) {
		t.Errorf("msgs[3] = %#v, want checksum error", msgs[3])
	}
	if _, ok := msgs[4].(linkLostMsg); !ok {
		t.Errorf("msgs[4] = %#v, want link lost", msgs[4])
	}
}

func TestMonitorModel_Update(t *testing.T) {
	m := initialMonitorModel("Serial: /dev/ttyUSB0 @ 9600 baud", false)

	temp := thermonet.EncodeReadings([]thermonet.SensorReading{{Kind: thermonet.Temperature, Value: 20}})
	telemetry := rxFrame(testSensor, append([]byte{thermonet.CmdSensorData}, temp...))
	unknown := rxFrame(testRelay, []byte{0x42})

	for _, msg := range []tea.Msg{
		syncMsg{invalidBytes: 3},
		frameMsg{frame: telemetry, info: inspectFrame(telemetry, true)},
		frameMsg{frame: unknown, info: inspectFrame(unknown, true)},
		frameMsg{decodeErr: xbee.ErrChecksum},
	} {
		next, _ := m.Update(msg)
		m = next.(monitorModel)
	}

	if !m.synchronized || m.invalidBytes != 3 {
		t.Errorf("sync state = %v/%d", m.synchronized, m.invalidBytes)
	}
	if m.stats.ValidFrames != 2 || m.stats.ChecksumErrors != 1 {
		t.Errorf("stats = %+v", m.stats)
	}
	if m.payloadIssues != 1 {
		t.Errorf("payloadIssues = %d", m.payloadIssues)
	}
	node, ok := m.nodes[testSensor.Short()]
	if !ok || node.readings[thermonet.Temperature] != 20 {
		t.Errorf("nodes = %+v", m.nodes)
	}
	// Only problems are logged without --show-all
	for _, e := range m.log[1:] {
		if !e.isError {
			t.Errorf("unexpected non-error entry %q", e.message)
		}
	}

	view := m.View()
	for _, want := range []string{"LINK MONITOR", "Synchronized", "Payload issues:", testSensor.Short()} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	next, _ := m.Update(linkLostMsg{err: io.EOF})
	if !next.(monitorModel).linkLost {
		t.Error("linkLost not set")
	}
}
