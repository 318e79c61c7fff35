// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/thermogate/pkg/logger"
	"github.com/Thermoquad/thermogate/pkg/thermonet"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

const (
	testRelay  xbee.Address = 0x0013A20040AEB97F
	testSensor xbee.Address = 0x0013A20040AEBA93
)

// ============================================================
// Fakes
// ============================================================

type sentPayload struct {
	dest    xbee.Address
	payload []byte
}

type fakeRadio struct {
	mu   sync.Mutex
	fail error
	sent chan sentPayload
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{sent: make(chan sentPayload, 16)}
}

func (r *fakeRadio) setFail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func (r *fakeRadio) Send(ctx context.Context, dest xbee.Address, payload []byte) error {
	r.mu.Lock()
	err := r.fail
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.sent <- sentPayload{dest: dest, payload: append([]byte(nil), payload...)}
	return nil
}

type chanTarget struct {
	name string
	ch   chan string
}

func newChanTarget(name string) *chanTarget {
	return &chanTarget{name: name, ch: make(chan string, 4)}
}

func (t *chanTarget) Deliver(ctx context.Context, text string) error {
	t.ch <- text
	return nil
}

func (t *chanTarget) String() string { return t.name }

type fakeSink struct {
	ch chan thermonet.Telemetry
}

func newFakeSink() *fakeSink {
	return &fakeSink{ch: make(chan thermonet.Telemetry, 8)}
}

func (s *fakeSink) Publish(ctx context.Context, t thermonet.Telemetry) error {
	s.ch <- t
	return nil
}

type fakeHistory struct {
	ch chan ExchangeRecord
}

func (h *fakeHistory) Record(ctx context.Context, rec ExchangeRecord) error {
	h.ch <- rec
	return nil
}

var errRadioDown = errors.New("serial port closed")

// ============================================================
// Helpers
// ============================================================

type harness struct {
	engine *Engine
	radio  *fakeRadio
	sink   *fakeSink
	cancel context.CancelFunc
}

func startEngine(t *testing.T, mutate func(*Options), setup ...func(*Engine)) *harness {
	t.Helper()
	opts := DefaultOptions()
	opts.Destination = testRelay
	if mutate != nil {
		mutate(&opts)
	}
	h := &harness{radio: newFakeRadio(), sink: newFakeSink()}
	h.engine = NewEngine(h.radio, h.sink, logger.Nop(), opts)
	for _, fn := range setup {
		fn(h.engine)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { _ = h.engine.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.engine.Done()
	})
	return h
}

// rxFrame wraps payload in an RX packet as a node would send it.
func rxFrame(source xbee.Address, payload []byte) *xbee.Frame {
	return xbee.EncodeRxPacket(xbee.RxPacket{
		Source:  source,
		Network: 0x1234,
		Options: xbee.RxOptionAcknowledged,
		Data:    xbee.Escape(payload),
	})
}

func (h *harness) submit(t *testing.T, cmd thermonet.Command, target ReplyTarget) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return h.engine.Submit(ctx, cmd, target)
}

func (h *harness) state(t *testing.T) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := h.engine.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	return snap
}

func (h *harness) expectSent(t *testing.T) sentPayload {
	t.Helper()
	select {
	case s := <-h.radio.sent:
		return s
	case <-time.After(time.Second):
		t.Fatal("nothing sent on the radio")
		return sentPayload{}
	}
}

func expectText(t *testing.T, target *chanTarget, want string) {
	t.Helper()
	select {
	case got := <-target.ch:
		if got != want {
			t.Errorf("%s received %q, want %q", target.name, got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("%s received nothing, want %q", target.name, want)
	}
}

func expectNoText(t *testing.T, target *chanTarget) {
	t.Helper()
	select {
	case got := <-target.ch:
		t.Errorf("%s unexpectedly received %q", target.name, got)
	case <-time.After(50 * time.Millisecond):
	}
}
