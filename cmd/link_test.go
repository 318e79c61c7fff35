// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Thermoquad/thermogate/pkg/gateway"
	"github.com/Thermoquad/thermogate/pkg/logger"
)

type nopConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *nopConn) Read(p []byte) (int, error)  { return 0, io.EOF }
func (c *nopConn) Write(p []byte) (int, error) { return len(p), nil }

func (c *nopConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *nopConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// pumpFunc adapts a function to Pumper.
type pumpFunc func(ctx context.Context, r io.Reader) error

func (f pumpFunc) Pump(ctx context.Context, r io.Reader, rec gateway.CaptureSink) error {
	return f(ctx, r)
}

func TestRadioLink_Reconnects(t *testing.T) {
	first, second := &nopConn{}, &nopConn{}
	errDial := errors.New("no such device")

	var dials int
	dial := func(ctx context.Context) (Connection, error) {
		dials++
		switch dials {
		case 1:
			return first, nil
		case 2:
			return nil, errDial
		default:
			return second, nil
		}
	}

	link := newRadioLink(dial, "test", logger.Nop())
	link.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	if err := link.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var pumped []io.Reader
	err := link.Run(ctx, pumpFunc(func(pctx context.Context, r io.Reader) error {
		pumped = append(pumped, r)
		if len(pumped) == 1 {
			return io.EOF
		}
		cancel()
		<-pctx.Done()
		return pctx.Err()
	}))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if dials != 3 {
		t.Errorf("dials = %d, want 3", dials)
	}
	if len(pumped) != 2 || pumped[0] != Connection(first) || pumped[1] != Connection(second) {
		t.Errorf("pumped %v, want first then second connection", pumped)
	}
	if !first.isClosed() || !second.isClosed() {
		t.Error("connections not closed after use")
	}
	if _, err := link.Write([]byte{0x7E}); !errors.Is(err, ErrLinkDown) {
		t.Errorf("Write after Run = %v, want ErrLinkDown", err)
	}
}

func TestRadioLink_ReconnectCancelled(t *testing.T) {
	link := newRadioLink(func(ctx context.Context) (Connection, error) {
		return nil, errors.New("unplugged")
	}, "test", logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if link.reconnect(ctx) {
		t.Error("reconnect succeeded with a cancelled context")
	}
}
