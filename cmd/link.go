// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Thermoquad/thermogate/pkg/gateway"
	"github.com/Thermoquad/thermogate/pkg/logger"
	"github.com/Thermoquad/thermogate/pkg/metrics"
)

// ErrLinkDown is returned by Write while the modem is disconnected.
var ErrLinkDown = errors.New("radio link down")

// Reconnect backoff bounds
const (
	minBackoff = 1 * time.Second
	maxBackoff = 30 * time.Second
)

// newReconnectBackOff returns the reconnect schedule: minBackoff doubling
// up to maxBackoff, retrying forever.
func newReconnectBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = minBackoff
	b.MaxInterval = maxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Pumper consumes the modem byte stream.
type Pumper interface {
	Pump(ctx context.Context, r io.Reader, rec gateway.CaptureSink) error
}

// radioLink owns the modem connection. It reconnects with exponential
// backoff when the connection fails, and forwards writes to whichever
// connection is current.
type radioLink struct {
	dial       func(ctx context.Context) (Connection, error)
	describe   string
	log        *logger.Logger
	rec        gateway.CaptureSink
	newBackOff func() backoff.BackOff

	mu   sync.RWMutex
	conn Connection
}

func newRadioLink(dial func(ctx context.Context) (Connection, error), describe string, log *logger.Logger) *radioLink {
	return &radioLink{
		dial:       dial,
		describe:   describe,
		log:        log.Named("link"),
		newBackOff: newReconnectBackOff,
	}
}

func (l *radioLink) getConn() Connection {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.conn
}

func (l *radioLink) setConn(conn Connection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conn = conn
}

// Write sends bytes to the modem.
func (l *radioLink) Write(p []byte) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.conn == nil {
		return 0, ErrLinkDown
	}
	return l.conn.Write(p)
}

// Connect opens the first connection. Run reconnects after that.
func (l *radioLink) Connect(ctx context.Context) error {
	conn, err := l.dial(ctx)
	if err != nil {
		return err
	}
	l.setConn(conn)
	l.log.Infow("radio link up", "link", l.describe)
	return nil
}

// Run pumps the current connection into p until ctx is cancelled,
// reconnecting whenever the connection fails.
func (l *radioLink) Run(ctx context.Context, p Pumper) error {
	for {
		conn := l.getConn()
		if conn == nil {
			if !l.reconnect(ctx) {
				return ctx.Err()
			}
			continue
		}

		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		err := p.Pump(ctx, conn, l.rec)
		stop()

		l.setConn(nil)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		metrics.RecordRadioError("link_lost")
		l.log.Warnw("radio link lost", "link", l.describe, "error", err)
		if !l.reconnect(ctx) {
			return ctx.Err()
		}
	}
}

// reconnect waits out the next backoff interval before each dial. It
// returns false if ctx was cancelled first.
func (l *radioLink) reconnect(ctx context.Context) bool {
	b := backoff.WithContext(l.newBackOff(), ctx)
	for {
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}

		err := l.Connect(ctx)
		if err == nil {
			return true
		}
		l.log.Debugw("reconnect failed", "link", l.describe, "error", err)
	}
}

// Close closes the current connection.
func (l *radioLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}
