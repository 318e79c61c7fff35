// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// ErrAlreadyDelivered is returned when a second response is sent to a target.
var ErrAlreadyDelivered = errors.New("response already delivered")

// ReplyTarget is where an exchange's text response goes.
type ReplyTarget interface {
	Deliver(ctx context.Context, text string) error
	String() string
}

// responseLine terminates a text response on the wire.
func responseLine(text string) string {
	return text + "\r\n"
}

// ConnTarget writes the response on the requesting client's connection.
// Only the first Deliver writes.
type ConnTarget struct {
	conn net.Conn
	once sync.Once
	done chan struct{}
}

// NewConnTarget wraps an accepted client connection.
func NewConnTarget(conn net.Conn) *ConnTarget {
	return &ConnTarget{conn: conn, done: make(chan struct{})}
}

func (t *ConnTarget) Deliver(ctx context.Context, text string) error {
	err := ErrAlreadyDelivered
	t.once.Do(func() {
		defer close(t.done)
		if deadline, ok := ctx.Deadline(); ok {
			_ = t.conn.SetWriteDeadline(deadline)
		}
		_, err = io.WriteString(t.conn, responseLine(text))
	})
	return err
}

// Done is closed once a response has been written.
func (t *ConnTarget) Done() <-chan struct{} {
	return t.done
}

func (t *ConnTarget) String() string {
	return "conn:" + t.conn.RemoteAddr().String()
}

// DialBackTarget opens a new connection to the client's reply port and
// writes the response there.
type DialBackTarget struct {
	Addr        string
	DialTimeout time.Duration
}

func (t DialBackTarget) Deliver(ctx context.Context, text string) error {
	timeout := t.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return fmt.Errorf("dial reply target %s: %w", t.Addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if _, err := io.WriteString(conn, responseLine(text)); err != nil {
		return fmt.Errorf("write reply to %s: %w", t.Addr, err)
	}
	return nil
}

func (t DialBackTarget) String() string {
	return "dial:" + t.Addr
}
