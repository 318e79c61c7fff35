// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/Thermoquad/thermogate/pkg/logger"
	"github.com/Thermoquad/thermogate/pkg/thermonet"
)

// MaxRequestSize is the largest text request read from a client.
const MaxRequestSize = 1024

// Submitter accepts commands for transmission.
type Submitter interface {
	Submit(ctx context.Context, cmd thermonet.Command, target ReplyTarget) error
}

// ListenerOptions configures the TCP command listener.
type ListenerOptions struct {
	Addr string
	// ReplyPort, when non-zero, sends responses over a new connection to
	// the client's address on this port instead of the request connection.
	ReplyPort   int
	ReadTimeout time.Duration
	// ReplyWait is how long an inline connection is held open for its
	// response; zero holds it until the listener stops.
	ReplyWait time.Duration
}

// Listener accepts one text request per TCP connection and submits it.
type Listener struct {
	opts   ListenerOptions
	engine Submitter
	log    *logger.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewListener creates a listener that submits to engine.
func NewListener(engine Submitter, log *logger.Logger, opts ListenerOptions) *Listener {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	return &Listener{opts: opts, engine: engine, log: log.Named("listener")}
}

// Listen binds the listening socket.
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.opts.Addr, err)
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Serve accepts connections until ctx is cancelled, then waits for open
// connections to finish. Listen is called first if needed.
func (l *Listener) Serve(ctx context.Context) error {
	if l.Addr() == nil {
		if err := l.Listen(); err != nil {
			return err
		}
	}
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()

	l.log.Infow("listening for commands", "addr", ln.Addr().String(), "reply_port", l.opts.ReplyPort)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				l.wg.Wait()
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				l.wg.Wait()
				return err
			}
			l.log.Warnw("accept failed", "error", err)
			continue
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handle(ctx, conn)
		}()
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	_ = conn.SetReadDeadline(time.Now().Add(l.opts.ReadTimeout))
	buf := make([]byte, MaxRequestSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			l.log.Debugw("request read failed", "remote", remote, "error", err)
		}
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	text := string(buf[:n])
	cmd, err := thermonet.ParseRequest(text)
	if err != nil {
		nack := thermonet.NackText(err)
		l.log.Warnw("rejected request", "remote", remote, "request", text, "error", err, "response", nack)
		_ = conn.SetWriteDeadline(time.Now().Add(l.opts.ReadTimeout))
		_, _ = io.WriteString(conn, responseLine(nack))
		return
	}
	l.log.Infow("request", "remote", remote, "command", cmd.String())

	var target ReplyTarget
	var inline *ConnTarget
	if l.opts.ReplyPort > 0 {
		host, _, _ := net.SplitHostPort(remote)
		target = DialBackTarget{Addr: net.JoinHostPort(host, strconv.Itoa(l.opts.ReplyPort))}
	} else {
		inline = NewConnTarget(conn)
		target = inline
	}

	if err := l.engine.Submit(ctx, cmd, target); err != nil {
		l.log.Warnw("submit failed", "remote", remote, "command", cmd.String(), "error", err)
		if errors.Is(err, ErrEngineStopped) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// The engine never saw the request, so nothing else will answer it
			wctx, cancel := context.WithTimeout(context.Background(), l.opts.ReadTimeout)
			_ = target.Deliver(wctx, cmd.NackText())
			cancel()
			return
		}
	}

	if inline == nil {
		return
	}

	var expire <-chan time.Time
	if l.opts.ReplyWait > 0 {
		t := time.NewTimer(l.opts.ReplyWait)
		defer t.Stop()
		expire = t.C
	}
	select {
	case <-inline.Done():
	case <-expire:
		l.log.Debugw("closing connection without response", "remote", remote)
	case <-ctx.Done():
	}
}
