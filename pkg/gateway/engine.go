// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Thermoquad/thermogate/pkg/logger"
	"github.com/Thermoquad/thermogate/pkg/metrics"
	"github.com/Thermoquad/thermogate/pkg/thermonet"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

// Engine errors
var (
	ErrBusy          = errors.New("exchange already pending")
	ErrTransport     = errors.New("radio transport failure")
	ErrEngineStopped = errors.New("engine stopped")
)

// TransportError wraps a radio send failure.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "radio transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// State is the engine's exchange state.
type State int

// Engine states
const (
	StateIdle State = iota
	StateAwaitingReply
)

func (s State) String() string {
	if s == StateAwaitingReply {
		return "awaiting_reply"
	}
	return "idle"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BusyPolicy decides what Submit does while an exchange is pending.
type BusyPolicy int

// Busy policies
const (
	// PolicyOverwrite replaces the pending exchange; its client gets no response.
	PolicyOverwrite BusyPolicy = iota
	// PolicyReject answers the new request with its NACK and leaves the
	// pending exchange alone.
	PolicyReject
)

func (p BusyPolicy) String() string {
	if p == PolicyReject {
		return "reject"
	}
	return "overwrite"
}

// ParseBusyPolicy parses "overwrite" or "reject".
func ParseBusyPolicy(s string) (BusyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return PolicyOverwrite, nil
	case "reject":
		return PolicyReject, nil
	default:
		return 0, fmt.Errorf("unknown busy policy %q (want overwrite or reject)", s)
	}
}

// Options configures an Engine.
type Options struct {
	// Destination is the relay thermostat's radio address.
	Destination xbee.Address
	// ReplyTimeout bounds the wait for a reply; zero waits forever.
	ReplyTimeout time.Duration
	BusyPolicy   BusyPolicy
	// UnescapePayloads removes API mode 2 escaping from received RF data,
	// for node firmware that escapes its payloads before transmission.
	UnescapePayloads bool
	// DeliveryTimeout bounds writing a response to a client.
	DeliveryTimeout time.Duration
}

// DefaultOptions returns the stock engine configuration.
func DefaultOptions() Options {
	return Options{
		ReplyTimeout:     10 * time.Second,
		BusyPolicy:       PolicyOverwrite,
		UnescapePayloads: true,
		DeliveryTimeout:  10 * time.Second,
	}
}

// Snapshot is a point-in-time view of the engine.
type Snapshot struct {
	State    State     `json:"state"`
	Exchange string    `json:"exchange,omitempty"`
	Command  string    `json:"command,omitempty"`
	Target   string    `json:"target,omitempty"`
	Since    time.Time `json:"since,omitempty"`
}

type exchange struct {
	id      string
	cmd     thermonet.Command
	target  ReplyTarget
	started time.Time
}

type submission struct {
	cmd    thermonet.Command
	target ReplyTarget
	result chan error
}

type inboundReply struct {
	source   xbee.Address
	payload  []byte
	received time.Time
}

// Engine owns the single pending exchange. All state changes happen on the
// goroutine running Run; every other method talks to it over channels.
type Engine struct {
	radio   Radio
	sink    TelemetrySink
	history ExchangeLog
	hub     *Hub
	log     *logger.Logger
	opts    Options

	submits   chan submission
	replies   chan inboundReply
	snapshots chan chan Snapshot
	done      chan struct{}
}

// NewEngine creates an engine. sink may be nil.
func NewEngine(radio Radio, sink TelemetrySink, log *logger.Logger, opts Options) *Engine {
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 10 * time.Second
	}
	return &Engine{
		radio:     radio,
		sink:      sink,
		log:       log.Named("engine"),
		opts:      opts,
		submits:   make(chan submission),
		replies:   make(chan inboundReply),
		snapshots: make(chan chan Snapshot),
		done:      make(chan struct{}),
	}
}

// SetHub attaches an event hub. Call before Run.
func (e *Engine) SetHub(h *Hub) {
	e.hub = h
}

// SetHistory attaches an exchange log. Call before Run.
func (e *Engine) SetHistory(l ExchangeLog) {
	e.history = l
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// Run processes submissions, replies and timeouts until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	var (
		pending *exchange
		timer   *time.Timer
		timeout <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timeout = nil, nil
		}
	}
	resolve := func(outcome, text string) {
		stopTimer()
		e.finish(pending, outcome, text)
		pending = nil
		metrics.SetPending(false)
	}

	e.log.Infow("engine started",
		"destination", e.opts.Destination,
		"reply_timeout", e.opts.ReplyTimeout,
		"busy_policy", e.opts.BusyPolicy)

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			if pending != nil {
				e.log.Infow("engine stopping with exchange pending", "exchange", pending.id)
			}
			return ctx.Err()

		case sub := <-e.submits:
			next, err := e.dispatch(ctx, pending, sub)
			if next != nil {
				if pending != nil {
					stopTimer()
					e.finish(pending, OutcomeOverwritten, "")
				}
				pending = next
				metrics.SetPending(true)
				if e.opts.ReplyTimeout > 0 {
					timer = time.NewTimer(e.opts.ReplyTimeout)
					timeout = timer.C
				}
			}
			sub.result <- err

		case in := <-e.replies:
			if pending == nil {
				e.log.Warnw("reply with no exchange pending",
					"source", in.source, "payload", xbee.FormatHex(in.payload))
				e.drop(in.source, "unexpected_reply")
				continue
			}
			if in.payload[0] != pending.cmd.Code() {
				e.log.Warnw("reply does not match pending command",
					"exchange", pending.id,
					"expected", fmt.Sprintf("0x%02X", pending.cmd.Code()),
					"got", fmt.Sprintf("0x%02X", in.payload[0]))
				e.drop(in.source, "reply_mismatch")
				continue
			}
			resp, err := thermonet.DecodeReply(pending.cmd, in.payload)
			if err != nil {
				e.log.Warnw("malformed reply", "exchange", pending.id, "error", err,
					"payload", xbee.FormatHex(in.payload))
				resolve(OutcomeNack, pending.cmd.NackText())
				continue
			}
			resolve(OutcomeReply, resp.Text())

		case <-timeout:
			e.log.Warnw("exchange timed out", "exchange", pending.id, "command", pending.cmd.String(),
				"after", e.opts.ReplyTimeout)
			timer, timeout = nil, nil
			resolve(OutcomeTimeout, pending.cmd.NackText())

		case ch := <-e.snapshots:
			snap := Snapshot{State: StateIdle}
			if pending != nil {
				snap = Snapshot{
					State:    StateAwaitingReply,
					Exchange: pending.id,
					Command:  pending.cmd.String(),
					Target:   pending.target.String(),
					Since:    pending.started,
				}
			}
			ch <- snap
		}
	}
}

// dispatch transmits a submitted command. It returns the new exchange on
// success; on failure the caller's state is unchanged.
func (e *Engine) dispatch(ctx context.Context, pending *exchange, sub submission) (*exchange, error) {
	ex := &exchange{
		id:      uuid.NewString(),
		cmd:     sub.cmd,
		target:  sub.target,
		started: time.Now(),
	}

	if pending != nil && e.opts.BusyPolicy == PolicyReject {
		e.log.Warnw("rejecting request while exchange pending",
			"pending", pending.id, "command", sub.cmd.String(), "target", sub.target.String())
		e.finish(ex, OutcomeRejected, sub.cmd.NackText())
		return nil, ErrBusy
	}

	if err := e.radio.Send(ctx, e.opts.Destination, sub.cmd.Payload()); err != nil {
		e.log.Errorw("radio send failed", "command", sub.cmd.String(), "error", err)
		e.finish(ex, OutcomeTransportError, sub.cmd.NackText())
		return nil, &TransportError{Err: err}
	}

	if pending != nil {
		e.log.Warnw("overwriting pending exchange", "pending", pending.id, "exchange", ex.id)
	}
	e.log.Infow("command sent", "exchange", ex.id, "command", sub.cmd.String(), "target", sub.target.String())
	e.hub.Publish(Event{
		Kind:     EventExchangeStarted,
		Exchange: ex.id,
		Command:  sub.cmd.String(),
	})
	return ex, nil
}

// finish delivers text (if any) to the exchange's target and records the
// outcome. Delivery runs on its own goroutine so a slow client never
// stalls the engine.
func (e *Engine) finish(ex *exchange, outcome, text string) {
	finished := time.Now()
	metrics.RecordExchange(ex.cmd.Prefix(), outcome, finished.Sub(ex.started))
	e.hub.Publish(Event{
		Kind:     EventExchangeResolved,
		Time:     finished,
		Exchange: ex.id,
		Command:  ex.cmd.String(),
		Outcome:  outcome,
		Text:     text,
	})

	rec := ExchangeRecord{
		ID:         ex.id,
		Command:    ex.cmd.String(),
		Target:     ex.target.String(),
		Response:   text,
		Outcome:    outcome,
		StartedAt:  ex.started,
		FinishedAt: finished,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.DeliveryTimeout)
		defer cancel()
		if text != "" {
			if err := ex.target.Deliver(ctx, text); err != nil {
				e.log.Warnw("response delivery failed", "exchange", ex.id, "target", ex.target.String(), "error", err)
			} else {
				e.log.Debugw("response delivered", "exchange", ex.id, "response", text)
			}
		}
		if e.history != nil {
			if err := e.history.Record(ctx, rec); err != nil {
				e.log.Warnw("exchange history write failed", "exchange", ex.id, "error", err)
			}
		}
	}()
}

// Submit transmits cmd and registers target for its response. It returns
// once the command is on the air (or has failed); the response arrives
// later through target. Busy and transport failures are also reported to
// target as the command's NACK.
func (e *Engine) Submit(ctx context.Context, cmd thermonet.Command, target ReplyTarget) error {
	sub := submission{cmd: cmd, target: target, result: make(chan error, 1)}
	select {
	case e.submits <- sub:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineStopped
	}
	return awaitResult(sub.result, e.done)
}

// awaitResult waits for a submission's result. Run writes the result of
// every submission it receives before done closes, so a result that is
// ready wins over done.
func awaitResult(result <-chan error, done <-chan struct{}) error {
	select {
	case err := <-result:
		return err
	case <-done:
		select {
		case err := <-result:
			return err
		default:
			return ErrEngineStopped
		}
	}
}

// Snapshot returns the engine's current state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	ch := make(chan Snapshot, 1)
	select {
	case e.snapshots <- ch:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-e.done:
		return Snapshot{}, ErrEngineStopped
	}
	select {
	case snap := <-ch:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}
