// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"sync"
	"time"

	"github.com/Thermoquad/thermogate/pkg/thermonet"
)

// EventKind classifies hub events.
type EventKind string

// Event kinds
const (
	EventExchangeStarted  EventKind = "exchange_started"
	EventExchangeResolved EventKind = "exchange_resolved"
	EventTelemetry        EventKind = "telemetry"
	EventDropped          EventKind = "dropped"
	EventModemStatus      EventKind = "modem_status"
)

// Event is a notification of engine activity.
type Event struct {
	Kind     EventKind                 `json:"kind"`
	Time     time.Time                 `json:"time"`
	Exchange string                    `json:"exchange,omitempty"`
	Command  string                    `json:"command,omitempty"`
	Outcome  string                    `json:"outcome,omitempty"`
	Text     string                    `json:"text,omitempty"`
	Source   string                    `json:"source,omitempty"`
	Readings []thermonet.SensorReading `json:"readings,omitempty"`
}

// Hub fans events out to subscribers. Slow subscribers lose events rather
// than block the engine. A nil *Hub discards everything.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe returns an event channel and a function that cancels the
// subscription and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends ev to every subscriber that has room for it.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
