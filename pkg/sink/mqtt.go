// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Thermoquad/thermogate/pkg/logger"
	"github.com/Thermoquad/thermogate/pkg/thermonet"
)

// ErrMQTTTimeout is returned when the broker does not acknowledge in time.
var ErrMQTTTimeout = errors.New("mqtt broker did not respond")

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Broker   string // tcp://host:1883
	ClientID string // defaults to thermogate-<hostname>
	Username string
	Password string
	Topic    string // prefix; messages go to <Topic>/<radio_id>
	Timeout  time.Duration
}

// MQTTMessage is the JSON body of a telemetry message.
type MQTTMessage struct {
	RadioID    string             `json:"radio_id"`
	ReceivedAt time.Time          `json:"received_at"`
	Readings   map[string]float32 `json:"readings"`
}

// NewMQTTMessage converts telemetry to its message form.
func NewMQTTMessage(t thermonet.Telemetry) MQTTMessage {
	msg := MQTTMessage{
		RadioID:    t.RadioID(),
		ReceivedAt: t.ReceivedAt,
		Readings:   make(map[string]float32, len(t.Readings)),
	}
	for _, r := range t.Readings {
		msg.Readings[r.Kind.Key()] = r.Value
	}
	return msg
}

// MQTTSink publishes telemetry to an MQTT broker at QoS 1.
type MQTTSink struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
	log     *logger.Logger
}

// DialMQTT connects to the broker described by cfg. The paho client
// reconnects on its own after the initial connection.
func DialMQTT(cfg MQTTConfig, log *logger.Logger) (*MQTTSink, error) {
	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = "thermogate-" + hostname
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker)
	opts.ClientID = cfg.ClientID
	opts.Username = cfg.Username
	opts.Password = cfg.Password
	opts.AutoReconnect = true
	opts.ConnectTimeout = cfg.Timeout

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, ErrMQTTTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	s := NewMQTTSink(client, cfg.Topic, cfg.Timeout, log)
	s.log.Infow("mqtt connected", "broker", cfg.Broker, "client_id", cfg.ClientID, "topic", cfg.Topic)
	return s, nil
}

// NewMQTTSink wraps an already connected client.
func NewMQTTSink(client mqtt.Client, topic string, timeout time.Duration, log *logger.Logger) *MQTTSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MQTTSink{client: client, topic: topic, timeout: timeout, log: log.Named("mqtt")}
}

// Topic returns the topic telemetry from radioID is published to.
func (s *MQTTSink) Topic(radioID string) string {
	if s.topic == "" {
		return radioID
	}
	return s.topic + "/" + radioID
}

func (s *MQTTSink) Publish(ctx context.Context, t thermonet.Telemetry) error {
	payload, err := json.Marshal(NewMQTTMessage(t))
	if err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}
	topic := s.Topic(t.RadioID())
	token := s.client.Publish(topic, 1, false, payload)

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("publish to %s: %w", topic, ErrMQTTTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	s.log.Debugw("telemetry published", "topic", topic)
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}
