// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Thermoquad/thermogate/pkg/gateway"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

// Config is the gateway configuration, read from thermogate.yaml, the
// environment (THERMOGATE_*) and command-line flags.
type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Radio    RadioConfig    `mapstructure:"radio"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Listener ListenerConfig `mapstructure:"listener"`
	Upload   UploadConfig   `mapstructure:"upload"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Store    StoreConfig    `mapstructure:"store"`
	API      APIConfig      `mapstructure:"api"`
	Sensor   SensorConfig   `mapstructure:"sensor"`
	Capture  CaptureConfig  `mapstructure:"capture"`
}

// RadioConfig selects the link to the XBee modem: a serial port, or a
// WebSocket serial bridge.
type RadioConfig struct {
	Port        string `mapstructure:"port"`
	Baud        int    `mapstructure:"baud"`
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	NoSSLVerify bool   `mapstructure:"no_ssl_verify"`
	// Relay is the 64-bit address of the relay thermostat.
	Relay string `mapstructure:"relay"`
	// Address is the gateway's own radio address, used as the source of
	// locally polled telemetry.
	Address          string `mapstructure:"address"`
	UnescapePayloads bool   `mapstructure:"unescape_payloads"`
}

type EngineConfig struct {
	ReplyTimeout    time.Duration `mapstructure:"reply_timeout"`
	BusyPolicy      string        `mapstructure:"busy_policy"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
}

type ListenerConfig struct {
	Addr        string        `mapstructure:"addr"`
	ReplyPort   int           `mapstructure:"reply_port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	ReplyWait   time.Duration `mapstructure:"reply_wait"`
}

type UploadConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

type SensorConfig struct {
	Path     string        `mapstructure:"path"`
	Scale    float64       `mapstructure:"scale"`
	Interval time.Duration `mapstructure:"interval"`
}

type CaptureConfig struct {
	Path string `mapstructure:"path"`
}

// newViper returns a viper instance with defaults, environment binding and
// the config search path set up.
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("log_level", "info")

	v.SetDefault("radio.baud", 9600)
	v.SetDefault("radio.relay", "0013A20040AEB97F")
	v.SetDefault("radio.address", "0000000000000000")
	v.SetDefault("radio.unescape_payloads", true)

	v.SetDefault("engine.reply_timeout", 10*time.Second)
	v.SetDefault("engine.busy_policy", "overwrite")
	v.SetDefault("engine.delivery_timeout", 10*time.Second)

	v.SetDefault("listener.addr", ":5267")
	v.SetDefault("listener.reply_port", 0)
	v.SetDefault("listener.read_timeout", 10*time.Second)
	v.SetDefault("listener.reply_wait", 30*time.Second)

	v.SetDefault("upload.timeout", 10*time.Second)
	v.SetDefault("mqtt.topic", "thermogate/telemetry")
	v.SetDefault("api.addr", ":8080")

	v.SetDefault("sensor.scale", 0.001)
	v.SetDefault("sensor.interval", 60*time.Second)

	v.SetConfigName("thermogate")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/thermogate")

	v.SetEnvPrefix("THERMOGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads the config file (explicit path, or the search path) and
// decodes the merged settings. A missing config file is not an error.
func loadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// EngineOptions converts the configuration to gateway engine options.
func (c *Config) EngineOptions() (gateway.Options, error) {
	relay, err := xbee.ParseAddress(c.Radio.Relay)
	if err != nil {
		return gateway.Options{}, fmt.Errorf("radio.relay: %w", err)
	}
	policy, err := gateway.ParseBusyPolicy(c.Engine.BusyPolicy)
	if err != nil {
		return gateway.Options{}, fmt.Errorf("engine.busy_policy: %w", err)
	}
	if c.Engine.ReplyTimeout < 0 {
		return gateway.Options{}, fmt.Errorf("engine.reply_timeout: negative duration %s", c.Engine.ReplyTimeout)
	}
	return gateway.Options{
		Destination:      relay,
		ReplyTimeout:     c.Engine.ReplyTimeout,
		BusyPolicy:       policy,
		UnescapePayloads: c.Radio.UnescapePayloads,
		DeliveryTimeout:  c.Engine.DeliveryTimeout,
	}, nil
}

// ListenerOptions converts the configuration to listener options.
func (c *Config) ListenerOptions() gateway.ListenerOptions {
	return gateway.ListenerOptions{
		Addr:        c.Listener.Addr,
		ReplyPort:   c.Listener.ReplyPort,
		ReadTimeout: c.Listener.ReadTimeout,
		ReplyWait:   c.Listener.ReplyWait,
	}
}
