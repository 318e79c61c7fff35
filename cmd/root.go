// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Thermoquad/thermogate/pkg/logger"
)

var (
	cfgFile string
	v       = newViper()
)

var rootCmd = &cobra.Command{
	Use:   "thermogate",
	Short: "Thermostat mesh gateway",
	Long: `Thermogate - A gateway between TCP text clients and an XBee mesh of
thermostat and sensor nodes.

Text commands (TS, PO, TR, CR, ST) received on the TCP listener are encoded
and sent to the relay thermostat; its replies are decoded back to text.
Sensor telemetry from any node is forwarded to the configured sinks.

Radio link:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

Settings are read from thermogate.yaml (current directory or /etc/thermogate,
or --config) and THERMOGATE_* environment variables; flags override both.

For WebSocket authentication, the password is read from the THERMOGATE_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./thermogate.yaml or /etc/thermogate/thermogate.yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	// Radio link flags
	flags.StringP("port", "p", "", "Serial port device")
	flags.IntP("baud", "b", 9600, "Baud rate (serial only)")
	flags.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	for key, flag := range map[string]string{
		"log_level":           "log-level",
		"radio.port":          "port",
		"radio.baud":          "baud",
		"radio.url":           "url",
		"radio.username":      "username",
		"radio.no_ssl_verify": "no-ssl-verify",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

// setup loads the configuration and returns it with the process logger.
func setup() (*Config, *logger.Logger, error) {
	cfg, err := loadConfig(v, cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.Get(cfg.LogLevel), nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
