// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/thermogate/pkg/api"
	"github.com/Thermoquad/thermogate/pkg/capture"
	"github.com/Thermoquad/thermogate/pkg/gateway"
	"github.com/Thermoquad/thermogate/pkg/metrics"
	"github.com/Thermoquad/thermogate/pkg/sink"
	"github.com/Thermoquad/thermogate/pkg/store"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	Long: `Run the gateway: open the radio link, accept text commands on the TCP
listener and forward sensor telemetry to the configured sinks.

Only one command exchange is in flight at a time. With the default
"overwrite" busy policy a new request replaces the pending one and the
earlier client gets no response; "reject" answers the new request with its
NACK instead.

Optional components, each enabled by its setting:
  store.path     SQLite telemetry and exchange history
  upload.url     HTTP GET telemetry upload
  mqtt.broker    MQTT telemetry publishing
  api.addr       HTTP API, event stream and /metrics
  sensor.path    locally attached temperature sensor
  capture.path   CBOR capture of all radio traffic`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("listen", ":5267", "TCP command listener address")
	flags.Int("reply-port", 0, "Dial back to this client port with responses (0 replies inline)")
	flags.String("relay", "0013A20040AEB97F", "Relay thermostat radio address")
	flags.String("busy-policy", "overwrite", "Request handling while an exchange is pending (overwrite, reject)")
	flags.Duration("reply-timeout", 0, "Reply timeout (0 uses the configured value)")
	flags.String("api", ":8080", "HTTP API address (empty disables)")
	flags.String("db", "", "SQLite database path")
	flags.String("upload-url", "", "Telemetry upload URL")
	flags.String("mqtt-broker", "", "MQTT broker URL (tcp://host:1883)")
	flags.String("capture", "", "Record radio traffic to this file")

	for key, flag := range map[string]string{
		"listener.addr":       "listen",
		"listener.reply_port": "reply-port",
		"radio.relay":         "relay",
		"engine.busy_policy":  "busy-policy",
		"api.addr":            "api",
		"store.path":          "db",
		"upload.url":          "upload-url",
		"mqtt.broker":         "mqtt-broker",
		"capture.path":        "capture",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if d, _ := cmd.Flags().GetDuration("reply-timeout"); d > 0 {
		cfg.Engine.ReplyTimeout = d
	}
	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	gatewayAddr, err := xbee.ParseAddress(cfg.Radio.Address)
	if err != nil {
		return fmt.Errorf("radio.address: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDialer(cfg.Radio)
	if err != nil {
		return err
	}
	link := newRadioLink(d.Dial, d.Describe(), log)
	if err := link.Connect(ctx); err != nil {
		return fmt.Errorf("open radio link: %w", err)
	}
	defer link.Close()

	metrics.RegisterMetrics()
	radio := gateway.NewXBeeRadio(link)

	if cfg.Capture.Path != "" {
		w, err := capture.Create(cfg.Capture.Path)
		if err != nil {
			return err
		}
		defer w.Close()
		radio.SetCapture(w)
		link.rec = w
		log.Infow("capturing radio traffic", "path", cfg.Capture.Path)
	}

	var sinks sink.Multi
	var readings *store.ReadingStore
	var exchanges *store.ExchangeStore
	if cfg.Store.Path != "" {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		readings = store.NewReadingStore(db)
		exchanges = store.NewExchangeStore(db)
		sinks = append(sinks, readings)
		log.Infow("history enabled", "path", cfg.Store.Path)
	}
	if cfg.Upload.URL != "" {
		sinks = append(sinks, sink.NewHTTPSink(cfg.Upload.URL, cfg.Upload.Timeout, log))
		log.Infow("telemetry upload enabled", "url", cfg.Upload.URL)
	}
	if cfg.MQTT.Broker != "" {
		m, err := sink.DialMQTT(sink.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
		}, log)
		if err != nil {
			return err
		}
		defer m.Close()
		sinks = append(sinks, m)
	}

	hub := gateway.NewHub()
	engine := gateway.NewEngine(radio, sinks, log, opts)
	engine.SetHub(hub)
	if exchanges != nil {
		engine.SetHistory(exchanges)
	}

	listener := gateway.NewListener(engine, log, cfg.ListenerOptions())
	if err := listener.Listen(); err != nil {
		return err
	}

	log.Infow("gateway starting",
		"link", d.Describe(),
		"listen", listener.Addr().String(),
		"relay", opts.Destination,
		"sinks", len(sinks))

	// The first component to fail stops the rest
	g, gctx := errgroup.WithContext(ctx)
	run := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			err := fn(gctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			log.Errorw("component failed", "component", name, "error", err)
			return fmt.Errorf("%s: %w", name, err)
		})
	}

	run("engine", engine.Run)
	run("radio link", func(ctx context.Context) error { return link.Run(ctx, engine) })
	run("listener", listener.Serve)

	if cfg.Sensor.Path != "" {
		sensor := gateway.FileSensor{Path: cfg.Sensor.Path, Scale: cfg.Sensor.Scale}
		poller := gateway.NewPoller(gatewayAddr, sensor, engine, cfg.Sensor.Interval, log)
		run("poller", poller.Run)
	}

	if cfg.API.Addr != "" {
		server := api.NewServer(engine, hub, log)
		if readings != nil {
			server.SetStore(readings, exchanges)
		}
		run("api", func(ctx context.Context) error { return server.Run(ctx, cfg.API.Addr) })
	}

	err = g.Wait()
	log.Infow("gateway stopped")
	return err
}
