// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/thermogate/pkg/capture"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

var (
	rawLogCapture       string
	rawLogStatsInterval int
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display XBee API frames in human-readable format",
	Long: `Continuously decode and display XBee API frames as they arrive from the
modem, with the thermostat payload of each frame interpreted where possible.

Statistics are printed every --stats-interval seconds (0 disables), and once
more on exit. Use --capture to also record the raw bytes for later replay.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().StringVar(&rawLogCapture, "capture", "", "Record received bytes to this file")
	rawLogCmd.Flags().IntVar(&rawLogStatsInterval, "stats-interval", 0, "Statistics interval in seconds")
}

type readResult struct {
	data []byte
	err  error
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	d, err := newDialer(cfg.Radio)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, err := d.Dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var rec *capture.Writer
	if rawLogCapture != "" {
		if rec, err = capture.Create(rawLogCapture); err != nil {
			return err
		}
		defer rec.Close()
	}

	fmt.Printf("Thermogate - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", d.Describe())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	reads := make(chan readResult, 16)
	go func() {
		for {
			buf := make([]byte, 256)
			n, err := conn.Read(buf)
			reads <- readResult{data: buf[:n], err: err}
			if err != nil {
				return
			}
		}
	}()

	decoder := xbee.NewDecoder()
	stats := xbee.NewStatistics()

	var statsTick <-chan time.Time
	if rawLogStatsInterval > 0 {
		ticker := time.NewTicker(time.Duration(rawLogStatsInterval) * time.Second)
		defer ticker.Stop()
		statsTick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Print("\n" + stats.String())
			return nil

		case <-statsTick:
			fmt.Print(stats.String())

		case r := <-reads:
			if len(r.data) > 0 && rec != nil {
				if err := rec.Write(capture.DirectionRx, r.data); err != nil {
					return err
				}
			}
			for _, b := range r.data {
				frame, err := decoder.DecodeByte(b)
				if err != nil {
					stats.Update(nil, err)
					fmt.Printf("[ERROR] %v\n", err)
					continue
				}
				if frame == nil {
					continue
				}
				stats.Update(frame, nil)
				fmt.Print(xbee.FormatFrame(frame))
				if desc := describeFrame(frame, cfg.Radio.UnescapePayloads); desc != "" {
					fmt.Printf("  => %s\n", desc)
				}
			}
			if r.err != nil {
				if errors.Is(r.err, ErrConnectionClosed) {
					fmt.Println("Connection closed")
					fmt.Print(stats.String())
					return nil
				}
				return fmt.Errorf("read: %w", r.err)
			}
		}
	}
}
