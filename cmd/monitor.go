// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/thermogate/pkg/xbee"
)

var (
	monitorShowAll       bool
	monitorStatsInterval int
	monitorTUI           bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor radio link health and sensor telemetry",
	Long: `Track frame errors, payload problems and sensor telemetry on the radio
link, with statistics.

This command checks each frame and detects:
  - Checksum and length errors, escape and decode failures
  - RF payloads the gateway would drop (bad escaping, unknown command codes,
    malformed sensor blocks or forwarded frames)
  - Failed transmit deliveries reported by the modem
  - Statistics and trends (frame rate, error rate, success rate)

By default, only problems are displayed. Use --show-all to display every frame.

Errors before the first valid frame are counted as sync noise rather than
reported.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorShowAll, "show-all", false, "Show all frames (not just problems)")
	monitorCmd.Flags().IntVar(&monitorStatsInterval, "stats-interval", 10, "Statistics interval in seconds (text mode)")
	monitorCmd.Flags().BoolVar(&monitorTUI, "tui", true, "Use terminal UI (false for text mode)")
}

// Messages from the link reader
type frameMsg struct {
	frame     *xbee.Frame
	info      frameInfo
	decodeErr error
}
type syncMsg struct {
	invalidBytes int
}
type linkLostMsg struct {
	err error
}

func runMonitor(cmd *cobra.Command, args []string) error {
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

	if monitorTUI {
		m := initialMonitorModel(d.Describe(), monitorShowAll)
		p := tea.NewProgram(m, tea.WithAltScreen())
		go readFrames(conn, cfg.Radio.UnescapePayloads, p.Send)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	}

	msgs := make(chan tea.Msg, 64)
	go readFrames(conn, cfg.Radio.UnescapePayloads, func(msg tea.Msg) { msgs <- msg })
	return runMonitorText(ctx, d.Describe(), msgs)
}

// readFrames decodes frames from conn and hands them to send, until a read
// fails. Decode errors before the first valid frame are only counted.
func readFrames(conn Connection, unescape bool, send func(tea.Msg)) {
	decoder := xbee.NewDecoder()
	synchronized := false
	invalidBeforeSync := 0

	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		for i := 0; i < n; i++ {
			frame, decodeErr := decoder.DecodeByte(buf[i])
			if decodeErr != nil {
				if synchronized {
					send(frameMsg{decodeErr: decodeErr})
				} else {
					invalidBeforeSync++
				}
				continue
			}
			if frame == nil {
				continue
			}
			if !synchronized {
				synchronized = true
				send(syncMsg{invalidBytes: invalidBeforeSync})
			}
			send(frameMsg{frame: frame, info: inspectFrame(frame, unescape)})
		}
		if err != nil {
			send(linkLostMsg{err: err})
			return
		}
	}
}

// runMonitorText prints problems as they arrive and statistics every
// --stats-interval seconds.
func runMonitorText(ctx context.Context, connInfo string, msgs <-chan tea.Msg) error {
	fmt.Printf("Thermogate - Link Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", monitorStatsInterval)
	if monitorShowAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Problems only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := xbee.NewStatistics()
	var payloadIssues uint64

	var statsTick <-chan time.Time
	if monitorStatsInterval > 0 {
		ticker := time.NewTicker(time.Duration(monitorStatsInterval) * time.Second)
		defer ticker.Stop()
		statsTick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Printf("Payload issues:  %8d\n", payloadIssues)
			return nil

		case <-statsTick:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Printf("Payload issues:  %8d\n\n", payloadIssues)

		case msg := <-msgs:
			switch msg := msg.(type) {
			case syncMsg:
				if msg.invalidBytes > 0 {
					fmt.Printf("[SYNC] Synchronized after %d decode errors\n\n", msg.invalidBytes)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}

			case frameMsg:
				stats.Update(msg.frame, msg.decodeErr)
				printFrameMsg(msg, &payloadIssues)

			case linkLostMsg:
				fmt.Printf("\nLink lost: %v\n", msg.err)
				fmt.Print(stats.String())
				return nil
			}
		}
	}
}

func printFrameMsg(msg frameMsg, payloadIssues *uint64) {
	timestamp := time.Now().Format("15:04:05.000")
	switch {
	case msg.decodeErr != nil:
		fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n\n", timestamp, msg.decodeErr)

	case msg.info.issue != nil:
		*payloadIssues++
		fmt.Printf("[%s] \033[1;33mPAYLOAD ISSUE:\033[0m %s (0x%02X)\n", timestamp, msg.frame.TypeName(), msg.frame.Type())
		fmt.Printf("  Checksum: \033[1;32mOK\033[0m\n")
		fmt.Printf("  Issue: %v\n", msg.info.issue)
		fmt.Printf("  Body: %s\n", xbee.FormatHex(msg.frame.Body()))
		fmt.Printf("  >>> FRAME WOULD BE DROPPED <<<\n\n")

	case msg.info.telemetry != nil:
		fmt.Printf("[%s] \033[1;32mTELEMETRY:\033[0m %s\n\n", timestamp, msg.info.telemetry.Query())

	case monitorShowAll:
		fmt.Print(xbee.FormatFrame(msg.frame))
		if msg.info.desc != "" {
			fmt.Printf("  => %s\n", msg.info.desc)
		}
		fmt.Println()
	}
}
