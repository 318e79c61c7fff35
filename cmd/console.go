// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/thermogate/pkg/gateway"
)

var (
	consoleAddr      string
	consoleEventsURL string
	consoleTimeout   time.Duration
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive console for a running gateway",
	Long: `Interactive terminal console for a running gateway.

Type text commands (TS:ON, PO:ON:21.5, TR:GET, CR:GET, ST, ...) and press
Enter to send them to the gateway's TCP listener. Responses appear in the
event log.

When --events is set, exchange and telemetry events are streamed from the
gateway's HTTP API and the latest readings of every sensor node are shown.
The event stream reconnects automatically if the gateway restarts.

Keys:
  enter     send the command
  up/down   command history
  esc       clear the input
  ctrl+c    quit`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().StringVar(&consoleAddr, "addr", "localhost:5267", "Gateway listener address")
	consoleCmd.Flags().StringVar(&consoleEventsURL, "events", "ws://localhost:8080/api/events", "Gateway event stream URL (empty disables)")
	consoleCmd.Flags().DurationVar(&consoleTimeout, "timeout", 30*time.Second, "How long to wait for each response")
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	send := func(request string) tea.Cmd {
		return func() tea.Msg {
			rctx, rcancel := context.WithTimeout(ctx, consoleTimeout)
			defer rcancel()
			resp, err := sendRequest(rctx, consoleAddr, request, 0)
			return responseMsg{request: request, response: resp, err: err}
		}
	}

	m := initialConsoleModel(consoleAddr, consoleEventsURL, send)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if consoleEventsURL != "" {
		go streamEvents(ctx, consoleEventsURL, p.Send)
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

// streamEvents reads gateway events from url and hands them to send until
// ctx is cancelled, reconnecting with backoff.
func streamEvents(ctx context.Context, url string, send func(tea.Msg)) {
	retry := backoff.WithContext(newReconnectBackOff(), ctx)
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			send(streamStateMsg{connected: false, err: err})
			wait := retry.NextBackOff()
			if wait == backoff.Stop {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		retry.Reset()
		send(streamStateMsg{connected: true})
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

		for {
			var ev gateway.Event
			if err = conn.ReadJSON(&ev); err != nil {
				break
			}
			send(eventMsg(ev))
		}
		stop()
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		send(streamStateMsg{connected: false, err: err})
	}
}
