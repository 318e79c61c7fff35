// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/thermogate/pkg/thermonet"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

var (
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the radio path to the relay thermostat with status queries",
	Long: `Send ST status queries directly to the relay thermostat and wait for each
reply, without a running gateway.

This is useful for verifying:
  - The modem link (serial or WebSocket) works in both directions
  - The relay address is correct and reachable over the mesh
  - The thermostat firmware answers commands

Do not run this while a gateway is using the same modem.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

// watchFrames decodes frames from conn in the background. Decode errors are
// skipped; the error channel receives the read error that ends the stream.
func watchFrames(conn Connection) (<-chan *xbee.Frame, <-chan error) {
	frames := make(chan *xbee.Frame, 16)
	errs := make(chan error, 1)
	go func() {
		decoder := xbee.NewDecoder()
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			for i := 0; i < n; i++ {
				if frame, _ := decoder.DecodeByte(buf[i]); frame != nil {
					frames <- frame
				}
			}
			if err != nil {
				errs <- err
				return
			}
		}
	}()
	return frames, errs
}

// statusReply returns the decoded status text if f is an ST reply from relay.
func statusReply(f *xbee.Frame, relay xbee.Address, unescape bool) (string, bool) {
	if f.Type() != xbee.FrameRxPacket {
		return "", false
	}
	rx, err := xbee.ParseRxPacket(f)
	if err != nil || rx.Source != relay {
		return "", false
	}
	payload := rx.Data
	if unescape {
		if payload, err = xbee.Unescape(rx.Data); err != nil {
			return "", false
		}
	}
	if len(payload) == 0 || payload[0] != thermonet.CmdStatus {
		return "", false
	}
	resp, err := thermonet.DecodeReply(thermonet.StatusQuery{}, payload)
	if err != nil {
		return thermonet.StatusQuery{}.NackText(), true
	}
	return resp.Text(), true
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	relay, err := xbee.ParseAddress(cfg.Radio.Relay)
	if err != nil {
		return fmt.Errorf("radio.relay: %w", err)
	}
	d, err := newDialer(cfg.Radio)
	if err != nil {
		return err
	}
	conn, err := d.Dial(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Thermogate - Relay Ping\n")
	fmt.Printf("Connection: %s\n", d.Describe())
	fmt.Printf("Relay: %s\n", relay)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	frames, readErr := watchFrames(conn)
	successCount := 0
	failCount := 0

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		frameID := byte(i%255) + 1
		wire := xbee.MustEncodeFrame(xbee.NewTxRequest(frameID, relay, thermonet.StatusQuery{}.Payload()))

		startTime := time.Now()
		if _, err := conn.Write(wire); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		timeout := time.After(time.Duration(pingTimeout) * time.Second)
	wait:
		for {
			select {
			case f := <-frames:
				if f.Type() == xbee.FrameTxStatus {
					if st, err := xbee.ParseTxStatus(f); err == nil && st.FrameID == frameID && st.Delivery != xbee.DeliverySuccess {
						fmt.Printf("DELIVERY FAILED: %s\n", xbee.DeliveryStatusName(st.Delivery))
						failCount++
						break wait
					}
					continue
				}
				text, ok := statusReply(f, relay, cfg.Radio.UnescapePayloads)
				if !ok {
					continue
				}
				fmt.Printf("%s, rtt=%v\n", text, time.Since(startTime).Round(time.Millisecond))
				successCount++
				break wait

			case err := <-readErr:
				fmt.Printf("READ FAILED: %v\n", err)
				os.Exit(2)

			case <-timeout:
				fmt.Printf("TIMEOUT (no reply in %ds)\n", pingTimeout)
				failCount++
				break wait
			}
		}

		// Small delay between pings
		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d replies received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}
