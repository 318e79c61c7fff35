// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/thermogate/pkg/xbee"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test the radio link by waiting for a valid XBee frame",
	Long: `Wait for a valid XBee API frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any valid
API mode 2 frame. It ignores invalid bytes and waits for a complete frame
with a correct checksum.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking the modem is in API mode 2 at the configured baud rate.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
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

	fmt.Printf("Thermogate - Frame Test\n")
	fmt.Printf("Connection: %s\n", d.Describe())
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid XBee frame...\n\n")

	frames := make(chan *xbee.Frame, 1)
	errs := make(chan error, 1)

	go func() {
		decoder := xbee.NewDecoder()
		buf := make([]byte, 128)
		invalid := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errs <- err
				return
			}
			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					invalid++
					continue
				}
				if frame != nil {
					if invalid > 0 {
						fmt.Printf("(%d decode errors before sync)\n", invalid)
					}
					frames <- frame
					return
				}
			}
		}
	}()

	select {
	case frame := <-frames:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Type: %s (0x%02X)\n", frame.TypeName(), frame.Type())
		fmt.Printf("  Length: %d bytes\n", len(frame.Data()))
		fmt.Printf("  Checksum: 0x%02X\n", frame.Checksum())
		if desc := describeFrame(frame, cfg.Radio.UnescapePayloads); desc != "" {
			fmt.Printf("  Payload: %s\n", desc)
		}
		os.Exit(0)

	case err := <-errs:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)
	}

	return nil
}
