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
	discoveryTimeout int
)

const discoveryFrameID = 0x52

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Discover radio nodes on the mesh",
	Long: `Send an XBee node discovery ("ND") command through the local modem and list
every node that answers.

Each node reports its 64-bit address, node identifier and device type. The
relay thermostat's address is the one to configure as radio.relay; sensor
nodes appear with the radio_id used in telemetry uploads.

Examples:
  thermogate discovery --port /dev/ttyUSB0
  thermogate discovery --url ws://bridge.local/xbee --timeout 10

Exit codes:
  0 - Discovery successful (at least one node found)
  1 - Discovery failed (no nodes or timeout)
  2 - Connection error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 6, "Timeout in seconds for discovery")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Thermogate - Node Discovery\n")
	fmt.Printf("Connection: %s\n", d.Describe())
	fmt.Printf("Timeout: %d seconds\n\n", discoveryTimeout)

	frame, err := xbee.NewATCommand(discoveryFrameID, "ND", nil)
	if err != nil {
		return err
	}
	fmt.Printf("Sending ND (frame id %d)...\n", discoveryFrameID)
	if _, err := conn.Write(xbee.MustEncodeFrame(frame)); err != nil {
		fmt.Printf("SEND FAILED: %v\n", err)
		os.Exit(2)
	}

	frames, readErr := watchFrames(conn)
	deadline := time.After(time.Duration(discoveryTimeout) * time.Second)
	nodes := make([]xbee.NodeInfo, 0)

collect:
	for {
		select {
		case f := <-frames:
			node, err := discoveryResult(f)
			if err != nil {
				fmt.Printf("\nBad response: %v\n", err)
				continue
			}
			if node == nil {
				continue
			}
			nodes = append(nodes, *node)
			printNode(*node)

		case err := <-readErr:
			fmt.Printf("READ FAILED: %v\n", err)
			os.Exit(2)

		case <-deadline:
			// Nodes answer at random times within the modem's NT window
			break collect
		}
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Nodes found: %d\n", len(nodes))
	if len(nodes) == 0 {
		fmt.Printf("No nodes discovered. Check the modem is joined to the network.\n")
		os.Exit(1)
	}
	return nil
}

// discoveryResult returns the node carried by an ND response frame, nil for
// unrelated frames, or an error for a failed or malformed response.
func discoveryResult(f *xbee.Frame) (*xbee.NodeInfo, error) {
	if f.Type() != xbee.FrameATCmdReponse {
		return nil, nil
	}
	resp, err := xbee.ParseATResponse(f)
	if err != nil {
		return nil, err
	}
	if resp.FrameID != discoveryFrameID || resp.Command != "ND" {
		return nil, nil
	}
	if resp.Status != xbee.ATStatusOK {
		return nil, fmt.Errorf("ND status %s", xbee.ATStatusName(resp.Status))
	}
	// An empty OK response marks the end of discovery on some firmware
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return xbee.ParseNodeInfo(resp.Data)
}

func printNode(n xbee.NodeInfo) {
	fmt.Printf("\nNode found:\n")
	fmt.Printf("  Address: %s (radio_id %s)\n", n.Address, n.Address.Short())
	if n.Identifier != "" {
		fmt.Printf("  Identifier: %s\n", n.Identifier)
	}
	fmt.Printf("  Type: %s\n", xbee.DeviceTypeName(n.DeviceType))
	fmt.Printf("  Network: 0x%04X (parent 0x%04X)\n", n.Network, n.Parent)
}
