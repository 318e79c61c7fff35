// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/thermogate/pkg/capture"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

var replayStats bool

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode a recorded capture file",
	Long: `Decode the frames in a capture file written by "serve --capture" or
"raw_log --capture", in recorded order, with timestamps and direction.

Received and transmitted bytes are decoded separately, so a frame split across
records in one direction is reassembled.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayStats, "stats", false, "Print receive statistics at the end")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	stats, err := replayCapture(f, cmd.OutOrStdout(), cfg.Radio.UnescapePayloads)
	if replayStats {
		fmt.Fprint(cmd.OutOrStdout(), stats.String())
	}
	return err
}

// replayCapture decodes every record in r and writes the frames to out. The
// returned statistics cover received frames only.
func replayCapture(r io.Reader, out io.Writer, unescape bool) (*xbee.Statistics, error) {
	reader := capture.NewReader(r)
	decoders := map[string]*xbee.Decoder{
		capture.DirectionRx: xbee.NewDecoder(),
		capture.DirectionTx: xbee.NewDecoder(),
	}
	stats := xbee.NewStatistics()

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		dec, ok := decoders[rec.Direction]
		if !ok {
			fmt.Fprintf(out, "%s [SKIP] unknown direction %q\n", rec.Time().Format("15:04:05.000"), rec.Direction)
			continue
		}
		for _, b := range rec.Wire {
			frame, err := dec.DecodeByte(b)
			if rec.Direction == capture.DirectionRx && (err != nil || frame != nil) {
				stats.Update(frame, err)
			}
			if err != nil {
				fmt.Fprintf(out, "%s %s [ERROR] %v\n", rec.Time().Format("15:04:05.000"), rec.Direction, err)
				continue
			}
			if frame == nil {
				continue
			}
			fmt.Fprintf(out, "%s %s ", rec.Time().Format("15:04:05.000"), rec.Direction)
			fmt.Fprint(out, xbee.FormatFrame(frame))
			if desc := describeFrame(frame, unescape); desc != "" {
				fmt.Fprintf(out, "  => %s\n", desc)
			}
		}
	}
}
