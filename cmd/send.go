// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	sendAddr      string
	sendReplyPort int
	sendTimeout   time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <request>",
	Short: "Send a text command to a running gateway",
	Long: `Send one text command to a gateway's TCP listener and print the response.

Examples:
  thermogate send TS:ON
  thermogate send PO:ON:21.5
  thermogate send TR:ADD:-1:1:7.5:21
  thermogate send ST

If the gateway dials back with responses, pass its reply port with
--reply-port; the response is then accepted on that port instead of read from
the request connection.`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendAddr, "addr", "localhost:5267", "Gateway listener address")
	sendCmd.Flags().IntVar(&sendReplyPort, "reply-port", 0, "Accept the response on this local port")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 30*time.Second, "How long to wait for the response")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()

	resp, err := sendRequest(ctx, sendAddr, args[0], sendReplyPort)
	if err != nil {
		return err
	}
	fmt.Println(resp)
	return nil
}

// sendRequest writes request to the gateway at addr and returns the first
// response line without its terminator. With replyPort > 0 the response is
// accepted on a local listener on that port.
func sendRequest(ctx context.Context, addr, request string, replyPort int) (string, error) {
	var ln net.Listener
	if replyPort > 0 {
		var lc net.ListenConfig
		l, err := lc.Listen(ctx, "tcp", ":"+strconv.Itoa(replyPort))
		if err != nil {
			return "", fmt.Errorf("listen for reply: %w", err)
		}
		defer l.Close()
		ln = l
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("connect to gateway: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if _, err := conn.Write([]byte(request)); err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}

	if ln == nil {
		return readResponse(ctx, conn)
	}

	type result struct {
		resp string
		err  error
	}
	// Requests the gateway rejects outright are answered on the request
	// connection even in dial-back mode
	inline := make(chan result, 1)
	go func() {
		resp, err := readResponse(ctx, conn)
		inline <- result{resp, err}
	}()
	dialed := make(chan result, 1)
	go func() {
		resp, err := acceptResponse(ctx, ln)
		dialed <- result{resp, err}
	}()

	select {
	case r := <-inline:
		if r.err == nil {
			return r.resp, nil
		}
		r = <-dialed
		return r.resp, r.err
	case r := <-dialed:
		return r.resp, r.err
	}
}

// acceptResponse waits for the gateway to dial back and returns the first
// complete response.
func acceptResponse(ctx context.Context, ln net.Listener) (string, error) {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	for {
		reply, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("wait for reply: %w", ctx.Err())
			}
			return "", fmt.Errorf("accept reply: %w", err)
		}
		resp, err := readResponse(ctx, reply)
		reply.Close()
		if err == nil || ctx.Err() != nil {
			return resp, err
		}
	}
}

func readResponse(ctx context.Context, conn net.Conn) (string, error) {
	line, err := bufio.NewReader(conn).ReadString('\n')
	if line == "" {
		if ctx.Err() != nil {
			return "", fmt.Errorf("wait for response: %w", ctx.Err())
		}
		if errors.Is(err, io.EOF) {
			return "", errors.New("gateway closed the connection without a response")
		}
		return "", fmt.Errorf("read response: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
