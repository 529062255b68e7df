// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/someonegg/linesock"
	"github.com/someonegg/linesock/client"
)

var dialWS bool

var dialCmd = &cobra.Command{
	Use:   "dial",
	Short: "Bridge stdin and stdout to a line socket",
	Long:  "Connect to a line socket, send every stdin line and print every received line. With --ws, --addr is a websocket URL.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []linesock.Option{
			linesock.WithLogger(logger),
			linesock.WithQueueSize(cfg.QueueSize),
		}
		return runDial(cmd.Context(), cfg.Addr, dialWS, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
	},
}

func init() {
	rootCmd.AddCommand(dialCmd)
	dialCmd.Flags().BoolVar(&dialWS, "ws", false, "dial a websocket URL instead of a TCP address")
}

// runDial returns when in is exhausted or the connection is closed.
func runDial(ctx context.Context, addr string, ws bool, in io.Reader, out io.Writer, opts []linesock.Option) error {
	printer := linesock.HandleFunc(func(s *linesock.Socket, msg string) bool {
		fmt.Fprintln(out, msg)
		return true
	})
	opts = append(opts, linesock.WithHandlers(printer))

	var (
		s   *linesock.Socket
		err error
	)
	if ws || strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		s, err = client.DialWebsocket(ctx, addr, opts...)
	} else {
		s, err = client.Dial(ctx, addr, opts...)
	}
	if err != nil {
		return err
	}
	defer s.Close()

	inD := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), linesock.LineMaxLength)
		for sc.Scan() {
			if err := s.Send(ctx, sc.Text()); err != nil {
				inD <- nil
				return
			}
		}
		inD <- sc.Err()
	}()

	select {
	case err = <-inD:
		// let the queued lines reach the peer.
		t := time.NewTicker(10 * time.Millisecond)
		defer t.Stop()
		for s.IsActive() && s.Statistics().WrittenCount < s.Statistics().SendCount {
			select {
			case <-s.StopD():
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
		return err
	case <-s.StopD():
		return s.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
