// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client connects line sockets to a remote peer.
package client

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/gorilla/websocket"

	"github.com/someonegg/linesock"
)

// Dial connects to the TCP address addr and starts the event loop of a new
// socket configured with opts.
func Dial(ctx context.Context, addr string, opts ...linesock.Option) (*linesock.Socket, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return start(conn, opts)
}

// DialWebsocket connects to the websocket url and starts the event loop of
// a new socket over it.
func DialWebsocket(ctx context.Context, url string, opts ...linesock.Option) (*linesock.Socket, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	return start(linesock.WebsocketStream(c), opts)
}

func start(conn io.ReadWriteCloser, opts []linesock.Option) (*linesock.Socket, error) {
	s := linesock.New(opts...)
	if err := s.Start(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}
