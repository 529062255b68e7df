// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesock

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketReader interface, see https://godoc.org/github.com/gorilla/websocket/#Conn.NextReader
type WebsocketReader interface {
	NextReader() (messageType int, r io.Reader, err error)
}

// WebsocketWriter interface, see https://godoc.org/github.com/gorilla/websocket/#Conn.NextWriter
type WebsocketWriter interface {
	NextWriter(messageType int) (io.WriteCloser, error)
}

// WebsocketConn interface, see https://godoc.org/github.com/gorilla/websocket/#Conn
type WebsocketConn interface {
	WebsocketReader
	WebsocketWriter
	io.Closer
}

type websocketControlWriter interface {
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

// WebsocketCloseTimeout bounds the close handshake sent by a websocket
// stream on Close.
var WebsocketCloseTimeout = time.Second

// WebsocketStream converts a WebsocketConn to a byte stream, so a Socket
// can run over it.
//
// Every Write is sent as one text message, the payloads of incoming
// messages are concatenated. A normal close from the peer reads as io.EOF.
func WebsocketStream(c WebsocketConn) io.ReadWriteCloser {
	return &websocketStream{c: c}
}

type websocketStream struct {
	c WebsocketConn
	r io.Reader

	closeOnce sync.Once
	closeErr  error
}

func (s *websocketStream) Read(p []byte) (int, error) {
	for {
		if s.r == nil {
			_, r, err := s.c.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			s.r = r
		}

		n, err := s.r.Read(p)
		if errors.Is(err, io.EOF) {
			s.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *websocketStream) Write(p []byte) (int, error) {
	w, err := s.c.NextWriter(websocket.TextMessage)
	if err != nil {
		return 0, err
	}

	n, err := w.Write(p)
	if err != nil {
		w.Close()
		return n, err
	}
	return n, w.Close()
}

func (s *websocketStream) Close() error {
	s.closeOnce.Do(func() {
		if cw, ok := s.c.(websocketControlWriter); ok {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			cw.WriteControl(websocket.CloseMessage, msg, time.Now().Add(WebsocketCloseTimeout))
		}
		s.closeErr = s.c.Close()
	})
	return s.closeErr
}
