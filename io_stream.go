// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesock

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// LineMaxLength is the default maximum length of a received line.
const LineMaxLength = 32 * 1024 * 1024

// lineConn converts a byte stream to a LineReadWriter.
//
// In the transport layer, message's layout is:
//
//	Message\n
//
// Only "\n" ends a line. A "\r" right before it is dropped, a bare "\r"
// stays part of the message. A message containing "\n" breaks the framing
// of the rest of the stream.
type lineConn struct {
	conn io.ReadWriteCloser
	r    *bufio.Reader
	w    *bufio.Writer
	max  int
}

func newLineConn(conn io.ReadWriteCloser) *lineConn {
	return &lineConn{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
		max:  LineMaxLength,
	}
}

// ReadLine fails with ErrLineTooLong once the pending line exceeds max,
// the stream is unusable afterwards.
func (c *lineConn) ReadLine() (string, error) {
	var buf []byte
	for {
		frag, err := c.r.ReadSlice('\n')
		buf = append(buf, frag...)
		if err == nil {
			buf = buf[:len(buf)-1]
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			// leave room for a "\r" before the delimiter.
			if len(buf) > c.max+1 {
				return "", ErrLineTooLong
			}
			continue
		}
		// the last line of a stream may miss its delimiter.
		if errors.Is(err, io.EOF) && len(buf) > 0 {
			break
		}
		return "", err
	}

	buf = bytes.TrimSuffix(buf, []byte("\r"))
	if len(buf) > c.max {
		return "", ErrLineTooLong
	}
	return string(buf), nil
}

func (c *lineConn) WriteLine(line string) error {
	c.w.WriteString(line)
	c.w.WriteByte('\n')
	return c.w.Flush()
}

// close shuts down the write side, the read side and the transport, in
// that order. All errors are reported to f and otherwise ignored.
func (c *lineConn) close(f func(step string, err error)) {
	if cw, ok := c.conn.(closeWriter); ok {
		if err := cw.CloseWrite(); err != nil {
			f("close write", err)
		}
	}
	if cr, ok := c.conn.(closeReader); ok {
		if err := cr.CloseRead(); err != nil {
			f("close read", err)
		}
	}
	if err := c.conn.Close(); err != nil {
		f("close", err)
	}
}
