// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesock

import (
	"io"
	"log/slog"
)

// DefaultQueueSize is the write queue capacity used when none is given.
const DefaultQueueSize = 32

type options struct {
	queueSize  int
	maxLine    int
	logger     *slog.Logger
	metrics    *Metrics
	handlers   []Handler
	dump       io.Writer
	dumpFilter func(line string, read bool) bool
}

// Option configures a Socket.
type Option func(*options)

// WithQueueSize sets the capacity of the write queue. Values below 1 are
// replaced by DefaultQueueSize.
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}

// WithMaxLineLength bounds the length of a received line, a longer line
// ends the event loop with ErrLineTooLong. Values below 1 are replaced by
// LineMaxLength.
func WithMaxLineLength(n int) Option {
	return func(o *options) {
		o.maxLine = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHandlers registers handlers before the socket is started.
func WithHandlers(hs ...Handler) Option {
	return func(o *options) {
		o.handlers = append(o.handlers, hs...)
	}
}

// WithDump copies every line passing through the socket to w, see LineDump.
func WithDump(w io.Writer, filter func(line string, read bool) bool) Option {
	return func(o *options) {
		o.dump = w
		o.dumpFilter = filter
	}
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.queueSize < 1 {
		o.queueSize = DefaultQueueSize
	}
	if o.maxLine < 1 {
		o.maxLine = LineMaxLength
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
