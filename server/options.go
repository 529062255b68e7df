// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/someonegg/linesock"
)

type options struct {
	handlers    []linesock.Handler
	socketOpts  []linesock.Option
	maxConns    int
	acceptRate  rate.Limit
	acceptBurst int
	logger      *slog.Logger
	metrics     *linesock.Metrics
	checkOrigin func(r *http.Request) bool
}

// Option configures a Server.
type Option func(*options)

// WithHandlers registers handlers on every accepted socket.
func WithHandlers(hs ...linesock.Handler) Option {
	return func(o *options) {
		o.handlers = append(o.handlers, hs...)
	}
}

// WithSocketOptions applies opts to every accepted socket.
func WithSocketOptions(opts ...linesock.Option) Option {
	return func(o *options) {
		o.socketOpts = append(o.socketOpts, opts...)
	}
}

// WithMaxConns bounds the number of sockets running at once. The accept
// loop and the websocket handler wait while the bound is reached. Zero
// means no bound.
func WithMaxConns(n int) Option {
	return func(o *options) {
		o.maxConns = n
	}
}

// WithAcceptRate limits how fast connections are accepted.
func WithAcceptRate(r rate.Limit, burst int) Option {
	return func(o *options) {
		o.acceptRate = r
		o.acceptBurst = burst
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithMetrics(m *linesock.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithCheckOrigin sets the origin check of the websocket handler, see
// websocket.Upgrader.
func WithCheckOrigin(f func(r *http.Request) bool) Option {
	return func(o *options) {
		o.checkOrigin = f
	}
}
