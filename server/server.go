// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server accepts connections and runs a line socket for each of
// them. All sockets of a server share its handlers and its pool.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/someonegg/linesock"
)

var (
	// ErrServerClosed is returned by Serve after Stop.
	ErrServerClosed = errors.New("server: closed")

	// ErrServerRunning is returned by Serve when the server already
	// serves a listener.
	ErrServerRunning = errors.New("server: already running")
)

const maxAcceptDelay = time.Second

type Server struct {
	log      *slog.Logger
	sockOpts []linesock.Option
	limiter  *rate.Limiter
	upgrader websocket.Upgrader

	group *errgroup.Group
	pool  linesock.Pool
	// admits whole sockets, nil without a bound.
	admit *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	running  atomic.Bool
	inflight sync.WaitGroup

	mu     sync.Mutex
	l      net.Listener
	closed bool
	conns  map[*linesock.Socket]struct{}
}

func New(opts ...Option) *Server {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	srv := &Server{
		log:   o.logger,
		group: &errgroup.Group{},
		conns: make(map[*linesock.Socket]struct{}),
	}
	srv.ctx, srv.cancel = context.WithCancel(context.Background())

	if o.maxConns > 0 {
		srv.admit = semaphore.NewWeighted(int64(o.maxConns))
	}
	srv.pool = linesock.GroupPool(srv.group)

	if o.acceptRate > 0 {
		burst := o.acceptBurst
		if burst < 1 {
			burst = 1
		}
		srv.limiter = rate.NewLimiter(o.acceptRate, burst)
	}

	srv.upgrader.CheckOrigin = o.checkOrigin

	srv.sockOpts = append(srv.sockOpts,
		linesock.WithLogger(o.logger),
		linesock.WithMetrics(o.metrics),
		linesock.WithHandlers(o.handlers...),
	)
	srv.sockOpts = append(srv.sockOpts, o.socketOpts...)
	return srv
}

// ListenAndServe listens on the TCP address addr and calls Serve.
func (srv *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return srv.Serve(l)
}

// Start listens on addr and serves it in the background.
func (srv *Server) Start(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if err := srv.setListener(l); err != nil {
		l.Close()
		return err
	}

	go func() {
		if err := srv.serve(l); err != nil && !errors.Is(err, ErrServerClosed) {
			srv.log.Error("server stopped", slog.Any("error", err))
		}
	}()
	return nil
}

// Serve accepts connections on l until Stop is called. It always returns
// a non-nil error, ErrServerClosed after Stop.
func (srv *Server) Serve(l net.Listener) error {
	if err := srv.setListener(l); err != nil {
		return err
	}
	return srv.serve(l)
}

func (srv *Server) setListener(l net.Listener) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.closed {
		return ErrServerClosed
	}
	if srv.l != nil {
		return ErrServerRunning
	}
	srv.l = l
	srv.running.Store(true)
	return nil
}

func (srv *Server) serve(l net.Listener) error {
	defer srv.running.Store(false)

	log := srv.log.With(slog.String("addr", l.Addr().String()))
	log.Info("server listening")

	var delay time.Duration
	for {
		if srv.limiter != nil {
			if err := srv.limiter.Wait(srv.ctx); err != nil {
				return ErrServerClosed
			}
		}

		conn, err := l.Accept()
		if err != nil {
			if srv.isClosed() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			log.Warn("accept failed", slog.Any("error", err), slog.Duration("retry_in", delay))
			select {
			case <-time.After(delay):
			case <-srv.ctx.Done():
				return ErrServerClosed
			}
			continue
		}
		delay = 0

		srv.serveConn(conn)
	}
}

// serveConn runs a socket over conn, it blocks while the server runs its
// maximum number of sockets.
func (srv *Server) serveConn(conn io.ReadWriteCloser) {
	s := linesock.New(srv.sockOpts...)

	srv.mu.Lock()
	if srv.closed {
		srv.mu.Unlock()
		conn.Close()
		return
	}
	srv.conns[s] = struct{}{}
	srv.inflight.Add(1)
	srv.mu.Unlock()
	defer srv.inflight.Done()

	// both loops are admitted together, a socket never waits with only
	// one of them running.
	if srv.admit != nil {
		if err := srv.admit.Acquire(srv.ctx, 1); err != nil {
			conn.Close()
			srv.untrack(s)
			return
		}
	}

	if err := s.StartPool(conn, srv.pool); err != nil {
		srv.log.Warn("socket start failed", slog.Any("error", err))
		conn.Close()
		srv.release(s)
		return
	}

	go func() {
		<-s.StopD()
		srv.release(s)
	}()
}

func (srv *Server) release(s *linesock.Socket) {
	srv.untrack(s)
	if srv.admit != nil {
		srv.admit.Release(1)
	}
}

func (srv *Server) untrack(s *linesock.Socket) {
	srv.mu.Lock()
	delete(srv.conns, s)
	srv.mu.Unlock()
}

func (srv *Server) isClosed() bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.closed
}

func (srv *Server) sockets() []*linesock.Socket {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	ss := make([]*linesock.Socket, 0, len(srv.conns))
	for s := range srv.conns {
		ss = append(ss, s)
	}
	return ss
}

// Stop closes the listener and every socket, then waits for all loops to
// exit. A stopped server can not be restarted.
func (srv *Server) Stop() {
	srv.mu.Lock()
	if srv.closed {
		srv.mu.Unlock()
		return
	}
	srv.closed = true
	l := srv.l
	srv.mu.Unlock()

	srv.cancel()
	if l != nil {
		l.Close()
	}

	// running sockets first, so waiting starts are admitted or refused.
	for _, s := range srv.sockets() {
		s.Close()
	}
	srv.inflight.Wait()
	for _, s := range srv.sockets() {
		s.Close()
	}

	srv.group.Wait()
	srv.log.Info("server stopped")
}

func (srv *Server) Running() bool {
	return srv.running.Load()
}

// Addr returns the listener address, nil before Serve or Start.
func (srv *Server) Addr() net.Addr {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.l == nil {
		return nil
	}
	return srv.l.Addr()
}

// Conns returns the number of sockets not yet stopped.
func (srv *Server) Conns() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.conns)
}

// WebsocketHandler returns a handler which upgrades requests to websocket
// connections and serves each one as a socket.
func (srv *Server) WebsocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if srv.isClosed() {
			http.Error(w, "server closed", http.StatusServiceUnavailable)
			return
		}

		c, err := srv.upgrader.Upgrade(w, r, nil)
		if err != nil {
			srv.log.Debug("websocket upgrade failed", slog.Any("error", err))
			return
		}
		srv.serveConn(linesock.WebsocketStream(c))
	})
}
