// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/someonegg/gox/syncx"
)

// State is the connection state of a Socket.
type State int32

const (
	// StateNew is the initial state, no transport is attached.
	StateNew State = iota
	// StateActive means the event loop is running.
	StateActive
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type panicError struct {
	v interface{}
}

func (e panicError) Error() string {
	return fmt.Sprint("linesock: panic: ", e.v)
}

// Socket represents a line-oriented connection, it has an event loop
// which reads and writes messages parallelly and continuously.
//
// Socket supports concurrently access.
type Socket struct {
	id  string
	log *slog.Logger
	m   *Metrics

	maxLine    int
	dump       io.Writer
	dumpFilter func(string, bool) bool

	// guards the transition out of StateNew.
	setupMu   sync.Mutex
	state     atomic.Int32
	closeOnce sync.Once

	conn io.ReadWriteCloser
	lc   *lineConn
	rw   LineReadWriter

	quitD   syncx.DoneChan
	stopD   syncx.DoneChan
	running atomic.Int32

	errMu sync.Mutex
	err   error

	wQ       chan string
	handlers registry

	stat statistics

	panicLogF func(interface{})
}

// New allocates and returns a new Socket in StateNew.
func New(opts ...Option) *Socket {
	o := newOptions(opts)

	s := &Socket{
		id:         uuid.NewString(),
		m:          o.metrics,
		maxLine:    o.maxLine,
		dump:       o.dump,
		dumpFilter: o.dumpFilter,
		quitD:      syncx.NewDoneChan(),
		stopD:      syncx.NewDoneChan(),
		wQ:         make(chan string, o.queueSize),
	}
	s.log = o.logger.With(slog.String("conn_id", s.id))
	s.panicLogF = s.logPanic
	s.handlers.add(o.handlers...)
	return s
}

// The default panic log function.
func (s *Socket) logPanic(v interface{}) {
	const size = 16 << 10
	buf := make([]byte, size)
	buf = buf[:runtime.Stack(buf, false)]
	s.log.Error("socket panic", slog.Any("panic", v), slog.String("stack", string(buf)))
}

// SetPanicLogFunc is optional, it must be called before Start.
func (s *Socket) SetPanicLogFunc(f func(panicV interface{})) {
	s.panicLogF = f
}

func (s *Socket) ID() string {
	return s.id
}

func (s *Socket) State() State {
	return State(s.state.Load())
}

func (s *Socket) IsActive() bool {
	return s.State() == StateActive
}

// Start attaches conn and runs both loops on their own goroutine.
//
// Start fails with ErrAlreadyActive when the loop is already running and
// with ErrClosed after the socket has been closed. In both cases conn is
// left untouched.
func (s *Socket) Start(conn io.ReadWriteCloser) error {
	return s.StartPool(conn, GoPool)
}

// StartPool is like Start but submits the loops to p.
func (s *Socket) StartPool(conn io.ReadWriteCloser, p Pool) error {
	if p == nil {
		return ErrNilPool
	}
	if err := s.setup(conn); err != nil {
		return err
	}

	p.Go(s.writing)
	p.Go(s.reading)
	return nil
}

func (s *Socket) setup(conn io.ReadWriteCloser) error {
	if conn == nil {
		return ErrNilTransport
	}

	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	switch s.State() {
	case StateActive:
		return ErrAlreadyActive
	case StateClosed:
		return ErrClosed
	}

	s.conn = conn
	s.lc = newLineConn(conn)
	s.lc.max = s.maxLine
	s.rw = s.lc
	if s.dump != nil {
		s.rw = &LineDump{RW: s.lc, Dump: s.dump, Filter: s.dumpFilter}
	}
	if nc, ok := conn.(net.Conn); ok && nc.RemoteAddr() != nil {
		s.log = s.log.With(slog.String("remote", nc.RemoteAddr().String()))
	}

	s.running.Store(2)
	s.state.Store(int32(StateActive))
	s.m.opening()
	s.log.Debug("socket started")
	return nil
}

// Close stops the event loop and releases the transport. Only the first
// call on an active socket has an effect, Close on a socket that was
// never started does nothing.
func (s *Socket) Close() {
	if !s.IsActive() {
		return
	}
	s.closeOnce.Do(s.teardown)
}

func (s *Socket) teardown() {
	// loops check the state, flip it before touching the transport.
	s.state.Store(int32(StateClosed))
	s.quitD.SetDone()

	s.lc.close(func(step string, err error) {
		s.log.Debug("socket teardown", slog.String("step", step), slog.Any("error", err))
	})

	s.m.closing()
	s.log.Debug("socket closed")
}

// StopD returns a done channel, it will be signaled when both loops of a
// started socket have exited.
func (s *Socket) StopD() syncx.DoneChanR {
	return s.stopD.R()
}

func (s *Socket) Stopped() bool {
	return s.stopD.R().Done()
}

// Error returns the transport failure that ended the event loop. It is
// nil after an explicit Close or when the peer closed the connection.
func (s *Socket) Error() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Socket) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

// fail records err unless the socket is already shutting down, in which
// case err is the echo of the teardown.
func (s *Socket) fail(loop string, err error) {
	if !s.IsActive() {
		return
	}
	s.setErr(err)
	s.log.Debug("socket loop failed", slog.String("loop", loop), slog.Any("error", err))
}

func (s *Socket) exitLoop(loop string) {
	if e := recover(); e != nil {
		s.panicLogF(e)
		err, ok := e.(error)
		if !ok {
			err = panicError{e}
		}
		s.fail(loop, err)
	}

	s.Close()

	if s.running.Add(-1) == 0 {
		s.stopD.SetDone()
	}
}

func (s *Socket) reading() {
	defer s.exitLoop("read")

	for s.IsActive() {
		line, err := s.rw.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.fail("read", err)
			}
			return
		}

		s.stat.readCount.Add(1)
		s.stat.readBytes.Add(int64(len(line)))
		s.m.read(len(line))

		s.dispatch(line)
	}
}

func (s *Socket) dispatch(line string) {
	for _, h := range s.handlers.snapshot() {
		s.invoke(h, line)
	}
}

func (s *Socket) invoke(h Handler, line string) (handled bool) {
	defer func() {
		if e := recover(); e != nil {
			s.stat.handlerPanics.Add(1)
			s.m.panicked()
			s.panicLogF(e)
		}
	}()

	return h.Handle(s, line)
}

func (s *Socket) writing() {
	defer s.exitLoop("write")

	for {
		select {
		case <-s.quitD:
			return
		case m := <-s.wQ:
			// nothing leaves after Close.
			select {
			case <-s.quitD:
				return
			default:
			}

			if err := s.rw.WriteLine(m); err != nil {
				s.fail("write", err)
				return
			}

			s.stat.writtenCount.Add(1)
			s.stat.writtenBytes.Add(int64(len(m)))
			s.m.written(len(m))
		}
	}
}

// Send puts the message to the write queue, it blocks while the queue is
// full.
//
// The message is dropped when ctx is done first, Send then returns
// ctx.Err(). After Close, Send drops the message and returns ErrClosed.
// Send can be called before Start, up to the queue capacity.
func (s *Socket) Send(ctx context.Context, msg string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-s.quitD:
		s.drop()
		return ErrClosed
	default:
	}

	select {
	case s.wQ <- msg:
		s.stat.sendCount.Add(1)
		return nil
	case <-s.quitD:
		s.drop()
		return ErrClosed
	case <-ctx.Done():
		s.drop()
		return ctx.Err()
	}
}

// TrySend tries to put the message to the write queue without blocking.
func (s *Socket) TrySend(msg string) bool {
	select {
	case <-s.quitD:
		s.drop()
		return false
	default:
	}

	select {
	case s.wQ <- msg:
		s.stat.sendCount.Add(1)
		return true
	default:
		s.drop()
		return false
	}
}

func (s *Socket) drop() {
	s.stat.droppedCount.Add(1)
	s.m.drop()
}

// AddHandler registers h. Adding the same handler twice has no effect.
func (s *Socket) AddHandler(h Handler) {
	s.handlers.add(h)
}

func (s *Socket) AddHandlers(hs ...Handler) {
	s.handlers.add(hs...)
}

// RemoveHandler unregisters h, messages read afterwards are not passed to
// it. It reports whether h was registered.
func (s *Socket) RemoveHandler(h Handler) bool {
	return s.handlers.remove(h)
}

// Handlers returns the number of registered handlers.
func (s *Socket) Handlers() int {
	return s.handlers.len()
}

func (s *Socket) Statistics() Statistics {
	return s.stat.snapshot()
}

// Underlying returns the attached transport, nil before Start.
func (s *Socket) Underlying() io.ReadWriteCloser {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()
	return s.conn
}
