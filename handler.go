// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesock

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler is the message processor.
//
// Handle is called from the receiving loop, once per received message and
// never concurrently for the same socket. The returned value reports whether
// the handler consumed the message, the socket does not act on it.
type Handler interface {
	Handle(s *Socket, msg string) (handled bool)
}

type funcHandler struct {
	f func(s *Socket, msg string) bool
}

// HandleFunc wraps f as a Handler. Every call returns a new Handler, keep
// the returned value to remove it later.
func HandleFunc(f func(s *Socket, msg string) bool) Handler {
	return &funcHandler{f: f}
}

func (h *funcHandler) Handle(s *Socket, msg string) bool {
	return h.f(s, msg)
}

// registry is a copy-on-write handler set. Writers serialize on mu and
// publish a fresh slice, readers load the current slice without locking.
type registry struct {
	mu sync.Mutex
	hs atomic.Pointer[[]Handler]
}

func (r *registry) snapshot() []Handler {
	if p := r.hs.Load(); p != nil {
		return *p
	}
	return nil
}

func (r *registry) add(hs ...Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snapshot()
	next := make([]Handler, len(cur), len(cur)+len(hs))
	copy(next, cur)
	for _, h := range hs {
		if h == nil || indexOf(next, h) >= 0 {
			continue
		}
		next = append(next, h)
	}
	if len(next) != len(cur) {
		r.hs.Store(&next)
	}
}

func (r *registry) remove(h Handler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snapshot()
	i := indexOf(cur, h)
	if i < 0 {
		return false
	}
	next := make([]Handler, 0, len(cur)-1)
	next = append(next, cur[:i]...)
	next = append(next, cur[i+1:]...)
	r.hs.Store(&next)
	return true
}

func (r *registry) len() int {
	return len(r.snapshot())
}

func indexOf(hs []Handler, h Handler) int {
	for i, x := range hs {
		if sameHandler(x, h) {
			return i
		}
	}
	return -1
}

// sameHandler compares by identity. Handlers whose dynamic type is not
// comparable never match, so they can be added but not removed.
func sameHandler(a, b Handler) bool {
	if a == nil || b == nil {
		return false
	}
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}
