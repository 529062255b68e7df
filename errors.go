// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesock

import "errors"

var (
	// ErrAlreadyActive is returned by Start when the socket already runs
	// its event loop. The running loops are left untouched.
	ErrAlreadyActive = errors.New("linesock: socket already active")

	// ErrClosed is returned when the socket has been closed. A closed
	// socket never becomes active again.
	ErrClosed = errors.New("linesock: socket closed")

	// ErrLineTooLong is the read failure caused by a line longer than the
	// socket's maximum line length.
	ErrLineTooLong = errors.New("linesock: line too long")

	ErrNilTransport = errors.New("linesock: nil transport")
	ErrNilPool      = errors.New("linesock: nil pool")
)
