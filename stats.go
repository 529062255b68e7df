// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesock

import "sync/atomic"

type Statistics struct {
	// from the transport
	ReadCount int64
	ReadBytes int64

	// to the transport
	WrittenCount int64
	WrittenBytes int64

	// Send calls
	SendCount    int64
	DroppedCount int64

	HandlerPanics int64
}

type statistics struct {
	readCount     atomic.Int64
	readBytes     atomic.Int64
	writtenCount  atomic.Int64
	writtenBytes  atomic.Int64
	sendCount     atomic.Int64
	droppedCount  atomic.Int64
	handlerPanics atomic.Int64
}

func (s *statistics) snapshot() Statistics {
	return Statistics{
		ReadCount:     s.readCount.Load(),
		ReadBytes:     s.readBytes.Load(),
		WrittenCount:  s.writtenCount.Load(),
		WrittenBytes:  s.writtenBytes.Load(),
		SendCount:     s.sendCount.Load(),
		DroppedCount:  s.droppedCount.Load(),
		HandlerPanics: s.handlerPanics.Load(),
	}
}
