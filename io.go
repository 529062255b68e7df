// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesock

// LineReader reads newline delimited messages. The returned line does
// not contain the delimiter.
type LineReader interface {
	ReadLine() (line string, err error)
}

// LineWriter writes a message followed by a newline.
type LineWriter interface {
	WriteLine(line string) error
}

type LineReadWriter interface {
	LineReader
	LineWriter
}

type closeWriter interface {
	CloseWrite() error
}

type closeReader interface {
	CloseRead() error
}
