// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesock

import (
	"fmt"
	"io"
	"sync"
)

// LineDump is a debugging helper, it implements the LineReadWriter
// interface and provides line dump function.
//
// The dump format is:
//
//	R|W:LineSize\nLine\n\n
type LineDump struct {
	RW   LineReadWriter
	Dump io.Writer

	// Filter can be nil. If nil, dump all lines.
	Filter func(line string, read bool) bool

	// reading and writing happen on different loops.
	mu sync.Mutex
}

func (d *LineDump) needDump(line string, read bool) bool {
	if d.Filter != nil {
		return d.Filter(line, read)
	}
	return true
}

func (d *LineDump) dump(dir string, line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.Dump, "%s:%d\n%s\n\n", dir, len(line), line)
}

func (d *LineDump) ReadLine() (line string, err error) {
	line, err = d.RW.ReadLine()
	if err != nil {
		return
	}

	if d.needDump(line, true) {
		d.dump("R", line)
	}
	return
}

func (d *LineDump) WriteLine(line string) (err error) {
	err = d.RW.WriteLine(line)
	if err != nil {
		return
	}

	if d.needDump(line, false) {
		d.dump("W", line)
	}
	return
}
