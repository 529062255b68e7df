// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesock

import "golang.org/x/sync/errgroup"

// Pool schedules the two loops of a socket. Both tasks run until the
// socket is closed, a pool must not queue them behind each other.
type Pool interface {
	Go(task func())
}

// The PoolFunc type is an adapter to allow the use of ordinary
// functions as pools.
type PoolFunc func(task func())

// Go calls f(task).
func (f PoolFunc) Go(task func()) {
	f(task)
}

// GoPool runs every task on its own goroutine.
var GoPool Pool = PoolFunc(func(task func()) { go task() })

// GroupPool submits tasks to g. Two slots are held per active socket, a
// limited g blocks the second loop of a socket while the first one runs,
// so bound the number of sockets rather than the group.
func GroupPool(g *errgroup.Group) Pool {
	return PoolFunc(func(task func()) {
		g.Go(func() error {
			task()
			return nil
		})
	})
}
