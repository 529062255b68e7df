// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesock

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports socket activity to Prometheus. One Metrics value is
// usually shared by all sockets of a process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	active        prometheus.Gauge
	opened        prometheus.Counter
	sent          prometheus.Counter
	sentBytes     prometheus.Counter
	received      prometheus.Counter
	receivedBytes prometheus.Counter
	dropped       prometheus.Counter
	panics        prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// already registered under the same names are reused.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counter := func(name, help string) (prometheus.Counter, error) {
		return register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      name,
			Help:      help,
		}))
	}

	m := &Metrics{}
	var err error
	m.active, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "socket",
		Name:      "active",
		Help:      "Number of sockets with a running event loop",
	}))
	if err != nil {
		return nil, err
	}

	for _, c := range []struct {
		dst  *prometheus.Counter
		name string
		help string
	}{
		{&m.opened, "opened_total", "Total sockets whose event loop was started"},
		{&m.sent, "messages_sent_total", "Total messages written to the transport"},
		{&m.sentBytes, "sent_bytes_total", "Total payload bytes written to the transport"},
		{&m.received, "messages_received_total", "Total messages read from the transport"},
		{&m.receivedBytes, "received_bytes_total", "Total payload bytes read from the transport"},
		{&m.dropped, "dropped_total", "Total messages dropped by Send"},
		{&m.panics, "handler_panics_total", "Total recovered handler panics"},
	} {
		if *c.dst, err = counter(c.name, c.help); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) opening() {
	if m == nil {
		return
	}
	m.opened.Inc()
	m.active.Inc()
}

func (m *Metrics) closing() {
	if m == nil {
		return
	}
	m.active.Dec()
}

func (m *Metrics) written(n int) {
	if m == nil {
		return
	}
	m.sent.Inc()
	m.sentBytes.Add(float64(n))
}

func (m *Metrics) read(n int) {
	if m == nil {
		return
	}
	m.received.Inc()
	m.receivedBytes.Add(float64(n))
}

func (m *Metrics) drop() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) panicked() {
	if m == nil {
		return
	}
	m.panics.Inc()
}
