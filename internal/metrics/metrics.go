// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics wires the manager's operational counters into Prometheus:
// counters and histograms registered against an injected
// prometheus.Registerer rather than the global default registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/histogram the Mod Manager updates during a
// load or a frame pass. It is optional: a nil *Metrics, or the empty one
// New(nil) returns, makes every method a no-op so tests and embedders that don't care about
// Prometheus don't need a registry.
type Metrics struct {
	reg prometheus.Registerer

	modsLoaded     prometheus.Counter
	modsUnloaded   prometheus.Counter
	loadFailures   prometheus.Counter
	guestCallFails prometheus.Counter
	passDuration   *prometheus.HistogramVec
}

// New constructs Metrics and registers them against reg. If reg is nil, the
// returned Metrics silently drops every observation.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}

	m := &Metrics{
		reg: reg,
		modsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modhost_mods_loaded_total",
			Help: "Number of guest mods successfully loaded.",
		}),
		modsUnloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modhost_mods_unloaded_total",
			Help: "Number of guest mods unloaded.",
		}),
		loadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modhost_mod_load_failures_total",
			Help: "Number of guest mod load attempts that failed.",
		}),
		guestCallFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modhost_guest_call_failures_total",
			Help: "Number of init/update/draw guest invocations that returned an error, plus utils/fatal requests.",
		}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modhost_frame_pass_seconds",
			Help:    "Wall-clock duration of an update_all or draw_all pass.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pass"}),
	}

	m.modsLoaded = registerCounter(reg, m.modsLoaded)
	m.modsUnloaded = registerCounter(reg, m.modsUnloaded)
	m.loadFailures = registerCounter(reg, m.loadFailures)
	m.guestCallFails = registerCounter(reg, m.guestCallFails)
	m.passDuration = registerHistogramVec(reg, m.passDuration)

	return m
}

// registerCounter registers c and returns it, or, if a collector of the
// same name is already registered on reg (two Managers sharing a
// registry), adopts that existing collector instead so both Metrics
// instances actually observe into the same series.
func registerCounter(reg prometheus.Registerer, c prometheus.Counter) prometheus.Counter {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Counter)
		}
	}
	return c
}

func registerHistogramVec(reg prometheus.Registerer, h *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
	}
	return h
}

func (m *Metrics) ModLoaded() {
	if m != nil && m.modsLoaded != nil {
		m.modsLoaded.Inc()
	}
}

func (m *Metrics) ModUnloaded() {
	if m != nil && m.modsUnloaded != nil {
		m.modsUnloaded.Inc()
	}
}

func (m *Metrics) LoadFailed() {
	if m != nil && m.loadFailures != nil {
		m.loadFailures.Inc()
	}
}

func (m *Metrics) GuestCallFailed() {
	if m != nil && m.guestCallFails != nil {
		m.guestCallFails.Inc()
	}
}

// ObservePass records how long an update_all or draw_all pass took.
func (m *Metrics) ObservePass(pass string, seconds float64) {
	if m != nil && m.passDuration != nil {
		m.passDuration.WithLabelValues(pass).Observe(seconds)
	}
}
