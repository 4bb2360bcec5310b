// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the discussion
// service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace    = "reasonbridge"
	discussionSubsystem = "discussion"
)

// Metrics holds all Prometheus metrics for the discussion service.
type Metrics struct {
	// AlignmentEventsTotal counts alignment mutations.
	// Labels: event (create, update, delete), status (success, error)
	AlignmentEventsTotal *prometheus.CounterVec

	// AggregationsTotal counts aggregate recomputations.
	// Labels: kind (single, batch)
	AggregationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the metric set on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AlignmentEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: discussionSubsystem,
			Name:      "alignment_events_total",
			Help:      "Alignment mutations by event type and status.",
		}, []string{"event", "status"}),
		AggregationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: discussionSubsystem,
			Name:      "aggregations_total",
			Help:      "Aggregate recomputations by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.AlignmentEventsTotal,
		m.AggregationsTotal,
	)
	return m
}

// NewTestMetrics returns a metric set on a private registry, for tests.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
