// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the feedback service.
//
// # Description
//
// Metrics cover the cache layers (hits, misses, store errors), the analyzer
// orchestrator (latency, findings), and the pipeline as a whole. They are
// exposed via the /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace for all metrics.
const metricsNamespace = "reasonbridge"

// Subsystem for feedback pipeline metrics.
const feedbackSubsystem = "feedback"

// Cache outcome label values. "error" means the backing store failed and
// the request was served as a miss (graceful degradation).
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// Metrics holds all Prometheus metrics for the feedback service.
//
// # Fields
//
//   - CacheRequestsTotal: Counter of cache lookups by cache layer and outcome
//   - CacheWritesTotal: Counter of cache writes by cache layer and status
//   - AnalyzerDurationSeconds: Histogram of per-analyzer latency
//   - AnalysesTotal: Counter of completed analyses by result type
//   - PipelineRequestsTotal: Counter of pipeline requests by source
type Metrics struct {
	// CacheRequestsTotal counts lookups by cache and outcome.
	// Labels: cache (exact, embedding, semantic), outcome (hit, miss, error)
	CacheRequestsTotal *prometheus.CounterVec

	// CacheWritesTotal counts write attempts by cache and status.
	// Labels: cache (exact, embedding, semantic), status (success, error)
	CacheWritesTotal *prometheus.CounterVec

	// AnalyzerDurationSeconds measures individual analyzer latency.
	// Labels: analyzer (tone, fallacy, clarity)
	AnalyzerDurationSeconds *prometheus.HistogramVec

	// AnalysesTotal counts completed orchestrations by selected result type.
	// Labels: type (FALLACY, INFLAMMATORY, UNSOURCED, BIAS, AFFIRMATION)
	AnalysesTotal *prometheus.CounterVec

	// PipelineRequestsTotal counts feedback requests by serving source.
	// Labels: source (exact, semantic, fresh), status (success, error)
	PipelineRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the metric set on the given registerer.
//
// # Inputs
//
//   - reg: Target registry. Pass prometheus.DefaultRegisterer in main;
//     tests pass a fresh prometheus.NewRegistry() to avoid duplicate
//     registration across cases.
//
// # Outputs
//
//   - *Metrics: Registered metric set ready for use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: feedbackSubsystem,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by cache layer and outcome.",
		}, []string{"cache", "outcome"}),
		CacheWritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: feedbackSubsystem,
			Name:      "cache_writes_total",
			Help:      "Cache write attempts by cache layer and status.",
		}, []string{"cache", "status"}),
		AnalyzerDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: feedbackSubsystem,
			Name:      "analyzer_duration_seconds",
			Help:      "Latency of individual content analyzers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"analyzer"}),
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: feedbackSubsystem,
			Name:      "analyses_total",
			Help:      "Completed analyses by selected result type.",
		}, []string{"type"}),
		PipelineRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: feedbackSubsystem,
			Name:      "pipeline_requests_total",
			Help:      "Feedback pipeline requests by serving source and status.",
		}, []string{"source", "status"}),
	}

	reg.MustRegister(
		m.CacheRequestsTotal,
		m.CacheWritesTotal,
		m.AnalyzerDurationSeconds,
		m.AnalysesTotal,
		m.PipelineRequestsTotal,
	)
	return m
}

// NewTestMetrics returns a metric set on a private registry, for tests.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
