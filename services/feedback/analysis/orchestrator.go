// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analysis

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/reasonbridge/ReasonBridge/services/feedback/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/feedback/observability"
)

var tracer = otel.Tracer("reasonbridge.feedback.analysis")

// AffirmationConfidence is the fixed confidence of the synthetic
// no-issues-found result.
const AffirmationConfidence = 0.85

// affirmationMessage is the fixed encouraging text returned when no
// analyzer flags anything.
const affirmationMessage = "Your response is constructive and well reasoned. Keep contributing like this."

// Orchestrator fans content out to every analyzer and selects the result.
//
// # Thread Safety
//
// Safe for concurrent use. Each call runs its own analyzer goroutines and
// shares no mutable state with other calls.
type Orchestrator struct {
	analyzers []Analyzer
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewOrchestrator builds an orchestrator over the given analyzers.
//
// # Inputs
//
//   - analyzers: The analyzer set to dispatch. Order does not matter.
//   - metrics: Metric set for latency and result counters.
//   - logger: Logger instance. Uses slog.Default() if nil.
func NewOrchestrator(analyzers []Analyzer, metrics *observability.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		analyzers: analyzers,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "orchestrator")),
	}
}

// AnalyzeContent runs all analyzers and returns the single best finding.
//
// # Description
//
// All analyzers are dispatched concurrently and all of them run to
// completion before any result is selected. A failed analyzer fails the
// whole call: its silence cannot be distinguished from a clean verdict, so
// no partial result is returned. If every analyzer reports nothing, a
// synthetic AFFIRMATION result is returned instead.
//
// Selection order is confidenceScore descending, ties broken by the fixed
// type-priority table (FALLACY highest, AFFIRMATION lowest).
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout.
//   - content: The response content to analyze.
//
// # Outputs
//
//   - datatypes.AnalysisResult: The selected finding or the affirmation.
//   - error: Non-nil if any analyzer failed.
func (o *Orchestrator) AnalyzeContent(ctx context.Context, content string) (datatypes.AnalysisResult, error) {
	findings, err := o.runAll(ctx, content)
	if err != nil {
		return datatypes.AnalysisResult{}, err
	}

	if len(findings) == 0 {
		o.metrics.AnalysesTotal.WithLabelValues(string(datatypes.FeedbackAffirmation)).Inc()
		return affirmationResult(), nil
	}

	best := findings[0]
	for _, f := range findings[1:] {
		if f.BetterThan(&best) {
			best = f
		}
	}
	o.metrics.AnalysesTotal.WithLabelValues(string(best.Type)).Inc()
	return best, nil
}

// AnalyzeContentFull runs all analyzers and returns every finding sorted
// by confidence descending, or the synthetic affirmation if there are
// none. Used where all issues must be shown, not only the top one.
func (o *Orchestrator) AnalyzeContentFull(ctx context.Context, content string) ([]datatypes.AnalysisResult, error) {
	findings, err := o.runAll(ctx, content)
	if err != nil {
		return nil, err
	}

	if len(findings) == 0 {
		o.metrics.AnalysesTotal.WithLabelValues(string(datatypes.FeedbackAffirmation)).Inc()
		return []datatypes.AnalysisResult{affirmationResult()}, nil
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].BetterThan(&findings[j])
	})
	o.metrics.AnalysesTotal.WithLabelValues(string(findings[0].Type)).Inc()
	return findings, nil
}

// runAll fans out to every analyzer and collects the findings.
//
// A zero-value errgroup is used deliberately: analyzer calls must not be
// cancelled by a sibling's failure, because every analyzer is required to
// finish before the call resolves either way.
func (o *Orchestrator) runAll(ctx context.Context, content string) ([]datatypes.AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.AnalyzeContent")
	defer span.End()
	span.SetAttributes(
		attribute.Int("analyzer.count", len(o.analyzers)),
		attribute.Int("content.length", len(content)),
	)

	var (
		mu       sync.Mutex
		findings []datatypes.AnalysisResult
		g        errgroup.Group
	)

	for _, analyzer := range o.analyzers {
		g.Go(func() error {
			start := time.Now()
			result, err := analyzer.Analyze(ctx, content)
			o.metrics.AnalyzerDurationSeconds.WithLabelValues(analyzer.Name()).Observe(time.Since(start).Seconds())

			if err != nil {
				o.logger.Error("analyzer failed",
					slog.String("analyzer", analyzer.Name()),
					slog.Any("error", err))
				return err
			}
			if result == nil {
				return nil
			}

			mu.Lock()
			findings = append(findings, *result)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analyzer failure")
		return nil, err
	}

	span.SetAttributes(attribute.Int("findings.count", len(findings)))
	return findings, nil
}

func affirmationResult() datatypes.AnalysisResult {
	return datatypes.AnalysisResult{
		Type:            datatypes.FeedbackAffirmation,
		SuggestionText:  affirmationMessage,
		Reasoning:       "No tone, fallacy, or sourcing issues were detected.",
		ConfidenceScore: AffirmationConfidence,
	}
}
