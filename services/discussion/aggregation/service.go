// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package aggregation recomputes proposition stance counts and the
// consensus score whenever alignments change.
//
// # Description
//
// The aggregate fields on a proposition are derived display data. This
// package re-derives them from the alignment records, which remain the
// source of truth; a missed or raced update can always be repaired with
// RecalculateAll. The read-count-write sequence is deliberately not
// serialized against concurrent alignment mutations (last aggregation
// wins).
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/reasonbridge/ReasonBridge/services/discussion/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/discussion/observability"
)

var tracer = otel.Tracer("reasonbridge.discussion.aggregation")

// =============================================================================
// Errors
// =============================================================================

// NotFoundError reports a missing proposition. Unlike cache failures this
// is a data-integrity signal and is surfaced to the caller.
type NotFoundError struct {
	PropositionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("proposition %s not found", e.PropositionID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// =============================================================================
// Repositories
// =============================================================================

// AlignmentRepository reads alignment records.
type AlignmentRepository interface {
	FindAlignmentsByProposition(ctx context.Context, propositionID string) ([]datatypes.Alignment, error)
}

// PropositionRepository reads propositions and writes their aggregates.
type PropositionRepository interface {
	GetProposition(ctx context.Context, id string) (*datatypes.Proposition, error)
	ListPropositionIDs(ctx context.Context) ([]string, error)
	UpdateAggregates(ctx context.Context, id string, support, oppose, nuanced int, score *float64) error
}

// =============================================================================
// Service
// =============================================================================

// Service recomputes and serves proposition aggregates.
type Service struct {
	alignments   AlignmentRepository
	propositions PropositionRepository
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewService builds the aggregation service over the given repositories.
func NewService(alignments AlignmentRepository, propositions PropositionRepository, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		alignments:   alignments,
		propositions: propositions,
		metrics:      metrics,
		logger:       logger.With(slog.String("component", "aggregation")),
	}
}

// UpdatePropositionAggregates re-derives one proposition's aggregates from
// its alignment records and writes all four fields in a single update.
//
// # Description
//
// Idempotent: with no intervening alignment changes, running it twice
// produces identical stored state.
//
// # Outputs
//
//   - *datatypes.Aggregates: The freshly computed aggregates.
//   - error: NotFoundError if the proposition does not exist; otherwise a
//     store error.
func (s *Service) UpdatePropositionAggregates(ctx context.Context, propositionID string) (*datatypes.Aggregates, error) {
	ctx, span := tracer.Start(ctx, "Aggregation.UpdatePropositionAggregates")
	defer span.End()
	span.SetAttributes(attribute.String("proposition.id", propositionID))

	alignments, err := s.alignments.FindAlignmentsByProposition(ctx, propositionID)
	if err != nil {
		return nil, fmt.Errorf("reading alignments: %w", err)
	}

	var support, oppose, nuanced int
	for _, a := range alignments {
		switch a.Stance {
		case datatypes.StanceSupport:
			support++
		case datatypes.StanceOppose:
			oppose++
		case datatypes.StanceNuanced:
			nuanced++
		}
	}

	score := ConsensusScore(support, oppose, nuanced)
	if err := s.propositions.UpdateAggregates(ctx, propositionID, support, oppose, nuanced, score); err != nil {
		if isMissingProposition(err) {
			return nil, &NotFoundError{PropositionID: propositionID}
		}
		return nil, fmt.Errorf("writing aggregates: %w", err)
	}

	s.metrics.AggregationsTotal.WithLabelValues("single").Inc()
	return &datatypes.Aggregates{
		PropositionID:  propositionID,
		SupportCount:   support,
		OpposeCount:    oppose,
		NuancedCount:   nuanced,
		ConsensusScore: score,
	}, nil
}

// GetPropositionAggregates returns the currently stored aggregate fields.
func (s *Service) GetPropositionAggregates(ctx context.Context, propositionID string) (*datatypes.Aggregates, error) {
	p, err := s.propositions.GetProposition(ctx, propositionID)
	if err != nil {
		if isMissingProposition(err) {
			return nil, &NotFoundError{PropositionID: propositionID}
		}
		return nil, fmt.Errorf("reading proposition: %w", err)
	}
	return &datatypes.Aggregates{
		PropositionID:  p.Id,
		SupportCount:   p.SupportCount,
		OpposeCount:    p.OpposeCount,
		NuancedCount:   p.NuancedCount,
		ConsensusScore: p.ConsensusScore,
	}, nil
}

// RecalculateAllAggregates re-derives aggregates for every proposition and
// returns the count processed. Used for backfill and repair.
func (s *Service) RecalculateAllAggregates(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Aggregation.RecalculateAllAggregates")
	defer span.End()

	ids, err := s.propositions.ListPropositionIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing propositions: %w", err)
	}

	processed := 0
	for _, id := range ids {
		if _, err := s.UpdatePropositionAggregates(ctx, id); err != nil {
			// A proposition deleted mid-batch is skipped, not fatal.
			if IsNotFound(err) {
				s.logger.Warn("proposition vanished during recalculation", slog.String("propositionId", id))
				continue
			}
			return processed, err
		}
		processed++
	}

	s.metrics.AggregationsTotal.WithLabelValues("batch").Inc()
	span.SetAttributes(attribute.Int("propositions.processed", processed))
	s.logger.Info("recalculated all aggregates", slog.Int("processed", processed))
	return processed, nil
}

// ConsensusScore computes the consensus score for the given stance counts.
//
// # Description
//
// Nil when all counts are zero. Otherwise ((support-oppose)/total + 1) / 2,
// rounded to two decimals and clamped to [0,1]. Nuanced alignments count
// toward the denominator but contribute zero to the numerator, pulling the
// score toward 0.50.
func ConsensusScore(support, oppose, nuanced int) *float64 {
	total := support + oppose + nuanced
	if total == 0 {
		return nil
	}

	raw := (float64(support-oppose)/float64(total) + 1) / 2
	score := math.Round(raw*100) / 100
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return &score
}

// isMissingProposition matches the repositories' not-found sentinel.
func isMissingProposition(err error) bool {
	return errors.Is(err, datatypes.ErrPropositionNotFound)
}
