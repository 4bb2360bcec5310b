// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services wires the cache layers and the analyzer orchestrator
// into the feedback pipeline.
package services

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/reasonbridge/ReasonBridge/pkg/contenthash"
	"github.com/reasonbridge/ReasonBridge/services/feedback/analysis"
	"github.com/reasonbridge/ReasonBridge/services/feedback/cache"
	"github.com/reasonbridge/ReasonBridge/services/feedback/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/feedback/observability"
	"github.com/reasonbridge/ReasonBridge/services/feedback/semcache"
)

var tracer = otel.Tracer("reasonbridge.feedback.services")

// FeedbackService serves feedback requests through three layers: the
// exact-match cache, the semantic cache, and fresh analysis.
//
// # Description
//
// Content is normalized and hashed once per request. The exact cache is
// consulted first; on a miss the content is embedded and searched against
// the vector store; on a total miss the analyzer orchestrator runs and its
// verdict is written back into both caches. Every cache and embedding
// failure degrades to the next layer. Only an analyzer failure errors the
// request.
//
// # Thread Safety
//
// Safe for concurrent use. All fields are set at construction and never
// mutated.
type FeedbackService struct {
	exact        *cache.ExactCache
	embeddings   *semcache.EmbeddingService
	semantic     *semcache.SemanticCache
	orchestrator *analysis.Orchestrator
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewFeedbackService assembles the pipeline.
//
// # Inputs
//
//   - exact: Exact-match cache. Must not be nil (use a no-op store to
//     disable caching, not a nil cache).
//   - embeddings: Caching embedding front. May be nil to disable the
//     semantic layer entirely.
//   - semantic: Semantic cache. May be nil to disable the semantic layer.
//   - orchestrator: Analyzer orchestrator. Must not be nil.
//   - metrics: Metric set for pipeline counters.
//   - logger: Logger instance. Uses slog.Default() if nil.
func NewFeedbackService(
	exact *cache.ExactCache,
	embeddings *semcache.EmbeddingService,
	semantic *semcache.SemanticCache,
	orchestrator *analysis.Orchestrator,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *FeedbackService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackService{
		exact:        exact,
		embeddings:   embeddings,
		semantic:     semantic,
		orchestrator: orchestrator,
		metrics:      metrics,
		logger:       logger.With(slog.String("component", "feedback_service")),
	}
}

// Process serves one feedback request through the layered pipeline.
//
// # Outputs
//
//   - *datatypes.FeedbackResponse: The verdict and which layer served it.
//   - error: Non-nil only when fresh analysis was required and failed.
func (s *FeedbackService) Process(ctx context.Context, req *datatypes.FeedbackRequest) (*datatypes.FeedbackResponse, error) {
	ctx, span := tracer.Start(ctx, "FeedbackService.Process")
	defer span.End()

	hash := contenthash.Hash(req.Content)
	span.SetAttributes(attribute.String("content.hash", hash))

	// Layer 1: exact match.
	if cached, ok := s.exact.Get(ctx, hash); ok {
		span.SetAttributes(attribute.String("source", string(datatypes.SourceExactCache)))
		s.metrics.PipelineRequestsTotal.WithLabelValues(string(datatypes.SourceExactCache), "success").Inc()
		return &datatypes.FeedbackResponse{
			Id:          req.Id,
			ContentHash: hash,
			Result:      cached.AnalysisResult,
			Source:      datatypes.SourceExactCache,
		}, nil
	}

	// Layer 2: semantic match. An embedding-provider outage disables this
	// layer for the request, nothing more.
	var vector []float32
	if s.embeddings != nil && s.semantic != nil {
		var err error
		vector, err = s.embeddings.Embed(ctx, hash, contenthash.Normalize(req.Content))
		if err != nil {
			s.logger.Warn("embedding unavailable, skipping semantic cache",
				slog.String("contentHash", hash), slog.Any("error", err))
		} else if hit := s.semantic.SearchSimilar(ctx, vector); hit != nil {
			s.exact.Set(ctx, hash, datatypes.NewCachedResult(hit.Result, time.Now()))
			span.SetAttributes(
				attribute.String("source", string(datatypes.SourceSemanticCache)),
				attribute.Float64("similarity", hit.Similarity),
			)
			s.metrics.PipelineRequestsTotal.WithLabelValues(string(datatypes.SourceSemanticCache), "success").Inc()
			return &datatypes.FeedbackResponse{
				Id:          req.Id,
				ContentHash: hash,
				Result:      hit.Result,
				Source:      datatypes.SourceSemanticCache,
				Similarity:  hit.Similarity,
			}, nil
		}
	}

	// Layer 3: fresh analysis.
	result, err := s.orchestrator.AnalyzeContent(ctx, req.Content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		s.metrics.PipelineRequestsTotal.WithLabelValues(string(datatypes.SourceFresh), "error").Inc()
		return nil, err
	}

	now := time.Now()
	s.exact.Set(ctx, hash, datatypes.NewCachedResult(result, now))
	if vector != nil && s.semantic != nil {
		s.semantic.Store(ctx, vector, datatypes.MetadataFromResult(hash, req.TopicID, result, now))
	}

	span.SetAttributes(attribute.String("source", string(datatypes.SourceFresh)))
	s.metrics.PipelineRequestsTotal.WithLabelValues(string(datatypes.SourceFresh), "success").Inc()
	return &datatypes.FeedbackResponse{
		Id:          req.Id,
		ContentHash: hash,
		Result:      result,
		Source:      datatypes.SourceFresh,
	}, nil
}

// ProcessFull runs every analyzer and returns all findings, bypassing both
// caches. Used by review surfaces that display every issue; full result
// sets are not cached because the single-verdict caches cannot represent
// them.
func (s *FeedbackService) ProcessFull(ctx context.Context, req *datatypes.FeedbackRequest) (*datatypes.FullFeedbackResponse, error) {
	ctx, span := tracer.Start(ctx, "FeedbackService.ProcessFull")
	defer span.End()

	hash := contenthash.Hash(req.Content)
	results, err := s.orchestrator.AnalyzeContentFull(ctx, req.Content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		s.metrics.PipelineRequestsTotal.WithLabelValues(string(datatypes.SourceFresh), "error").Inc()
		return nil, err
	}

	s.metrics.PipelineRequestsTotal.WithLabelValues(string(datatypes.SourceFresh), "success").Inc()
	return &datatypes.FullFeedbackResponse{
		Id:          req.Id,
		ContentHash: hash,
		Results:     results,
	}, nil
}

// InvalidateCached drops the exact-cache entry for a content hash. The
// vector store entry is left in place; it expires via the store's own
// retention policy.
func (s *FeedbackService) InvalidateCached(ctx context.Context, contentHash string) {
	s.exact.Invalidate(ctx, contentHash)
}
