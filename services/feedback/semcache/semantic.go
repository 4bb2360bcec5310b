// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package semcache

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/reasonbridge/ReasonBridge/services/feedback/cache"
	"github.com/reasonbridge/ReasonBridge/services/feedback/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/feedback/observability"
	"github.com/reasonbridge/ReasonBridge/services/llm"
)

// DefaultSimilarityThreshold is the minimum certainty for a semantic hit.
// High by design: near-duplicate phrasing may reuse a cached verdict, but
// semantically different content must never return a false positive.
const DefaultSimilarityThreshold = 0.95

// =============================================================================
// Embedding Service
// =============================================================================

// EmbeddingService obtains embeddings from a remote provider, fronted by a
// hash-keyed TTL cache so identical content is embedded at most once per
// cache window.
type EmbeddingService struct {
	embedder llm.Embedder
	cache    *cache.EmbeddingCache
	logger   *slog.Logger
}

// NewEmbeddingService builds the caching embedding front.
//
// # Inputs
//
//   - embedder: Remote embedding provider. Must not be nil.
//   - embCache: Hash-keyed embedding cache. May be nil to disable caching.
//   - logger: Logger instance. Uses slog.Default() if nil.
func NewEmbeddingService(embedder llm.Embedder, embCache *cache.EmbeddingCache, logger *slog.Logger) *EmbeddingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingService{
		embedder: embedder,
		cache:    embCache,
		logger:   logger.With(slog.String("component", "embedding_service")),
	}
}

// Embed returns the embedding for content, consulting the cache first.
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout.
//   - contentHash: Cache key for the content (contenthash.Hash output).
//   - content: The normalized-or-raw content to embed.
//
// # Outputs
//
//   - []float32: The embedding vector.
//   - error: Non-nil if the provider call failed and no cached vector
//     exists. Callers treat this as "semantic cache unavailable".
func (s *EmbeddingService) Embed(ctx context.Context, contentHash, content string) ([]float32, error) {
	if s.cache != nil {
		if vector, ok := s.cache.Get(ctx, contentHash); ok {
			return vector, nil
		}
	}

	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embedding provider failed: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, contentHash, vector)
	}
	return vector, nil
}

// =============================================================================
// Semantic Cache
// =============================================================================

// SimilarHit is a semantic-cache hit: the stored result plus how close the
// query was to it.
type SimilarHit struct {
	Result     datatypes.AnalysisResult
	Metadata   datatypes.FeedbackMetadata
	Similarity float64
}

// SemanticCache performs approximate-nearest-neighbor lookup of cached
// feedback verdicts.
//
// # Description
//
// Same availability contract as the exact-match cache: vector-store errors
// are absorbed, logged, counted, and presented as a miss. A vector-store
// outage disables semantic caching, never the feedback request.
type SemanticCache struct {
	store     VectorStore
	threshold float64
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewSemanticCache builds a semantic cache over the given vector store.
// A threshold outside (0,1] falls back to DefaultSimilarityThreshold.
func NewSemanticCache(store VectorStore, threshold float64, metrics *observability.Metrics, logger *slog.Logger) *SemanticCache {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticCache{
		store:     store,
		threshold: threshold,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "semantic_cache")),
	}
}

// Threshold reports the configured similarity threshold.
func (c *SemanticCache) Threshold() float64 {
	return c.threshold
}

// SearchSimilar looks up the nearest cached verdict for the embedding.
//
// # Description
//
// Only the single nearest neighbor is considered. A hit requires its
// similarity to be at or above the configured threshold; anything below
// is a miss, as is any store failure.
//
// # Outputs
//
//   - *SimilarHit: The reusable verdict with its similarity, nil on a miss.
//     Never returns an error: failures degrade to a miss.
func (c *SemanticCache) SearchSimilar(ctx context.Context, embedding []float32) *SimilarHit {
	ctx, span := tracer.Start(ctx, "SemanticCache.SearchSimilar")
	defer span.End()

	neighbor, err := c.store.SearchNearest(ctx, embedding)
	if err != nil {
		c.metrics.CacheRequestsTotal.WithLabelValues("semantic", observability.OutcomeError).Inc()
		c.logger.Warn("vector search failed, skipping semantic cache", slog.Any("error", err))
		return nil
	}
	if neighbor == nil {
		c.metrics.CacheRequestsTotal.WithLabelValues("semantic", observability.OutcomeMiss).Inc()
		return nil
	}

	span.SetAttributes(attribute.Float64("similarity", neighbor.Similarity))
	if neighbor.Similarity < c.threshold {
		c.metrics.CacheRequestsTotal.WithLabelValues("semantic", observability.OutcomeMiss).Inc()
		c.logger.Debug("nearest neighbor below threshold",
			slog.Float64("similarity", neighbor.Similarity),
			slog.Float64("threshold", c.threshold))
		return nil
	}

	c.metrics.CacheRequestsTotal.WithLabelValues("semantic", observability.OutcomeHit).Inc()
	return &SimilarHit{
		Result:     neighbor.Metadata.ToResult(),
		Metadata:   neighbor.Metadata,
		Similarity: neighbor.Similarity,
	}
}

// Store upserts a fresh verdict into the vector store. Best-effort: an
// upsert failure is logged and counted, never propagated.
func (c *SemanticCache) Store(ctx context.Context, embedding []float32, payload datatypes.FeedbackMetadata) {
	ctx, span := tracer.Start(ctx, "SemanticCache.Store")
	defer span.End()

	if err := c.store.Upsert(ctx, embedding, payload); err != nil {
		c.metrics.CacheWritesTotal.WithLabelValues("semantic", "error").Inc()
		c.logger.Warn("vector upsert failed, verdict not cached",
			slog.String("contentHash", payload.ContentHash), slog.Any("error", err))
		return
	}
	c.metrics.CacheWritesTotal.WithLabelValues("semantic", "success").Inc()
}
