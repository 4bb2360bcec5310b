// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/reasonbridge/ReasonBridge/services/feedback/observability"
)

// cachedEmbedding is the stored form of an embedding vector.
type cachedEmbedding struct {
	Vector   []float32 `json:"vector"`
	CachedAt int64     `json:"cachedAt"`
}

// EmbeddingCache stores embedding vectors keyed by content hash under the
// feedback:embedding: prefix, so identical content never triggers a second
// remote embedding call within the TTL window.
//
// Same soft-failure contract as ExactCache: store errors surface as misses.
type EmbeddingCache struct {
	store   KVStore
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewEmbeddingCache builds an embedding cache over the given store.
// A zero or negative ttl falls back to DefaultEmbeddingTTL (7 days).
func NewEmbeddingCache(store KVStore, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingCache{
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "embedding_cache")),
	}
}

// Get returns the cached vector for contentHash, if present.
func (c *EmbeddingCache) Get(ctx context.Context, contentHash string) ([]float32, bool) {
	key := EmbeddingKeyPrefix + contentHash

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			c.metrics.CacheRequestsTotal.WithLabelValues("embedding", observability.OutcomeMiss).Inc()
			return nil, false
		}
		c.metrics.CacheRequestsTotal.WithLabelValues("embedding", observability.OutcomeError).Inc()
		c.logger.Warn("embedding cache get failed, treating as miss",
			slog.String("key", key), slog.Any("error", err))
		return nil, false
	}

	var entry cachedEmbedding
	if err := json.Unmarshal(raw, &entry); err != nil || len(entry.Vector) == 0 {
		c.metrics.CacheRequestsTotal.WithLabelValues("embedding", observability.OutcomeError).Inc()
		c.logger.Warn("embedding cache payload malformed", slog.String("key", key))
		return nil, false
	}

	c.metrics.CacheRequestsTotal.WithLabelValues("embedding", observability.OutcomeHit).Inc()
	return entry.Vector, true
}

// Set stores vector under contentHash with the configured TTL. Best-effort.
func (c *EmbeddingCache) Set(ctx context.Context, contentHash string, vector []float32) {
	key := EmbeddingKeyPrefix + contentHash

	raw, err := json.Marshal(cachedEmbedding{Vector: vector, CachedAt: time.Now().UTC().Unix()})
	if err != nil {
		c.metrics.CacheWritesTotal.WithLabelValues("embedding", "error").Inc()
		c.logger.Error("failed to marshal embedding entry", slog.String("key", key), slog.Any("error", err))
		return
	}

	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.metrics.CacheWritesTotal.WithLabelValues("embedding", "error").Inc()
		c.logger.Warn("embedding cache set failed, continuing",
			slog.String("key", key), slog.Any("error", err))
		return
	}
	c.metrics.CacheWritesTotal.WithLabelValues("embedding", "success").Inc()
}
