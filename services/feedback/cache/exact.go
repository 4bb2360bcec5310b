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

	"github.com/reasonbridge/ReasonBridge/services/feedback/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/feedback/observability"
)

// lookupOutcome distinguishes a true miss from a store failure internally.
// The public contract collapses both to "no value", but metrics and logs
// must tell them apart.
type lookupOutcome int

const (
	outcomeHit lookupOutcome = iota
	outcomeMiss
	outcomeStoreError
)

// ExactCache is the exact-match feedback cache: a stateless facade over a
// KVStore, keyed by content hash under the feedback:exact: prefix.
//
// # Description
//
// Every operation is best-effort. Store failures are caught here, logged,
// counted, and presented to callers as an ordinary miss (Get) or a no-op
// (Set, Invalidate). Callers never see cache-layer errors.
//
// # Example
//
//	exact := cache.NewExactCache(store, 48*time.Hour, metrics, nil)
//	if result, ok := exact.Get(ctx, hash); ok {
//	    return result
//	}
type ExactCache struct {
	store   KVStore
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewExactCache builds an exact-match cache over the given store.
//
// # Inputs
//
//   - store: Backing key-value store. Must not be nil.
//   - ttl: Entry lifetime. Zero or negative falls back to DefaultExactTTL.
//   - metrics: Metric set for hit/miss/error counters. Must not be nil.
//   - logger: Logger instance. Uses slog.Default() if nil.
func NewExactCache(store KVStore, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *ExactCache {
	if ttl <= 0 {
		ttl = DefaultExactTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExactCache{
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "exact_cache")),
	}
}

// Get returns the cached result for contentHash, if present.
//
// # Outputs
//
//   - *datatypes.CachedAnalysisResult: The cached value, nil on a miss.
//   - bool: True only on a hit. Store errors and malformed payloads
//     report false, never an error.
func (c *ExactCache) Get(ctx context.Context, contentHash string) (*datatypes.CachedAnalysisResult, bool) {
	key := ExactKeyPrefix + contentHash

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			c.record(outcomeMiss)
			return nil, false
		}
		c.record(outcomeStoreError)
		c.logger.Warn("cache get failed, treating as miss",
			slog.String("key", key), slog.Any("error", err))
		return nil, false
	}

	var result datatypes.CachedAnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// A payload we cannot read is as useless as a miss; drop it so
		// the next write replaces it.
		c.record(outcomeStoreError)
		c.logger.Warn("cache payload malformed, invalidating",
			slog.String("key", key), slog.Any("error", err))
		c.Invalidate(ctx, contentHash)
		return nil, false
	}

	c.record(outcomeHit)
	return &result, true
}

// Set stores result under contentHash with the configured TTL. The entry is
// a full overwrite; cached results are immutable value objects.
func (c *ExactCache) Set(ctx context.Context, contentHash string, result datatypes.CachedAnalysisResult) {
	key := ExactKeyPrefix + contentHash

	raw, err := json.Marshal(result)
	if err != nil {
		c.metrics.CacheWritesTotal.WithLabelValues("exact", "error").Inc()
		c.logger.Error("failed to marshal cache entry", slog.String("key", key), slog.Any("error", err))
		return
	}

	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.metrics.CacheWritesTotal.WithLabelValues("exact", "error").Inc()
		c.logger.Warn("cache set failed, continuing without cache",
			slog.String("key", key), slog.Any("error", err))
		return
	}
	c.metrics.CacheWritesTotal.WithLabelValues("exact", "success").Inc()
}

// Invalidate removes the entry for contentHash. Best-effort.
func (c *ExactCache) Invalidate(ctx context.Context, contentHash string) {
	key := ExactKeyPrefix + contentHash
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("cache invalidate failed",
			slog.String("key", key), slog.Any("error", err))
	}
}

// TTL reports the configured entry lifetime.
func (c *ExactCache) TTL() time.Duration {
	return c.ttl
}

func (c *ExactCache) record(o lookupOutcome) {
	switch o {
	case outcomeHit:
		c.metrics.CacheRequestsTotal.WithLabelValues("exact", observability.OutcomeHit).Inc()
	case outcomeMiss:
		c.metrics.CacheRequestsTotal.WithLabelValues("exact", observability.OutcomeMiss).Inc()
	case outcomeStoreError:
		c.metrics.CacheRequestsTotal.WithLabelValues("exact", observability.OutcomeError).Inc()
	}
}
