// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reasonbridge/ReasonBridge/services/feedback/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/feedback/observability"
)

// =============================================================================
// Fakes
// =============================================================================

// memStore is an in-memory KVStore for tests. TTLs are recorded but not
// enforced; expiry behavior belongs to the real adapters.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	setErr  error
	getErr  error
	delErr  error
	getHits int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getHits++
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

func (m *memStore) Close() error { return nil }

func sampleResult() datatypes.AnalysisResult {
	return datatypes.AnalysisResult{
		Type:            datatypes.FeedbackFallacy,
		Subtype:         "ad_hominem",
		SuggestionText:  "Address the argument rather than the person.",
		Reasoning:       "The response attacks the previous poster directly.",
		ConfidenceScore: 0.91,
	}
}

// =============================================================================
// ExactCache Tests
// =============================================================================

func TestExactCache_RoundTrip(t *testing.T) {
	store := newMemStore()
	c := NewExactCache(store, time.Hour, observability.NewTestMetrics(), nil)
	ctx := context.Background()

	const hash = "deadbeef"
	cached := datatypes.NewCachedResult(sampleResult(), time.Now())
	c.Set(ctx, hash, cached)

	got, ok := c.Get(ctx, hash)
	require.True(t, ok, "set followed by get should hit")
	assert.Equal(t, cached.AnalysisResult, got.AnalysisResult)
	assert.WithinDuration(t, cached.CachedAt, got.CachedAt, time.Second)
}

func TestExactCache_KeyPrefix(t *testing.T) {
	store := newMemStore()
	c := NewExactCache(store, time.Hour, observability.NewTestMetrics(), nil)

	c.Set(context.Background(), "abc", datatypes.NewCachedResult(sampleResult(), time.Now()))

	_, ok := store.data["feedback:exact:abc"]
	assert.True(t, ok, "entries must live under the feedback:exact: prefix")
}

func TestExactCache_MissReturnsFalse(t *testing.T) {
	c := NewExactCache(newMemStore(), time.Hour, observability.NewTestMetrics(), nil)

	got, ok := c.Get(context.Background(), "absent")
	assert.False(t, ok)
	assert.Nil(t, got)
}

// TestExactCache_GracefulDegradation verifies the load-bearing contract: a
// failing store must never surface an error to callers.
func TestExactCache_GracefulDegradation(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	store.delErr = errors.New("connection refused")
	c := NewExactCache(store, time.Hour, observability.NewTestMetrics(), nil)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		got, ok := c.Get(ctx, "h")
		assert.False(t, ok)
		assert.Nil(t, got)

		c.Set(ctx, "h", datatypes.NewCachedResult(sampleResult(), time.Now()))
		c.Invalidate(ctx, "h")
	})
}

func TestExactCache_MalformedPayloadTreatedAsMiss(t *testing.T) {
	store := newMemStore()
	store.data["feedback:exact:bad"] = []byte("{not json")
	c := NewExactCache(store, time.Hour, observability.NewTestMetrics(), nil)

	got, ok := c.Get(context.Background(), "bad")
	assert.False(t, ok)
	assert.Nil(t, got)
	// The unreadable entry should have been dropped.
	_, present := store.data["feedback:exact:bad"]
	assert.False(t, present)
}

func TestExactCache_Invalidate(t *testing.T) {
	store := newMemStore()
	c := NewExactCache(store, time.Hour, observability.NewTestMetrics(), nil)
	ctx := context.Background()

	c.Set(ctx, "h", datatypes.NewCachedResult(sampleResult(), time.Now()))
	c.Invalidate(ctx, "h")

	_, ok := c.Get(ctx, "h")
	assert.False(t, ok)
}

func TestExactCache_DefaultTTL(t *testing.T) {
	c := NewExactCache(newMemStore(), 0, observability.NewTestMetrics(), nil)
	assert.Equal(t, DefaultExactTTL, c.TTL())

	custom := NewExactCache(newMemStore(), 10*time.Minute, observability.NewTestMetrics(), nil)
	assert.Equal(t, 10*time.Minute, custom.TTL())
}

func TestExactCache_WritePassesTTLToStore(t *testing.T) {
	store := newMemStore()
	c := NewExactCache(store, 30*time.Minute, observability.NewTestMetrics(), nil)

	c.Set(context.Background(), "h", datatypes.NewCachedResult(sampleResult(), time.Now()))
	assert.Equal(t, 30*time.Minute, store.ttls["feedback:exact:h"])
}

// =============================================================================
// EmbeddingCache Tests
// =============================================================================

func TestEmbeddingCache_RoundTrip(t *testing.T) {
	store := newMemStore()
	c := NewEmbeddingCache(store, time.Hour, observability.NewTestMetrics(), nil)
	ctx := context.Background()

	vector := []float32{0.1, -0.2, 0.3}
	c.Set(ctx, "h", vector)

	got, ok := c.Get(ctx, "h")
	require.True(t, ok)
	assert.Equal(t, vector, got)

	_, present := store.data["feedback:embedding:h"]
	assert.True(t, present, "entries must live under the feedback:embedding: prefix")
}

func TestEmbeddingCache_GracefulDegradation(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("timeout")
	store.setErr = errors.New("timeout")
	c := NewEmbeddingCache(store, time.Hour, observability.NewTestMetrics(), nil)

	got, ok := c.Get(context.Background(), "h")
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NotPanics(t, func() { c.Set(context.Background(), "h", []float32{1}) })
}

// =============================================================================
// BadgerStore Adapter Tests
// =============================================================================

func TestBadgerStore_InMemoryRoundTrip(t *testing.T) {
	store, err := NewInMemoryBadgerStore()
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestBadgerStore_AbsentKey(t *testing.T) {
	store, err := NewInMemoryBadgerStore()
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, store.Delete(context.Background(), "nope"))
}
