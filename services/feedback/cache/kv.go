// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache implements the exact-match feedback cache and the embedding
// cache over a pluggable key-value store.
//
// # Description
//
// The cache layer is a performance optimization, never a correctness
// dependency: every public operation absorbs store-level failures, logs
// them, and presents callers with an ordinary miss. A cache outage degrades
// the system to "always recompute", never to a user-visible error.
//
// # Architecture
//
// Components depend on the narrow KVStore interface rather than a concrete
// client, so production adapters (Redis, BadgerDB) and test fakes are
// interchangeable via constructor injection.
//
// # Thread Safety
//
// All implementations are safe for concurrent use.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by KVStore.Get when the key is absent or
// expired. It marks a true miss, as opposed to a store failure.
var ErrKeyNotFound = errors.New("cache key not found")

// KVStore is the capability a backing key-value store must provide.
//
// # Description
//
// A deliberately narrow surface: get, set-with-TTL, delete, addressed by
// string key. Adapters exist for Redis (managed deployments) and BadgerDB
// (embedded local mode). Implementations return ErrKeyNotFound for absent
// keys and any other error for store-level failures.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type KVStore interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying client resources.
	Close() error
}

// Key prefixes are a stable wire contract shared with other services;
// they must be reproduced exactly.
const (
	// ExactKeyPrefix prefixes exact-match feedback cache keys.
	ExactKeyPrefix = "feedback:exact:"
	// EmbeddingKeyPrefix prefixes cached embedding keys.
	EmbeddingKeyPrefix = "feedback:embedding:"
)

// Default TTLs, overridable via configuration.
const (
	// DefaultExactTTL is how long an exact-match entry lives (48h).
	DefaultExactTTL = 172800 * time.Second
	// DefaultEmbeddingTTL is how long a cached embedding lives (7d).
	DefaultEmbeddingTTL = 604800 * time.Second
)
