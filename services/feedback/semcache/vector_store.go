// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package semcache implements the similarity-based feedback cache: content
// embeddings stored in a vector database, queried by nearest neighbor so
// near-duplicate phrasing reuses cached judgments.
package semcache

import (
	"context"

	"github.com/reasonbridge/ReasonBridge/services/feedback/datatypes"
)

// Neighbor is the single nearest match returned by a vector search.
type Neighbor struct {
	Metadata   datatypes.FeedbackMetadata
	Similarity float64
}

// VectorStore is the capability a backing similarity store must provide.
//
// # Description
//
// Nearest-neighbor search over fixed-dimension embeddings plus upsert of
// (vector, payload) pairs. Only the single nearest neighbor is ever
// consulted; no aggregation across matches. The concrete adapter is
// Weaviate; tests use in-memory fakes.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// SearchNearest returns the closest stored entry to vector, or nil
	// when the store is empty. Similarity is normalized to [0,1].
	SearchNearest(ctx context.Context, vector []float32) (*Neighbor, error)

	// Upsert stores vector with its payload, replacing any prior entry
	// for the same content hash.
	Upsert(ctx context.Context, vector []float32, payload datatypes.FeedbackMetadata) error
}
