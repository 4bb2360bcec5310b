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

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.opentelemetry.io/otel"

	"github.com/reasonbridge/ReasonBridge/services/feedback/datatypes"
)

var tracer = otel.Tracer("reasonbridge.feedback.semcache")

// WeaviateVectorStore adapts a Weaviate client to the VectorStore interface.
//
// # Description
//
// Entries live in the FeedbackEntry class with client-supplied vectors.
// Object IDs are derived deterministically from the content hash, so
// re-storing the same content replaces its prior entry instead of
// accumulating duplicates.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying client handles pooling.
type WeaviateVectorStore struct {
	client *weaviate.Client
}

var _ VectorStore = (*WeaviateVectorStore)(nil)

// NewWeaviateVectorStore wraps an existing Weaviate client.
func NewWeaviateVectorStore(client *weaviate.Client) *WeaviateVectorStore {
	return &WeaviateVectorStore{client: client}
}

// objectID derives the stable Weaviate object ID for a content hash.
func objectID(contentHash string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("feedback:"+contentHash)).String()
}

// SearchNearest implements VectorStore.
//
// Requests certainty (always in [0,1]) rather than distance, which varies
// by metric, and limits the query to the single nearest neighbor.
func (s *WeaviateVectorStore) SearchNearest(ctx context.Context, vector []float32) (*Neighbor, error) {
	ctx, span := tracer.Start(ctx, "WeaviateVectorStore.SearchNearest")
	defer span.End()

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	fields := []graphql.Field{
		{Name: "contentHash"},
		{Name: "feedbackType"},
		{Name: "subtype"},
		{Name: "suggestionText"},
		{Name: "reasoning"},
		{Name: "confidenceScore"},
		{Name: "topicId"},
		{Name: "createdAt"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "certainty"},
		}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(datatypes.FeedbackEntryClass).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.FeedbackQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	entries := parsed.Get.FeedbackEntry
	if len(entries) == 0 {
		return nil, nil
	}

	top := entries[0]
	similarity := 0.0
	if top.Additional.Certainty != nil {
		similarity = float64(*top.Additional.Certainty)
	}
	return &Neighbor{Metadata: top.ToMetadata(), Similarity: similarity}, nil
}

// Upsert implements VectorStore.
//
// Creates the object under its deterministic ID; if it already exists,
// falls back to a full-replace update.
func (s *WeaviateVectorStore) Upsert(ctx context.Context, vector []float32, payload datatypes.FeedbackMetadata) error {
	ctx, span := tracer.Start(ctx, "WeaviateVectorStore.Upsert")
	defer span.End()

	id := objectID(payload.ContentHash)

	_, err := s.client.Data().Creator().
		WithClassName(datatypes.FeedbackEntryClass).
		WithID(id).
		WithProperties(payload.ToMap()).
		WithVector(vector).
		Do(ctx)
	if err == nil {
		return nil
	}

	slog.Debug("Create returned error, attempting update", "id", id, "error", err)
	updateErr := s.client.Data().Updater().
		WithClassName(datatypes.FeedbackEntryClass).
		WithID(id).
		WithProperties(payload.ToMap()).
		WithVector(vector).
		Do(ctx)
	if updateErr != nil {
		return fmt.Errorf("weaviate upsert failed (create: %v): %w", err, updateErr)
	}
	return nil
}
