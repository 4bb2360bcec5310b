// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// FeedbackEntryClass is the Weaviate class backing the semantic cache.
const FeedbackEntryClass = "FeedbackEntry"

// GetFeedbackEntrySchema returns the class definition for cached feedback.
//
// Vectors are supplied by the client (vectorizer "none"); the embedding
// provider is called by the feedback service, never by Weaviate itself.
func GetFeedbackEntrySchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       FeedbackEntryClass,
		Description: "A cached feedback verdict keyed by its content embedding.",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexNullState:  true,
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:            "contentHash",
				DataType:        []string{"text"},
				Description:     "SHA-256 hash of the normalized source content.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "feedbackType",
				DataType:        []string{"text"},
				Description:     "Finding type (FALLACY, INFLAMMATORY, UNSOURCED, BIAS, AFFIRMATION).",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        "subtype",
				DataType:    []string{"text"},
				Description: "Optional finding subtype (e.g. the specific fallacy name).",
			},
			{
				Name:        "suggestionText",
				DataType:    []string{"text"},
				Description: "The user-facing suggestion for improving the response.",
			},
			{
				Name:        "reasoning",
				DataType:    []string{"text"},
				Description: "The analyzer's explanation for the finding.",
			},
			{
				Name:        "confidenceScore",
				DataType:    []string{"number"},
				Description: "Analyzer confidence in [0,1].",
			},
			{
				Name:            "topicId",
				DataType:        []string{"text"},
				Description:     "Optional discussion topic the content belongs to.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "createdAt",
				DataType:        []string{"number"},
				Description:     "Unix seconds when the entry was cached.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureFeedbackSchema creates the FeedbackEntry class if it does not exist.
// A ClassGetter error can mean either a missing class or an unreachable
// Weaviate; the create attempt distinguishes them, and its failure is
// returned so callers can disable the semantic cache instead of dying.
func EnsureFeedbackSchema(client *weaviate.Client) error {
	class := GetFeedbackEntrySchema()
	slog.Info("Checking schema", "class", class.Class)

	_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(context.Background())
	if err != nil {
		slog.Info("Schema not found, creating it...", "class", class.Class)
		if err := client.Schema().ClassCreator().WithClass(class).Do(context.Background()); err != nil {
			return fmt.Errorf("failed to create schema for class %s: %w", class.Class, err)
		}
		slog.Info("Successfully created schema", "class", class.Class)
	} else {
		slog.Info("Schema already exists", "class", class.Class)
	}
	return nil
}
