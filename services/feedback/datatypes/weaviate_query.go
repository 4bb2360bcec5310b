// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// =============================================================================
// Generic GraphQL Response Parser
// =============================================================================

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target type.
//
// # Description
//
// Encapsulates the marshal/unmarshal pattern required to convert Weaviate's
// dynamic response into a strongly-typed Go struct. The target type T must
// have json tags matching the expected response shape.
//
// # Example
//
//	resp, err := client.GraphQL().Get().WithClassName("FeedbackEntry").Do(ctx)
//	if err != nil { ... }
//	parsed, err := ParseGraphQLResponse[FeedbackQueryResponse](resp)
//
// # Limitations
//
//   - Type mismatches result in zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// =============================================================================
// FeedbackEntry Query Types
// =============================================================================

// FeedbackQueryResponse represents the response from querying FeedbackEntry.
type FeedbackQueryResponse struct {
	Get struct {
		FeedbackEntry []FeedbackEntryResult `json:"FeedbackEntry"`
	} `json:"Get"`
}

// FeedbackEntryResult is a single cached entry from a similarity query.
// Certainty is Weaviate's normalized similarity in [0,1].
type FeedbackEntryResult struct {
	ContentHash     string  `json:"contentHash"`
	FeedbackType    string  `json:"feedbackType"`
	Subtype         string  `json:"subtype"`
	SuggestionText  string  `json:"suggestionText"`
	Reasoning       string  `json:"reasoning"`
	ConfidenceScore float64 `json:"confidenceScore"`
	TopicID         string  `json:"topicId"`
	CreatedAt       float64 `json:"createdAt"`
	Additional      struct {
		ID        string   `json:"id"`
		Certainty *float32 `json:"certainty"`
	} `json:"_additional"`
}

// ToMetadata converts a query result into the canonical payload shape.
func (r *FeedbackEntryResult) ToMetadata() FeedbackMetadata {
	return FeedbackMetadata{
		ContentHash:     r.ContentHash,
		FeedbackType:    r.FeedbackType,
		Subtype:         r.Subtype,
		SuggestionText:  r.SuggestionText,
		Reasoning:       r.Reasoning,
		ConfidenceScore: r.ConfidenceScore,
		TopicID:         r.TopicID,
		CreatedAt:       int64(r.CreatedAt),
	}
}

// ToMap converts FeedbackMetadata to the property map Weaviate expects.
//
// # Example
//
//	client.Data().Creator().WithProperties(meta.ToMap()).Do(ctx)
func (m *FeedbackMetadata) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"contentHash":     m.ContentHash,
		"feedbackType":    m.FeedbackType,
		"subtype":         m.Subtype,
		"suggestionText":  m.SuggestionText,
		"reasoning":       m.Reasoning,
		"confidenceScore": m.ConfidenceScore,
		"topicId":         m.TopicID,
		"createdAt":       m.CreatedAt,
	}
}
