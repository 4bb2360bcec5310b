// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// validate is the shared validator instance for request structs.
var validate = validator.New()

// =============================================================================
// Feedback Requests
// =============================================================================

// FeedbackRequest asks the feedback service to analyze one response's
// content. TopicID is optional context carried into the semantic cache
// payload; it never affects cache keying.
type FeedbackRequest struct {
	Id        string `json:"id"`
	Content   string `json:"content" binding:"required" validate:"required,min=1,max=20000"`
	TopicID   string `json:"topicId" validate:"omitempty,uuid4"`
	Timestamp int64  `json:"timestamp"`
}

// EnsureDefaults populates the request ID and timestamp when absent.
func (r *FeedbackRequest) EnsureDefaults() {
	if r.Id == "" {
		r.Id = uuid.New().String()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UTC().Unix()
	}
}

// Validate checks the request against its declared constraints.
func (r *FeedbackRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid feedback request: %w", err)
	}
	return nil
}

// FeedbackSource records which layer produced a feedback response.
type FeedbackSource string

const (
	// SourceExactCache means the response came from the exact-match cache.
	SourceExactCache FeedbackSource = "exact"
	// SourceSemanticCache means a near-duplicate's cached verdict was reused.
	SourceSemanticCache FeedbackSource = "semantic"
	// SourceFresh means the analyzers ran for this request.
	SourceFresh FeedbackSource = "fresh"
)

// FeedbackResponse is the reply to a feedback request.
type FeedbackResponse struct {
	Id          string         `json:"id"`
	ContentHash string         `json:"contentHash"`
	Result      AnalysisResult `json:"result"`
	Source      FeedbackSource `json:"source"`
	// Similarity is set only for semantic-cache hits.
	Similarity float64 `json:"similarity,omitempty"`
}

// FullFeedbackResponse carries every finding for display-all use cases.
type FullFeedbackResponse struct {
	Id          string           `json:"id"`
	ContentHash string           `json:"contentHash"`
	Results     []AnalysisResult `json:"results"`
}
