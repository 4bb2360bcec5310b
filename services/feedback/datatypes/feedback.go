// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the shared data model for the feedback service:
// analysis results, cached feedback entries, and the Weaviate schema and
// query types used by the semantic cache.
package datatypes

import (
	"fmt"
	"time"
)

// =============================================================================
// Feedback Types
// =============================================================================

// FeedbackType classifies an analysis finding.
type FeedbackType string

const (
	// FeedbackFallacy flags a logical fallacy in the argument structure.
	FeedbackFallacy FeedbackType = "FALLACY"
	// FeedbackInflammatory flags hostile or inflammatory tone.
	FeedbackInflammatory FeedbackType = "INFLAMMATORY"
	// FeedbackUnsourced flags factual claims made without sources.
	FeedbackUnsourced FeedbackType = "UNSOURCED"
	// FeedbackBias flags one-sided framing or loaded language.
	FeedbackBias FeedbackType = "BIAS"
	// FeedbackAffirmation is the synthetic "no issues found" result.
	FeedbackAffirmation FeedbackType = "AFFIRMATION"
)

// typePriority is the fixed tie-break table used when two findings have
// equal confidence. Higher wins.
var typePriority = map[FeedbackType]int{
	FeedbackFallacy:      4,
	FeedbackInflammatory: 3,
	FeedbackUnsourced:    2,
	FeedbackBias:         1,
	FeedbackAffirmation:  0,
}

// Priority returns the tie-break priority for the type. Unknown types rank
// below AFFIRMATION.
func (t FeedbackType) Priority() int {
	if p, ok := typePriority[t]; ok {
		return p
	}
	return -1
}

// Valid reports whether t is a known feedback type.
func (t FeedbackType) Valid() bool {
	_, ok := typePriority[t]
	return ok
}

// =============================================================================
// Analysis Results
// =============================================================================

// AnalysisResult is the output of a single content analyzer. It is
// ephemeral; only cached forms (CachedAnalysisResult, FeedbackMetadata)
// are persisted.
type AnalysisResult struct {
	Type                 FeedbackType `json:"type"`
	Subtype              string       `json:"subtype,omitempty"`
	SuggestionText       string       `json:"suggestionText"`
	Reasoning            string       `json:"reasoning"`
	ConfidenceScore      float64      `json:"confidenceScore"`
	EducationalResources []string     `json:"educationalResources,omitempty"`
}

// Validate checks structural invariants of a result.
func (r *AnalysisResult) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("unknown feedback type %q", r.Type)
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return fmt.Errorf("confidence score %v outside [0,1]", r.ConfidenceScore)
	}
	if r.SuggestionText == "" {
		return fmt.Errorf("suggestion text must not be empty")
	}
	return nil
}

// BetterThan reports whether r should be preferred over other when
// selecting a single result to present.
//
// Primary key is confidence score (descending); ties are broken by the
// fixed type-priority table, highest priority winning.
func (r *AnalysisResult) BetterThan(other *AnalysisResult) bool {
	if other == nil {
		return true
	}
	if r.ConfidenceScore != other.ConfidenceScore {
		return r.ConfidenceScore > other.ConfidenceScore
	}
	return r.Type.Priority() > other.Type.Priority()
}

// CachedAnalysisResult is the immutable value object stored in the exact
// match cache. Updates are full overwrites keyed by the same content hash.
type CachedAnalysisResult struct {
	AnalysisResult
	CachedAt time.Time `json:"cachedAt"`
}

// NewCachedResult wraps a result with the cache timestamp.
func NewCachedResult(result AnalysisResult, now time.Time) CachedAnalysisResult {
	return CachedAnalysisResult{AnalysisResult: result, CachedAt: now.UTC()}
}

// =============================================================================
// Semantic Cache Payload
// =============================================================================

// FeedbackMetadata is the flat payload stored alongside each embedding in
// the vector store and returned on a similarity hit.
type FeedbackMetadata struct {
	ContentHash     string  `json:"contentHash"`
	FeedbackType    string  `json:"feedbackType"`
	Subtype         string  `json:"subtype"`
	SuggestionText  string  `json:"suggestionText"`
	Reasoning       string  `json:"reasoning"`
	ConfidenceScore float64 `json:"confidenceScore"`
	TopicID         string  `json:"topicId"`
	CreatedAt       int64   `json:"createdAt"`
}

// MetadataFromResult builds the vector-store payload for a fresh result.
func MetadataFromResult(contentHash, topicID string, result AnalysisResult, now time.Time) FeedbackMetadata {
	return FeedbackMetadata{
		ContentHash:     contentHash,
		FeedbackType:    string(result.Type),
		Subtype:         result.Subtype,
		SuggestionText:  result.SuggestionText,
		Reasoning:       result.Reasoning,
		ConfidenceScore: result.ConfidenceScore,
		TopicID:         topicID,
		CreatedAt:       now.UTC().Unix(),
	}
}

// ToResult converts a payload back into the analyzer result shape.
func (m *FeedbackMetadata) ToResult() AnalysisResult {
	return AnalysisResult{
		Type:            FeedbackType(m.FeedbackType),
		Subtype:         m.Subtype,
		SuggestionText:  m.SuggestionText,
		Reasoning:       m.Reasoning,
		ConfidenceScore: m.ConfidenceScore,
	}
}
