// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analysis runs content analyzers over discussion responses and
// selects the feedback worth showing.
//
// # Description
//
// Three independent analyzers (tone, fallacy, clarity) each examine the
// same content and report either a finding or nothing. The orchestrator
// fans them out concurrently, waits for all of them, and picks the single
// strongest finding by confidence with a fixed type-priority tie-break.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reasonbridge/ReasonBridge/services/feedback/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/llm"
)

// Analyzer examines content for one category of issue.
//
// Analyze returns nil with a nil error when the analyzer found nothing to
// flag. A non-nil error means the analyzer itself failed (remote call,
// unparseable output) and the orchestration cannot trust its silence.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, content string) (*datatypes.AnalysisResult, error)
}

// =============================================================================
// Errors
// =============================================================================

// AnalyzerError reports a failed analyzer invocation.
type AnalyzerError struct {
	Analyzer string
	Err      error
}

func (e *AnalyzerError) Error() string {
	return fmt.Sprintf("analyzer %s failed: %v", e.Analyzer, e.Err)
}

func (e *AnalyzerError) Unwrap() error {
	return e.Err
}

// IsAnalyzerError reports whether err is an AnalyzerError.
func IsAnalyzerError(err error) bool {
	var ae *AnalyzerError
	return errors.As(err, &ae)
}

// =============================================================================
// LLM-Backed Analyzers
// =============================================================================

// Generation parameters for analyzers. Low temperature: we want the same
// content to produce the same verdict.
var (
	analyzerTemperature float32 = 0.1
	analyzerTopP        float32 = 0.9
	analyzerMaxTokens   int     = 512

	analyzerParams = llm.GenerationParams{
		Temperature: &analyzerTemperature,
		TopP:        &analyzerTopP,
		MaxTokens:   &analyzerMaxTokens,
	}
)

// llmAnalyzer prompts a language model for one issue category and parses
// its JSON verdict.
type llmAnalyzer struct {
	name         string
	feedbackType datatypes.FeedbackType
	prompt       string
	client       llm.LLMClient
	logger       *slog.Logger
}

var _ Analyzer = (*llmAnalyzer)(nil)

const tonePrompt = `You review a reply posted in an online civic discussion.
Decide whether the reply's tone is hostile, inflammatory, or dismissive toward
other participants. Judge tone only, not the position argued.

Respond with a single JSON object and nothing else:
{"found": <bool>, "subtype": "<short snake_case label or empty>",
 "suggestion": "<one or two sentences the author could act on>",
 "reasoning": "<why you flagged or cleared it>", "confidence": <0.0-1.0>}

Reply to review:
%s`

const fallacyPrompt = `You review a reply posted in an online civic discussion.
Decide whether the argument commits a logical fallacy (ad hominem, straw man,
slippery slope, false dilemma, appeal to emotion, hasty generalization, and so
on). Flag only the argument's structure, never its conclusion.

Respond with a single JSON object and nothing else:
{"found": <bool>, "subtype": "<fallacy name in snake_case or empty>",
 "suggestion": "<one or two sentences the author could act on>",
 "reasoning": "<why you flagged or cleared it>", "confidence": <0.0-1.0>}

Reply to review:
%s`

const clarityPrompt = `You review a reply posted in an online civic discussion.
Decide whether the reply makes factual claims without sources, or frames the
issue in a one-sided or loaded way that obscures its actual argument.

Respond with a single JSON object and nothing else:
{"found": <bool>,
 "subtype": "<'unsourced_claim' or a short bias label in snake_case, or empty>",
 "issue": "<'UNSOURCED' or 'BIAS'>",
 "suggestion": "<one or two sentences the author could act on>",
 "reasoning": "<why you flagged or cleared it>", "confidence": <0.0-1.0>}

Reply to review:
%s`

// NewToneAnalyzer flags hostile or inflammatory tone.
func NewToneAnalyzer(client llm.LLMClient, logger *slog.Logger) Analyzer {
	return newLLMAnalyzer("tone", datatypes.FeedbackInflammatory, tonePrompt, client, logger)
}

// NewFallacyAnalyzer flags logical fallacies in argument structure.
func NewFallacyAnalyzer(client llm.LLMClient, logger *slog.Logger) Analyzer {
	return newLLMAnalyzer("fallacy", datatypes.FeedbackFallacy, fallacyPrompt, client, logger)
}

// NewClarityAnalyzer flags unsourced claims and one-sided framing.
func NewClarityAnalyzer(client llm.LLMClient, logger *slog.Logger) Analyzer {
	return newLLMAnalyzer("clarity", datatypes.FeedbackUnsourced, clarityPrompt, client, logger)
}

func newLLMAnalyzer(name string, ft datatypes.FeedbackType, prompt string, client llm.LLMClient, logger *slog.Logger) *llmAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &llmAnalyzer{
		name:         name,
		feedbackType: ft,
		prompt:       prompt,
		client:       client,
		logger:       logger.With(slog.String("analyzer", name)),
	}
}

func (a *llmAnalyzer) Name() string {
	return a.name
}

// Analyze prompts the model and parses its verdict.
//
// # Outputs
//
//   - *datatypes.AnalysisResult: The finding, nil if the content is clean.
//   - error: Non-nil if the model call failed or returned unusable output.
func (a *llmAnalyzer) Analyze(ctx context.Context, content string) (*datatypes.AnalysisResult, error) {
	raw, err := a.client.Generate(ctx, fmt.Sprintf(a.prompt, content), analyzerParams)
	if err != nil {
		return nil, &AnalyzerError{Analyzer: a.name, Err: err}
	}

	verdict, err := a.parseVerdict(raw)
	if err != nil {
		return nil, &AnalyzerError{Analyzer: a.name, Err: err}
	}
	if !verdict.Found {
		return nil, nil
	}

	result := &datatypes.AnalysisResult{
		Type:            a.resolveType(verdict.Issue),
		Subtype:         verdict.Subtype,
		SuggestionText:  verdict.Suggestion,
		Reasoning:       verdict.Reasoning,
		ConfidenceScore: clamp01(verdict.Confidence),
	}
	if err := result.Validate(); err != nil {
		return nil, &AnalyzerError{Analyzer: a.name, Err: err}
	}
	return result, nil
}

// analyzerVerdict is the JSON shape every analyzer prompt requests.
type analyzerVerdict struct {
	Found      bool    `json:"found"`
	Subtype    string  `json:"subtype"`
	Issue      string  `json:"issue"`
	Suggestion string  `json:"suggestion"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// parseVerdict extracts the JSON verdict from the model output. Handles
// common variations: markdown code fences, prose before or after the object.
func (a *llmAnalyzer) parseVerdict(response string) (*analyzerVerdict, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return nil, fmt.Errorf("no JSON object in response: %s", truncate(response, 100))
	}

	var verdict analyzerVerdict
	if err := json.Unmarshal([]byte(response[startIdx:endIdx+1]), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse verdict: %w", err)
	}
	return &verdict, nil
}

// resolveType maps the verdict's issue label to a feedback type. The
// clarity analyzer covers two categories and names which one it found;
// the other analyzers always report their fixed type.
func (a *llmAnalyzer) resolveType(issue string) datatypes.FeedbackType {
	if a.name != "clarity" {
		return a.feedbackType
	}
	switch strings.ToUpper(strings.TrimSpace(issue)) {
	case string(datatypes.FeedbackBias):
		return datatypes.FeedbackBias
	default:
		return datatypes.FeedbackUnsourced
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
