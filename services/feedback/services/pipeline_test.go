// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reasonbridge/ReasonBridge/pkg/contenthash"
	"github.com/reasonbridge/ReasonBridge/services/feedback/analysis"
	"github.com/reasonbridge/ReasonBridge/services/feedback/cache"
	"github.com/reasonbridge/ReasonBridge/services/feedback/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/feedback/observability"
	"github.com/reasonbridge/ReasonBridge/services/feedback/semcache"
)

// stubAnalyzer returns a scripted finding and counts invocations.
type stubAnalyzer struct {
	name   string
	result *datatypes.AnalysisResult
	err    error
	calls  int
}

func (s *stubAnalyzer) Name() string { return s.name }

func (s *stubAnalyzer) Analyze(_ context.Context, _ string) (*datatypes.AnalysisResult, error) {
	s.calls++
	return s.result, s.err
}

// fixedVectorStore returns one scripted neighbor and records upserts.
type fixedVectorStore struct {
	neighbor *semcache.Neighbor
	upserts  []datatypes.FeedbackMetadata
}

func (f *fixedVectorStore) SearchNearest(_ context.Context, _ []float32) (*semcache.Neighbor, error) {
	return f.neighbor, nil
}

func (f *fixedVectorStore) Upsert(_ context.Context, _ []float32, payload datatypes.FeedbackMetadata) error {
	f.upserts = append(f.upserts, payload)
	return nil
}

// fixedEmbedder returns one vector for everything.
type fixedEmbedder struct {
	err error
}

func (f *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type pipelineFixture struct {
	svc      *FeedbackService
	analyzer *stubAnalyzer
	vectors  *fixedVectorStore
}

func newPipeline(t *testing.T, analyzer *stubAnalyzer, vectors *fixedVectorStore, embedErr error) *pipelineFixture {
	t.Helper()
	metrics := observability.NewTestMetrics()

	kv, err := cache.NewInMemoryBadgerStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	exact := cache.NewExactCache(kv, 0, metrics, nil)
	embCache := cache.NewEmbeddingCache(kv, 0, metrics, nil)
	embeddings := semcache.NewEmbeddingService(&fixedEmbedder{err: embedErr}, embCache, nil)
	semantic := semcache.NewSemanticCache(vectors, 0.95, metrics, nil)
	orchestrator := analysis.NewOrchestrator([]analysis.Analyzer{analyzer}, metrics, nil)

	return &pipelineFixture{
		svc:      NewFeedbackService(exact, embeddings, semantic, orchestrator, metrics, nil),
		analyzer: analyzer,
		vectors:  vectors,
	}
}

func feedbackReq(content string) *datatypes.FeedbackRequest {
	req := &datatypes.FeedbackRequest{Content: content}
	req.EnsureDefaults()
	return req
}

func TestProcessFreshThenExactHit(t *testing.T) {
	analyzer := &stubAnalyzer{name: "fallacy", result: &datatypes.AnalysisResult{
		Type:            datatypes.FeedbackFallacy,
		Subtype:         "ad_hominem",
		SuggestionText:  "Engage with the argument, not the person.",
		Reasoning:       "The reply attacks the author instead of the claim.",
		ConfidenceScore: 0.9,
	}}
	f := newPipeline(t, analyzer, &fixedVectorStore{}, nil)

	first, err := f.svc.Process(context.Background(), feedbackReq("you would say that"))
	require.NoError(t, err)
	assert.Equal(t, datatypes.SourceFresh, first.Source)
	assert.Equal(t, datatypes.FeedbackFallacy, first.Result.Type)
	assert.Equal(t, 1, analyzer.calls)

	// Identical content now comes from the exact cache without re-analysis.
	second, err := f.svc.Process(context.Background(), feedbackReq("you would say that"))
	require.NoError(t, err)
	assert.Equal(t, datatypes.SourceExactCache, second.Source)
	assert.Equal(t, first.Result, second.Result)
	assert.Equal(t, 1, analyzer.calls)
}

func TestProcessNormalizedVariantsShareCacheEntry(t *testing.T) {
	analyzer := &stubAnalyzer{name: "tone"}
	f := newPipeline(t, analyzer, &fixedVectorStore{}, nil)

	_, err := f.svc.Process(context.Background(), feedbackReq("This  Is   Fine"))
	require.NoError(t, err)

	resp, err := f.svc.Process(context.Background(), feedbackReq("this is fine"))
	require.NoError(t, err)
	assert.Equal(t, datatypes.SourceExactCache, resp.Source)
	assert.Equal(t, 1, analyzer.calls)
}

func TestProcessSemanticHit(t *testing.T) {
	neighbor := &semcache.Neighbor{
		Metadata: datatypes.FeedbackMetadata{
			ContentHash:     contenthash.Hash("we must defund everything"),
			FeedbackType:    string(datatypes.FeedbackFallacy),
			Subtype:         "slippery_slope",
			SuggestionText:  "Check whether each step of the escalation actually follows.",
			Reasoning:       "Asserted chain of consequences without support.",
			ConfidenceScore: 0.88,
		},
		Similarity: 0.97,
	}
	analyzer := &stubAnalyzer{name: "fallacy"}
	f := newPipeline(t, analyzer, &fixedVectorStore{neighbor: neighbor}, nil)

	resp, err := f.svc.Process(context.Background(), feedbackReq("we should defund everything"))
	require.NoError(t, err)
	assert.Equal(t, datatypes.SourceSemanticCache, resp.Source)
	assert.InDelta(t, 0.97, resp.Similarity, 1e-9)
	assert.Equal(t, datatypes.FeedbackFallacy, resp.Result.Type)
	assert.Equal(t, 0, analyzer.calls, "semantic hit must not trigger analysis")

	// The borrowed verdict is promoted into the exact cache.
	again, err := f.svc.Process(context.Background(), feedbackReq("we should defund everything"))
	require.NoError(t, err)
	assert.Equal(t, datatypes.SourceExactCache, again.Source)
}

func TestProcessEmbeddingOutageFallsThrough(t *testing.T) {
	analyzer := &stubAnalyzer{name: "tone"}
	f := newPipeline(t, analyzer, &fixedVectorStore{}, errors.New("provider down"))

	resp, err := f.svc.Process(context.Background(), feedbackReq("content"))
	require.NoError(t, err)
	assert.Equal(t, datatypes.SourceFresh, resp.Source)
	assert.Equal(t, datatypes.FeedbackAffirmation, resp.Result.Type)
	assert.Empty(t, f.vectors.upserts, "no vector to store without an embedding")
}

func TestProcessFreshResultStoredInVectorStore(t *testing.T) {
	analyzer := &stubAnalyzer{name: "clarity", result: &datatypes.AnalysisResult{
		Type:            datatypes.FeedbackUnsourced,
		Subtype:         "unsourced_claim",
		SuggestionText:  "Link the study you are citing.",
		Reasoning:       "Specific figures are quoted without a source.",
		ConfidenceScore: 0.82,
	}}
	f := newPipeline(t, analyzer, &fixedVectorStore{}, nil)

	content := "crime dropped 40 percent because of this policy"
	_, err := f.svc.Process(context.Background(), feedbackReq(content))
	require.NoError(t, err)

	require.Len(t, f.vectors.upserts, 1)
	assert.Equal(t, contenthash.Hash(content), f.vectors.upserts[0].ContentHash)
	assert.Equal(t, string(datatypes.FeedbackUnsourced), f.vectors.upserts[0].FeedbackType)
}

func TestProcessAnalyzerFailureErrors(t *testing.T) {
	analyzer := &stubAnalyzer{name: "fallacy", err: errors.New("model timeout")}
	f := newPipeline(t, analyzer, &fixedVectorStore{}, nil)

	_, err := f.svc.Process(context.Background(), feedbackReq("content"))
	assert.Error(t, err)
}

func TestProcessFullBypassesCaches(t *testing.T) {
	analyzer := &stubAnalyzer{name: "tone", result: &datatypes.AnalysisResult{
		Type:            datatypes.FeedbackInflammatory,
		SuggestionText:  "Drop the sarcasm and restate the point.",
		Reasoning:       "Dismissive tone toward the previous poster.",
		ConfidenceScore: 0.75,
	}}
	f := newPipeline(t, analyzer, &fixedVectorStore{}, nil)

	first, err := f.svc.ProcessFull(context.Background(), feedbackReq("oh sure, genius plan"))
	require.NoError(t, err)
	require.Len(t, first.Results, 1)

	_, err = f.svc.ProcessFull(context.Background(), feedbackReq("oh sure, genius plan"))
	require.NoError(t, err)
	assert.Equal(t, 2, analyzer.calls, "full analysis never serves from cache")
}

func TestInvalidateCachedForcesReanalysis(t *testing.T) {
	analyzer := &stubAnalyzer{name: "tone"}
	f := newPipeline(t, analyzer, &fixedVectorStore{}, nil)

	req := feedbackReq("some content")
	resp, err := f.svc.Process(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, analyzer.calls)

	f.svc.InvalidateCached(context.Background(), resp.ContentHash)

	_, err = f.svc.Process(context.Background(), feedbackReq("some content"))
	require.NoError(t, err)
	assert.Equal(t, 2, analyzer.calls)
}
