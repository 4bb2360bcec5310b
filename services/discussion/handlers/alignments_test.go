// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reasonbridge/ReasonBridge/services/discussion/aggregation"
	"github.com/reasonbridge/ReasonBridge/services/discussion/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/discussion/observability"
	"github.com/reasonbridge/ReasonBridge/services/discussion/storage/sqlite"
)

func newTestRouter(t *testing.T) (*gin.Engine, *sqlite.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "discussion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	metrics := observability.NewTestMetrics()
	agg := aggregation.NewService(store, store, metrics, nil)

	router := gin.New()
	v1 := router.Group("/v1")
	v1.POST("/alignments", CreateAlignment(store, agg, metrics))
	v1.PUT("/alignments/:id", UpdateAlignment(store, agg, metrics))
	v1.DELETE("/alignments/:id", DeleteAlignment(store, agg, metrics))
	v1.POST("/propositions", CreateProposition(store))
	v1.GET("/propositions/:id/aggregates", GetAggregates(agg))
	v1.POST("/propositions/aggregates/recalculate", RecalculateAggregates(agg))
	return router, store
}

func doJSON(router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func createProposition(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/v1/propositions",
		gin.H{"statement": "the city should expand bike lanes"})
	require.Equal(t, http.StatusCreated, w.Code)

	var p datatypes.Proposition
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p.Id
}

func TestCreateAlignmentUpdatesAggregates(t *testing.T) {
	router, _ := newTestRouter(t)
	propID := createProposition(t, router)

	w := doJSON(router, http.MethodPost, "/v1/alignments", gin.H{
		"userId":        uuid.New().String(),
		"propositionId": propID,
		"stance":        "SUPPORT",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Alignment  datatypes.Alignment  `json:"alignment"`
		Aggregates datatypes.Aggregates `json:"aggregates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, datatypes.StanceSupport, resp.Alignment.Stance)
	assert.Equal(t, 1, resp.Aggregates.SupportCount)
	require.NotNil(t, resp.Aggregates.ConsensusScore)
	assert.InDelta(t, 1.00, *resp.Aggregates.ConsensusScore, 1e-9)
}

func TestCreateAlignmentRejectsBadStance(t *testing.T) {
	router, _ := newTestRouter(t)
	propID := createProposition(t, router)

	w := doJSON(router, http.MethodPost, "/v1/alignments", gin.H{
		"userId":        uuid.New().String(),
		"propositionId": propID,
		"stance":        "MAYBE",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAlignmentUnknownProposition(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/alignments", gin.H{
		"userId":        uuid.New().String(),
		"propositionId": uuid.New().String(),
		"stance":        "SUPPORT",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAlignmentDuplicateConflict(t *testing.T) {
	router, _ := newTestRouter(t)
	propID := createProposition(t, router)
	userID := uuid.New().String()

	payload := gin.H{"userId": userID, "propositionId": propID, "stance": "SUPPORT"}
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/v1/alignments", payload).Code)
	assert.Equal(t, http.StatusConflict, doJSON(router, http.MethodPost, "/v1/alignments", payload).Code)
}

func TestStanceChangeMovesConsensus(t *testing.T) {
	router, _ := newTestRouter(t)
	propID := createProposition(t, router)

	w := doJSON(router, http.MethodPost, "/v1/alignments", gin.H{
		"userId":        uuid.New().String(),
		"propositionId": propID,
		"stance":        "SUPPORT",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Alignment datatypes.Alignment `json:"alignment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(router, http.MethodPut, "/v1/alignments/"+created.Alignment.Id, gin.H{"stance": "OPPOSE"})
	require.Equal(t, http.StatusOK, w.Code)

	var updated struct {
		Aggregates datatypes.Aggregates `json:"aggregates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, 0, updated.Aggregates.SupportCount)
	assert.Equal(t, 1, updated.Aggregates.OpposeCount)
	require.NotNil(t, updated.Aggregates.ConsensusScore)
	assert.InDelta(t, 0.00, *updated.Aggregates.ConsensusScore, 1e-9)
}

func TestDeleteAlignmentClearsConsensus(t *testing.T) {
	router, _ := newTestRouter(t)
	propID := createProposition(t, router)

	w := doJSON(router, http.MethodPost, "/v1/alignments", gin.H{
		"userId":        uuid.New().String(),
		"propositionId": propID,
		"stance":        "NUANCED",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Alignment datatypes.Alignment `json:"alignment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(router, http.MethodDelete, "/v1/alignments/"+created.Alignment.Id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// With the last alignment gone, consensus returns to null.
	w = doJSON(router, http.MethodGet, fmt.Sprintf("/v1/propositions/%s/aggregates", propID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var agg datatypes.Aggregates
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &agg))
	assert.Zero(t, agg.NuancedCount)
	assert.Nil(t, agg.ConsensusScore)
}

func TestGetAggregatesNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/v1/propositions/"+uuid.New().String()+"/aggregates", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecalculateAggregates(t *testing.T) {
	router, store := newTestRouter(t)
	propID := createProposition(t, router)

	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/v1/alignments", gin.H{
		"userId": uuid.New().String(), "propositionId": propID, "stance": "SUPPORT",
	}).Code)

	// Corrupt the stored aggregates, then repair via the batch endpoint.
	require.NoError(t, store.UpdateAggregates(t.Context(), propID, 99, 99, 99, nil))

	w := doJSON(router, http.MethodPost, "/v1/propositions/aggregates/recalculate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Processed int `json:"processed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Processed)

	w = doJSON(router, http.MethodGet, fmt.Sprintf("/v1/propositions/%s/aggregates", propID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var agg datatypes.Aggregates
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &agg))
	assert.Equal(t, 1, agg.SupportCount)
	assert.Equal(t, 0, agg.OpposeCount)
}
