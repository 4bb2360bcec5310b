// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

func newSchemaTestClient(t *testing.T, handler http.HandlerFunc) *weaviate.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   strings.TrimPrefix(srv.URL, "http://"),
		Scheme: "http",
	})
	require.NoError(t, err)
	return client
}

func TestGetFeedbackEntrySchema(t *testing.T) {
	class := GetFeedbackEntrySchema()

	assert.Equal(t, FeedbackEntryClass, class.Class)
	assert.Equal(t, "none", class.Vectorizer)

	names := make([]string, 0, len(class.Properties))
	for _, p := range class.Properties {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{
		"contentHash", "feedbackType", "subtype", "suggestionText",
		"reasoning", "confidenceScore", "topicId", "createdAt",
	}, names)
}

func TestEnsureFeedbackSchemaReturnsErrorWhenCreateFails(t *testing.T) {
	// Every schema call fails, as it would against an unreachable or
	// broken Weaviate. Startup must get an error back, not an exit.
	client := newSchemaTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := EnsureFeedbackSchema(client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), FeedbackEntryClass)
}

func TestEnsureFeedbackSchemaAcceptsExistingClass(t *testing.T) {
	client := newSchemaTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/schema/"+FeedbackEntryClass) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"class": "` + FeedbackEntryClass + `", "vectorizer": "none"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	require.NoError(t, EnsureFeedbackSchema(client))
}
