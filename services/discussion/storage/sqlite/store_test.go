// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reasonbridge/ReasonBridge/services/discussion/datatypes"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "discussion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPropositionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.CreateProposition(ctx, "the city should expand bike lanes")
	require.NoError(t, err)
	require.NotEmpty(t, p.Id)

	got, err := store.GetProposition(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, p.Statement, got.Statement)
	assert.Zero(t, got.SupportCount)
	assert.Nil(t, got.ConsensusScore, "new proposition has no consensus yet")
}

func TestGetPropositionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetProposition(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, datatypes.ErrPropositionNotFound)
}

func TestUpdateAggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.CreateProposition(ctx, "statement")
	require.NoError(t, err)

	score := 0.70
	require.NoError(t, store.UpdateAggregates(ctx, p.Id, 6, 2, 2, &score))

	got, err := store.GetProposition(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, 6, got.SupportCount)
	assert.Equal(t, 2, got.OpposeCount)
	assert.Equal(t, 2, got.NuancedCount)
	require.NotNil(t, got.ConsensusScore)
	assert.InDelta(t, 0.70, *got.ConsensusScore, 1e-9)

	// A nil score writes SQL NULL back.
	require.NoError(t, store.UpdateAggregates(ctx, p.Id, 0, 0, 0, nil))
	got, err = store.GetProposition(ctx, p.Id)
	require.NoError(t, err)
	assert.Nil(t, got.ConsensusScore)
}

func TestUpdateAggregatesNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateAggregates(context.Background(), uuid.New().String(), 1, 0, 0, nil)
	assert.ErrorIs(t, err, datatypes.ErrPropositionNotFound)
}

func TestAlignmentLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.CreateProposition(ctx, "statement")
	require.NoError(t, err)
	userID := uuid.New().String()

	a, err := store.CreateAlignment(ctx, userID, p.Id, datatypes.StanceSupport)
	require.NoError(t, err)
	assert.Equal(t, datatypes.StanceSupport, a.Stance)

	updated, err := store.UpdateAlignmentStance(ctx, a.Id, datatypes.StanceNuanced)
	require.NoError(t, err)
	assert.Equal(t, datatypes.StanceNuanced, updated.Stance)

	propositionID, err := store.DeleteAlignment(ctx, a.Id)
	require.NoError(t, err)
	assert.Equal(t, p.Id, propositionID)

	_, err = store.GetAlignment(ctx, a.Id)
	assert.ErrorIs(t, err, datatypes.ErrAlignmentNotFound)
}

func TestCreateAlignmentDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.CreateProposition(ctx, "statement")
	require.NoError(t, err)
	userID := uuid.New().String()

	_, err = store.CreateAlignment(ctx, userID, p.Id, datatypes.StanceSupport)
	require.NoError(t, err)

	_, err = store.CreateAlignment(ctx, userID, p.Id, datatypes.StanceOppose)
	assert.ErrorIs(t, err, datatypes.ErrDuplicateAlignment)
}

func TestCreateAlignmentMissingProposition(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateAlignment(context.Background(), uuid.New().String(), uuid.New().String(), datatypes.StanceSupport)
	assert.ErrorIs(t, err, datatypes.ErrPropositionNotFound)
}

func TestFindAlignmentsByProposition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.CreateProposition(ctx, "statement")
	require.NoError(t, err)
	other, err := store.CreateProposition(ctx, "another statement")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = store.CreateAlignment(ctx, uuid.New().String(), p.Id, datatypes.StanceSupport)
		require.NoError(t, err)
	}
	_, err = store.CreateAlignment(ctx, uuid.New().String(), other.Id, datatypes.StanceOppose)
	require.NoError(t, err)

	alignments, err := store.FindAlignmentsByProposition(ctx, p.Id)
	require.NoError(t, err)
	assert.Len(t, alignments, 3)
	for _, a := range alignments {
		assert.Equal(t, p.Id, a.PropositionID)
	}
}

func TestListPropositionIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ids, err := store.ListPropositionIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	for i := 0; i < 4; i++ {
		_, err = store.CreateProposition(ctx, "statement")
		require.NoError(t, err)
	}

	ids, err = store.ListPropositionIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}
