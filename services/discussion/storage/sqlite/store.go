// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sqlite persists discussion propositions and alignments in an
// embedded SQLite database (modernc.org/sqlite, pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/reasonbridge/ReasonBridge/services/discussion/datatypes"
)


const schema = `
CREATE TABLE IF NOT EXISTS propositions (
	id              TEXT PRIMARY KEY,
	statement       TEXT NOT NULL,
	support_count   INTEGER NOT NULL DEFAULT 0,
	oppose_count    INTEGER NOT NULL DEFAULT 0,
	nuanced_count   INTEGER NOT NULL DEFAULT 0,
	consensus_score REAL,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS alignments (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	proposition_id TEXT NOT NULL REFERENCES propositions(id) ON DELETE CASCADE,
	stance         TEXT NOT NULL CHECK (stance IN ('SUPPORT', 'OPPOSE', 'NUANCED')),
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL,
	UNIQUE (user_id, proposition_id)
);

CREATE INDEX IF NOT EXISTS idx_alignments_proposition ON alignments(proposition_id);
`

// Store is the SQLite-backed repository for propositions and alignments.
//
// # Thread Safety
//
// Safe for concurrent use; database/sql manages its own connection pool
// and SQLite runs in WAL mode.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the discussion database at dbPath and
// applies the schema.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// =============================================================================
// Propositions
// =============================================================================

// CreateProposition inserts a new proposition and returns it.
func (s *Store) CreateProposition(ctx context.Context, statement string) (*datatypes.Proposition, error) {
	p := &datatypes.Proposition{
		Id:        uuid.New().String(),
		Statement: statement,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO propositions (id, statement, created_at) VALUES (?, ?, ?)`,
		p.Id, p.Statement, p.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("inserting proposition: %w", err)
	}
	return p, nil
}

// GetProposition loads one proposition with its aggregate fields.
func (s *Store) GetProposition(ctx context.Context, id string) (*datatypes.Proposition, error) {
	var (
		p         datatypes.Proposition
		score     sql.NullFloat64
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, statement, support_count, oppose_count, nuanced_count, consensus_score, created_at
		 FROM propositions WHERE id = ?`, id).
		Scan(&p.Id, &p.Statement, &p.SupportCount, &p.OpposeCount, &p.NuancedCount, &score, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, datatypes.ErrPropositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying proposition: %w", err)
	}
	if score.Valid {
		p.ConsensusScore = &score.Float64
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

// ListPropositionIDs returns the IDs of every proposition, for batch
// re-aggregation.
func (s *Store) ListPropositionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM propositions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing propositions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning proposition id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateAggregates writes the four aggregate fields in a single UPDATE.
// A nil score is stored as SQL NULL.
func (s *Store) UpdateAggregates(ctx context.Context, id string, support, oppose, nuanced int, score *float64) error {
	var scoreVal sql.NullFloat64
	if score != nil {
		scoreVal = sql.NullFloat64{Float64: *score, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE propositions
		 SET support_count = ?, oppose_count = ?, nuanced_count = ?, consensus_score = ?
		 WHERE id = ?`,
		support, oppose, nuanced, scoreVal, id)
	if err != nil {
		return fmt.Errorf("updating aggregates: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return datatypes.ErrPropositionNotFound
	}
	return nil
}

// =============================================================================
// Alignments
// =============================================================================

// CreateAlignment inserts a new alignment. The (user, proposition) pair
// must not already have one.
func (s *Store) CreateAlignment(ctx context.Context, userID, propositionID string, stance datatypes.Stance) (*datatypes.Alignment, error) {
	if _, err := s.GetProposition(ctx, propositionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a := &datatypes.Alignment{
		Id:            uuid.New().String(),
		UserID:        userID,
		PropositionID: propositionID,
		Stance:        stance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alignments (id, user_id, proposition_id, stance, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Id, a.UserID, a.PropositionID, string(a.Stance), now.Unix(), now.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, datatypes.ErrDuplicateAlignment
		}
		return nil, fmt.Errorf("inserting alignment: %w", err)
	}
	return a, nil
}

// GetAlignment loads one alignment by ID.
func (s *Store) GetAlignment(ctx context.Context, id string) (*datatypes.Alignment, error) {
	var (
		a                    datatypes.Alignment
		stance               string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, proposition_id, stance, created_at, updated_at
		 FROM alignments WHERE id = ?`, id).
		Scan(&a.Id, &a.UserID, &a.PropositionID, &stance, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, datatypes.ErrAlignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying alignment: %w", err)
	}
	a.Stance = datatypes.Stance(stance)
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &a, nil
}

// UpdateAlignmentStance changes an alignment's stance and returns the
// updated record.
func (s *Store) UpdateAlignmentStance(ctx context.Context, id string, stance datatypes.Stance) (*datatypes.Alignment, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alignments SET stance = ?, updated_at = ? WHERE id = ?`,
		string(stance), time.Now().UTC().Unix(), id)
	if err != nil {
		return nil, fmt.Errorf("updating alignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return nil, datatypes.ErrAlignmentNotFound
	}
	return s.GetAlignment(ctx, id)
}

// DeleteAlignment removes an alignment and returns the proposition it
// belonged to, so the caller can re-aggregate.
func (s *Store) DeleteAlignment(ctx context.Context, id string) (propositionID string, err error) {
	a, err := s.GetAlignment(ctx, id)
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM alignments WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("deleting alignment: %w", err)
	}
	return a.PropositionID, nil
}

// FindAlignmentsByProposition returns every alignment on a proposition.
func (s *Store) FindAlignmentsByProposition(ctx context.Context, propositionID string) ([]datatypes.Alignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, proposition_id, stance, created_at, updated_at
		 FROM alignments WHERE proposition_id = ?`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("querying alignments: %w", err)
	}
	defer rows.Close()

	var alignments []datatypes.Alignment
	for rows.Next() {
		var (
			a                    datatypes.Alignment
			stance               string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&a.Id, &a.UserID, &a.PropositionID, &stance, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning alignment: %w", err)
		}
		a.Stance = datatypes.Stance(stance)
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		alignments = append(alignments, a)
	}
	return alignments, rows.Err()
}

// isUniqueViolation detects the driver's UNIQUE constraint error without
// depending on its internal error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
