// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the discussion service's domain records:
// propositions, alignments, and their aggregate projections.
package datatypes

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance for request structs.
var validate = validator.New()

// Sentinel errors shared by every repository adapter.
var (
	// ErrPropositionNotFound means the proposition does not exist.
	ErrPropositionNotFound = errors.New("proposition not found")
	// ErrAlignmentNotFound means the alignment does not exist.
	ErrAlignmentNotFound = errors.New("alignment not found")
	// ErrDuplicateAlignment means the user already has an alignment on
	// this proposition; update it instead.
	ErrDuplicateAlignment = errors.New("alignment already exists for this user and proposition")
)

// =============================================================================
// Stances
// =============================================================================

// Stance is a user's declared position on a proposition.
type Stance string

const (
	// StanceSupport agrees with the proposition.
	StanceSupport Stance = "SUPPORT"
	// StanceOppose disagrees with the proposition.
	StanceOppose Stance = "OPPOSE"
	// StanceNuanced agrees in part or with conditions. Counts toward
	// participation but contributes zero to the consensus numerator.
	StanceNuanced Stance = "NUANCED"
)

// Valid reports whether s is a known stance.
func (s Stance) Valid() bool {
	switch s {
	case StanceSupport, StanceOppose, StanceNuanced:
		return true
	}
	return false
}

// =============================================================================
// Records
// =============================================================================

// Alignment is one user's stance on one proposition. At most one alignment
// exists per (user, proposition) pair; changing one's mind updates the
// existing record.
type Alignment struct {
	Id            string    `json:"id"`
	UserID        string    `json:"userId"`
	PropositionID string    `json:"propositionId"`
	Stance        Stance    `json:"stance"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Proposition is a debatable statement within a discussion, carrying the
// aggregate fields maintained by the aggregation component. The aggregate
// counts are advisory display data; alignment records remain the source of
// truth and the aggregates can always be re-derived from them.
type Proposition struct {
	Id           string `json:"id"`
	Statement    string `json:"statement"`
	SupportCount int    `json:"supportCount"`
	OpposeCount  int    `json:"opposeCount"`
	NuancedCount int    `json:"nuancedCount"`
	// ConsensusScore is nil until at least one alignment exists.
	ConsensusScore *float64  `json:"consensusScore"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Aggregates is the read-only projection served to clients.
type Aggregates struct {
	PropositionID  string   `json:"propositionId"`
	SupportCount   int      `json:"supportCount"`
	OpposeCount    int      `json:"opposeCount"`
	NuancedCount   int      `json:"nuancedCount"`
	ConsensusScore *float64 `json:"consensusScore"`
}

// =============================================================================
// Requests
// =============================================================================

// CreateAlignmentRequest declares a stance on a proposition.
type CreateAlignmentRequest struct {
	UserID        string `json:"userId" binding:"required" validate:"required,uuid4"`
	PropositionID string `json:"propositionId" binding:"required" validate:"required,uuid4"`
	Stance        Stance `json:"stance" binding:"required" validate:"required,oneof=SUPPORT OPPOSE NUANCED"`
}

// Validate checks the request against its declared constraints.
func (r *CreateAlignmentRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid alignment request: %w", err)
	}
	return nil
}

// UpdateAlignmentRequest changes the stance of an existing alignment.
type UpdateAlignmentRequest struct {
	Stance Stance `json:"stance" binding:"required" validate:"required,oneof=SUPPORT OPPOSE NUANCED"`
}

// Validate checks the request against its declared constraints.
func (r *UpdateAlignmentRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid alignment update: %w", err)
	}
	return nil
}

// CreatePropositionRequest opens a new proposition for alignment.
type CreatePropositionRequest struct {
	Statement string `json:"statement" binding:"required" validate:"required,min=1,max=2000"`
}

// Validate checks the request against its declared constraints.
func (r *CreatePropositionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid proposition request: %w", err)
	}
	return nil
}
