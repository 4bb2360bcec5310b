// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes alignments and proposition aggregates over HTTP.
//
// Every alignment mutation triggers a re-aggregation of its proposition
// before the response is written, so clients always read aggregates that
// include their own change.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reasonbridge/ReasonBridge/services/discussion/aggregation"
	"github.com/reasonbridge/ReasonBridge/services/discussion/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/discussion/observability"
	"github.com/reasonbridge/ReasonBridge/services/discussion/storage/sqlite"
)

// alignmentResponse pairs the mutated alignment with the proposition's
// fresh aggregates.
type alignmentResponse struct {
	Alignment  *datatypes.Alignment  `json:"alignment"`
	Aggregates *datatypes.Aggregates `json:"aggregates"`
}

// CreateProposition opens a new proposition for alignment.
func CreateProposition(store *sqlite.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreatePropositionRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := store.CreateProposition(c.Request.Context(), req.Statement)
		if err != nil {
			slog.Error("Failed to create proposition", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create proposition"})
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// CreateAlignment records a user's stance on a proposition and
// re-aggregates.
func CreateAlignment(store *sqlite.Store, agg *aggregation.Service, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateAlignmentRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		a, err := store.CreateAlignment(c.Request.Context(), req.UserID, req.PropositionID, req.Stance)
		if err != nil {
			metrics.AlignmentEventsTotal.WithLabelValues("create", "error").Inc()
			switch {
			case errors.Is(err, datatypes.ErrPropositionNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Proposition not found"})
			case errors.Is(err, datatypes.ErrDuplicateAlignment):
				c.JSON(http.StatusConflict, gin.H{"error": "Alignment already exists, update it instead"})
			default:
				slog.Error("Failed to create alignment", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alignment"})
			}
			return
		}

		aggregates, err := agg.UpdatePropositionAggregates(c.Request.Context(), a.PropositionID)
		if err != nil {
			slog.Error("Re-aggregation after create failed", "propositionId", a.PropositionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update aggregates"})
			return
		}

		metrics.AlignmentEventsTotal.WithLabelValues("create", "success").Inc()
		c.JSON(http.StatusCreated, alignmentResponse{Alignment: a, Aggregates: aggregates})
	}
}

// UpdateAlignment changes an alignment's stance and re-aggregates.
func UpdateAlignment(store *sqlite.Store, agg *aggregation.Service, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateAlignmentRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		a, err := store.UpdateAlignmentStance(c.Request.Context(), c.Param("id"), req.Stance)
		if err != nil {
			metrics.AlignmentEventsTotal.WithLabelValues("update", "error").Inc()
			if errors.Is(err, datatypes.ErrAlignmentNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Alignment not found"})
				return
			}
			slog.Error("Failed to update alignment", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alignment"})
			return
		}

		aggregates, err := agg.UpdatePropositionAggregates(c.Request.Context(), a.PropositionID)
		if err != nil {
			slog.Error("Re-aggregation after update failed", "propositionId", a.PropositionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update aggregates"})
			return
		}

		metrics.AlignmentEventsTotal.WithLabelValues("update", "success").Inc()
		c.JSON(http.StatusOK, alignmentResponse{Alignment: a, Aggregates: aggregates})
	}
}

// DeleteAlignment removes an alignment and re-aggregates its proposition.
func DeleteAlignment(store *sqlite.Store, agg *aggregation.Service, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		propositionID, err := store.DeleteAlignment(c.Request.Context(), c.Param("id"))
		if err != nil {
			metrics.AlignmentEventsTotal.WithLabelValues("delete", "error").Inc()
			if errors.Is(err, datatypes.ErrAlignmentNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Alignment not found"})
				return
			}
			slog.Error("Failed to delete alignment", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alignment"})
			return
		}

		aggregates, err := agg.UpdatePropositionAggregates(c.Request.Context(), propositionID)
		if err != nil {
			slog.Error("Re-aggregation after delete failed", "propositionId", propositionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update aggregates"})
			return
		}

		metrics.AlignmentEventsTotal.WithLabelValues("delete", "success").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "aggregates": aggregates})
	}
}

// GetAggregates serves the stored aggregate projection of a proposition.
func GetAggregates(agg *aggregation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		aggregates, err := agg.GetPropositionAggregates(c.Request.Context(), c.Param("id"))
		if err != nil {
			if aggregation.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Proposition not found"})
				return
			}
			slog.Error("Failed to read aggregates", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read aggregates"})
			return
		}
		c.JSON(http.StatusOK, aggregates)
	}
}

// RecalculateAggregates re-derives aggregates for every proposition.
// Used for backfill and repair.
func RecalculateAggregates(agg *aggregation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		processed, err := agg.RecalculateAllAggregates(c.Request.Context())
		if err != nil {
			slog.Error("Batch recalculation failed", "processed", processed, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Recalculation failed", "processed": processed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "recalculated", "processed": processed})
	}
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
