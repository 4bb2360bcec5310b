// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the feedback pipeline over HTTP.
package handlers

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/reasonbridge/ReasonBridge/services/feedback/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/feedback/services"
)

// contentHashPattern matches a lowercase hex SHA-256 digest.
var contentHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// RequestFeedback analyzes one response's content and returns the single
// best piece of feedback, served from cache when possible.
func RequestFeedback(svc *services.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.FeedbackRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := svc.Process(c.Request.Context(), &req)
		if err != nil {
			slog.Error("Feedback analysis failed", "requestId", req.Id, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Analysis failed, please retry"})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// RequestFullFeedback analyzes one response's content and returns every
// finding, sorted strongest first. Always runs the analyzers.
func RequestFullFeedback(svc *services.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.FeedbackRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := svc.ProcessFull(c.Request.Context(), &req)
		if err != nil {
			slog.Error("Full feedback analysis failed", "requestId", req.Id, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Analysis failed, please retry"})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// InvalidateFeedbackCache drops the cached verdict for a content hash, for
// moderation workflows where a cached verdict must not be served again.
func InvalidateFeedbackCache(svc *services.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		hash := c.Param("hash")
		if !contentHashPattern.MatchString(hash) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content hash"})
			return
		}

		svc.InvalidateCached(c.Request.Context(), hash)
		slog.Info("Invalidated cached feedback", "contentHash", hash)
		c.JSON(http.StatusOK, gin.H{"status": "invalidated", "contentHash": hash})
	}
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
