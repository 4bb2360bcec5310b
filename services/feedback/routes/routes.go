// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reasonbridge/ReasonBridge/services/feedback/handlers"
	"github.com/reasonbridge/ReasonBridge/services/feedback/services"
)

func SetupRoutes(router *gin.Engine, svc *services.FeedbackService) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/feedback", handlers.RequestFeedback(svc))
		v1.POST("/feedback/full", handlers.RequestFullFeedback(svc))
		v1.DELETE("/feedback/cache/:hash", handlers.InvalidateFeedbackCache(svc))
	}
}
