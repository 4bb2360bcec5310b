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

	"github.com/reasonbridge/ReasonBridge/services/discussion/aggregation"
	"github.com/reasonbridge/ReasonBridge/services/discussion/handlers"
	"github.com/reasonbridge/ReasonBridge/services/discussion/observability"
	"github.com/reasonbridge/ReasonBridge/services/discussion/storage/sqlite"
)

func SetupRoutes(router *gin.Engine, store *sqlite.Store, agg *aggregation.Service, metrics *observability.Metrics) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/alignments", handlers.CreateAlignment(store, agg, metrics))
		v1.PUT("/alignments/:id", handlers.UpdateAlignment(store, agg, metrics))
		v1.DELETE("/alignments/:id", handlers.DeleteAlignment(store, agg, metrics))
		// Proposition routes
		propositions := v1.Group("/propositions")
		{
			propositions.POST("", handlers.CreateProposition(store))
			propositions.GET("/:id/aggregates", handlers.GetAggregates(agg))
			propositions.POST("/aggregates/recalculate", handlers.RecalculateAggregates(agg))
		}
	}
}
