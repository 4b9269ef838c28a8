// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package semantic

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all /v1/semantic routes.
//
// Description:
//
//	The router group should already carry any required middleware; the
//	request ID middleware is added here.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST   /v1/semantic/analyze - Analyze a project or inline sources
//	GET    /v1/semantic/classes/:fqn - Class report by fully qualified name
//	GET    /v1/semantic/symbols/search - Ranked symbol search
//	POST   /v1/semantic/snapshots - Save the current report
//	GET    /v1/semantic/snapshots - List snapshots
//	GET    /v1/semantic/snapshots/diff - Compare two snapshots
//	GET    /v1/semantic/snapshots/:id - Load a snapshot
//	DELETE /v1/semantic/snapshots/:id - Delete a snapshot
//	GET    /v1/semantic/health - Health check
//
// Example:
//
//	svc, _ := semantic.NewService(analyzer)
//	v1 := router.Group("/v1")
//	semantic.RegisterRoutes(v1, semantic.NewHandlers(svc))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	sem := rg.Group("/semantic")
	sem.Use(RequestIDMiddleware())
	{
		sem.POST("/analyze", handlers.HandleAnalyze)

		sem.GET("/classes/:fqn", handlers.HandleClass)
		sem.GET("/symbols/search", handlers.HandleSearch)

		// diff must be registered before the :id wildcard
		sem.GET("/snapshots/diff", handlers.HandleDiffSnapshots)
		sem.POST("/snapshots", handlers.HandleSaveSnapshot)
		sem.GET("/snapshots", handlers.HandleListSnapshots)
		sem.GET("/snapshots/:id", handlers.HandleLoadSnapshot)
		sem.DELETE("/snapshots/:id", handlers.HandleDeleteSnapshot)

		sem.GET("/health", handlers.HandleHealth)
	}
}
