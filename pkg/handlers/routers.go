/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"github.com/gin-gonic/gin"

	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
	"github.com/AMD-AIG-AIMA/nexus/pkg/handlers/apiutils"
	"github.com/AMD-AIG-AIMA/nexus/pkg/handlers/middleware"
	"github.com/AMD-AIG-AIMA/nexus/pkg/metrics"
)

// InitHttpHandlers builds the gin engine with all routes registered. Health
// and metrics stay outside the authenticated group so probes work without
// credentials.
func InitHttpHandlers(h *Handler, apiKey string) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.Logger(), gin.Recovery(), middleware.Prometheus())
	engine.NoRoute(func(c *gin.Context) {
		apiutils.AbortWithApiError(c, nexuserrors.NewNotFoundWithMessage(c.Request.RequestURI+" not found"))
	})

	engine.GET("/v1/health", h.GetHealth)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	group := engine.Group("/v1", middleware.Auth(apiKey))
	{
		group.GET("server/status", h.GetServerStatus)
		group.GET("server/logs", h.GetServerLogs)

		group.POST("jobs", h.CreateJob)
		group.GET("jobs", h.ListJobs)
		group.GET("jobs/:id", h.GetJob)
		group.PATCH("jobs/:id", h.PatchJob)
		group.DELETE("jobs/:id", h.DeleteJob)
		group.POST("jobs/:id/kill", h.KillJob)
		group.GET("jobs/:id/logs", h.GetJobLogs)
		group.GET("jobs/:id/logs/stream", h.StreamJobLogs)

		group.GET("queue", h.ListQueue)

		group.GET("gpus", h.ListGpus)
		group.PUT("gpus/:idx/blacklist", h.BlacklistGpu)
		group.DELETE("gpus/:idx/blacklist", h.UnblacklistGpu)

		group.POST("artifacts", h.UploadArtifact)
	}
	return engine
}
