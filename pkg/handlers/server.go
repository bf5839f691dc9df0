/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"os"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"

	dbclient "github.com/AMD-AIG-AIMA/nexus/pkg/database/client"
	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
	"github.com/AMD-AIG-AIMA/nexus/pkg/metrics"
)

// serverVersion is reported by GET /v1/server/status.
const serverVersion = "1.0.0"

// GetServerStatus reports the daemon's identity, uptime, and queue depth.
func (h *Handler) GetServerStatus(c *gin.Context) {
	handle(c, h.getServerStatus)
}

// GetServerLogs returns the daemon's own log file.
func (h *Handler) GetServerLogs(c *gin.Context) {
	handle(c, h.getServerLogs)
}

// GetHealth returns the node health report.
func (h *Handler) GetHealth(c *gin.Context) {
	handle(c, h.getHealth)
}

func (h *Handler) getServerStatus(c *gin.Context) (interface{}, error) {
	tags := dbclient.GetJobFieldTags()
	statusTag := dbclient.GetFieldTag(tags, "Status")
	queued, err := h.dbClient.CountJobs(c.Request.Context(), sqrl.Eq{statusTag: string(jobv.StatusQueued)})
	if err != nil {
		return nil, err
	}
	running, err := h.dbClient.CountJobs(c.Request.Context(), sqrl.And{
		sqrl.Eq{statusTag: string(jobv.StatusRunning)},
		sqrl.Eq{dbclient.GetFieldTag(tags, "Node"): h.node},
	})
	if err != nil {
		return nil, err
	}
	completed, err := h.dbClient.CountJobs(c.Request.Context(), sqrl.Eq{statusTag: string(jobv.StatusCompleted)})
	if err != nil {
		return nil, err
	}
	failed, err := h.dbClient.CountJobs(c.Request.Context(), sqrl.Eq{statusTag: string(jobv.StatusFailed)})
	if err != nil {
		return nil, err
	}
	devices, err := h.lister.ListDevices(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return &ServerStatus{
		Node:          h.node,
		Status:        "running",
		Version:       serverVersion,
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		GpuCount:      len(devices),
		QueuedJobs:    queued,
		RunningJobs:   running,
		CompletedJobs: completed,
		FailedJobs:    failed,
	}, nil
}

func (h *Handler) getServerLogs(c *gin.Context) (interface{}, error) {
	data, err := os.ReadFile(h.serverLogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nexuserrors.NewNotFoundWithMessage("no server log found")
		}
		return nil, nexuserrors.NewInternalError(err.Error())
	}
	return gin.H{"data": string(data)}, nil
}

func (h *Handler) getHealth(c *gin.Context) (interface{}, error) {
	report := h.checker.Check(c.Request.Context())
	metrics.HealthScore.Set(float64(report.Score))
	return report, nil
}
