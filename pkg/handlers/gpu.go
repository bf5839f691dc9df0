/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"fmt"
	"strconv"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	dbclient "github.com/AMD-AIG-AIMA/nexus/pkg/database/client"
	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
	"github.com/AMD-AIG-AIMA/nexus/pkg/gpu"
	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
)

// ListGpus returns this node's GPU inventory with scheduler state attached.
func (h *Handler) ListGpus(c *gin.Context) {
	handle(c, h.listGpus)
}

// BlacklistGpu excludes a GPU index from scheduling on this node.
func (h *Handler) BlacklistGpu(c *gin.Context) {
	handle(c, h.blacklistGpu)
}

// UnblacklistGpu returns a GPU index to scheduling on this node.
func (h *Handler) UnblacklistGpu(c *gin.Context) {
	handle(c, h.unblacklistGpu)
}

func (h *Handler) listGpus(c *gin.Context) (interface{}, error) {
	devices, err := h.lister.ListDevices(c.Request.Context())
	if err != nil {
		return nil, err
	}
	blacklisted, err := h.dbClient.ListBlacklistedGpus(c.Request.Context(), h.node)
	if err != nil {
		return nil, err
	}
	tags := dbclient.GetJobFieldTags()
	running, err := h.dbClient.SelectJobs(c.Request.Context(),
		sqrl.And{
			sqrl.Eq{dbclient.GetFieldTag(tags, "Status"): string(jobv.StatusRunning)},
			sqrl.Eq{dbclient.GetFieldTag(tags, "Node"): h.node},
		}, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	owned := make(map[int]string)
	for _, j := range running {
		for _, idx := range j.GpuIdxsAssigned {
			owned[idx] = j.Id
		}
	}
	return gpu.AttachState(devices, blacklisted, owned), nil
}

func (h *Handler) blacklistGpu(c *gin.Context) (interface{}, error) {
	idx, err := h.parseGpuIdx(c)
	if err != nil {
		return nil, err
	}
	changed, err := h.dbClient.AddBlacklistedGpu(c.Request.Context(), h.node, idx)
	if err != nil {
		return nil, err
	}
	if changed {
		klog.Infof("gpu %d blacklisted on node %s", idx, h.node)
	}
	return &ChangedResponse{Changed: changed}, nil
}

func (h *Handler) unblacklistGpu(c *gin.Context) (interface{}, error) {
	idx, err := h.parseGpuIdx(c)
	if err != nil {
		return nil, err
	}
	changed, err := h.dbClient.RemoveBlacklistedGpu(c.Request.Context(), h.node, idx)
	if err != nil {
		return nil, err
	}
	if changed {
		klog.Infof("gpu %d removed from blacklist on node %s", idx, h.node)
	}
	return &ChangedResponse{Changed: changed}, nil
}

// parseGpuIdx validates the :idx path parameter against the inventory.
func (h *Handler) parseGpuIdx(c *gin.Context) (int, error) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		return 0, nexuserrors.NewBadRequest("gpu index must be a non-negative integer")
	}
	devices, err := h.lister.ListDevices(c.Request.Context())
	if err != nil {
		return 0, err
	}
	for _, d := range devices {
		if d.Index == idx {
			return idx, nil
		}
	}
	return 0, nexuserrors.NewNotFound(nexuserrors.GpuKind, fmt.Sprintf("%d", idx))
}
