/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
)

// CreateJobRequest is the submission payload. The artifact must have been
// uploaded beforehand; artifact_id references it.
type CreateJobRequest struct {
	Command         string            `json:"command"`
	ArtifactId      string            `json:"artifact_id"`
	GitRepoUrl      *string           `json:"git_repo_url,omitempty"`
	GitBranch       *string           `json:"git_branch,omitempty"`
	Priority        int               `json:"priority"`
	NumGpus         int               `json:"num_gpus"`
	Env             map[string]string `json:"env,omitempty"`
	Jobrc           *string           `json:"jobrc,omitempty"`
	Integrations    []string          `json:"integrations,omitempty"`
	Notifications   []string          `json:"notifications,omitempty"`
	GpuIdxs         []int             `json:"gpu_idxs,omitempty"`
	IgnoreBlacklist bool              `json:"ignore_blacklist"`
	UserName        string            `json:"user_name,omitempty"`
}

// PatchJobRequest updates the mutable fields of a queued job.
type PatchJobRequest struct {
	Command  *string `json:"command,omitempty"`
	Priority *int    `json:"priority,omitempty"`
}

// ListJobsQuery filters GET /v1/jobs.
type ListJobsQuery struct {
	Status       string `form:"status"`
	GpuIdx       *int   `form:"gpu_idx"`
	CommandRegex string `form:"command_regex"`
	Limit        int    `form:"limit,default=100"`
	Offset       int    `form:"offset"`
}

// ListJobsResponse carries one page of jobs plus the unfiltered total.
type ListJobsResponse struct {
	Jobs  []*jobv.Job `json:"jobs"`
	Total int         `json:"total"`
}

// ChangedResponse reports whether an idempotent mutation took effect.
type ChangedResponse struct {
	Changed bool `json:"changed"`
}

// ServerStatus is the daemon self-description: identity, version, local GPU
// count, and job counts by status.
type ServerStatus struct {
	Node          string  `json:"node"`
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	GpuCount      int     `json:"gpu_count"`
	QueuedJobs    int     `json:"queued_jobs"`
	RunningJobs   int     `json:"running_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	FailedJobs    int     `json:"failed_jobs"`
}
