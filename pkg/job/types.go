/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package job

import "fmt"

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusKilled    Status = "killed"
)

// IsTerminal reports whether the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusKilled
}

// IntegrationWandb marks a job whose log should be scanned for a W&B run URL.
const IntegrationWandb = "wandb"

const sessionPrefix = "nexus_job_"

// SessionName returns the terminal session name for a job id.
func SessionName(id string) string {
	return sessionPrefix + id
}

// Job is a unit of work: a command executed once on one node inside a
// detached terminal session, with an optional set of pinned GPUs.
type Job struct {
	Id                   string            `json:"id"`
	Command              string            `json:"command"`
	ArtifactId           string            `json:"artifact_id"`
	GitRepoUrl           *string           `json:"git_repo_url,omitempty"`
	GitBranch            *string           `json:"git_branch,omitempty"`
	Status               Status            `json:"status"`
	CreatedAt            float64           `json:"created_at"`
	Priority             int               `json:"priority"`
	NumGpus              int               `json:"num_gpus"`
	Env                  map[string]string `json:"env,omitempty"`
	Node                 *string           `json:"node,omitempty"`
	Jobrc                *string           `json:"jobrc,omitempty"`
	Integrations         []string          `json:"integrations,omitempty"`
	Notifications        []string          `json:"notifications,omitempty"`
	NotificationMessages map[string]string `json:"notification_messages,omitempty"`
	Pid                  *int64            `json:"pid,omitempty"`
	Dir                  *string           `json:"dir,omitempty"`
	StartedAt            *float64          `json:"started_at,omitempty"`
	GpuIdxs              []int             `json:"gpu_idxs,omitempty"`
	GpuIdxsAssigned      []int             `json:"gpu_idxs_assigned,omitempty"`
	WandbUrl             *string           `json:"wandb_url,omitempty"`
	MarkedForKill        bool              `json:"marked_for_kill"`
	CompletedAt          *float64          `json:"completed_at,omitempty"`
	ExitCode             *int64            `json:"exit_code,omitempty"`
	ErrorMessage         *string           `json:"error_message,omitempty"`
	UserName             string            `json:"user_name,omitempty"`
	IgnoreBlacklist      bool              `json:"ignore_blacklist"`
	SessionName          string            `json:"session_name,omitempty"`
}

// HasIntegration reports whether the job requested the named integration.
func (j *Job) HasIntegration(name string) bool {
	for _, integration := range j.Integrations {
		if integration == name {
			return true
		}
	}
	return false
}

// Runtime returns the seconds the job has been or was running, or nil when
// the job has not started.
func (j *Job) Runtime(now float64) *float64 {
	if j.StartedAt == nil {
		return nil
	}
	end := now
	if j.CompletedAt != nil {
		end = *j.CompletedAt
	}
	d := end - *j.StartedAt
	if d < 0 {
		d = 0
	}
	return &d
}

// String implements fmt.Stringer for log lines.
func (j *Job) String() string {
	return fmt.Sprintf("%s(%s)", j.Id, j.Status)
}
