/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"

	dbclient "github.com/AMD-AIG-AIMA/nexus/pkg/database/client"
	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/ids"
	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/timeutil"
	"github.com/AMD-AIG-AIMA/nexus/pkg/wandb"
)

// CreateJob submits a new job to the queue.
func (h *Handler) CreateJob(c *gin.Context) {
	handle(c, h.createJob)
}

// ListJobs lists jobs with optional status, gpu, and command filters.
func (h *Handler) ListJobs(c *gin.Context) {
	handle(c, h.listJobs)
}

// GetJob returns one job by id.
func (h *Handler) GetJob(c *gin.Context) {
	handle(c, h.getJob)
}

// PatchJob updates command or priority of a queued job.
func (h *Handler) PatchJob(c *gin.Context) {
	handle(c, h.patchJob)
}

// DeleteJob removes a queued job and garbage-collects its artifact.
func (h *Handler) DeleteJob(c *gin.Context) {
	handle(c, h.deleteJob)
}

// KillJob requests termination of a queued or running job.
func (h *Handler) KillJob(c *gin.Context) {
	handle(c, h.killJob)
}

// GetJobLogs returns the output log of a job.
func (h *Handler) GetJobLogs(c *gin.Context) {
	handle(c, h.getJobLogs)
}

// ListQueue lists queued jobs in scheduling order.
func (h *Handler) ListQueue(c *gin.Context) {
	handle(c, h.listQueue)
}

func (h *Handler) createJob(c *gin.Context) (interface{}, error) {
	req := &CreateJobRequest{}
	if err := parseRequestBody(c, req); err != nil {
		return nil, err
	}
	if err := h.validateCreate(c, req); err != nil {
		return nil, err
	}
	j := &jobv.Job{
		Id:              ids.GenerateJobId(),
		Command:         req.Command,
		ArtifactId:      req.ArtifactId,
		GitRepoUrl:      req.GitRepoUrl,
		GitBranch:       req.GitBranch,
		Status:          jobv.StatusQueued,
		CreatedAt:       timeutil.EpochNow(),
		Priority:        req.Priority,
		NumGpus:         req.NumGpus,
		Env:             req.Env,
		Jobrc:           req.Jobrc,
		Integrations:    req.Integrations,
		Notifications:   req.Notifications,
		GpuIdxs:         req.GpuIdxs,
		IgnoreBlacklist: req.IgnoreBlacklist,
		UserName:        req.UserName,
	}
	if len(j.GpuIdxs) > 0 {
		j.NumGpus = len(j.GpuIdxs)
	} else if j.NumGpus <= 0 {
		j.NumGpus = 1
	}
	err := h.dbClient.Transact(c.Request.Context(), func(tx *dbclient.Tx) error {
		return tx.InsertJob(c.Request.Context(), j)
	})
	if err != nil {
		return nil, err
	}
	klog.Infof("job %s submitted by %s", j.Id, j.UserName)
	c.Status(http.StatusCreated)
	return j, nil
}

// validateCreate checks the submission payload and collects one cause per
// rejected field.
func (h *Handler) validateCreate(c *gin.Context, req *CreateJobRequest) error {
	var causes []metav1.StatusCause
	if req.Command == "" {
		causes = append(causes, nexuserrors.FieldCause("command", "command is required"))
	}
	if req.ArtifactId == "" {
		causes = append(causes, nexuserrors.FieldCause("artifact_id", "artifact_id is required"))
	} else {
		exists, err := h.dbClient.ArtifactExists(c.Request.Context(), req.ArtifactId)
		if err != nil {
			return err
		}
		if !exists {
			causes = append(causes, nexuserrors.FieldCause("artifact_id",
				fmt.Sprintf("artifact %s does not exist", req.ArtifactId)))
		}
	}
	for _, idx := range req.GpuIdxs {
		if idx < 0 {
			causes = append(causes, nexuserrors.FieldCause("gpu_idxs",
				fmt.Sprintf("gpu index %d is negative", idx)))
		}
	}
	for _, integration := range req.Integrations {
		if integration != jobv.IntegrationWandb {
			causes = append(causes, nexuserrors.FieldCause("integrations",
				fmt.Sprintf("unknown integration %s", integration)))
			continue
		}
		for _, name := range wandb.RequiredEnv() {
			if req.Env[name] == "" {
				causes = append(causes, nexuserrors.FieldCause("env",
					fmt.Sprintf("integration %s requires env %s", integration, name)))
			}
		}
	}
	for _, name := range req.Notifications {
		if !h.notifier.KnownChannel(name) {
			causes = append(causes, nexuserrors.FieldCause("notifications",
				fmt.Sprintf("unknown notification channel %s", name)))
		}
	}
	for name, absent := range h.notifier.MissingEnv(req.Notifications, req.Env) {
		for _, envName := range absent {
			causes = append(causes, nexuserrors.FieldCause("env",
				fmt.Sprintf("channel %s requires env %s", name, envName)))
		}
	}
	if len(causes) > 0 {
		return nexuserrors.NewValidation("invalid job submission", causes...)
	}
	return nil
}

func (h *Handler) listJobs(c *gin.Context) (interface{}, error) {
	query := &ListJobsQuery{}
	if err := c.ShouldBindQuery(query); err != nil {
		return nil, nexuserrors.NewBadRequest(err.Error())
	}
	var re *regexp.Regexp
	if query.CommandRegex != "" {
		var err error
		if re, err = regexp.Compile(query.CommandRegex); err != nil {
			return nil, nexuserrors.NewBadRequest(fmt.Sprintf("invalid command_regex: %v", err))
		}
	}

	tags := dbclient.GetJobFieldTags()
	var cond sqrl.Sqlizer
	if query.Status != "" {
		cond = sqrl.Eq{dbclient.GetFieldTag(tags, "Status"): query.Status}
	}
	jobs, err := h.dbClient.SelectJobs(c.Request.Context(), cond,
		[]string{dbclient.CreatedAt + " " + dbclient.ASC}, 0, 0)
	if err != nil {
		return nil, err
	}

	// regex and gpu filters work on decoded fields, so they run post-fetch
	filtered := make([]*jobv.Job, 0, len(jobs))
	for _, j := range jobs {
		if re != nil && !re.MatchString(j.Command) {
			continue
		}
		if query.GpuIdx != nil && !usesGpu(j, *query.GpuIdx) {
			continue
		}
		filtered = append(filtered, j)
	}
	total := len(filtered)
	if query.Offset > 0 {
		if query.Offset >= len(filtered) {
			filtered = nil
		} else {
			filtered = filtered[query.Offset:]
		}
	}
	if query.Limit > 0 && len(filtered) > query.Limit {
		filtered = filtered[:query.Limit]
	}
	return &ListJobsResponse{Jobs: filtered, Total: total}, nil
}

func usesGpu(j *jobv.Job, idx int) bool {
	for _, assigned := range j.GpuIdxsAssigned {
		if assigned == idx {
			return true
		}
	}
	for _, pinned := range j.GpuIdxs {
		if pinned == idx {
			return true
		}
	}
	return false
}

func (h *Handler) getJob(c *gin.Context) (interface{}, error) {
	return h.dbClient.GetJob(c.Request.Context(), c.Param("id"))
}

func (h *Handler) patchJob(c *gin.Context) (interface{}, error) {
	req := &PatchJobRequest{}
	if err := parseRequestBody(c, req); err != nil {
		return nil, err
	}
	if req.Command != nil && *req.Command == "" {
		return nil, nexuserrors.NewBadRequest("command cannot be empty")
	}
	var updated *jobv.Job
	err := h.dbClient.Transact(c.Request.Context(), func(tx *dbclient.Tx) error {
		j, err := tx.GetJobForUpdate(c.Request.Context(), c.Param("id"))
		if err != nil {
			return err
		}
		// a claimed row keeps status queued until the start persists, so
		// ownership must be checked as well
		if j.Status != jobv.StatusQueued || j.Node != nil {
			return nexuserrors.NewJobNotQueued(j.Id, string(j.Status))
		}
		if req.Command != nil {
			j.Command = *req.Command
		}
		if req.Priority != nil {
			j.Priority = *req.Priority
		}
		updated = j
		return tx.UpdateJob(c.Request.Context(), j)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (h *Handler) deleteJob(c *gin.Context) (interface{}, error) {
	jobId := c.Param("id")
	err := h.dbClient.Transact(c.Request.Context(), func(tx *dbclient.Tx) error {
		j, err := tx.GetJobForUpdate(c.Request.Context(), jobId)
		if err != nil {
			return err
		}
		if j.Status != jobv.StatusQueued || j.Node != nil {
			return nexuserrors.NewJobNotQueued(j.Id, string(j.Status))
		}
		if err = tx.DeleteJob(c.Request.Context(), jobId); err != nil {
			return err
		}
		refs, err := tx.CountArtifactRefs(c.Request.Context(), j.ArtifactId)
		if err != nil {
			return err
		}
		if refs == 0 {
			return tx.DeleteArtifact(c.Request.Context(), j.ArtifactId)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	klog.Infof("job %s deleted", jobId)
	return gin.H{"data": jobId}, nil
}

// killJob marks a running job for termination; the owning node's scheduler
// performs the kill on its next tick. Jobs in any other state are rejected.
func (h *Handler) killJob(c *gin.Context) (interface{}, error) {
	jobId := c.Param("id")
	err := h.dbClient.Transact(c.Request.Context(), func(tx *dbclient.Tx) error {
		j, err := tx.GetJobForUpdate(c.Request.Context(), jobId)
		if err != nil {
			return err
		}
		if j.Status != jobv.StatusRunning {
			return nexuserrors.NewJobNotRunning(j.Id, string(j.Status))
		}
		j.MarkedForKill = true
		return tx.UpdateJob(c.Request.Context(), j)
	})
	if err != nil {
		return nil, err
	}
	klog.Infof("job %s marked for kill", jobId)
	c.Status(http.StatusNoContent)
	return nil, nil
}

func (h *Handler) getJobLogs(c *gin.Context) (interface{}, error) {
	j, err := h.dbClient.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if tailParam := c.Query("tail"); tailParam != "" {
		n, err := strconv.Atoi(tailParam)
		if err != nil || n <= 0 {
			return nil, nexuserrors.NewBadRequest("tail must be a positive integer")
		}
		return gin.H{"logs": h.runner.TailLog(j, n)}, nil
	}
	data, err := h.runner.ReadLog(j)
	if err != nil {
		// a job that has not started yet simply has no log
		if nexuserrors.IsNotFound(err) {
			return gin.H{"logs": ""}, nil
		}
		return nil, err
	}
	return gin.H{"logs": string(data)}, nil
}

func (h *Handler) listQueue(c *gin.Context) (interface{}, error) {
	tags := dbclient.GetJobFieldTags()
	jobs, err := h.dbClient.SelectJobs(c.Request.Context(),
		sqrl.Eq{dbclient.GetFieldTag(tags, "Status"): string(jobv.StatusQueued)},
		[]string{dbclient.Priority + " " + dbclient.DESC, dbclient.CreatedAt + " " + dbclient.ASC}, 0, 0)
	if err != nil {
		return nil, err
	}
	return &ListJobsResponse{Jobs: jobs, Total: len(jobs)}, nil
}
