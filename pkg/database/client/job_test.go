/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"testing"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/agiledragon/gomonkey/v2"
	"github.com/jmoiron/sqlx"
	"gotest.tools/assert"

	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
)

func TestInsertJobNilInput(t *testing.T) {
	client := &Client{}

	err := client.InsertJob(context.Background(), nil)
	assert.ErrorContains(t, err, "the input is empty")
}

func TestInsertJobNoDBConnection(t *testing.T) {
	client := &Client{}

	j := &jobv.Job{
		Id:      "abc123",
		Command: "python train.py",
		Status:  jobv.StatusQueued,
	}
	err := client.InsertJob(context.Background(), j)
	assert.ErrorContains(t, err, "store has not been initialized")
}

func TestSelectJobsNoDBConnection(t *testing.T) {
	client := &Client{}

	query := sqrl.Eq{"status": "queued"}
	_, err := client.SelectJobs(context.Background(), query, []string{"priority desc"}, 10, 0)
	assert.ErrorContains(t, err, "store has not been initialized")
}

func TestGetJobEmptyId(t *testing.T) {
	client := &Client{}

	_, err := client.GetJob(context.Background(), "")
	assert.ErrorContains(t, err, "jobId is empty")
}

func TestCountJobsNoDBConnection(t *testing.T) {
	client := &Client{}

	_, err := client.CountJobs(context.Background(), sqrl.Eq{"node": "gpu-1"})
	assert.ErrorContains(t, err, "store has not been initialized")
}

type staleResult struct{}

func (staleResult) LastInsertId() (int64, error) { return 0, nil }
func (staleResult) RowsAffected() (int64, error) { return 0, nil }

func TestUpdateJobVanishedRow(t *testing.T) {
	patches := gomonkey.ApplyFunc(sqlx.NamedExecContext,
		func(_ context.Context, _ sqlx.ExtContext, _ string, _ interface{}) (sql.Result, error) {
			return staleResult{}, nil
		})
	defer patches.Reset()

	err := updateJob(context.Background(), nil, &jobv.Job{Id: "abc123", Status: jobv.StatusQueued})
	assert.Equal(t, nexuserrors.IsNotFound(err), true)
}

func TestCvtJobRoundTrip(t *testing.T) {
	node := "gpu-node-1"
	pid := int64(4321)
	started := 1700000100.5
	wandb := "https://wandb.ai/team/proj/runs/r1"
	j := &jobv.Job{
		Id:              "x7k2pq",
		Command:         "python train.py --epochs 10",
		ArtifactId:      "sha256:aa11",
		Status:          jobv.StatusRunning,
		CreatedAt:       1700000000.25,
		Priority:        5,
		NumGpus:         2,
		Env:             map[string]string{"WANDB_API_KEY": "k"},
		Node:            &node,
		Notifications:   []string{"discord"},
		Pid:             &pid,
		StartedAt:       &started,
		GpuIdxs:         []int{1, 3},
		GpuIdxsAssigned: []int{1, 3},
		WandbUrl:        &wandb,
		UserName:        "alice",
		IgnoreBlacklist: true,
		SessionName:     jobv.SessionName("x7k2pq"),
	}

	got := cvtJobRow(cvtJobRecord(j))
	assert.Equal(t, got.Id, j.Id)
	assert.Equal(t, got.Command, j.Command)
	assert.Equal(t, got.Status, jobv.StatusRunning)
	assert.Equal(t, got.Priority, 5)
	assert.Equal(t, got.NumGpus, 2)
	assert.Equal(t, *got.Node, node)
	assert.Equal(t, *got.Pid, pid)
	assert.Equal(t, *got.StartedAt, started)
	assert.Equal(t, *got.WandbUrl, wandb)
	assert.Equal(t, got.Env["WANDB_API_KEY"], "k")
	assert.DeepEqual(t, got.GpuIdxs, []int{1, 3})
	assert.DeepEqual(t, got.GpuIdxsAssigned, []int{1, 3})
	assert.DeepEqual(t, got.Notifications, []string{"discord"})
	assert.Equal(t, got.UserName, "alice")
	assert.Equal(t, got.IgnoreBlacklist, true)
	assert.Equal(t, got.SessionName, "nexus_job_x7k2pq")
	assert.Equal(t, got.GitRepoUrl == nil, true)
	assert.Equal(t, got.CompletedAt == nil, true)
}

func TestCvtJobRecordEmptyLists(t *testing.T) {
	j := &jobv.Job{Id: "a1", Status: jobv.StatusQueued}
	row := cvtJobRecord(j)
	assert.Equal(t, row.GpuIdxs.Valid, false)
	assert.Equal(t, row.Notifications.Valid, false)
	assert.Equal(t, row.Env.Valid, false)
}

func TestTJobConstant(t *testing.T) {
	assert.Equal(t, TJob, "job")
}

func TestGetJobFieldTags(t *testing.T) {
	tags := GetJobFieldTags()

	assert.Equal(t, "job_id", tags["jobid"])
	assert.Equal(t, "artifact_id", tags["artifactid"])
	assert.Equal(t, "created_at", tags["createdat"])
	assert.Equal(t, "num_gpus", tags["numgpus"])
	assert.Equal(t, "gpu_idxs", tags["gpuidxs"])
	assert.Equal(t, "gpu_idxs_assigned", tags["gpuidxsassigned"])
	assert.Equal(t, "marked_for_kill", tags["markedforkill"])
	assert.Equal(t, "ignore_blacklist", tags["ignoreblacklist"])
	assert.Equal(t, "session_name", tags["sessionname"])
	assert.Equal(t, "user_name", tags["username"])
}

func TestSplitInts(t *testing.T) {
	assert.DeepEqual(t, splitInts("0,1, 2"), []int{0, 1, 2})
	assert.Equal(t, len(splitInts("")), 0)
	assert.DeepEqual(t, splitInts("3,x,4"), []int{3, 4})
	assert.Equal(t, joinInts([]int{5, 7}), "5,7")
	assert.Equal(t, joinInts(nil), "")
}
