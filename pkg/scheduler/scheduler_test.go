/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package scheduler

import (
	"context"
	"reflect"
	"testing"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/agiledragon/gomonkey/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbclient "github.com/AMD-AIG-AIMA/nexus/pkg/database/client"
	"github.com/AMD-AIG-AIMA/nexus/pkg/gpu"
	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
	"github.com/AMD-AIG-AIMA/nexus/pkg/notification"
	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/timeutil"
)

type fakeLister struct {
	devices []gpu.Device
}

func (f *fakeLister) ListDevices(context.Context) ([]gpu.Device, error) {
	return f.devices, nil
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	return New("node1", &dbclient.Client{}, jobv.NewRunner(t.TempDir()),
		&fakeLister{devices: []gpu.Device{{Index: 0, Name: "Mock GPU"}, {Index: 1, Name: "Mock GPU"}}},
		notification.NewManager(false), time.Second, time.Minute)
}

// patchSelectJobs routes the running-jobs query and the queued-candidates
// query to separate fixtures. The candidate query is the only one with a
// batch limit.
func patchSelectJobs(patches *gomonkey.Patches, running, queued []*jobv.Job) {
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Client{}), "SelectJobs",
		func(_ *dbclient.Client, _ context.Context, _ sqrl.Sqlizer, _ []string, limit, _ int) ([]*jobv.Job, error) {
			if limit == candidateBatch {
				return queued, nil
			}
			return running, nil
		})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Client{}), "ListBlacklistedGpus",
		func(_ *dbclient.Client, _ context.Context, _ string) ([]int, error) {
			return nil, nil
		})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Client{}), "Transact",
		func(_ *dbclient.Client, ctx context.Context, fn func(tx *dbclient.Tx) error) error {
			return fn(&dbclient.Tx{})
		})
}

func TestTickKillsMarkedJobBeforeStarting(t *testing.T) {
	node := "node1"
	marked := &jobv.Job{Id: "aaa111", Status: jobv.StatusRunning, Node: &node, MarkedForKill: true}
	candidate := &jobv.Job{Id: "bbb222", Status: jobv.StatusQueued, NumGpus: 1, Command: "python train.py", ArtifactId: "feedbeef"}

	var sequence []string
	var finalized *jobv.Job
	patches := gomonkey.NewPatches()
	defer patches.Reset()
	patchSelectJobs(patches, []*jobv.Job{marked}, []*jobv.Job{candidate})
	patches.ApplyMethod(reflect.TypeOf(&jobv.Runner{}), "IsRunning",
		func(_ *jobv.Runner, _ context.Context, _ *jobv.Job) bool { return true })
	patches.ApplyMethod(reflect.TypeOf(&jobv.Runner{}), "Kill",
		func(_ *jobv.Runner, _ context.Context, _ *jobv.Job) {
			sequence = append(sequence, "kill")
		})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Tx{}), "GetJobForUpdate",
		func(_ *dbclient.Tx, _ context.Context, _ string) (*jobv.Job, error) {
			locked := *marked
			return &locked, nil
		})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Tx{}), "UpdateJob",
		func(_ *dbclient.Tx, _ context.Context, j *jobv.Job) error {
			finalized = j
			return nil
		})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Tx{}), "ClaimJob",
		func(_ *dbclient.Tx, _ context.Context, _, _ string) (bool, error) {
			sequence = append(sequence, "claim")
			return false, nil
		})

	s := newTestScheduler(t)
	require.NoError(t, s.tick(context.Background()))

	require.NotNil(t, finalized)
	assert.Equal(t, jobv.StatusKilled, finalized.Status)
	assert.NotNil(t, finalized.CompletedAt)
	assert.Nil(t, finalized.ErrorMessage)
	// freed GPUs are reaped before the queue is inspected
	assert.Equal(t, []string{"kill", "claim"}, sequence)
}

func TestTickReapsDeadMarkedJobByExitMarker(t *testing.T) {
	node := "node1"
	marked := &jobv.Job{Id: "aaa111", Status: jobv.StatusRunning, Node: &node, MarkedForKill: true}
	exitCode := int64(0)

	var finalized *jobv.Job
	patches := gomonkey.NewPatches()
	defer patches.Reset()
	patchSelectJobs(patches, []*jobv.Job{marked}, nil)
	patches.ApplyMethod(reflect.TypeOf(&jobv.Runner{}), "IsRunning",
		func(_ *jobv.Runner, _ context.Context, _ *jobv.Job) bool { return false })
	patches.ApplyMethod(reflect.TypeOf(&jobv.Runner{}), "Kill",
		func(_ *jobv.Runner, _ context.Context, _ *jobv.Job) {
			t.Fatal("a dead process must not be killed")
		})
	patches.ApplyMethod(reflect.TypeOf(&jobv.Runner{}), "InspectExit",
		func(_ *jobv.Runner, _ *jobv.Job) jobv.ExitResult {
			return jobv.ExitResult{ExitCode: &exitCode}
		})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Tx{}), "GetJobForUpdate",
		func(_ *dbclient.Tx, _ context.Context, _ string) (*jobv.Job, error) {
			locked := *marked
			return &locked, nil
		})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Tx{}), "UpdateJob",
		func(_ *dbclient.Tx, _ context.Context, j *jobv.Job) error {
			finalized = j
			return nil
		})

	s := newTestScheduler(t)
	require.NoError(t, s.tick(context.Background()))

	require.NotNil(t, finalized)
	assert.Equal(t, jobv.StatusCompleted, finalized.Status)
	require.NotNil(t, finalized.ExitCode)
	assert.Equal(t, int64(0), *finalized.ExitCode)
}

func TestTickLostClaimStopsStarting(t *testing.T) {
	first := &jobv.Job{Id: "aaa111", Status: jobv.StatusQueued, NumGpus: 1, ArtifactId: "feedbeef"}
	second := &jobv.Job{Id: "bbb222", Status: jobv.StatusQueued, NumGpus: 1, ArtifactId: "feedbeef"}

	claims := 0
	patches := gomonkey.NewPatches()
	defer patches.Reset()
	patchSelectJobs(patches, nil, []*jobv.Job{first, second})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Tx{}), "ClaimJob",
		func(_ *dbclient.Tx, _ context.Context, _, _ string) (bool, error) {
			claims++
			return false, nil
		})
	patches.ApplyMethod(reflect.TypeOf(&jobv.Runner{}), "Start",
		func(_ *jobv.Runner, _ context.Context, _ *jobv.Job, _ []int, _ []byte) error {
			t.Fatal("a lost claim must not start anything")
			return nil
		})

	s := newTestScheduler(t)
	require.NoError(t, s.tick(context.Background()))
	assert.Equal(t, 1, claims)
}

func TestTickStartsSingleJob(t *testing.T) {
	first := &jobv.Job{Id: "aaa111", Status: jobv.StatusQueued, NumGpus: 1, ArtifactId: "feedbeef"}
	second := &jobv.Job{Id: "bbb222", Status: jobv.StatusQueued, NumGpus: 1, ArtifactId: "feedbeef"}

	starts := 0
	var persisted *jobv.Job
	patches := gomonkey.NewPatches()
	defer patches.Reset()
	patchSelectJobs(patches, nil, []*jobv.Job{first, second})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Tx{}), "ClaimJob",
		func(_ *dbclient.Tx, _ context.Context, _, _ string) (bool, error) {
			return true, nil
		})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Client{}), "GetArtifact",
		func(_ *dbclient.Client, _ context.Context, _ string) (*dbclient.Artifact, error) {
			return &dbclient.Artifact{ArtifactId: "feedbeef", Data: []byte("tarball")}, nil
		})
	patches.ApplyMethod(reflect.TypeOf(&jobv.Runner{}), "Start",
		func(_ *jobv.Runner, _ context.Context, _ *jobv.Job, _ []int, _ []byte) error {
			starts++
			return nil
		})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Client{}), "UpdateJob",
		func(_ *dbclient.Client, _ context.Context, j *jobv.Job) error {
			persisted = j
			return nil
		})

	s := newTestScheduler(t)
	require.NoError(t, s.tick(context.Background()))

	assert.Equal(t, 1, starts)
	require.NotNil(t, persisted)
	assert.Equal(t, "aaa111", persisted.Id)
	assert.Equal(t, jobv.StatusRunning, persisted.Status)
	require.NotNil(t, persisted.Node)
	assert.Equal(t, "node1", *persisted.Node)
	assert.Equal(t, []int{0}, persisted.GpuIdxsAssigned)
}

func TestSweepSparesFreshUploads(t *testing.T) {
	var cutoff float64
	var deleted []string
	patches := gomonkey.NewPatches()
	defer patches.Reset()
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Client{}), "ListOrphanArtifacts",
		func(_ *dbclient.Client, _ context.Context, createdBefore float64) ([]string, error) {
			cutoff = createdBefore
			return []string{"feedbeef"}, nil
		})
	patches.ApplyMethod(reflect.TypeOf(&dbclient.Client{}), "DeleteOrphanArtifact",
		func(_ *dbclient.Client, _ context.Context, artifactId string) error {
			deleted = append(deleted, artifactId)
			return nil
		})

	w := NewArtifactSweeper(newTestScheduler(t), "@hourly")
	w.Sweep(context.Background())

	// only uploads older than an hour are candidates
	assert.InDelta(t, timeutil.EpochNow()-orphanMinAge.Seconds(), cutoff, 5)
	assert.Equal(t, []string{"feedbeef"}, deleted)
}

func TestPickGpusElastic(t *testing.T) {
	j := &jobv.Job{NumGpus: 2}
	gpus, ok := pickGpus(j, []int{0, 1, 2, 3})
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1}, gpus)
}

func TestPickGpusNotEnough(t *testing.T) {
	j := &jobv.Job{NumGpus: 3}
	_, ok := pickGpus(j, []int{1, 2})
	assert.False(t, ok)
}

func TestPickGpusZeroRequest(t *testing.T) {
	j := &jobv.Job{NumGpus: 0}
	_, ok := pickGpus(j, []int{0, 1})
	assert.False(t, ok)
}

func TestPickGpusPinned(t *testing.T) {
	j := &jobv.Job{NumGpus: 2, GpuIdxs: []int{1, 3}}
	gpus, ok := pickGpus(j, []int{0, 1, 2, 3})
	assert.True(t, ok)
	assert.Equal(t, []int{1, 3}, gpus)
}

func TestPickGpusPinnedPartiallyBusy(t *testing.T) {
	j := &jobv.Job{NumGpus: 2, GpuIdxs: []int{1, 3}}
	_, ok := pickGpus(j, []int{0, 1, 2})
	assert.False(t, ok)
}

func TestRunningGpuMap(t *testing.T) {
	jobs := []*jobv.Job{
		{Id: "aaa111", GpuIdxsAssigned: []int{0, 1}},
		{Id: "bbb222", GpuIdxsAssigned: []int{3}},
	}
	owned := runningGpuMap(jobs)
	assert.Equal(t, map[int]string{0: "aaa111", 1: "aaa111", 3: "bbb222"}, owned)
}
