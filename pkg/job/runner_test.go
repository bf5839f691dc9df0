/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	r := NewRunner(t.TempDir())
	r.sleep = func(time.Duration) {}
	return r
}

func TestRunnerStart(t *testing.T) {
	r := newTestRunner(t)

	var launchedName, launchedDir string
	var launchedEnv map[string]string
	r.launch = func(name, dir string, env map[string]string) error {
		launchedName, launchedDir, launchedEnv = name, dir, env
		return nil
	}
	r.run = fakeScreen("\t7777.nexus_job_abc123\t(Detached)\n")

	j := &Job{Id: "abc123", Command: "python train.py", Env: map[string]string{"WANDB_API_KEY": "k"}}
	require.NoError(t, r.Start(context.Background(), j, []int{0, 2}, []byte("tar")))

	assert.Equal(t, "nexus_job_abc123", launchedName)
	assert.Equal(t, r.JobDir("abc123"), launchedDir)
	assert.Equal(t, "abc123", launchedEnv[EnvJobId])
	assert.Equal(t, "0,2", launchedEnv[EnvVisibleDevices])
	assert.Equal(t, "k", launchedEnv["WANDB_API_KEY"])

	require.NotNil(t, j.Pid)
	assert.Equal(t, int64(7777), *j.Pid)
	assert.Equal(t, "nexus_job_abc123", j.SessionName)
	require.NotNil(t, j.Dir)

	// workspace was written
	_, err := os.Stat(filepath.Join(*j.Dir, RunScriptName))
	assert.NoError(t, err)
}

func TestRunnerStartNoPid(t *testing.T) {
	r := newTestRunner(t)
	r.launch = func(name, dir string, env map[string]string) error { return nil }
	r.run = func(_ context.Context, name string, args ...string) (string, error) {
		return "", fmt.Errorf("no such tool")
	}

	j := &Job{Id: "abc123", Command: "true"}
	err := r.Start(context.Background(), j, nil, nil)
	assert.ErrorContains(t, err, "no pid found")
	assert.Nil(t, j.Pid)
}

func TestRunnerIsRunningOwnProcess(t *testing.T) {
	r := newTestRunner(t)
	pid := int64(os.Getpid())
	j := &Job{Id: "abc123", Pid: &pid}
	assert.True(t, r.IsRunning(context.Background(), j))
}

func TestRunnerIsRunningSessionFallback(t *testing.T) {
	r := newTestRunner(t)
	r.run = fakeScreen("\t4321.nexus_job_abc123\t(Detached)\n")

	dead := int64(1 << 30)
	j := &Job{Id: "abc123", Pid: &dead, SessionName: "nexus_job_abc123"}
	assert.True(t, r.IsRunning(context.Background(), j))

	r.run = fakeScreen("No Sockets found.\n")
	assert.False(t, r.IsRunning(context.Background(), j))
}

func TestRunnerKillBestEffort(t *testing.T) {
	r := newTestRunner(t)
	var calls [][]string
	r.run = func(_ context.Context, name string, args ...string) (string, error) {
		calls = append(calls, append([]string{name}, args...))
		return "", fmt.Errorf("no matching processes")
	}

	dir := "/tmp/nexus/jobs/abc123"
	j := &Job{Id: "abc123", Dir: &dir, SessionName: "nexus_job_abc123"}
	r.Kill(context.Background(), j)

	require.Len(t, calls, 2)
	assert.Equal(t, []string{"pkill", "-9", "-f", dir}, calls[0])
	assert.Equal(t, []string{"pkill", "-9", "-f", "nexus_job_abc123"}, calls[1])
}

func TestRunnerReadLogMissing(t *testing.T) {
	r := newTestRunner(t)
	j := &Job{Id: "abc123"}
	_, err := r.ReadLog(j)
	assert.ErrorContains(t, err, "no output log")
}

func TestRunnerInspectExit(t *testing.T) {
	r := newTestRunner(t)
	j := &Job{Id: "abc123"}
	dir := r.JobDir(j.Id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, OutputLogName),
		[]byte("done\nCOMMAND_EXIT_CODE=\"0\"\n"), 0o644))

	res := r.InspectExit(j)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, int64(0), *res.ExitCode)
}
