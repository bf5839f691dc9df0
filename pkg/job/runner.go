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
	"strconv"
	"strings"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
)

const (
	// startProbeDelay is how long to wait after launching a session before
	// resolving its pid.
	startProbeDelay = 500 * time.Millisecond

	EnvJobId          = "NEXUS_JOB_ID"
	EnvJobDir         = "NEXUS_JOB_DIR"
	EnvVisibleDevices = "CUDA_VISIBLE_DEVICES"
)

// Runner starts, probes, and kills job processes on this node. Each job runs
// inside a detached screen session under its own workspace directory.
type Runner struct {
	serverDir string
	run       commandRunner
	launch    func(name, dir string, env map[string]string) error
	sleep     func(time.Duration)
}

// NewRunner creates a runner rooted at serverDir.
func NewRunner(serverDir string) *Runner {
	return &Runner{
		serverDir: serverDir,
		run:       runCommand,
		launch:    launchSession,
		sleep:     time.Sleep,
	}
}

// JobDir returns the workspace directory of a job.
func (r *Runner) JobDir(id string) string {
	return filepath.Join(r.serverDir, "jobs", id)
}

// LogPath returns the output log path of a job.
func (r *Runner) LogPath(j *Job) string {
	if j.Dir != nil && *j.Dir != "" {
		return filepath.Join(*j.Dir, OutputLogName)
	}
	return filepath.Join(r.JobDir(j.Id), OutputLogName)
}

// Start materializes the job workspace and launches the session. On success
// it fills in Dir, SessionName, and Pid on the job. The caller owns the
// status transition and the database write.
func (r *Runner) Start(ctx context.Context, j *Job, gpuIdxs []int, artifact []byte) error {
	dir := r.JobDir(j.Id)
	if err := WriteWorkspace(dir, j, artifact); err != nil {
		return err
	}

	env := make(map[string]string, len(j.Env)+3)
	for k, v := range j.Env {
		env[k] = v
	}
	env[EnvJobId] = j.Id
	env[EnvJobDir] = dir
	env[EnvVisibleDevices] = joinIdxs(gpuIdxs)

	session := SessionName(j.Id)
	if err := r.launch(session, dir, env); err != nil {
		return err
	}
	r.sleep(startProbeDelay)

	pid, err := findSessionPid(ctx, r.run, session)
	if err != nil {
		return err
	}
	j.Dir = &dir
	j.SessionName = session
	j.Pid = &pid
	klog.Infof("started job %s in session %s, pid %d, gpus [%s]", j.Id, session, pid, env[EnvVisibleDevices])
	return nil
}

// IsRunning probes whether the job process is still alive. Signal 0 on the
// recorded pid is the primary check; a permission error still means alive.
// Without a pid the session listing decides.
func (r *Runner) IsRunning(ctx context.Context, j *Job) bool {
	if j.Pid != nil && *j.Pid > 0 {
		err := syscall.Kill(int(*j.Pid), 0)
		if err == nil || err == syscall.EPERM {
			return true
		}
	}
	if j.SessionName != "" {
		return sessionExists(ctx, r.run, j.SessionName)
	}
	return false
}

// Kill force-terminates everything belonging to the job: processes matching
// its workspace path, its session, and its process group. Each step is
// best-effort.
func (r *Runner) Kill(ctx context.Context, j *Job) {
	if j.Dir != nil && *j.Dir != "" {
		if _, err := r.run(ctx, "pkill", "-9", "-f", *j.Dir); err != nil {
			klog.V(3).Infof("pkill by dir for job %s: %v", j.Id, err)
		}
	}
	session := j.SessionName
	if session == "" {
		session = SessionName(j.Id)
	}
	if _, err := r.run(ctx, "pkill", "-9", "-f", session); err != nil {
		klog.V(3).Infof("pkill by session for job %s: %v", j.Id, err)
	}
	if j.Pid != nil && *j.Pid > 0 {
		if pgid, err := syscall.Getpgid(int(*j.Pid)); err == nil {
			if err = syscall.Kill(-pgid, syscall.SIGKILL); err != nil {
				klog.V(3).Infof("kill process group of job %s: %v", j.Id, err)
			}
		}
	}
	klog.Infof("killed job %s", j.Id)
}

// InspectExit recovers the terminal outcome of a finished job from its log.
func (r *Runner) InspectExit(j *Job) ExitResult {
	return InspectLog(r.LogPath(j))
}

// ReadLog returns the raw output log of a job.
func (r *Runner) ReadLog(j *Job) ([]byte, error) {
	data, err := os.ReadFile(r.LogPath(j))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nexuserrors.NewNotFoundWithMessage(fmt.Sprintf("no output log for job %s", j.Id))
		}
		return nil, nexuserrors.NewRunnerError(err.Error())
	}
	return data, nil
}

// TailLog returns the last n lines of the output log, empty when the log does
// not exist.
func (r *Runner) TailLog(j *Job, n int) string {
	data, err := os.ReadFile(r.LogPath(j))
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// CleanupRepo removes the extracted code tree of a finished job. The tarball
// and the output log stay for later inspection.
func (r *Runner) CleanupRepo(j *Job) {
	dir := r.JobDir(j.Id)
	if j.Dir != nil && *j.Dir != "" {
		dir = *j.Dir
	}
	if err := os.RemoveAll(filepath.Join(dir, RepoDirName)); err != nil {
		klog.V(3).Infof("cleanup repo of job %s: %v", j.Id, err)
	}
}

func joinIdxs(idxs []int) string {
	parts := make([]string, 0, len(idxs))
	for _, idx := range idxs {
		parts = append(parts, strconv.Itoa(idx))
	}
	return strings.Join(parts, ",")
}
