/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package job

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
)

// commandRunner executes a tool and returns its combined stdout. Tests
// substitute a fake.
type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		// screen -ls exits non-zero even on success; callers parse output
		if len(out) > 0 {
			return string(out), nil
		}
		return "", err
	}
	return string(out), nil
}

// launchSession starts a detached screen session running the wrapper script
// with the given environment appended to the daemon's own.
func launchSession(name, dir string, env map[string]string) error {
	cmd := exec.Command("screen", "-dmS", name, "bash", RunScriptName)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	if err := cmd.Run(); err != nil {
		return nexuserrors.NewRunnerError(fmt.Sprintf("failed to launch session %s: %v", name, err))
	}
	return nil
}

// findSessionPid resolves the pid owning a session. The session tool's own
// listing is authoritative; pgrep is kept as a fallback for sessions the
// listing misses.
func findSessionPid(ctx context.Context, run commandRunner, name string) (int64, error) {
	if pid, ok := pidFromScreenList(ctx, run, name); ok {
		return pid, nil
	}
	out, err := run(ctx, "pgrep", "-f", name)
	if err != nil {
		return 0, nexuserrors.NewRunnerError(fmt.Sprintf("no pid found for session %s", name))
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		pid, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err == nil && pid > 0 {
			return pid, nil
		}
	}
	return 0, nexuserrors.NewRunnerError(fmt.Sprintf("no pid found for session %s", name))
}

// pidFromScreenList parses `screen -ls` lines of the form
//
//	1234.nexus_job_abc123   (Detached)
func pidFromScreenList(ctx context.Context, run commandRunner, name string) (int64, bool) {
	out, err := run(ctx, "screen", "-ls")
	if err != nil {
		klog.V(3).Infof("screen -ls failed: %v", err)
		return 0, false
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		dot := strings.Index(line, ".")
		if dot <= 0 {
			continue
		}
		rest := line[dot+1:]
		if rest != name && !strings.HasPrefix(rest, name+"\t") && !strings.HasPrefix(rest, name+" ") {
			continue
		}
		pid, err := strconv.ParseInt(line[:dot], 10, 64)
		if err == nil && pid > 0 {
			return pid, true
		}
	}
	return 0, false
}

// sessionExists reports whether the session shows up in the tool listing.
func sessionExists(ctx context.Context, run commandRunner, name string) bool {
	_, ok := pidFromScreenList(ctx, run, name)
	return ok
}
