/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package job

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
)

const (
	ArtifactFileName = "code.tar"
	RunScriptName    = "run.sh"
	JobrcFileName    = ".jobrc"
	OutputLogName    = "output.log"
	RepoDirName      = "repo"
)

// exitMarkerRe matches the trailing exit marker util-linux script emits when
// invoked with -e.
var exitMarkerRe = regexp.MustCompile(`COMMAND_EXIT_CODE="(\d+)"`)

// BuildRunScript renders the wrapper script for a job. The payload runs under
// util-linux script so all terminal output lands in output.log and the exit
// code survives as a trailing marker.
func BuildRunScript(j *Job) string {
	inner := []string{
		fmt.Sprintf("mkdir -p %s", RepoDirName),
		fmt.Sprintf("tar -xf %s -C %s", ArtifactFileName, RepoDirName),
		fmt.Sprintf("cd %s", RepoDirName),
	}
	if j.Jobrc != nil && *j.Jobrc != "" {
		inner = append(inner, fmt.Sprintf("source \"$NEXUS_JOB_DIR/%s\"", JobrcFileName))
	}
	inner = append(inner, j.Command)
	payload := strings.Join(inner, " && ")

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString("cd \"$NEXUS_JOB_DIR\"\n")
	b.WriteString(fmt.Sprintf("script -f -q -e -c %s \"$NEXUS_JOB_DIR/%s\"\n",
		shellQuote(payload), OutputLogName))
	return b.String()
}

// shellQuote single-quotes s for safe interpolation into the wrapper script.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// WriteWorkspace lays out the per-job directory: the artifact tarball, the
// optional jobrc, and the wrapper script.
func WriteWorkspace(dir string, j *Job, artifact []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nexuserrors.NewRunnerError(fmt.Sprintf("failed to create job dir %s: %v", dir, err))
	}
	if err := os.WriteFile(filepath.Join(dir, ArtifactFileName), artifact, 0o644); err != nil {
		return nexuserrors.NewRunnerError(fmt.Sprintf("failed to write artifact: %v", err))
	}
	if j.Jobrc != nil && *j.Jobrc != "" {
		if err := os.WriteFile(filepath.Join(dir, JobrcFileName), []byte(*j.Jobrc), 0o644); err != nil {
			return nexuserrors.NewRunnerError(fmt.Sprintf("failed to write jobrc: %v", err))
		}
	}
	if err := os.WriteFile(filepath.Join(dir, RunScriptName), []byte(BuildRunScript(j)), 0o755); err != nil {
		return nexuserrors.NewRunnerError(fmt.Sprintf("failed to write run script: %v", err))
	}
	return nil
}

// ExitResult is the outcome recovered from a finished job's log.
type ExitResult struct {
	ExitCode     *int64
	ErrorMessage string
}

// InspectLog derives the terminal outcome of a job from its output log.
// Missing log or missing marker are reported as failures with a diagnostic
// message; a kill verdict is decided by the caller and overrides this.
func InspectLog(logPath string) ExitResult {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return ExitResult{ErrorMessage: "No output log found"}
	}
	matches := exitMarkerRe.FindAllStringSubmatch(string(data), -1)
	if len(matches) == 0 {
		return ExitResult{ErrorMessage: "Could not find exit code in log"}
	}
	code, err := strconv.ParseInt(matches[len(matches)-1][1], 10, 64)
	if err != nil {
		return ExitResult{ErrorMessage: "Could not find exit code in log"}
	}
	if code == 0 {
		return ExitResult{ExitCode: &code}
	}
	return ExitResult{
		ExitCode:     &code,
		ErrorMessage: fmt.Sprintf("Job failed with exit code %d", code),
	}
}
