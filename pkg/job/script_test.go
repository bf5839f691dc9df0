/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRunScript(t *testing.T) {
	j := &Job{Id: "abc123", Command: "python train.py --lr 1e-4"}
	script := BuildRunScript(j)

	assert.Contains(t, script, "#!/bin/bash")
	assert.Contains(t, script, `script -f -q -e -c`)
	assert.Contains(t, script, "mkdir -p repo && tar -xf code.tar -C repo && cd repo && python train.py --lr 1e-4")
	assert.Contains(t, script, `"$NEXUS_JOB_DIR/output.log"`)
	assert.NotContains(t, script, JobrcFileName)
}

func TestBuildRunScriptWithJobrc(t *testing.T) {
	rc := "export FOO=bar"
	j := &Job{Id: "abc123", Command: "make test", Jobrc: &rc}
	script := BuildRunScript(j)

	assert.Contains(t, script, `source "$NEXUS_JOB_DIR/.jobrc" && make test`)
}

func TestBuildRunScriptQuoting(t *testing.T) {
	j := &Job{Id: "abc123", Command: `echo 'hello world'`}
	script := BuildRunScript(j)

	// single quotes in the command survive the wrapper quoting
	assert.Contains(t, script, `'\''hello world'\''`)
}

func TestWriteWorkspace(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "jobs", "abc123")
	rc := "export A=1"
	j := &Job{Id: "abc123", Command: "true", Jobrc: &rc}

	require.NoError(t, WriteWorkspace(dir, j, []byte("tarball")))

	data, err := os.ReadFile(filepath.Join(dir, ArtifactFileName))
	require.NoError(t, err)
	assert.Equal(t, "tarball", string(data))

	rcData, err := os.ReadFile(filepath.Join(dir, JobrcFileName))
	require.NoError(t, err)
	assert.Equal(t, rc, string(rcData))

	info, err := os.Stat(filepath.Join(dir, RunScriptName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestInspectLogSuccess(t *testing.T) {
	path := writeLog(t, "some output\nCOMMAND_EXIT_CODE=\"0\"\n")
	res := InspectLog(path)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, int64(0), *res.ExitCode)
	assert.Empty(t, res.ErrorMessage)
}

func TestInspectLogFailure(t *testing.T) {
	path := writeLog(t, "traceback...\nCOMMAND_EXIT_CODE=\"2\"\n")
	res := InspectLog(path)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, int64(2), *res.ExitCode)
	assert.Equal(t, "Job failed with exit code 2", res.ErrorMessage)
}

func TestInspectLogLastMarkerWins(t *testing.T) {
	path := writeLog(t, "COMMAND_EXIT_CODE=\"1\"\nretry\nCOMMAND_EXIT_CODE=\"0\"\n")
	res := InspectLog(path)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, int64(0), *res.ExitCode)
}

func TestInspectLogMissingMarker(t *testing.T) {
	path := writeLog(t, "output with no marker\n")
	res := InspectLog(path)
	assert.Nil(t, res.ExitCode)
	assert.Equal(t, "Could not find exit code in log", res.ErrorMessage)
}

func TestInspectLogMissingFile(t *testing.T) {
	res := InspectLog(filepath.Join(t.TempDir(), "nope.log"))
	assert.Nil(t, res.ExitCode)
	assert.Equal(t, "No output log found", res.ErrorMessage)
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), OutputLogName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
