/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package wandb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUrlInLog(t *testing.T) {
	log := []byte("wandb: Run data is saved locally\nwandb: Syncing run eager-sun-42\n" +
		"wandb: View run at https://wandb.ai/team/proj/runs/ab12cd34\ntraining...\n")
	assert.Equal(t, "https://wandb.ai/team/proj/runs/ab12cd34", FindUrlInLog(log))
}

func TestFindUrlInLogNone(t *testing.T) {
	assert.Equal(t, "", FindUrlInLog([]byte("no urls here\n")))
}

func TestFindUrlInLogTrimsPunctuation(t *testing.T) {
	log := []byte("see https://wandb.ai/team/proj/runs/ab12cd34.\n")
	assert.Equal(t, "https://wandb.ai/team/proj/runs/ab12cd34", FindUrlInLog(log))
}

func TestFindUrlInDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output.log"),
		[]byte("https://wandb.ai/t/p/runs/xyz\n"), 0o644))
	assert.Equal(t, "https://wandb.ai/t/p/runs/xyz", FindUrlInDir(dir, "output.log"))
	assert.Equal(t, "", FindUrlInDir(t.TempDir(), "output.log"))
}
