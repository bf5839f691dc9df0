/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package wandb discovers the Weights & Biases run URL a training job prints
// shortly after startup.
package wandb

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	EnvApiKey = "WANDB_API_KEY"
	EnvEntity = "WANDB_ENTITY"
)

// RequiredEnv lists the variables a job with the wandb integration must
// provide.
func RequiredEnv() []string {
	return []string{EnvApiKey, EnvEntity}
}

var runUrlRe = regexp.MustCompile(`https://wandb\.ai/[^\s'"]+/runs/[^\s'"]+`)

// FindUrlInLog returns the first run URL printed in the log, or empty when
// none appears.
func FindUrlInLog(data []byte) string {
	match := runUrlRe.Find(data)
	if match == nil {
		return ""
	}
	return strings.TrimRight(string(match), ".,;)")
}

// FindUrlInDir scans the job workspace for a run URL: first the output log,
// then any wandb run metadata directories the client may have written.
func FindUrlInDir(dir, logName string) string {
	if data, err := os.ReadFile(filepath.Join(dir, logName)); err == nil {
		if url := FindUrlInLog(data); url != "" {
			return url
		}
	}
	pattern := filepath.Join(dir, "repo", "wandb", "latest-run", "files", "wandb-summary.json")
	if data, err := os.ReadFile(pattern); err == nil {
		if url := FindUrlInLog(data); url != "" {
			return url
		}
	}
	return ""
}
