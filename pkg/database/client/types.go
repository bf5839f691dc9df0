/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
)

const (
	DESC = "desc"
	ASC  = "asc"

	CreatedAt = "created_at"
	Priority  = "priority"
)

// Job is the persisted form of a scheduled job. Timestamps are fractional
// epoch seconds; list-valued columns are stored as comma-joined text and the
// env map as JSON.
type Job struct {
	Id                   int64           `db:"id"`
	JobId                string          `db:"job_id"`
	Command              string          `db:"command"`
	ArtifactId           string          `db:"artifact_id"`
	GitRepoUrl           sql.NullString  `db:"git_repo_url"`
	GitBranch            sql.NullString  `db:"git_branch"`
	Status               string          `db:"status"`
	CreatedAt            float64         `db:"created_at"`
	Priority             int             `db:"priority"`
	NumGpus              int             `db:"num_gpus"`
	Env                  sql.NullString  `db:"env"`
	Node                 sql.NullString  `db:"node"`
	Jobrc                sql.NullString  `db:"jobrc"`
	Integrations         sql.NullString  `db:"integrations"`
	Notifications        sql.NullString  `db:"notifications"`
	NotificationMessages sql.NullString  `db:"notification_messages"`
	Pid                  sql.NullInt64   `db:"pid"`
	Dir                  sql.NullString  `db:"dir"`
	StartedAt            sql.NullFloat64 `db:"started_at"`
	GpuIdxs              sql.NullString  `db:"gpu_idxs"`
	GpuIdxsAssigned      sql.NullString  `db:"gpu_idxs_assigned"`
	WandbUrl             sql.NullString  `db:"wandb_url"`
	MarkedForKill        bool            `db:"marked_for_kill"`
	CompletedAt          sql.NullFloat64 `db:"completed_at"`
	ExitCode             sql.NullInt64   `db:"exit_code"`
	ErrorMessage         sql.NullString  `db:"error_message"`
	UserName             sql.NullString  `db:"user_name"`
	IgnoreBlacklist      bool            `db:"ignore_blacklist"`
	SessionName          sql.NullString  `db:"session_name"`
}

// GetJobFieldTags returns the JobFieldTags value.
func GetJobFieldTags() map[string]string {
	j := Job{}
	return getFieldTags(j)
}

// BlacklistedGpu records a GPU index excluded from scheduling on this node.
type BlacklistedGpu struct {
	Id            int64   `db:"id"`
	Node          string  `db:"node"`
	GpuIdx        int     `db:"gpu_idx"`
	BlacklistedAt float64 `db:"blacklisted_at"`
}

// GetBlacklistedGpuFieldTags returns the BlacklistedGpuFieldTags value.
func GetBlacklistedGpuFieldTags() map[string]string {
	b := BlacklistedGpu{}
	return getFieldTags(b)
}

// Artifact holds a submitted code tarball, content-addressed by the hash of
// its bytes.
type Artifact struct {
	Id         int64   `db:"id"`
	ArtifactId string  `db:"artifact_id"`
	Data       []byte  `db:"data"`
	Size       int64   `db:"size"`
	CreatedAt  float64 `db:"created_at"`
}

// GetArtifactFieldTags returns the ArtifactFieldTags value.
func GetArtifactFieldTags() map[string]string {
	a := Artifact{}
	return getFieldTags(a)
}

// getFieldTags retrieves FieldTags for internal use.
func getFieldTags(obj interface{}) map[string]string {
	result := make(map[string]string)
	t := reflect.TypeOf(obj)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		result[strings.ToLower(field.Name)] = field.Tag.Get("db")
	}
	return result
}

// generateCommand generates SQL command string using reflection
// Iterates through struct fields and builds column and value lists
// Skips fields with specified ignoreTag
// Returns formatted SQL command with columns and values
func generateCommand(obj interface{}, format, ignoreTag string) string {
	t := reflect.TypeOf(obj)
	columns := make([]string, 0, t.NumField())
	values := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("db")
		if tag == ignoreTag {
			continue
		}
		columns = append(columns, tag)
		values = append(values, fmt.Sprintf(":%s", tag))
	}
	cmd := fmt.Sprintf(format, strings.Join(columns, ", "), strings.Join(values, ", "))
	return cmd
}

// GetFieldTag returns the FieldTag value.
func GetFieldTag(tags map[string]string, name string) string {
	name = strings.ToLower(name)
	return tags[name]
}
