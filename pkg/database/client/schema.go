/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"k8s.io/klog/v2"

	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
)

// Migration models mirror the row structs in types.go. They carry gorm tags
// only; runtime queries never touch them.

type jobModel struct {
	Id                   int64    `gorm:"column:id;primaryKey;autoIncrement"`
	JobId                string   `gorm:"column:job_id;uniqueIndex;size:64;not null"`
	Command              string   `gorm:"column:command;not null"`
	ArtifactId           string   `gorm:"column:artifact_id;index;size:128;not null"`
	GitRepoUrl           *string  `gorm:"column:git_repo_url"`
	GitBranch            *string  `gorm:"column:git_branch"`
	Status               string   `gorm:"column:status;index;size:16;not null"`
	CreatedAt            float64  `gorm:"column:created_at;not null"`
	Priority             int      `gorm:"column:priority;not null;default:0"`
	NumGpus              int      `gorm:"column:num_gpus;not null;default:0"`
	Env                  *string  `gorm:"column:env"`
	Node                 *string  `gorm:"column:node;index"`
	Jobrc                *string  `gorm:"column:jobrc"`
	Integrations         *string  `gorm:"column:integrations"`
	Notifications        *string  `gorm:"column:notifications"`
	NotificationMessages *string  `gorm:"column:notification_messages"`
	Pid                  *int64   `gorm:"column:pid"`
	Dir                  *string  `gorm:"column:dir"`
	StartedAt            *float64 `gorm:"column:started_at"`
	GpuIdxs              *string  `gorm:"column:gpu_idxs"`
	GpuIdxsAssigned      *string  `gorm:"column:gpu_idxs_assigned"`
	WandbUrl             *string  `gorm:"column:wandb_url"`
	MarkedForKill        bool     `gorm:"column:marked_for_kill;not null;default:false"`
	CompletedAt          *float64 `gorm:"column:completed_at"`
	ExitCode             *int64   `gorm:"column:exit_code"`
	ErrorMessage         *string  `gorm:"column:error_message"`
	UserName             *string  `gorm:"column:user_name"`
	IgnoreBlacklist      bool     `gorm:"column:ignore_blacklist;not null;default:false"`
	SessionName          *string  `gorm:"column:session_name"`
}

func (jobModel) TableName() string { return TJob }

type blacklistedGpuModel struct {
	Id            int64   `gorm:"column:id;primaryKey;autoIncrement"`
	Node          string  `gorm:"column:node;size:128;not null;uniqueIndex:idx_node_gpu"`
	GpuIdx        int     `gorm:"column:gpu_idx;not null;uniqueIndex:idx_node_gpu"`
	BlacklistedAt float64 `gorm:"column:blacklisted_at;not null"`
}

func (blacklistedGpuModel) TableName() string { return TBlacklistedGpu }

type artifactModel struct {
	Id         int64   `gorm:"column:id;primaryKey;autoIncrement"`
	ArtifactId string  `gorm:"column:artifact_id;uniqueIndex;size:128;not null"`
	Data       []byte  `gorm:"column:data;not null"`
	Size       int64   `gorm:"column:size;not null;default:0"`
	CreatedAt  float64 `gorm:"column:created_at;not null"`
}

func (artifactModel) TableName() string { return TArtifact }

// AutoMigrate creates or updates the store schema.
func (c *Client) AutoMigrate() error {
	if c == nil || c.gorm == nil {
		return nexuserrors.NewInternalError("the gorm handle has not been initialized")
	}
	if err := c.gorm.AutoMigrate(&jobModel{}, &blacklistedGpuModel{}, &artifactModel{}); err != nil {
		klog.ErrorS(err, "failed to migrate store schema")
		return nexuserrors.NewDatabaseError(err.Error())
	}
	klog.Infof("store schema is up to date")
	return nil
}
