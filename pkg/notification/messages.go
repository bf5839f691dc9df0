/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package notification

import (
	"fmt"
	"time"

	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
	"github.com/AMD-AIG-AIMA/nexus/pkg/notification/channel"
	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/timeutil"
)

const (
	colorStarted   = 3447003
	colorCompleted = 3066993
	colorFailed    = 15158332
	colorKilled    = 15105570
)

func buildStartedMessage(j *jobv.Job) *channel.Message {
	msg := &channel.Message{
		Title: fmt.Sprintf("Job %s started", j.Id),
		Color: colorStarted,
	}
	fillCommonFields(msg, j)
	if j.WandbUrl != nil {
		msg.AddField("W&B", *j.WandbUrl)
	}
	return msg
}

func buildFinishedMessage(j *jobv.Job, logTail string) *channel.Message {
	msg := &channel.Message{}
	switch j.Status {
	case jobv.StatusCompleted:
		msg.Title = fmt.Sprintf("Job %s completed", j.Id)
		msg.Color = colorCompleted
	case jobv.StatusKilled:
		msg.Title = fmt.Sprintf("Job %s killed", j.Id)
		msg.Color = colorKilled
	default:
		msg.Title = fmt.Sprintf("Job %s failed", j.Id)
		msg.Color = colorFailed
	}
	fillCommonFields(msg, j)
	if runtime := j.Runtime(timeutil.EpochNow()); runtime != nil {
		msg.AddField("Runtime", formatDuration(*runtime))
	}
	if j.ExitCode != nil {
		msg.AddField("Exit code", fmt.Sprintf("%d", *j.ExitCode))
	}
	if j.ErrorMessage != nil && *j.ErrorMessage != "" {
		msg.AddField("Error", *j.ErrorMessage)
	}
	if j.WandbUrl != nil {
		msg.AddField("W&B", *j.WandbUrl)
	}
	if logTail != "" && j.Status != jobv.StatusCompleted {
		msg.Body = fmt.Sprintf("```\n%s\n```", logTail)
	}
	return msg
}

func fillCommonFields(msg *channel.Message, j *jobv.Job) {
	msg.AddField("Command", j.Command)
	if j.Node != nil {
		msg.AddField("Node", *j.Node)
	}
	if len(j.GpuIdxsAssigned) > 0 {
		msg.AddField("GPUs", fmt.Sprintf("%v", j.GpuIdxsAssigned))
	}
	if j.UserName != "" {
		msg.AddField("User", j.UserName)
	}
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
