/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
	"github.com/AMD-AIG-AIMA/nexus/pkg/notification/channel"
)

// recordingChannel is a test double tracking delivery calls.
type recordingChannel struct {
	name      string
	required  []string
	sent      []*channel.Message
	edited    []string
	messageId string
}

func (r *recordingChannel) Name() string          { return r.name }
func (r *recordingChannel) RequiredEnv() []string { return r.required }

func (r *recordingChannel) Send(_ context.Context, _ map[string]string, msg *channel.Message) (string, error) {
	r.sent = append(r.sent, msg)
	return r.messageId, nil
}

func (r *recordingChannel) EditMessage(_ context.Context, _ map[string]string, messageId string, _ *channel.Message) error {
	r.edited = append(r.edited, messageId)
	return nil
}

func newTestManager(chs ...channel.Channel) *Manager {
	m := NewManager(true)
	m.channels = make(map[string]channel.Channel)
	for _, ch := range chs {
		m.channels[ch.Name()] = ch
	}
	return m
}

func TestNotifyStartedRecordsMessageId(t *testing.T) {
	discord := &recordingChannel{name: channel.ChannelDiscord, messageId: "m1"}
	phone := &recordingChannel{name: channel.ChannelPhone}
	m := newTestManager(discord, phone)

	j := &jobv.Job{
		Id:            "abc123",
		Command:       "python train.py",
		Status:        jobv.StatusRunning,
		Notifications: []string{channel.ChannelDiscord, channel.ChannelPhone},
	}
	m.NotifyStarted(context.Background(), j)

	require.Len(t, discord.sent, 1)
	assert.Equal(t, "Job abc123 started", discord.sent[0].Title)
	assert.Equal(t, "m1", j.NotificationMessages[channel.ChannelDiscord])

	// phone is reserved for terminal events
	assert.Empty(t, phone.sent)
}

func TestNotifyFinishedAllChannels(t *testing.T) {
	discord := &recordingChannel{name: channel.ChannelDiscord}
	phone := &recordingChannel{name: channel.ChannelPhone}
	m := newTestManager(discord, phone)

	code := int64(1)
	errMsg := "Job failed with exit code 1"
	j := &jobv.Job{
		Id:            "abc123",
		Status:        jobv.StatusFailed,
		ExitCode:      &code,
		ErrorMessage:  &errMsg,
		Notifications: []string{channel.ChannelDiscord, channel.ChannelPhone},
	}
	m.NotifyFinished(context.Background(), j, "Traceback (most recent call last)")

	require.Len(t, discord.sent, 1)
	require.Len(t, phone.sent, 1)
	assert.Equal(t, "Job abc123 failed", phone.sent[0].Title)
	assert.Equal(t, errMsg, discord.sent[0].Fields["Error"])
	assert.Contains(t, discord.sent[0].Body, "Traceback")
}

func TestNotifyMissingEnvSkipsChannel(t *testing.T) {
	discord := &recordingChannel{name: channel.ChannelDiscord, required: []string{"DISCORD_WEBHOOK_URL"}}
	m := newTestManager(discord)

	j := &jobv.Job{Id: "abc123", Status: jobv.StatusCompleted, Notifications: []string{channel.ChannelDiscord}}
	m.NotifyFinished(context.Background(), j, "")
	assert.Empty(t, discord.sent)
}

func TestAttachWandbUrl(t *testing.T) {
	discord := &recordingChannel{name: channel.ChannelDiscord}
	m := newTestManager(discord)

	url := "https://wandb.ai/t/p/runs/r1"
	j := &jobv.Job{
		Id:                   "abc123",
		Status:               jobv.StatusRunning,
		WandbUrl:             &url,
		Notifications:        []string{channel.ChannelDiscord},
		NotificationMessages: map[string]string{channel.ChannelDiscord: "m1"},
	}
	m.AttachWandbUrl(context.Background(), j)
	assert.Equal(t, []string{"m1"}, discord.edited)

	// without a recorded message there is nothing to edit
	j.NotificationMessages = nil
	discord.edited = nil
	m.AttachWandbUrl(context.Background(), j)
	assert.Empty(t, discord.edited)
}

func TestDisabledManagerIsSilent(t *testing.T) {
	discord := &recordingChannel{name: channel.ChannelDiscord}
	m := newTestManager(discord)
	m.enabled = false

	j := &jobv.Job{Id: "abc123", Status: jobv.StatusCompleted, Notifications: []string{channel.ChannelDiscord}}
	m.NotifyFinished(context.Background(), j, "")
	assert.Empty(t, discord.sent)
}

func TestMissingEnvMatrix(t *testing.T) {
	m := NewManager(true)
	missing := m.MissingEnv([]string{channel.ChannelDiscord, channel.ChannelWhatsapp},
		map[string]string{channel.EnvDiscordWebhookUrl: "https://discord.com/api/webhooks/1/a"})
	assert.Equal(t, []string{channel.EnvDiscordUserId}, missing[channel.ChannelDiscord])
	assert.Equal(t, []string{channel.EnvWhatsappTo, channel.EnvWhatsappApiKey}, missing[channel.ChannelWhatsapp])
	assert.True(t, m.KnownChannel(channel.ChannelPhone))
	assert.False(t, m.KnownChannel("pager"))
}
