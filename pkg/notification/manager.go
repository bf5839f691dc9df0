/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package notification

import (
	"context"

	"k8s.io/klog/v2"

	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
	"github.com/AMD-AIG-AIMA/nexus/pkg/metrics"
	"github.com/AMD-AIG-AIMA/nexus/pkg/notification/channel"
	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/httpclient"
)

// Manager fans job lifecycle events out to the channels a job subscribed to.
// Channel credentials come from the job's own environment; a job with no
// notifications configured costs nothing.
type Manager struct {
	channels map[string]channel.Channel
	enabled  bool
}

// NewManager builds a manager with all supported channels registered.
func NewManager(enabled bool) *Manager {
	client := httpclient.NewHttpClient()
	channels := map[string]channel.Channel{
		channel.ChannelDiscord:  &channel.DiscordChannel{Client: client},
		channel.ChannelWhatsapp: &channel.WhatsappChannel{Client: client},
		channel.ChannelPhone:    &channel.PhoneChannel{Client: client},
	}
	return &Manager{channels: channels, enabled: enabled}
}

// KnownChannel reports whether the name refers to a supported channel.
func (m *Manager) KnownChannel(name string) bool {
	_, ok := m.channels[name]
	return ok
}

// MissingEnv returns, per requested channel, the environment variables the
// job does not provide. An empty result means the subscription is valid.
func (m *Manager) MissingEnv(names []string, env map[string]string) map[string][]string {
	missing := make(map[string][]string)
	for _, name := range names {
		ch, ok := m.channels[name]
		if !ok {
			continue
		}
		if absent := channel.MissingEnv(ch, env); len(absent) > 0 {
			missing[name] = absent
		}
	}
	return missing
}

// NotifyStarted announces a job start on its message channels. The phone
// channel is reserved for terminal events. Provider message ids are recorded
// on the job so later edits can find the message.
func (m *Manager) NotifyStarted(ctx context.Context, j *jobv.Job) {
	if !m.enabled {
		return
	}
	msg := buildStartedMessage(j)
	for _, name := range j.Notifications {
		if name == channel.ChannelPhone {
			continue
		}
		m.send(ctx, name, j, msg)
	}
}

// NotifyFinished announces a terminal state on all subscribed channels. For
// failed and killed jobs the last log lines ride along in the message body.
func (m *Manager) NotifyFinished(ctx context.Context, j *jobv.Job, logTail string) {
	if !m.enabled {
		return
	}
	msg := buildFinishedMessage(j, logTail)
	for _, name := range j.Notifications {
		m.send(ctx, name, j, msg)
	}
}

// AttachWandbUrl rewrites the start announcement with the discovered W&B run
// URL on channels that support edits.
func (m *Manager) AttachWandbUrl(ctx context.Context, j *jobv.Job) {
	if !m.enabled || j.WandbUrl == nil {
		return
	}
	msg := buildStartedMessage(j)
	for _, name := range j.Notifications {
		ch, ok := m.channels[name]
		if !ok {
			continue
		}
		editor, ok := ch.(channel.Editor)
		if !ok {
			continue
		}
		messageId := j.NotificationMessages[name]
		if messageId == "" {
			continue
		}
		if err := editor.EditMessage(ctx, j.Env, messageId, msg); err != nil {
			klog.ErrorS(err, "failed to edit notification", "channel", name, "job", j.Id)
		}
	}
}

func (m *Manager) send(ctx context.Context, name string, j *jobv.Job, msg *channel.Message) {
	ch, ok := m.channels[name]
	if !ok {
		klog.Warningf("unknown notification channel %s for job %s", name, j.Id)
		return
	}
	if absent := channel.MissingEnv(ch, j.Env); len(absent) > 0 {
		klog.Warningf("job %s misses env %v for channel %s", j.Id, absent, name)
		return
	}
	messageId, err := ch.Send(ctx, j.Env, msg)
	if err != nil {
		klog.ErrorS(err, "failed to send notification", "channel", name, "job", j.Id)
		return
	}
	metrics.NotificationsSent.WithLabelValues(name).Inc()
	if messageId != "" {
		if j.NotificationMessages == nil {
			j.NotificationMessages = make(map[string]string)
		}
		j.NotificationMessages[name] = messageId
	}
}
