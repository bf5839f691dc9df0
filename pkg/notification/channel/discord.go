/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package channel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/httpclient"
	jsonutils "github.com/AMD-AIG-AIMA/nexus/pkg/utils/json"
)

const (
	ChannelDiscord = "discord"

	EnvDiscordWebhookUrl = "DISCORD_WEBHOOK_URL"
	EnvDiscordUserId     = "DISCORD_USER_ID"
)

// DiscordChannel posts rich embeds to a per-user webhook. Sends use
// ?wait=true so the provider returns the created message, whose id allows a
// later edit.
type DiscordChannel struct {
	Client httpclient.Interface
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordMessage struct {
	Id string `json:"id"`
}

// Name returns the name of the channel.
func (d *DiscordChannel) Name() string {
	return ChannelDiscord
}

// RequiredEnv lists the environment variable names the channel needs.
func (d *DiscordChannel) RequiredEnv() []string {
	return []string{EnvDiscordWebhookUrl, EnvDiscordUserId}
}

// Send posts the message and returns the created message id.
func (d *DiscordChannel) Send(ctx context.Context, env map[string]string, msg *Message) (string, error) {
	if msg == nil {
		return "", fmt.Errorf("message is nil")
	}
	url := env[EnvDiscordWebhookUrl] + "?wait=true"
	rsp, err := d.Client.Post(url, d.buildPayload(env, msg))
	if err != nil {
		return "", errors.Wrap(err, "failed to post discord webhook")
	}
	if !rsp.IsSuccess() {
		return "", fmt.Errorf("discord webhook rejected message: %s", rsp.String())
	}
	var created discordMessage
	if err = rsp.Into(&created); err != nil {
		return "", nil
	}
	return created.Id, nil
}

// EditMessage rewrites a previously sent message, used to attach the W&B run
// URL once the job prints it.
func (d *DiscordChannel) EditMessage(ctx context.Context, env map[string]string, messageId string, msg *Message) error {
	if messageId == "" {
		return fmt.Errorf("no message id to edit")
	}
	url := fmt.Sprintf("%s/messages/%s", env[EnvDiscordWebhookUrl], messageId)
	req, err := httpclient.BuildRequest(url, http.MethodPatch,
		jsonutils.MarshalSilently(d.buildPayload(env, msg)))
	if err != nil {
		return err
	}
	rsp, err := d.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to edit discord message")
	}
	if !rsp.IsSuccess() {
		return fmt.Errorf("discord rejected message edit: %s", rsp.String())
	}
	return nil
}

func (d *DiscordChannel) buildPayload(env map[string]string, msg *Message) *discordPayload {
	embed := discordEmbed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       msg.Color,
	}
	for _, name := range msg.FieldOrder {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   name,
			Value:  msg.Fields[name],
			Inline: true,
		})
	}
	payload := &discordPayload{Embeds: []discordEmbed{embed}}
	if userId := env[EnvDiscordUserId]; userId != "" {
		payload.Content = fmt.Sprintf("<@%s>", userId)
	}
	return payload
}
