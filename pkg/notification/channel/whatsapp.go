/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package channel

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/httpclient"
)

const (
	ChannelWhatsapp = "whatsapp"

	EnvWhatsappTo     = "WHATSAPP_TO_NUMBER"
	EnvWhatsappApiKey = "TEXTMEBOT_API_KEY"

	textMeBotEndpoint = "https://api.textmebot.com/send.php"
)

// WhatsappChannel sends plain-text messages through the TextMeBot relay.
type WhatsappChannel struct {
	Client httpclient.Interface
}

// Name returns the name of the channel.
func (w *WhatsappChannel) Name() string {
	return ChannelWhatsapp
}

// RequiredEnv lists the environment variable names the channel needs.
func (w *WhatsappChannel) RequiredEnv() []string {
	return []string{EnvWhatsappTo, EnvWhatsappApiKey}
}

// Send delivers the message as text. TextMeBot has no message ids, so the
// returned id is always empty.
func (w *WhatsappChannel) Send(ctx context.Context, env map[string]string, msg *Message) (string, error) {
	if msg == nil {
		return "", fmt.Errorf("message is nil")
	}
	query := url.Values{}
	query.Set("recipient", env[EnvWhatsappTo])
	query.Set("apikey", env[EnvWhatsappApiKey])
	query.Set("text", renderText(msg))
	rsp, err := w.Client.Get(textMeBotEndpoint + "?" + query.Encode())
	if err != nil {
		return "", errors.Wrap(err, "failed to call textmebot")
	}
	if !rsp.IsSuccess() {
		return "", fmt.Errorf("textmebot rejected message: %s", rsp.String())
	}
	return "", nil
}

func renderText(msg *Message) string {
	var b strings.Builder
	b.WriteString(msg.Title)
	if msg.Body != "" {
		b.WriteString("\n")
		b.WriteString(msg.Body)
	}
	for _, name := range msg.FieldOrder {
		b.WriteString(fmt.Sprintf("\n%s: %s", name, msg.Fields[name]))
	}
	return b.String()
}
