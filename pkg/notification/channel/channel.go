/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package channel

import (
	"context"
)

// Message is one rendered notification. Fields keep their insertion order in
// FieldOrder so channels that render tables stay stable.
type Message struct {
	Title      string
	Body       string
	Color      int
	Fields     map[string]string
	FieldOrder []string
}

// AddField appends a labelled value to the message.
func (m *Message) AddField(name, value string) {
	if value == "" {
		return
	}
	if m.Fields == nil {
		m.Fields = make(map[string]string)
	}
	m.Fields[name] = value
	m.FieldOrder = append(m.FieldOrder, name)
}

// Channel delivers messages through one external service. Credentials come
// from the submitting job's environment, never from server config.
type Channel interface {
	Name() string
	// RequiredEnv lists the environment variable names the channel needs.
	RequiredEnv() []string
	// Send delivers the message and returns a provider message id when the
	// provider exposes one, otherwise empty.
	Send(ctx context.Context, env map[string]string, msg *Message) (string, error)
}

// Editor is implemented by channels that can amend an already sent message.
type Editor interface {
	EditMessage(ctx context.Context, env map[string]string, messageId string, msg *Message) error
}

// MissingEnv returns the required variables absent from env.
func MissingEnv(ch Channel, env map[string]string) []string {
	var missing []string
	for _, name := range ch.RequiredEnv() {
		if env[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
