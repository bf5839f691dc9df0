/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package channel

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/pkg/errors"

	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/httpclient"
)

const (
	ChannelPhone = "phone"

	EnvPhoneToNumber    = "PHONE_TO_NUMBER"
	EnvTwilioAccountSid = "TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken  = "TWILIO_AUTH_TOKEN"
	EnvTwilioFromNumber = "TWILIO_FROM_NUMBER"
)

// PhoneChannel places a voice call through Twilio that reads the message
// title aloud. Reserved for terminal events.
type PhoneChannel struct {
	Client httpclient.Interface
}

// Name returns the name of the channel.
func (p *PhoneChannel) Name() string {
	return ChannelPhone
}

// RequiredEnv lists the environment variable names the channel needs.
func (p *PhoneChannel) RequiredEnv() []string {
	return []string{EnvPhoneToNumber, EnvTwilioAccountSid, EnvTwilioAuthToken, EnvTwilioFromNumber}
}

// Send places the call. Twilio call sids are not kept; the returned id is
// always empty.
func (p *PhoneChannel) Send(ctx context.Context, env map[string]string, msg *Message) (string, error) {
	if msg == nil {
		return "", fmt.Errorf("message is nil")
	}
	sid := env[EnvTwilioAccountSid]
	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Calls.json", sid)

	form := url.Values{}
	form.Set("To", env[EnvPhoneToNumber])
	form.Set("From", env[EnvTwilioFromNumber])
	form.Set("Twiml", fmt.Sprintf("<Response><Say>%s</Say></Response>", msg.Title))

	auth := base64.StdEncoding.EncodeToString([]byte(sid + ":" + env[EnvTwilioAuthToken]))
	rsp, err := p.Client.Post(endpoint, form.Encode(),
		"Content-Type", "application/x-www-form-urlencoded",
		"Authorization", "Basic "+auth)
	if err != nil {
		return "", errors.Wrap(err, "failed to call twilio")
	}
	if !rsp.IsSuccess() {
		return "", fmt.Errorf("twilio rejected call: %s", rsp.String())
	}
	return "", nil
}
