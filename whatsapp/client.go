/*
Copyright 2024 DineHub Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dinehub/notifier/config"
	"github.com/dinehub/notifier/internal/apierror"
	"github.com/dinehub/notifier/internal/request"
)

const channelPrefix = "whatsapp:"

// Client delivers messages through the Twilio transactional messaging API.
type Client struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
}

func NewClient(cfg *config.TwilioConfig) *Client {
	return &Client{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Normalize prefixes an E.164 number with the channel marker the API expects.
func Normalize(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, channelPrefix) {
		return number
	}
	return channelPrefix + number
}

type messageResponse struct {
	Sid     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send posts one message and returns the provider-assigned message id.
// Any non-2xx response is a delivery failure; the caller decides whether the
// order stays eligible for a later retry.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("From", Normalize(c.from))
	form.Set("To", Normalize(to))
	form.Set("Body", body)

	target := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, "POST", target, request.ToFormReq(form))
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrDelivery, "failed to build message request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+request.BasicAuth(c.accountSID, c.authToken))

	var out messageResponse
	resp, err := request.Call(req, &out)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrDelivery, "message request failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apierror.NewAPIError(apierror.ErrDelivery,
			fmt.Sprintf("provider rejected the message with status %d", resp.StatusCode),
			fmt.Sprintf("code=%d message=%s", out.Code, out.Message))
	}
	return out.Sid, nil
}
