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

package notification

import (
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dinehub/notifier/config"
	"github.com/dinehub/notifier/internal/request"
)

// Alert is the context attached to a run-fatal worker failure: which run and
// which stage of it failed, and the error itself.
type Alert struct {
	RunID string
	Stage string
	Err   error
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

func buildSlackPayload(alert Alert, at time.Time) slackPayload {
	fields := []slackText{
		{Type: "mrkdwn", Text: "*Stage:*\n" + alert.Stage},
	}
	if alert.RunID != "" {
		fields = append(fields, slackText{Type: "mrkdwn", Text: "*Run:*\n" + alert.RunID})
	}
	fields = append(fields,
		slackText{Type: "mrkdwn", Text: "*Error:*\n" + alert.Err.Error()},
		slackText{Type: "mrkdwn", Text: "*Time:*\n" + at.Format(time.RFC822)},
	)

	return slackPayload{Blocks: []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "Order notifier run failed 🚨", Emoji: true},
		},
		{
			Type:   "section",
			Fields: fields,
		},
	}}
}

// SlackNotification posts an alert to the configured Slack webhook.
func SlackNotification(alert Alert) {
	conf, err := config.Fetch()
	if err != nil {
		log.Println(err)
		return
	}

	payload, err := request.ToJsonReq(buildSlackPayload(alert, time.Now()))
	if err != nil {
		log.Println(err)
		return
	}

	req, err := http.NewRequest("POST", conf.Notification.Slack.WebhookUrl, payload)
	if err != nil {
		log.Println(err)
		return
	}

	var response map[string]interface{}
	_, err = request.Call(req, &response)
	if err != nil {
		log.Println(err)
	}
}

// NotifyError reports a run-fatal worker failure through the configured
// notification channel. It logs the alert locally and, when a Slack webhook
// is configured, forwards it there.
//
// The notification runs in a goroutine to avoid blocking the worker.
func NotifyError(alert Alert) {
	go func(alert Alert) {
		logrus.WithFields(logrus.Fields{"run_id": alert.RunID, "stage": alert.Stage}).Error(alert.Err)

		conf, err := config.Fetch()
		if err != nil {
			log.Println(err)
			return
		}

		if conf.Notification.Slack.WebhookUrl != "" {
			SlackNotification(alert)
		}
	}(alert)
}
