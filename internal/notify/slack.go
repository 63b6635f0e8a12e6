package notify

import (
	"context"
	"errors"
	"net/http"

	"github.com/hamed0406/uptimecore/internal/domain"
)

type Slack struct {
	Client *http.Client
}

func NewSlack() *Slack {
	return &Slack{Client: newHTTPClient()}
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []slackField `json:"fields"`
	Timestamp int64        `json:"ts"`
}

type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

func (s *Slack) Type() domain.ContactType { return domain.ContactSlack }

func (s *Slack) Send(ctx context.Context, c domain.Contact, msg Message) error {
	if c.WebhookURL == "" {
		return errors.New("slack webhook url not set")
	}
	color := "danger"
	if msg.Recovery {
		color = "good"
	}
	fields := []slackField{
		{Title: "Status", Value: msg.StatusLabel(), Short: true},
		{Title: "Response time", Value: msg.responseTime(), Short: true},
	}
	if msg.MonitorURL != "" {
		fields = append(fields, slackField{Title: "URL", Value: msg.MonitorURL})
	}
	if msg.Error != "" {
		fields = append(fields, slackField{Title: "Error", Value: msg.Error})
	}
	payload := slackPayload{
		Text: "*" + msg.Title + "*",
		Attachments: []slackAttachment{{
			Color:     color,
			Title:     msg.MonitorName,
			Text:      msg.Body,
			Fields:    fields,
			Timestamp: msg.Timestamp.Unix(),
		}},
	}
	return postJSON(ctx, s.Client, c.WebhookURL, nil, payload)
}
