package notify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// Webhook posts the event as JSON, with an optional bearer token.
type Webhook struct {
	Client *http.Client
}

func NewWebhook() *Webhook {
	return &Webhook{Client: newHTTPClient()}
}

type webhookPayload struct {
	Event          string  `json:"event"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	MonitorID      string  `json:"monitor_id"`
	MonitorName    string  `json:"monitor_name"`
	MonitorURL     string  `json:"monitor_url,omitempty"`
	Status         string  `json:"status"`
	PreviousStatus string  `json:"previous_status,omitempty"`
	ResponseTimeMS *int    `json:"response_time_ms,omitempty"`
	Error          *string `json:"error,omitempty"`
	Timestamp      string  `json:"timestamp"`
}

func (w *Webhook) Type() domain.ContactType { return domain.ContactWebhook }

func (w *Webhook) Send(ctx context.Context, c domain.Contact, msg Message) error {
	if c.WebhookURL == "" {
		return errors.New("webhook url not set")
	}
	event := "monitor.down"
	if msg.Recovery {
		event = "monitor.up"
	}
	p := webhookPayload{
		Event:          event,
		Title:          msg.Title,
		Body:           msg.Body,
		MonitorID:      string(msg.MonitorID),
		MonitorName:    msg.MonitorName,
		MonitorURL:     msg.MonitorURL,
		Status:         string(msg.Status),
		PreviousStatus: string(msg.PreviousStatus),
		ResponseTimeMS: msg.ResponseTimeMS,
		Timestamp:      msg.Timestamp.Format(time.RFC3339),
	}
	if msg.Error != "" {
		p.Error = domain.StrPtr(msg.Error)
	}
	var headers map[string]string
	if c.BearerToken != "" {
		headers = map[string]string{"Authorization": "Bearer " + c.BearerToken}
	}
	return postJSON(ctx, w.Client, c.WebhookURL, headers, p)
}
