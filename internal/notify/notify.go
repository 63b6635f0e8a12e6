// Package notify delivers up/down notifications to the contacts bound to a
// monitor over email, generic webhooks, Discord, Slack and Telegram.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// Channel sends one rendered message to one contact.
type Channel interface {
	Type() domain.ContactType
	Send(ctx context.Context, c domain.Contact, msg Message) error
}

// Message is the channel-independent template every channel renders from.
type Message struct {
	Title          string
	Body           string
	MonitorID      domain.MonitorID
	MonitorName    string
	MonitorURL     string
	Status         domain.Status
	PreviousStatus domain.Status
	ResponseTimeMS *int
	Error          string
	Timestamp      time.Time
	Recovery       bool
}

// Render builds the shared template for ev.
func Render(ev domain.NotificationEvent) Message {
	name := ev.MonitorName
	if name == "" {
		name = string(ev.MonitorID)
	}
	msg := Message{
		MonitorID:      ev.MonitorID,
		MonitorName:    name,
		MonitorURL:     ev.MonitorURL,
		Status:         ev.Status,
		PreviousStatus: ev.PreviousStatus,
		ResponseTimeMS: ev.ResponseTimeMS,
		Error:          ev.Error,
		Timestamp:      ev.Timestamp.UTC(),
		Recovery:       ev.Recovery(),
	}
	if msg.Recovery {
		msg.Title = fmt.Sprintf("Monitor %s is UP", name)
		msg.Body = fmt.Sprintf("%s recovered (was %s).", name, ev.PreviousStatus)
		if ev.ResponseTimeMS != nil {
			msg.Body += fmt.Sprintf(" Response time: %d ms.", *ev.ResponseTimeMS)
		}
		return msg
	}
	msg.Title = fmt.Sprintf("Monitor %s is DOWN", name)
	msg.Body = fmt.Sprintf("%s is %s.", name, ev.Status)
	if ev.Error != "" {
		msg.Body += " Error: " + ev.Error
	}
	return msg
}

// StatusLabel is the upper-case status shown in chat payloads.
func (m Message) StatusLabel() string {
	if m.Recovery {
		return "UP"
	}
	return "DOWN"
}

func (m Message) responseTime() string {
	if m.ResponseTimeMS == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d ms", *m.ResponseTimeMS)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// postJSON posts payload and treats any non-2xx answer as a failure.
func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", withoutURL(err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return withoutURL(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("non-2xx response %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return nil
}

// withoutURL drops the request URL from err. Bot tokens and webhook secrets
// live in the URL and errors end up in alert logs.
func withoutURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
