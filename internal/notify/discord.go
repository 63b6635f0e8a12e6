package notify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

const (
	ColorRed   = 0xFF0000
	ColorGreen = 0x00FF00
)

type Discord struct {
	Client *http.Client
}

func NewDiscord() *Discord {
	return &Discord{Client: newHTTPClient()}
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Timestamp   string         `json:"timestamp"`
}

type discordPayload struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

func (d *Discord) Type() domain.ContactType { return domain.ContactDiscord }

func (d *Discord) Send(ctx context.Context, c domain.Contact, msg Message) error {
	if c.WebhookURL == "" {
		return errors.New("discord webhook url not set")
	}
	color := ColorRed
	if msg.Recovery {
		color = ColorGreen
	}
	fields := []discordField{
		{Name: "Monitor", Value: msg.MonitorName, Inline: true},
		{Name: "Status", Value: msg.StatusLabel(), Inline: true},
		{Name: "Response time", Value: msg.responseTime(), Inline: true},
	}
	if msg.MonitorURL != "" {
		fields = append(fields, discordField{Name: "URL", Value: msg.MonitorURL})
	}
	if msg.Error != "" {
		fields = append(fields, discordField{Name: "Error", Value: msg.Error})
	}
	payload := discordPayload{
		Username: "Uptime Monitor",
		Embeds: []discordEmbed{{
			Title:       msg.Title,
			Description: msg.Body,
			Color:       color,
			Fields:      fields,
			Timestamp:   msg.Timestamp.Format(time.RFC3339),
		}},
	}
	return postJSON(ctx, d.Client, c.WebhookURL, nil, payload)
}
