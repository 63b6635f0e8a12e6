package domain

import "time"

type ContactType string

const (
	ContactEmail    ContactType = "email"
	ContactWebhook  ContactType = "webhook"
	ContactDiscord  ContactType = "discord"
	ContactSlack    ContactType = "slack"
	ContactTelegram ContactType = "telegram"
)

// Contact is a notification destination bound to one or more monitors.
type Contact struct {
	ID           string      `json:"id" yaml:"id"`
	Name         string      `json:"name" yaml:"name"`
	Type         ContactType `json:"type" yaml:"type"`
	Email        string      `json:"email,omitempty" yaml:"email"`
	WebhookURL   string      `json:"webhook_url,omitempty" yaml:"webhook_url"`
	BearerToken  string      `json:"-" yaml:"bearer_token"`
	BotToken     string      `json:"-" yaml:"bot_token"`
	ChatID       string      `json:"chat_id,omitempty" yaml:"chat_id"`
	Active       bool        `json:"active" yaml:"active"`
	Enabled      bool        `json:"enabled" yaml:"enabled"`
	NotifyOnDown bool        `json:"notify_on_down" yaml:"notify_on_down"`
	NotifyOnUp   bool        `json:"notify_on_up" yaml:"notify_on_up"`
	DelaySeconds int         `json:"delay_seconds" yaml:"delay_seconds"`
}

// NotificationEvent is the unit of work handed to a channel for one contact.
type NotificationEvent struct {
	MonitorID      MonitorID
	MonitorName    string
	MonitorURL     string
	ContactID      string
	Status         Status
	PreviousStatus Status
	Delay          time.Duration
	ResponseTimeMS *int
	Error          string
	Timestamp      time.Time
}

// Recovery reports whether the event announces a return to up.
func (e NotificationEvent) Recovery() bool { return e.Status == StatusUp }

type AlertStatus string

const (
	AlertSent   AlertStatus = "sent"
	AlertFailed AlertStatus = "failed"
)

// AlertLog records the delivery outcome for one contact.
type AlertLog struct {
	ID        string      `json:"id"`
	ContactID string      `json:"contact_id"`
	MonitorID MonitorID   `json:"monitor_id"`
	Type      ContactType `json:"type"`
	Status    AlertStatus `json:"status"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}
