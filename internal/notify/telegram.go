package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hamed0406/uptimecore/internal/domain"
)

const telegramAPI = "https://api.telegram.org"

type Telegram struct {
	BaseURL string
	Client  *http.Client
}

func NewTelegram(baseURL string) *Telegram {
	if baseURL == "" {
		baseURL = telegramAPI
	}
	return &Telegram{BaseURL: strings.TrimRight(baseURL, "/"), Client: newHTTPClient()}
}

func (t *Telegram) Type() domain.ContactType { return domain.ContactTelegram }

func (t *Telegram) Send(ctx context.Context, c domain.Contact, msg Message) error {
	if c.BotToken == "" || c.ChatID == "" {
		return errors.New("telegram bot token and chat id are required")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\nResponse time: %s", msg.Title, msg.Body, msg.responseTime())
	if msg.MonitorURL != "" {
		fmt.Fprintf(&b, "\nURL: %s", msg.MonitorURL)
	}
	payload := map[string]any{
		"chat_id":                  c.ChatID,
		"text":                     b.String(),
		"disable_web_page_preview": true,
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, c.BotToken)
	return postJSON(ctx, t.Client, url, nil, payload)
}
