package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

func downMessage() Message {
	return Render(domain.NotificationEvent{
		MonitorID:      "api",
		MonitorName:    "API",
		MonitorURL:     "https://api.example.com",
		Status:         domain.StatusDown,
		PreviousStatus: domain.StatusUp,
		Error:          "unexpected status code 502 (expected 200)",
		Timestamp:      time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	})
}

func TestSlack_OK(t *testing.T) {
	var got slackPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(200)
	}))
	defer ts.Close()

	err := NewSlack().Send(context.Background(), domain.Contact{WebhookURL: ts.URL}, downMessage())
	if err != nil {
		t.Fatalf("send err: %v", err)
	}
	if got.Text == "" || got.Text[0] != '*' { // starts with "*Monitor API is DOWN*"
		t.Fatalf("payload not as expected: %q", got.Text)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Color != "danger" {
		t.Fatalf("want danger attachment, got %+v", got.Attachments)
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	err := NewSlack().Send(context.Background(), domain.Contact{WebhookURL: ts.URL}, downMessage())
	if err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}
