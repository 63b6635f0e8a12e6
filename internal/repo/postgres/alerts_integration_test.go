//go:build integration

package postgres

// go test -tags=integration ./internal/repo/postgres -run ContactsAndAlertLogs -count=1

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

func TestContactsAndAlertLogs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := uniqueMonitor(t, s)

	suffix := time.Now().UTC().UnixNano()
	live := domain.Contact{ID: fmt.Sprintf("live-%d", suffix), Type: domain.ContactWebhook, Active: true, Enabled: true, NotifyOnDown: true}
	off := domain.Contact{ID: fmt.Sprintf("off-%d", suffix), Type: domain.ContactSlack, Active: true, Enabled: false}
	for _, c := range []domain.Contact{live, off} {
		if err := s.UpsertContact(ctx, c); err != nil {
			t.Fatalf("UpsertContact: %v", err)
		}
	}
	if err := s.BindContacts(ctx, m.ID, []string{live.ID, off.ID}); err != nil {
		t.Fatalf("BindContacts: %v", err)
	}

	got, err := s.ListActiveContacts(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListActiveContacts: %v", err)
	}
	if len(got) != 1 || got[0].ID != live.ID {
		t.Fatalf("want only %s, got %+v", live.ID, got)
	}

	l := &domain.AlertLog{ContactID: live.ID, MonitorID: m.ID, Type: domain.ContactWebhook, Status: domain.AlertSent, Message: "ok"}
	if err := s.InsertAlertLog(ctx, l); err != nil {
		t.Fatalf("InsertAlertLog: %v", err)
	}
	if l.ID == "" || l.CreatedAt.IsZero() {
		t.Fatalf("alert log not stamped: %+v", l)
	}
}
