package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hamed0406/uptimecore/internal/config"
	"github.com/hamed0406/uptimecore/internal/domain"
	kvmem "github.com/hamed0406/uptimecore/internal/kv/memory"
	"github.com/hamed0406/uptimecore/internal/repo"
	"github.com/hamed0406/uptimecore/internal/repo/memory"
)

type recordingChannel struct {
	kind domain.ContactType
	fail error

	mu   sync.Mutex
	sent []string
}

func (r *recordingChannel) Type() domain.ContactType { return r.kind }

func (r *recordingChannel) Send(_ context.Context, c domain.Contact, _ Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, c.ID)
	return nil
}

func (r *recordingChannel) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

var apiMonitor = domain.Monitor{ID: "api", Name: "API", Kind: domain.KindHTTP, URL: "https://api.example.com", Active: true}

func seedStore(t *testing.T, contacts ...domain.Contact) *memory.Store {
	t.Helper()
	s := memory.New()
	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
	}
	seed := config.Seed{
		Monitors: []domain.Monitor{apiMonitor},
		Contacts: contacts,
		Bindings: []config.Binding{{Monitor: apiMonitor.ID, Contacts: ids}},
	}
	if err := repo.ApplySeed(context.Background(), s, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func webhookContact(id string, onDown, onUp bool) domain.Contact {
	return domain.Contact{ID: id, Type: domain.ContactWebhook, Active: true, Enabled: true, NotifyOnDown: onDown, NotifyOnUp: onUp}
}

func TestEligible(t *testing.T) {
	c := webhookContact("c", false, true)
	if Eligible(c, domain.StatusDown, domain.StatusUp) {
		t.Fatalf("down must be skipped when notify_on_down is off")
	}
	if !Eligible(c, domain.StatusUp, domain.StatusDown) {
		t.Fatalf("recovery must be sent when notify_on_up is on")
	}
	if Eligible(c, domain.StatusUp, domain.StatusUp) {
		t.Fatalf("up after up is not a recovery")
	}
}

func TestDispatch_RecoveryOnlyContact(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, webhookContact("c", false, true))
	ch := &recordingChannel{kind: domain.ContactWebhook}
	d := NewDispatcher(DispatcherConfig{Store: store, Channels: []Channel{ch}})

	if err := d.Dispatch(ctx, apiMonitor, domain.StatusDown, domain.StatusUp, domain.CheckResult{ID: 1, MonitorID: "api", Status: domain.StatusDown}); err != nil {
		t.Fatalf("dispatch down: %v", err)
	}
	if ch.count() != 0 || len(store.AlertLogs()) != 0 {
		t.Fatalf("down must be silent: sent=%d logs=%d", ch.count(), len(store.AlertLogs()))
	}

	if err := d.Dispatch(ctx, apiMonitor, domain.StatusUp, domain.StatusDown, domain.CheckResult{ID: 2, MonitorID: "api", Status: domain.StatusUp}); err != nil {
		t.Fatalf("dispatch up: %v", err)
	}
	if ch.count() != 1 {
		t.Fatalf("want one recovery delivery, got %d", ch.count())
	}
	logs := store.AlertLogs()
	if len(logs) != 1 || logs[0].Status != domain.AlertSent || logs[0].ContactID != "c" {
		t.Fatalf("unexpected alert logs %+v", logs)
	}
}

func TestDispatch_FailureIsIsolatedPerContact(t *testing.T) {
	ctx := context.Background()
	bad := domain.Contact{ID: "slack", Type: domain.ContactSlack, Active: true, Enabled: true, NotifyOnDown: true}
	store := seedStore(t, bad, webhookContact("hook", true, true))
	slack := &recordingChannel{kind: domain.ContactSlack, fail: errors.New("500 from slack")}
	hook := &recordingChannel{kind: domain.ContactWebhook}
	d := NewDispatcher(DispatcherConfig{Store: store, Channels: []Channel{slack, hook}})

	err := d.Dispatch(ctx, apiMonitor, domain.StatusDown, domain.StatusUp, domain.CheckResult{ID: 7, MonitorID: "api", Status: domain.StatusDown})
	var de *domain.DeliveryError
	if !errors.As(err, &de) || de.ContactID != "slack" {
		t.Fatalf("want DeliveryError for slack, got %v", err)
	}
	if hook.count() != 1 {
		t.Fatalf("webhook delivery must still happen")
	}

	statuses := map[string]domain.AlertStatus{}
	for _, l := range store.AlertLogs() {
		statuses[l.ContactID] = l.Status
	}
	if statuses["slack"] != domain.AlertFailed || statuses["hook"] != domain.AlertSent {
		t.Fatalf("unexpected alert log statuses %v", statuses)
	}
}

func TestDispatch_DedupByCheckID(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, webhookContact("c", true, true))
	ch := &recordingChannel{kind: domain.ContactWebhook}
	d := NewDispatcher(DispatcherConfig{Store: store, KV: kvmem.New(), Channels: []Channel{ch}})

	r := domain.CheckResult{ID: 11, MonitorID: "api", Status: domain.StatusDown}
	for i := 0; i < 2; i++ {
		if err := d.Dispatch(ctx, apiMonitor, domain.StatusDown, domain.StatusUp, r); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}
	if ch.count() != 1 {
		t.Fatalf("want a single delivery for one check, got %d", ch.count())
	}
}

// flakyContacts fails the first contacts lookup.
type flakyContacts struct {
	*memory.Store
	mu    sync.Mutex
	calls int
}

func (f *flakyContacts) ListActiveContacts(ctx context.Context, id domain.MonitorID) ([]domain.Contact, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if n == 1 {
		return nil, errors.New("db down")
	}
	return f.Store.ListActiveContacts(ctx, id)
}

func TestDispatch_ContactLookupFailureLeavesCheckUnmarked(t *testing.T) {
	ctx := context.Background()
	store := &flakyContacts{Store: seedStore(t, webhookContact("c", true, true))}
	ch := &recordingChannel{kind: domain.ContactWebhook}
	d := NewDispatcher(DispatcherConfig{Store: store, KV: kvmem.New(), Channels: []Channel{ch}})

	r := domain.CheckResult{ID: 7, MonitorID: "api", Status: domain.StatusDown}
	if err := d.Dispatch(ctx, apiMonitor, domain.StatusDown, domain.StatusUp, r); err == nil {
		t.Fatal("want contacts lookup error")
	}
	if err := d.Dispatch(ctx, apiMonitor, domain.StatusDown, domain.StatusUp, r); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if ch.count() != 1 {
		t.Fatalf("want the retry to deliver once, got %d", ch.count())
	}
	if err := d.Dispatch(ctx, apiMonitor, domain.StatusDown, domain.StatusUp, r); err != nil {
		t.Fatalf("third dispatch: %v", err)
	}
	if ch.count() != 1 {
		t.Fatalf("delivered check must stay marked, got %d", ch.count())
	}
}

func TestDispatch_RateLimited(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, webhookContact("c", true, true))
	ch := &recordingChannel{kind: domain.ContactWebhook}
	d := NewDispatcher(DispatcherConfig{Store: store, Channels: []Channel{ch}, PerMinute: 1})

	_ = d.Dispatch(ctx, apiMonitor, domain.StatusDown, domain.StatusUp, domain.CheckResult{ID: 1, Status: domain.StatusDown})
	err := d.Dispatch(ctx, apiMonitor, domain.StatusDown, domain.StatusUp, domain.CheckResult{ID: 2, Status: domain.StatusDown})
	if err == nil {
		t.Fatalf("second delivery within the minute should be rate limited")
	}
	logs := store.AlertLogs()
	if len(logs) != 2 || logs[1].Status != domain.AlertFailed || logs[1].Message != "rate limited" {
		t.Fatalf("unexpected alert logs %+v", logs)
	}
}

func TestDispatch_DelayedSendSuppressedAfterRecovery(t *testing.T) {
	ctx := context.Background()
	c := webhookContact("slow", true, true)
	c.DelaySeconds = 1
	store := seedStore(t, c)
	ch := &recordingChannel{kind: domain.ContactWebhook}
	d := NewDispatcher(DispatcherConfig{Store: store, Channels: []Channel{ch}})

	down := &domain.CheckResult{MonitorID: "api", Status: domain.StatusDown, CheckedAt: time.Now()}
	_ = store.InsertCheck(ctx, down)
	if err := d.Dispatch(ctx, apiMonitor, domain.StatusDown, domain.StatusUp, *down); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	// The monitor recovers before the delay elapses.
	_ = store.InsertCheck(ctx, &domain.CheckResult{MonitorID: "api", Status: domain.StatusUp, CheckedAt: time.Now()})

	d.Wait()
	if ch.count() != 0 {
		t.Fatalf("flapped notification must be suppressed, got %d", ch.count())
	}
}

func TestDispatch_DelayedSendDelivered(t *testing.T) {
	ctx := context.Background()
	c := webhookContact("slow", true, true)
	c.DelaySeconds = 1
	store := seedStore(t, c)
	ch := &recordingChannel{kind: domain.ContactWebhook}
	d := NewDispatcher(DispatcherConfig{Store: store, Channels: []Channel{ch}})

	down := &domain.CheckResult{MonitorID: "api", Status: domain.StatusTimeout, CheckedAt: time.Now()}
	_ = store.InsertCheck(ctx, down)
	_ = d.Dispatch(ctx, apiMonitor, domain.StatusTimeout, domain.StatusUp, *down)
	d.Wait()
	if ch.count() != 1 {
		t.Fatalf("want delayed delivery, got %d", ch.count())
	}
}

func TestDispatcher_StopDropsPending(t *testing.T) {
	c := webhookContact("slow", true, true)
	c.DelaySeconds = 60
	store := seedStore(t, c)
	ch := &recordingChannel{kind: domain.ContactWebhook}
	d := NewDispatcher(DispatcherConfig{Store: store, Channels: []Channel{ch}})

	_ = d.Dispatch(context.Background(), apiMonitor, domain.StatusDown, domain.StatusUp, domain.CheckResult{Status: domain.StatusDown})
	done := make(chan struct{})
	go func() { d.Stop(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return")
	}
	if ch.count() != 0 {
		t.Fatalf("pending delivery must be dropped")
	}
}
