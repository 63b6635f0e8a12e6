package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
	apimw "github.com/hamed0406/uptimecore/internal/httpapi/middleware"
	"github.com/hamed0406/uptimecore/internal/kv"
	kvmem "github.com/hamed0406/uptimecore/internal/kv/memory"
	"github.com/hamed0406/uptimecore/internal/repo/memory"
)

// ---- test helpers ----

type fakeAggregator struct {
	date  time.Time
	force bool
	calls int
	err   error
}

func (f *fakeAggregator) AggregateDaily(_ context.Context, date time.Time, force bool) error {
	f.calls++
	f.date, f.force = date, force
	return f.err
}

var fixedNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	kv    *kvmem.Store
	agg   *fakeAggregator
	srv   *httptest.Server
}

func setup(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memory.New(), kv: kvmem.New(), agg: &fakeAggregator{}}

	for _, m := range []domain.Monitor{
		{ID: "api", Name: "API", Kind: domain.KindHTTP, URL: "https://example.com", Active: true},
		{ID: "job", Name: "Nightly job", Kind: domain.KindHeartbeat, IntervalSeconds: 3600, Active: true},
	} {
		if err := f.store.UpsertMonitor(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	s := NewServer(nil, f.store, f.kv, f.agg)
	s.now = func() time.Time { return fixedNow }
	f.srv = httptest.NewServer(s.Router(opts))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

// ---- tests ----

func TestHealthz(t *testing.T) {
	f := setup(t, Options{})
	resp, body := f.do(t, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("want 200 ok, got %d %q", resp.StatusCode, body)
	}
}

func TestMetricsExposed(t *testing.T) {
	f := setup(t, Options{})
	resp, body := f.do(t, http.MethodGet, "/metrics", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "uptime_") {
		t.Fatalf("metrics endpoint broken: %d", resp.StatusCode)
	}
}

func TestHeartbeatPush(t *testing.T) {
	f := setup(t, Options{})

	resp, _ := f.do(t, http.MethodPost, "/api/heartbeat/job", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	at, ok, err := kv.LastHeartbeat(context.Background(), f.kv, "job")
	if err != nil || !ok || !at.Equal(fixedNow) {
		t.Fatalf("heartbeat not stored: at=%v ok=%v err=%v", at, ok, err)
	}

	// GET works too, for pushers that can only fetch a URL
	if resp, _ := f.do(t, http.MethodGet, "/api/heartbeat/job", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("GET push: want 200, got %d", resp.StatusCode)
	}
}

func TestHeartbeatPush_UnknownOrWrongKind(t *testing.T) {
	f := setup(t, Options{})
	for _, path := range []string{"/api/heartbeat/missing", "/api/heartbeat/api"} {
		resp, _ := f.do(t, http.MethodPost, path, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: want 404, got %d", path, resp.StatusCode)
		}
	}
	if _, ok, _ := kv.LastHeartbeat(context.Background(), f.kv, "api"); ok {
		t.Fatal("non-heartbeat monitor must not get a heartbeat")
	}
}

func TestHeartbeatPush_RateLimited(t *testing.T) {
	f := setup(t, Options{PushPerMinute: 60, PushBurst: 2})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := f.do(t, http.MethodPost, "/api/heartbeat/job", nil)
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("want [200 200 429], got %v", codes)
	}
}

func TestLatestCheck(t *testing.T) {
	f := setup(t, Options{})

	if resp, _ := f.do(t, http.MethodGet, "/api/monitors/api/checks/latest", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("no checks yet: want 404, got %d", resp.StatusCode)
	}

	_ = f.store.InsertCheck(context.Background(), &domain.CheckResult{
		MonitorID: "api", Status: domain.StatusDown, CheckedAt: fixedNow,
		ErrorMessage: domain.StrPtr("unexpected status code 503 (expected 200)"),
	})
	resp, body := f.do(t, http.MethodGet, "/api/monitors/api/checks/latest", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var got domain.CheckResult
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusDown || got.ID == 0 || !strings.Contains(got.Message(), "503") {
		t.Fatalf("unexpected check: %+v", got)
	}
}

func TestMonitorsHideCredentials(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()
	if err := f.store.UpsertMonitor(ctx, domain.Monitor{
		ID: "secured", Kind: domain.KindHTTP, URL: "https://example.com/admin", Active: true,
		Auth:    domain.Auth{Type: domain.AuthBasic, Username: "u", Password: "hunter2"},
		Headers: map[string]string{"Authorization": "Bearer s3cr3t"},
	}); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/api/monitors", "/api/monitors/secured"} {
		resp, body := f.do(t, http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: want 200, got %d", path, resp.StatusCode)
		}
		if strings.Contains(string(body), "hunter2") || strings.Contains(string(body), "s3cr3t") {
			t.Fatalf("%s leaks credentials: %s", path, body)
		}
		if !strings.Contains(string(body), `"username":"u"`) {
			t.Fatalf("%s: username should remain: %s", path, body)
		}
	}

	m, err := f.store.GetMonitor(ctx, "secured")
	if err != nil || m.Auth.Password != "hunter2" {
		t.Fatalf("stored monitor must keep its password, got %+v err=%v", m.Auth, err)
	}
}

func TestStats_WindowAndValidation(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()
	today := domain.Day(fixedNow)
	for i := 0; i < 10; i++ {
		_ = f.store.UpsertDailyStat(ctx, "api", today.AddDate(0, 0, -i), domain.StatDelta{Up: true})
	}

	resp, body := f.do(t, http.MethodGet, "/api/monitors/api/stats?days=7", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var got statsResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Days != 7 || len(got.Stats) != 7 {
		t.Fatalf("want 7 days of stats, got days=%d rows=%d", got.Days, len(got.Stats))
	}

	for _, q := range []string{"days=0", "days=abc", "days=1000"} {
		if resp, _ := f.do(t, http.MethodGet, "/api/monitors/api/stats?"+q, nil); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: want 400, got %d", q, resp.StatusCode)
		}
	}
	if resp, _ := f.do(t, http.MethodGet, "/api/monitors/nope/stats", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown monitor: want 404, got %d", resp.StatusCode)
	}
}

func TestIncidents(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()
	_ = f.store.OpenIncident(ctx, &domain.Incident{MonitorID: "api", Status: domain.IncidentInvestigating, StartedAt: fixedNow.Add(-time.Hour)})
	_, _ = f.store.CloseOpenIncident(ctx, "api", fixedNow.Add(-30*time.Minute))
	_ = f.store.OpenIncident(ctx, &domain.Incident{MonitorID: "api", Status: domain.IncidentInvestigating, StartedAt: fixedNow.Add(-time.Minute)})

	resp, body := f.do(t, http.MethodGet, "/api/monitors/api/incidents?limit=1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var got []domain.Incident
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Open() {
		t.Fatalf("want the newest (open) incident only, got %+v", got)
	}
}

func TestAggregate(t *testing.T) {
	keys := apimw.Keys{Public: []string{"pub"}, Admin: []string{"adm"}}
	f := setup(t, Options{Keys: keys})

	if resp, _ := f.do(t, http.MethodPost, "/api/aggregate", map[string]string{"X-API-Key": "pub"}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("public key: want 403, got %d", resp.StatusCode)
	}
	if f.agg.calls != 0 {
		t.Fatal("aggregator must not run without an admin key")
	}

	adm := map[string]string{"X-API-Key": "adm"}
	resp, _ := f.do(t, http.MethodPost, "/api/aggregate", adm)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if got := f.agg.date.Format(time.DateOnly); got != "2026-03-09" || f.agg.force {
		t.Fatalf("default should be yesterday unforced, got %s force=%v", got, f.agg.force)
	}

	resp, _ = f.do(t, http.MethodPost, "/api/aggregate?date=2026-02-01&force=1", adm)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if got := f.agg.date.Format(time.DateOnly); got != "2026-02-01" || !f.agg.force {
		t.Fatalf("want forced 2026-02-01, got %s force=%v", got, f.agg.force)
	}

	if resp, _ := f.do(t, http.MethodPost, "/api/aggregate?date=02/01/2026", adm); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad date: want 400, got %d", resp.StatusCode)
	}

	f.agg.err = errors.New("store unavailable")
	if resp, _ := f.do(t, http.MethodPost, "/api/aggregate", adm); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("failing aggregation: want 500, got %d", resp.StatusCode)
	}
}

func TestReadEndpointsRequireKeyWhenConfigured(t *testing.T) {
	f := setup(t, Options{Keys: apimw.Keys{Public: []string{"pub"}}})
	if resp, _ := f.do(t, http.MethodGet, "/api/monitors", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}
	resp, body := f.do(t, http.MethodGet, "/api/monitors", map[string]string{"Authorization": "Bearer pub"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var ms []domain.Monitor
	if err := json.Unmarshal(body, &ms); err != nil || len(ms) != 2 {
		t.Fatalf("want 2 monitors, got %d (%v)", len(ms), err)
	}
}
