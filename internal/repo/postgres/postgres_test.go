package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimecore/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}
	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

// uniqueMonitor avoids collisions with rows left by earlier runs.
func uniqueMonitor(t *testing.T, s *Store) domain.Monitor {
	t.Helper()
	m := domain.Monitor{
		ID:              domain.MonitorID(fmt.Sprintf("test-%d", time.Now().UTC().UnixNano())),
		Name:            "test",
		Kind:            domain.KindHTTP,
		URL:             "https://example.com",
		Headers:         map[string]string{"X-Test": "1"},
		IntervalSeconds: 60,
		Active:          true,
	}
	if err := s.UpsertMonitor(context.Background(), m); err != nil {
		t.Fatalf("UpsertMonitor: %v", err)
	}
	return m
}

func TestPostgresStore_InsertCheck_Latest_Previous(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := uniqueMonitor(t, s)
	now := time.Now().UTC().Truncate(time.Millisecond)

	first := &domain.CheckResult{MonitorID: m.ID, Status: domain.StatusUp, ResponseTimeMS: domain.IntPtr(42), StatusCode: domain.IntPtr(200), CheckedAt: now}
	second := &domain.CheckResult{MonitorID: m.ID, Status: domain.StatusDown, ErrorMessage: domain.StrPtr("boom"), CheckedAt: now.Add(time.Second)}
	for _, r := range []*domain.CheckResult{first, second} {
		if err := s.InsertCheck(ctx, r); err != nil {
			t.Fatalf("InsertCheck: %v", err)
		}
	}
	if second.ID <= first.ID {
		t.Fatalf("ids not monotonic: %d then %d", first.ID, second.ID)
	}

	latest, err := s.LatestCheck(ctx, m.ID)
	if err != nil || latest == nil || latest.ID != second.ID || latest.Message() != "boom" {
		t.Fatalf("unexpected latest %+v err=%v", latest, err)
	}
	prev, err := s.PreviousCheck(ctx, m.ID, latest.ID)
	if err != nil || prev == nil || prev.ID != first.ID || *prev.StatusCode != 200 {
		t.Fatalf("unexpected previous %+v err=%v", prev, err)
	}

	got, err := s.GetMonitor(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMonitor: %v", err)
	}
	if got.LastStatus != domain.StatusDown || got.Headers["X-Test"] != "1" {
		t.Fatalf("monitor not updated: %+v", got)
	}
}

func TestPostgresStore_UpsertDailyStat(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := uniqueMonitor(t, s)
	day := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)

	for _, d := range []domain.StatDelta{
		{Up: true, ResponseTimeMS: domain.IntPtr(100)},
		{Up: false},
		{Up: true, ResponseTimeMS: domain.IntPtr(300)},
	} {
		if err := s.UpsertDailyStat(ctx, m.ID, day, d); err != nil {
			t.Fatalf("UpsertDailyStat: %v", err)
		}
	}
	rows, err := s.DailyStats(ctx, m.ID, day, day.AddDate(0, 0, 1))
	if err != nil || len(rows) != 1 {
		t.Fatalf("want one row, got %d err=%v", len(rows), err)
	}
	st := rows[0]
	if st.TotalChecks != 3 || st.SuccessfulChecks != 2 || st.UptimePercentage != 66.67 {
		t.Fatalf("bad counters: %+v", st)
	}
	if st.AvgResponseTime == nil || *st.AvgResponseTime != 200 || st.ResponseSamples != 2 {
		t.Fatalf("bad average: %+v", st)
	}
}

func TestPostgresStore_OneOpenIncident(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := uniqueMonitor(t, s)
	start := time.Now().UTC().Truncate(time.Second)

	if err := s.OpenIncident(ctx, &domain.Incident{MonitorID: m.ID, Status: domain.IncidentInvestigating, StartedAt: start}); err != nil {
		t.Fatalf("OpenIncident: %v", err)
	}
	err := s.OpenIncident(ctx, &domain.Incident{MonitorID: m.ID, Status: domain.IncidentInvestigating, StartedAt: start})
	if !errors.Is(err, domain.ErrIncidentAlreadyOpen) {
		t.Fatalf("want ErrIncidentAlreadyOpen, got %v", err)
	}
	closed, err := s.CloseOpenIncident(ctx, m.ID, start.Add(90*time.Second))
	if err != nil || closed == nil || *closed.DurationSeconds != 90 {
		t.Fatalf("unexpected close %+v err=%v", closed, err)
	}
}

func TestPostgresStore_ListIncidentsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := uniqueMonitor(t, s)
	start := time.Now().UTC().Truncate(time.Second).Add(-200 * time.Hour)

	for i := 0; i < 101; i++ {
		at := start.Add(time.Duration(i) * time.Hour)
		if err := s.OpenIncident(ctx, &domain.Incident{MonitorID: m.ID, Status: domain.IncidentInvestigating, StartedAt: at}); err != nil {
			t.Fatalf("OpenIncident %d: %v", i, err)
		}
		if _, err := s.CloseOpenIncident(ctx, m.ID, at.Add(time.Minute)); err != nil {
			t.Fatalf("CloseOpenIncident %d: %v", i, err)
		}
	}

	all, err := s.ListIncidents(ctx, m.ID, 0)
	if err != nil || len(all) != 101 {
		t.Fatalf("limit 0 should return all 101, got %d err=%v", len(all), err)
	}
	two, err := s.ListIncidents(ctx, m.ID, 2)
	if err != nil || len(two) != 2 || !two[0].StartedAt.After(two[1].StartedAt) {
		t.Fatalf("want the two newest first, got %+v err=%v", two, err)
	}
}
