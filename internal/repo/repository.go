package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/uptimecore/internal/config"
	"github.com/hamed0406/uptimecore/internal/domain"
)

// Ports (interfaces). Adapters live in repo/memory and repo/postgres.

type MonitorStore interface {
	ListActiveMonitors(ctx context.Context) ([]domain.Monitor, error)
	// ListDueMonitors returns active monitors whose interval has elapsed at now.
	ListDueMonitors(ctx context.Context, now time.Time) ([]domain.Monitor, error)
	// GetMonitor returns domain.ErrNotFound for unknown ids.
	GetMonitor(ctx context.Context, id domain.MonitorID) (domain.Monitor, error)
	UpdateMonitorSummary(ctx context.Context, id domain.MonitorID, s domain.MonitorSummary) error
}

type CheckStore interface {
	// InsertCheck assigns r.ID and updates the monitor's last_checked_at
	// and last_status.
	InsertCheck(ctx context.Context, r *domain.CheckResult) error
	// LatestCheck returns nil, nil when the monitor has no checks.
	LatestCheck(ctx context.Context, id domain.MonitorID) (*domain.CheckResult, error)
	// PreviousCheck returns the newest check with an id below beforeID.
	PreviousCheck(ctx context.Context, id domain.MonitorID, beforeID int64) (*domain.CheckResult, error)
	// ChecksBetween returns checks in [from, to) ordered by checked_at.
	ChecksBetween(ctx context.Context, id domain.MonitorID, from, to time.Time) ([]domain.CheckResult, error)
	PurgeChecksBefore(ctx context.Context, t time.Time) (int64, error)
}

type StatStore interface {
	// UpsertDailyStat folds one check into the (monitor, day) row atomically.
	UpsertDailyStat(ctx context.Context, id domain.MonitorID, day time.Time, d domain.StatDelta) error
	// ReplaceDailyStat overwrites the (monitor, date) row.
	ReplaceDailyStat(ctx context.Context, s domain.DailyStat) error
	// HasDailyStats reports whether any row for day has been finalized by
	// the aggregator.
	HasDailyStats(ctx context.Context, day time.Time) (bool, error)
	// DailyStats returns rows with date in [from, to) ordered by date.
	DailyStats(ctx context.Context, id domain.MonitorID, from, to time.Time) ([]domain.DailyStat, error)
	PurgeDailyStatsBefore(ctx context.Context, day time.Time) (int64, error)
}

type IncidentStore interface {
	// OpenIncident returns domain.ErrIncidentAlreadyOpen when the monitor
	// already has an unresolved incident.
	OpenIncident(ctx context.Context, inc *domain.Incident) error
	// CloseOpenIncident resolves the open incident at t. It returns nil, nil
	// when there is none.
	CloseOpenIncident(ctx context.Context, id domain.MonitorID, t time.Time) (*domain.Incident, error)
	OpenIncidentFor(ctx context.Context, id domain.MonitorID) (*domain.Incident, error)
	// ListIncidents returns the newest incidents first, at most limit of
	// them. A limit <= 0 returns all.
	ListIncidents(ctx context.Context, id domain.MonitorID, limit int) ([]domain.Incident, error)
}

// Datastore is the full persistence port used by the probe engine.
type Datastore interface {
	MonitorStore
	CheckStore
	StatStore
	IncidentStore
	ContactStore
	AlertLogStore
}

// Seeder loads configuration rows. Both adapters implement it.
type Seeder interface {
	UpsertMonitor(ctx context.Context, m domain.Monitor) error
	UpsertContact(ctx context.Context, c domain.Contact) error
	BindContacts(ctx context.Context, id domain.MonitorID, contactIDs []string) error
}

// ApplySeed writes monitors, contacts and bindings in that order.
func ApplySeed(ctx context.Context, s Seeder, seed config.Seed) error {
	for _, m := range seed.Monitors {
		if err := s.UpsertMonitor(ctx, m); err != nil {
			return fmt.Errorf("seed monitor %s: %w", m.ID, err)
		}
	}
	for _, c := range seed.Contacts {
		if err := s.UpsertContact(ctx, c); err != nil {
			return fmt.Errorf("seed contact %s: %w", c.ID, err)
		}
	}
	for _, b := range seed.Bindings {
		if err := s.BindContacts(ctx, b.Monitor, b.Contacts); err != nil {
			return fmt.Errorf("seed bindings for %s: %w", b.Monitor, err)
		}
	}
	return nil
}
