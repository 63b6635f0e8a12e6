package incident

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimecore/internal/domain"
	"github.com/hamed0406/uptimecore/internal/metrics"
)

type Store interface {
	OpenIncident(ctx context.Context, inc *domain.Incident) error
	CloseOpenIncident(ctx context.Context, id domain.MonitorID, t time.Time) (*domain.Incident, error)
}

// Manager opens an incident on to_down and resolves it on to_up.
type Manager struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewManager(store Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, log: log, now: time.Now}
}

// WithClock overrides the resolution clock.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Apply records the incident side of a transition for the check that caused
// it and returns the incident that was opened or closed, if any.
func (m *Manager) Apply(ctx context.Context, t Transition, current domain.CheckResult) (*domain.Incident, error) {
	switch t {
	case ToDown:
		metrics.TransitionsTotal.WithLabelValues(string(t)).Inc()
		return m.open(ctx, current)
	case ToUp:
		metrics.TransitionsTotal.WithLabelValues(string(t)).Inc()
		return m.close(ctx, current.MonitorID)
	default:
		return nil, nil
	}
}

func (m *Manager) open(ctx context.Context, r domain.CheckResult) (*domain.Incident, error) {
	inc := &domain.Incident{
		MonitorID: r.MonitorID,
		Status:    domain.IncidentInvestigating,
		StartedAt: r.CheckedAt,
		Cause:     Cause(r),
	}
	err := m.store.OpenIncident(ctx, inc)
	if errors.Is(err, domain.ErrIncidentAlreadyOpen) {
		m.log.Warn("incident_already_open", zap.String("monitor_id", string(r.MonitorID)))
		return nil, nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "open_incident", MonitorID: r.MonitorID, Err: err}
	}
	m.log.Info("incident_opened",
		zap.String("monitor_id", string(r.MonitorID)),
		zap.String("incident_id", inc.ID),
		zap.String("cause", inc.Cause),
	)
	return inc, nil
}

func (m *Manager) close(ctx context.Context, id domain.MonitorID) (*domain.Incident, error) {
	inc, err := m.store.CloseOpenIncident(ctx, id, m.now().UTC())
	if err != nil {
		return nil, &domain.PersistenceError{Op: "close_incident", MonitorID: id, Err: err}
	}
	if inc == nil {
		m.log.Info("incident_none_open", zap.String("monitor_id", string(id)))
		return nil, nil
	}
	var dur int64
	if inc.DurationSeconds != nil {
		dur = *inc.DurationSeconds
	}
	m.log.Info("incident_resolved",
		zap.String("monitor_id", string(id)),
		zap.String("incident_id", inc.ID),
		zap.Int64("duration_seconds", dur),
	)
	return inc, nil
}

// Cause is the error message of r, or its status when there is none.
func Cause(r domain.CheckResult) string {
	if msg := r.Message(); msg != "" {
		return msg
	}
	return "Monitor status: " + string(r.Status)
}
