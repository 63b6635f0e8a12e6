// Package memory is the in-process Datastore used for development, tests
// and single-node runs seeded from YAML.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/uptimecore/internal/domain"
	"github.com/hamed0406/uptimecore/internal/repo"
)

var (
	_ repo.Datastore = (*Store)(nil)
	_ repo.Seeder    = (*Store)(nil)
)

type statKey struct {
	monitor domain.MonitorID
	day     time.Time
}

type Store struct {
	mu        sync.RWMutex
	monitors  map[domain.MonitorID]*domain.Monitor
	contacts  map[string]domain.Contact
	bindings  map[domain.MonitorID][]string
	checks    map[domain.MonitorID][]domain.CheckResult
	nextCheck int64
	stats     map[statKey]domain.DailyStat
	incidents map[domain.MonitorID][]domain.Incident
	alertLogs []domain.AlertLog
}

func New() *Store {
	return &Store{
		monitors:  make(map[domain.MonitorID]*domain.Monitor),
		contacts:  make(map[string]domain.Contact),
		bindings:  make(map[domain.MonitorID][]string),
		checks:    make(map[domain.MonitorID][]domain.CheckResult),
		stats:     make(map[statKey]domain.DailyStat),
		incidents: make(map[domain.MonitorID][]domain.Incident),
	}
}

// ---- Seeder ----

func (s *Store) UpsertMonitor(ctx context.Context, m domain.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.monitors[m.ID]; ok {
		m.LastCheckedAt, m.LastStatus, m.Summary = cur.LastCheckedAt, cur.LastStatus, cur.Summary
	}
	s.monitors[m.ID] = &m
	return nil
}

func (s *Store) UpsertContact(ctx context.Context, c domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = c
	return nil
}

func (s *Store) BindContacts(ctx context.Context, id domain.MonitorID, contactIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.monitors[id]; !ok {
		return domain.ErrNotFound
	}
	seen := make(map[string]bool)
	for _, cid := range s.bindings[id] {
		seen[cid] = true
	}
	for _, cid := range contactIDs {
		if _, ok := s.contacts[cid]; !ok {
			return domain.ErrNotFound
		}
		if !seen[cid] {
			s.bindings[id] = append(s.bindings[id], cid)
			seen[cid] = true
		}
	}
	return nil
}

// ---- MonitorStore ----

func (s *Store) ListActiveMonitors(ctx context.Context) ([]domain.Monitor, error) {
	return s.filterMonitors(func(m *domain.Monitor) bool { return m.Active }), nil
}

func (s *Store) ListDueMonitors(ctx context.Context, now time.Time) ([]domain.Monitor, error) {
	return s.filterMonitors(func(m *domain.Monitor) bool { return m.Due(now) }), nil
}

func (s *Store) filterMonitors(keep func(*domain.Monitor) bool) []domain.Monitor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		if keep(m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) GetMonitor(ctx context.Context, id domain.MonitorID) (domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.monitors[id]
	if !ok {
		return domain.Monitor{}, domain.ErrNotFound
	}
	return *m, nil
}

func (s *Store) UpdateMonitorSummary(ctx context.Context, id domain.MonitorID, sum domain.MonitorSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Summary = sum
	return nil
}

// ---- CheckStore ----

func (s *Store) InsertCheck(ctx context.Context, r *domain.CheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCheck++
	r.ID = s.nextCheck
	s.checks[r.MonitorID] = append(s.checks[r.MonitorID], *r)
	if m, ok := s.monitors[r.MonitorID]; ok {
		at := r.CheckedAt
		m.LastCheckedAt = &at
		m.LastStatus = r.Status
	}
	return nil
}

// Checks are appended in id order, so the newest is last.
func (s *Store) LatestCheck(ctx context.Context, id domain.MonitorID) (*domain.CheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.checks[id]
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[len(rows)-1]
	return &r, nil
}

func (s *Store) PreviousCheck(ctx context.Context, id domain.MonitorID, beforeID int64) (*domain.CheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.checks[id]
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].ID < beforeID {
			r := rows[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (s *Store) ChecksBetween(ctx context.Context, id domain.MonitorID, from, to time.Time) ([]domain.CheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.CheckResult
	for _, r := range s.checks[id] {
		if !r.CheckedAt.Before(from) && r.CheckedAt.Before(to) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckedAt.Before(out[j].CheckedAt) })
	return out, nil
}

func (s *Store) PurgeChecksBefore(ctx context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rows := range s.checks {
		kept := rows[:0]
		for _, r := range rows {
			if r.CheckedAt.Before(t) {
				n++
				continue
			}
			kept = append(kept, r)
		}
		s.checks[id] = kept
	}
	return n, nil
}

// ---- StatStore ----

func (s *Store) UpsertDailyStat(ctx context.Context, id domain.MonitorID, day time.Time, d domain.StatDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := statKey{id, domain.Day(day)}
	st, ok := s.stats[k]
	if !ok {
		st = domain.DailyStat{MonitorID: id, Date: k.day}
	}
	st.Apply(d)
	s.stats[k] = st
	return nil
}

func (s *Store) ReplaceDailyStat(ctx context.Context, st domain.DailyStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.Date = domain.Day(st.Date)
	s.stats[statKey{st.MonitorID, st.Date}] = st
	return nil
}

func (s *Store) HasDailyStats(ctx context.Context, day time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day = domain.Day(day)
	for k := range s.stats {
		if k.day.Equal(day) && s.stats[k].AggregatedAt != nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DailyStats(ctx context.Context, id domain.MonitorID, from, to time.Time) ([]domain.DailyStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DailyStat
	for k, st := range s.stats {
		if k.monitor == id && !k.day.Before(from) && k.day.Before(to) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) PurgeDailyStatsBefore(ctx context.Context, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.stats {
		if k.day.Before(day) {
			delete(s.stats, k)
			n++
		}
	}
	return n, nil
}

// ---- IncidentStore ----

func (s *Store) OpenIncident(ctx context.Context, inc *domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.incidents[inc.MonitorID] {
		if cur.Open() {
			return domain.ErrIncidentAlreadyOpen
		}
	}
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	s.incidents[inc.MonitorID] = append(s.incidents[inc.MonitorID], *inc)
	return nil
}

func (s *Store) CloseOpenIncident(ctx context.Context, id domain.MonitorID, t time.Time) (*domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.incidents[id]
	for i := range list {
		if list[i].Open() {
			list[i].Resolve(t)
			out := list[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) OpenIncidentFor(ctx context.Context, id domain.MonitorID) (*domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inc := range s.incidents[id] {
		if inc.Open() {
			out := inc
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListIncidents(ctx context.Context, id domain.MonitorID, limit int) ([]domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.incidents[id]
	out := make([]domain.Incident, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, list[i])
	}
	return out, nil
}

// ---- ContactStore / AlertLogStore ----

func (s *Store) ListActiveContacts(ctx context.Context, id domain.MonitorID) ([]domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Contact
	for _, cid := range s.bindings[id] {
		c, ok := s.contacts[cid]
		if ok && c.Active && c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) InsertAlertLog(ctx context.Context, l *domain.AlertLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	s.alertLogs = append(s.alertLogs, *l)
	return nil
}

func (s *Store) PurgeAlertLogsBefore(ctx context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.alertLogs[:0]
	var n int64
	for _, l := range s.alertLogs {
		if l.CreatedAt.Before(t) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	s.alertLogs = kept
	return n, nil
}

// AlertLogs returns a copy of every stored alert log, oldest first.
func (s *Store) AlertLogs() []domain.AlertLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AlertLog(nil), s.alertLogs...)
}
