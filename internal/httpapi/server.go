package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimecore/internal/domain"
	apimw "github.com/hamed0406/uptimecore/internal/httpapi/middleware"
	"github.com/hamed0406/uptimecore/internal/kv"
	"github.com/hamed0406/uptimecore/internal/metrics"
)

const (
	defaultStatsDays      = 30
	maxStatsDays          = 365
	defaultIncidentsLimit = 50
)

// Store is the read side of the Datastore the API exposes.
type Store interface {
	ListActiveMonitors(ctx context.Context) ([]domain.Monitor, error)
	GetMonitor(ctx context.Context, id domain.MonitorID) (domain.Monitor, error)
	LatestCheck(ctx context.Context, id domain.MonitorID) (*domain.CheckResult, error)
	DailyStats(ctx context.Context, id domain.MonitorID, from, to time.Time) ([]domain.DailyStat, error)
	ListIncidents(ctx context.Context, id domain.MonitorID, limit int) ([]domain.Incident, error)
}

type Aggregator interface {
	AggregateDaily(ctx context.Context, date time.Time, force bool) error
}

type Options struct {
	Keys          apimw.Keys
	PushPerMinute int
	PushBurst     int
}

type Server struct {
	Logger     *zap.Logger
	Store      Store
	KV         kv.Store
	Aggregator Aggregator
	now        func() time.Time
}

func NewServer(l *zap.Logger, store Store, heartbeats kv.Store, agg Aggregator) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Store: store, KV: heartbeats, Aggregator: agg, now: time.Now}
}

func (s *Server) Router(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(opts.PushPerMinute, opts.PushBurst))
			r.Use(apimw.RequireAny(opts.Keys))
			r.Post("/heartbeat/{monitorID}", s.handleHeartbeat)
			r.Get("/heartbeat/{monitorID}", s.handleHeartbeat)
		})

		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAny(opts.Keys))
			r.Get("/monitors", s.handleListMonitors)
			r.Get("/monitors/{monitorID}", s.handleGetMonitor)
			r.Get("/monitors/{monitorID}/checks/latest", s.handleLatestCheck)
			r.Get("/monitors/{monitorID}/stats", s.handleStats)
			r.Get("/monitors/{monitorID}/incidents", s.handleIncidents)
		})

		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAdmin(opts.Keys))
			r.Post("/aggregate", s.handleAggregate)
		})
	})

	return r
}

// handleHeartbeat records a push for a heartbeat monitor. Any other kind is
// reported as not found so push URLs cannot probe the monitor list.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monitor(w, r)
	if !ok {
		return
	}
	if m.Kind != domain.KindHeartbeat {
		writeError(w, http.StatusNotFound, "heartbeat monitor not found")
		return
	}
	if s.KV == nil {
		writeError(w, http.StatusServiceUnavailable, "heartbeat store not configured")
		return
	}

	at := s.now().UTC()
	if err := kv.RecordHeartbeat(r.Context(), s.KV, m.ID, at); err != nil {
		s.Logger.Warn("heartbeat_record_error", zap.String("monitor_id", string(m.ID)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not record heartbeat")
		return
	}
	s.Logger.Debug("heartbeat_received", zap.String("monitor_id", string(m.ID)))
	writeJSON(w, http.StatusOK, map[string]any{"monitor_id": m.ID, "received_at": at})
}

func (s *Server) handleListMonitors(w http.ResponseWriter, r *http.Request) {
	ms, err := s.Store.ListActiveMonitors(r.Context())
	if err != nil {
		s.Logger.Warn("list_monitors_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	out := make([]domain.Monitor, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Redacted())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMonitor(w http.ResponseWriter, r *http.Request) {
	if m, ok := s.monitor(w, r); ok {
		writeJSON(w, http.StatusOK, m.Redacted())
	}
}

func (s *Server) handleLatestCheck(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monitor(w, r)
	if !ok {
		return
	}
	c, err := s.Store.LatestCheck(r.Context(), m.ID)
	if err != nil {
		s.Logger.Warn("latest_check_error", zap.String("monitor_id", string(m.ID)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "read error")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "no checks yet")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type statsResponse struct {
	MonitorID domain.MonitorID      `json:"monitor_id"`
	Days      int                   `json:"days"`
	Summary   domain.MonitorSummary `json:"summary"`
	Stats     []domain.DailyStat    `json:"stats"`
}

// handleStats returns the last N UTC days, today included.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", defaultStatsDays, 1, maxStatsDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, ok := s.monitor(w, r)
	if !ok {
		return
	}

	to := domain.Day(s.now()).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)
	rows, err := s.Store.DailyStats(r.Context(), m.ID, from, to)
	if err != nil {
		s.Logger.Warn("daily_stats_error", zap.String("monitor_id", string(m.ID)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "read error")
		return
	}
	if rows == nil {
		rows = []domain.DailyStat{}
	}
	writeJSON(w, http.StatusOK, statsResponse{MonitorID: m.ID, Days: days, Summary: m.Summary, Stats: rows})
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultIncidentsLimit, 1, 500)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, ok := s.monitor(w, r)
	if !ok {
		return
	}
	incs, err := s.Store.ListIncidents(r.Context(), m.ID, limit)
	if err != nil {
		s.Logger.Warn("list_incidents_error", zap.String("monitor_id", string(m.ID)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "read error")
		return
	}
	writeJSON(w, http.StatusOK, incs)
}

// handleAggregate runs the daily rollup for ?date= (default yesterday, UTC).
// force=1 rebuilds a day that was already aggregated.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	if s.Aggregator == nil {
		writeError(w, http.StatusServiceUnavailable, "aggregation not configured")
		return
	}
	date := domain.Day(s.now()).AddDate(0, 0, -1)
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	if err := s.Aggregator.AggregateDaily(r.Context(), date, force); err != nil {
		s.Logger.Warn("aggregate_error", zap.String("date", date.Format(time.DateOnly)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.Logger.Info("aggregate_requested", zap.String("date", date.Format(time.DateOnly)), zap.Bool("force", force))
	writeJSON(w, http.StatusOK, map[string]any{"date": date.Format(time.DateOnly), "force": force})
}

// monitor loads {monitorID}, writing 404/500 itself when it cannot.
func (s *Server) monitor(w http.ResponseWriter, r *http.Request) (domain.Monitor, bool) {
	id := domain.MonitorID(chi.URLParam(r, "monitorID"))
	m, err := s.Store.GetMonitor(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "monitor not found")
		return domain.Monitor{}, false
	}
	if err != nil {
		s.Logger.Warn("get_monitor_error", zap.String("monitor_id", string(id)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "read error")
		return domain.Monitor{}, false
	}
	return m, true
}

func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
