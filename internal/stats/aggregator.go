package stats

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimecore/internal/domain"
	"github.com/hamed0406/uptimecore/internal/metrics"
)

const DefaultRetention = 365 * 24 * time.Hour

type Store interface {
	ListActiveMonitors(ctx context.Context) ([]domain.Monitor, error)
	UpdateMonitorSummary(ctx context.Context, id domain.MonitorID, s domain.MonitorSummary) error
	ChecksBetween(ctx context.Context, id domain.MonitorID, from, to time.Time) ([]domain.CheckResult, error)
	ReplaceDailyStat(ctx context.Context, s domain.DailyStat) error
	HasDailyStats(ctx context.Context, day time.Time) (bool, error)
	DailyStats(ctx context.Context, id domain.MonitorID, from, to time.Time) ([]domain.DailyStat, error)
	PurgeChecksBefore(ctx context.Context, t time.Time) (int64, error)
	PurgeDailyStatsBefore(ctx context.Context, day time.Time) (int64, error)
	PurgeAlertLogsBefore(ctx context.Context, t time.Time) (int64, error)
}

type Aggregator struct {
	store     Store
	retention time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewAggregator(store Store, retention time.Duration, log *zap.Logger) *Aggregator {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{store: store, retention: retention, log: log, now: time.Now}
}

// AggregateDaily rebuilds every active monitor's row for the UTC day of
// date. When the day was already aggregated and force is false it does
// nothing.
// A failing monitor does not stop the others; all failures are returned
// together.
func (a *Aggregator) AggregateDaily(ctx context.Context, date time.Time, force bool) error {
	day := domain.Day(date)
	log := a.log.With(zap.String("date", day.Format(time.DateOnly)))

	if !force {
		done, err := a.store.HasDailyStats(ctx, day)
		if err != nil {
			metrics.AggregationsTotal.WithLabelValues("failed").Inc()
			return fmt.Errorf("check existing stats: %w", err)
		}
		if done {
			log.Info("aggregate_skipped_existing")
			metrics.AggregationsTotal.WithLabelValues("skipped").Inc()
			return nil
		}
	}

	monitors, err := a.store.ListActiveMonitors(ctx)
	if err != nil {
		metrics.AggregationsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("list monitors: %w", err)
	}

	var errs error
	rolled := 0
	for _, m := range monitors {
		if err := a.aggregateMonitor(ctx, m.ID, day); err != nil {
			log.Error("aggregate_monitor_failed", zap.String("monitor_id", string(m.ID)), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		rolled++
	}

	errs = multierr.Append(errs, a.purge(ctx, log))

	result := "done"
	if errs != nil {
		result = "failed"
	}
	metrics.AggregationsTotal.WithLabelValues(result).Inc()
	log.Info("aggregate_finished", zap.Int("monitors", rolled), zap.Int("errors", len(multierr.Errors(errs))))
	return errs
}

func (a *Aggregator) aggregateMonitor(ctx context.Context, id domain.MonitorID, day time.Time) error {
	checks, err := a.store.ChecksBetween(ctx, id, day, day.AddDate(0, 0, 1))
	if err != nil {
		return &domain.PersistenceError{Op: "checks_between", MonitorID: id, Err: err}
	}
	st := Rollup(id, day, checks)
	at := a.now().UTC()
	st.AggregatedAt = &at
	if err := a.store.ReplaceDailyStat(ctx, st); err != nil {
		return &domain.PersistenceError{Op: "replace_daily_stat", MonitorID: id, Err: err}
	}

	rows, err := a.store.DailyStats(ctx, id, day.AddDate(0, 0, -29), day.AddDate(0, 0, 1))
	if err != nil {
		return &domain.PersistenceError{Op: "daily_stats", MonitorID: id, Err: err}
	}
	sum := Summarize(rows, day)
	sum.UpdatedAt = &at
	if err := a.store.UpdateMonitorSummary(ctx, id, sum); err != nil {
		return &domain.PersistenceError{Op: "update_monitor_summary", MonitorID: id, Err: err}
	}
	return nil
}

func (a *Aggregator) purge(ctx context.Context, log *zap.Logger) error {
	cutoff := a.now().UTC().Add(-a.retention)
	var errs error

	checks, err := a.store.PurgeChecksBefore(ctx, cutoff)
	errs = multierr.Append(errs, wrapPurge("checks", err))
	days, err := a.store.PurgeDailyStatsBefore(ctx, domain.Day(cutoff))
	errs = multierr.Append(errs, wrapPurge("daily_stats", err))
	logs, err := a.store.PurgeAlertLogsBefore(ctx, cutoff)
	errs = multierr.Append(errs, wrapPurge("alert_logs", err))

	log.Info("retention_purged",
		zap.Time("cutoff", cutoff),
		zap.Int64("checks", checks),
		zap.Int64("daily_stats", days),
		zap.Int64("alert_logs", logs),
	)
	return errs
}

func wrapPurge(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("purge %s: %w", what, err)
}
