// Package recorder persists probe results and folds them into the daily
// rollup.
package recorder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimecore/internal/domain"
	"github.com/hamed0406/uptimecore/internal/metrics"
	"github.com/hamed0406/uptimecore/internal/repo"
)

// Store is what the recorder needs from the Datastore.
type Store interface {
	InsertCheck(ctx context.Context, r *domain.CheckResult) error
	UpsertDailyStat(ctx context.Context, id domain.MonitorID, day time.Time, d domain.StatDelta) error
}

var _ Store = repo.Datastore(nil)

type Recorder struct {
	store Store
	log   *zap.Logger
}

func New(store Store, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: store, log: log}
}

// Record inserts r (assigning r.ID) and then updates the day row. Failures
// are logged and returned as *domain.PersistenceError; the caller decides
// whether to keep going.
func (rc *Recorder) Record(ctx context.Context, r *domain.CheckResult) error {
	if err := rc.store.InsertCheck(ctx, r); err != nil {
		return rc.fail("insert_check", r.MonitorID, err)
	}
	d := domain.StatDelta{Up: r.Status == domain.StatusUp, ResponseTimeMS: r.ResponseTimeMS}
	if err := rc.store.UpsertDailyStat(ctx, r.MonitorID, r.CheckedAt, d); err != nil {
		return rc.fail("upsert_daily_stat", r.MonitorID, err)
	}
	return nil
}

func (rc *Recorder) fail(op string, id domain.MonitorID, err error) error {
	metrics.PersistenceErrorsTotal.WithLabelValues(op).Inc()
	rc.log.Error("record_failed",
		zap.String("op", op),
		zap.String("monitor_id", string(id)),
		zap.Error(err),
	)
	return &domain.PersistenceError{Op: op, MonitorID: id, Err: err}
}
