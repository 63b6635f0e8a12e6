package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultAggregateSpec = "10 0 * * *"

type Aggregator interface {
	AggregateDaily(ctx context.Context, date time.Time, force bool) error
}

// Sweeper drops expired entries from a KV that cannot expire them itself.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Nightly aggregates the previous UTC day on a cron schedule.
type Nightly struct {
	agg     Aggregator
	sweeper Sweeper
	log     *zap.Logger
	now     func() time.Time
	cron    *cron.Cron
}

// NewNightly validates spec (standard five-field cron, UTC). sweeper may be
// nil.
func NewNightly(spec string, agg Aggregator, sweeper Sweeper, log *zap.Logger) (*Nightly, error) {
	if spec == "" {
		spec = DefaultAggregateSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse aggregate schedule %q: %w", spec, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	n := &Nightly{
		agg:     agg,
		sweeper: sweeper,
		log:     log,
		now:     time.Now,
		cron:    cron.New(cron.WithLocation(time.UTC)),
	}
	if _, err := n.cron.AddFunc(spec, func() { n.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule aggregation: %w", err)
	}
	return n, nil
}

func (n *Nightly) Start() { n.cron.Start() }

// Stop halts the schedule and waits for a running job to finish or ctx to
// expire.
func (n *Nightly) Stop(ctx context.Context) {
	done := n.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce aggregates yesterday and sweeps the KV.
func (n *Nightly) RunOnce(ctx context.Context) {
	day := n.now().UTC().AddDate(0, 0, -1)
	log := n.log.With(zap.String("date", day.Format(time.DateOnly)))

	if err := n.agg.AggregateDaily(ctx, day, false); err != nil {
		log.Warn("nightly_aggregate_error", zap.Error(err))
	} else {
		log.Info("nightly_aggregate_done")
	}

	if n.sweeper == nil {
		return
	}
	dropped, err := n.sweeper.Sweep(ctx)
	if err != nil {
		log.Warn("nightly_kv_sweep_error", zap.Error(err))
		return
	}
	log.Debug("nightly_kv_swept", zap.Int64("dropped", dropped))
}
