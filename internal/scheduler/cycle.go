// Package scheduler drives the probe engine: the periodic probe cycle, the
// notification backstop and the nightly aggregation job.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimecore/internal/domain"
	"github.com/hamed0406/uptimecore/internal/incident"
	"github.com/hamed0406/uptimecore/internal/kv"
	"github.com/hamed0406/uptimecore/internal/metrics"
)

const defaultLeaseGrace = 5 * time.Second

type Prober interface {
	Execute(ctx context.Context, m domain.Monitor) (domain.CheckResult, error)
}

type Recorder interface {
	Record(ctx context.Context, r *domain.CheckResult) error
}

type IncidentApplier interface {
	Apply(ctx context.Context, t incident.Transition, current domain.CheckResult) (*domain.Incident, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, m domain.Monitor, current, previous domain.Status, r domain.CheckResult) error
}

type CycleStore interface {
	ListDueMonitors(ctx context.Context, now time.Time) ([]domain.Monitor, error)
	LatestCheck(ctx context.Context, id domain.MonitorID) (*domain.CheckResult, error)
}

type CycleConfig struct {
	Store     CycleStore
	Prober    Prober
	Recorder  Recorder
	Incidents IncidentApplier
	Notifier  Notifier
	// Leaser is optional; without it only the in-process lease applies.
	Leaser *kv.Leaser

	Interval    time.Duration // 0 disables Run
	Concurrency int
	LeaseGrace  time.Duration
	Logger      *zap.Logger
	Now         func() time.Time
}

// CycleReport summarizes one pass over the due monitors.
type CycleReport struct {
	Due         int
	Checked     int
	Skipped     int
	Transitions int
	Errors      error
}

// CycleRunner runs the per-monitor pipeline (probe, record, detect,
// incident, notify) for every due monitor.
type CycleRunner struct {
	cfg CycleConfig
	log *zap.Logger

	mu    sync.Mutex
	inUse map[domain.MonitorID]bool
}

func NewCycleRunner(cfg CycleConfig) *CycleRunner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.LeaseGrace <= 0 {
		cfg.LeaseGrace = defaultLeaseGrace
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &CycleRunner{
		cfg:   cfg,
		log:   cfg.Logger,
		inUse: make(map[domain.MonitorID]bool),
	}
}

// Run does an immediate pass, then one per tick, until ctx is cancelled.
func (c *CycleRunner) Run(ctx context.Context) {
	if c.cfg.Interval == 0 {
		c.log.Info("cycle_disabled")
		return
	}
	t := time.NewTicker(c.cfg.Interval)
	defer t.Stop()

	c.RunOnce(ctx, c.cfg.Now())

	for {
		select {
		case <-ctx.Done():
			c.log.Info("cycle_stopped")
			return
		case <-t.C:
			c.RunOnce(ctx, c.cfg.Now())
		}
	}
}

// RunOnce checks every monitor due at now and waits for all of them to
// settle. One monitor's failure never stops the others.
func (c *CycleRunner) RunOnce(ctx context.Context, now time.Time) CycleReport {
	start := time.Now()
	defer func() { metrics.CycleDurationSeconds.Observe(time.Since(start).Seconds()) }()

	due, err := c.cfg.Store.ListDueMonitors(ctx, now)
	if err != nil {
		c.log.Warn("cycle_list_error", zap.Error(err))
		return CycleReport{Errors: err}
	}

	tl := &tally{r: CycleReport{Due: len(due)}}

	sem := make(chan struct{}, c.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, m := range due {
		sem <- struct{}{}
		wg.Add(1)
		go func(m domain.Monitor) {
			defer func() { <-sem }()
			defer wg.Done()
			c.runMonitor(ctx, m, tl)
		}(m)
	}
	wg.Wait()

	rep := tl.report()

	c.log.Debug("cycle_done",
		zap.Int("due", rep.Due),
		zap.Int("checked", rep.Checked),
		zap.Int("skipped", rep.Skipped),
		zap.Int("transitions", rep.Transitions),
	)
	return rep
}

func (c *CycleRunner) runMonitor(ctx context.Context, m domain.Monitor, tl *tally) {
	log := c.log.With(zap.String("monitor_id", string(m.ID)), zap.String("kind", string(m.Kind)))

	if !c.claim(m.ID) {
		log.Debug("cycle_monitor_busy")
		tl.add(func(r *CycleReport) { r.Skipped++ })
		return
	}
	defer c.release(m.ID)

	if c.cfg.Leaser != nil {
		release, ok, err := c.cfg.Leaser.Acquire(ctx, m.ID, m.Timeout()+c.cfg.LeaseGrace)
		switch {
		case err != nil:
			log.Warn("cycle_lease_error", zap.Error(err))
		case !ok:
			log.Debug("cycle_lease_held")
			tl.add(func(r *CycleReport) { r.Skipped++ })
			return
		default:
			defer release()
		}
	}

	previous, err := c.cfg.Store.LatestCheck(ctx, m.ID)
	if err != nil {
		log.Warn("cycle_previous_error", zap.Error(err))
		tl.fail(err)
		previous = nil
	}

	res, err := c.cfg.Prober.Execute(ctx, m)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			log.Warn("cycle_probe_validation_error", zap.String("field", verr.Field), zap.Error(err))
		} else {
			log.Warn("cycle_probe_error", zap.Error(err))
		}
		tl.fail(err)
		return
	}

	if err := c.cfg.Recorder.Record(ctx, &res); err != nil {
		tl.fail(err)
	}
	tl.add(func(r *CycleReport) { r.Checked++ })

	t := incident.Detect(previous, res)
	if t == incident.None {
		return
	}
	tl.add(func(r *CycleReport) { r.Transitions++ })
	log.Info("cycle_transition",
		zap.String("direction", string(t)),
		zap.String("status", string(res.Status)),
	)

	if c.cfg.Incidents != nil {
		if _, err := c.cfg.Incidents.Apply(ctx, t, res); err != nil {
			log.Warn("cycle_incident_error", zap.Error(err))
			tl.fail(err)
		}
	}

	if c.cfg.Notifier != nil {
		prev := domain.StatusUnknown
		if previous != nil {
			prev = previous.Status
		}
		if err := c.cfg.Notifier.Dispatch(ctx, m, res.Status, prev, res); err != nil {
			log.Warn("cycle_notify_error", zap.Error(err))
			tl.fail(err)
		}
	}
}

func (c *CycleRunner) claim(id domain.MonitorID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inUse[id] {
		return false
	}
	c.inUse[id] = true
	return true
}

func (c *CycleRunner) release(id domain.MonitorID) {
	c.mu.Lock()
	delete(c.inUse, id)
	c.mu.Unlock()
}

// tally collects one pass's report across its goroutines.
type tally struct {
	mu sync.Mutex
	r  CycleReport
}

func (t *tally) add(f func(*CycleReport)) {
	t.mu.Lock()
	f(&t.r)
	t.mu.Unlock()
}

func (t *tally) fail(err error) {
	t.add(func(r *CycleReport) { r.Errors = multierr.Append(r.Errors, err) })
}

func (t *tally) report() CycleReport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r
}
