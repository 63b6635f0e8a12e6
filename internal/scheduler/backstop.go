package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimecore/internal/domain"
	"github.com/hamed0406/uptimecore/internal/incident"
)

type BackstopStore interface {
	ListActiveMonitors(ctx context.Context) ([]domain.Monitor, error)
	LatestCheck(ctx context.Context, id domain.MonitorID) (*domain.CheckResult, error)
	PreviousCheck(ctx context.Context, id domain.MonitorID, beforeID int64) (*domain.CheckResult, error)
}

type BackstopConfig struct {
	// Window bounds how old a latest check may be and still be re-sent.
	Window       time.Duration
	PollInterval time.Duration
}

// Backstop re-dispatches recent transitions whose notification may have been
// lost. The dispatcher's dedup marker keeps it at-least-once rather than
// duplicating sends that already went out.
type Backstop struct {
	store    BackstopStore
	notifier Notifier
	cfg      BackstopConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewBackstop(store BackstopStore, notifier Notifier, cfg BackstopConfig, log *zap.Logger) *Backstop {
	if cfg.Window <= 0 {
		cfg.Window = 2 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Backstop{store: store, notifier: notifier, cfg: cfg, log: log, now: time.Now}
}

func (b *Backstop) Run(ctx context.Context) error {
	if b.cfg.PollInterval <= 0 {
		b.log.Info("backstop_disabled")
		return nil
	}
	t := time.NewTicker(b.cfg.PollInterval)
	defer t.Stop()

	// initial pass
	b.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			b.scan(ctx)
		}
	}
}

func (b *Backstop) scan(ctx context.Context) {
	n, err := b.ScanOnce(ctx)
	if err != nil {
		b.log.Warn("backstop_scan_error", zap.Error(err))
	}
	if n > 0 {
		b.log.Info("backstop_dispatched", zap.Int("count", n))
	}
}

// ScanOnce dispatches every recent transition and returns how many were
// handed to the notifier.
func (b *Backstop) ScanOnce(ctx context.Context) (int, error) {
	monitors, err := b.store.ListActiveMonitors(ctx)
	if err != nil {
		return 0, fmt.Errorf("list monitors: %w", err)
	}

	cutoff := b.now().Add(-b.cfg.Window)
	var (
		sent int
		errs error
	)
	for _, m := range monitors {
		latest, err := b.store.LatestCheck(ctx, m.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("latest check for %s: %w", m.ID, err))
			continue
		}
		if latest == nil || latest.CheckedAt.Before(cutoff) {
			continue
		}
		prev, err := b.store.PreviousCheck(ctx, m.ID, latest.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("previous check for %s: %w", m.ID, err))
			continue
		}
		if incident.Detect(prev, *latest) == incident.None {
			continue
		}

		prevStatus := domain.StatusUnknown
		if prev != nil {
			prevStatus = prev.Status
		}
		if err := b.notifier.Dispatch(ctx, m, latest.Status, prevStatus, *latest); err != nil {
			errs = multierr.Append(errs, err)
		}
		sent++
	}
	return sent, errs
}
