package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hamed0406/uptimecore/internal/domain"
	"github.com/hamed0406/uptimecore/internal/kv"
	"github.com/hamed0406/uptimecore/internal/metrics"
)

const defaultDedupTTL = time.Hour

type Store interface {
	ListActiveContacts(ctx context.Context, id domain.MonitorID) ([]domain.Contact, error)
	InsertAlertLog(ctx context.Context, l *domain.AlertLog) error
	LatestCheck(ctx context.Context, id domain.MonitorID) (*domain.CheckResult, error)
}

type DispatcherConfig struct {
	Store    Store
	KV       kv.Store // optional; enables dedup markers
	Channels []Channel
	// PerMinute caps deliveries per contact. Zero disables the limit.
	PerMinute int
	DedupTTL  time.Duration
	Logger    *zap.Logger
	Now       func() time.Time
}

// Dispatcher fans a transition out to the monitor's contacts. Each contact
// is delivered independently and leaves one AlertLog row.
type Dispatcher struct {
	store     Store
	kv        kv.Store
	channels  map[domain.ContactType]Channel
	perMinute int
	dedupTTL  time.Duration
	log       *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	pending sync.WaitGroup
	stop    chan struct{}
	once    sync.Once
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = defaultDedupTTL
	}
	d := &Dispatcher{
		store:     cfg.Store,
		kv:        cfg.KV,
		channels:  make(map[domain.ContactType]Channel, len(cfg.Channels)),
		perMinute: cfg.PerMinute,
		dedupTTL:  cfg.DedupTTL,
		log:       cfg.Logger,
		now:       cfg.Now,
		limiters:  make(map[string]*rate.Limiter),
		stop:      make(chan struct{}),
	}
	for _, ch := range cfg.Channels {
		d.channels[ch.Type()] = ch
	}
	return d
}

// Eligible reports whether c wants to hear about a move from previous to
// current.
func Eligible(c domain.Contact, current, previous domain.Status) bool {
	if current != domain.StatusUp {
		return c.NotifyOnDown
	}
	return c.NotifyOnUp && previous != domain.StatusUp
}

// Dispatch notifies every eligible contact about r. A transition already
// marked in the KV for r.ID is skipped. Delivery failures are logged,
// recorded and returned together as *domain.DeliveryError values.
func (d *Dispatcher) Dispatch(ctx context.Context, m domain.Monitor, current, previous domain.Status, r domain.CheckResult) error {
	if !d.mark(ctx, m.ID, r.ID) {
		d.log.Debug("notify_already_sent", zap.String("monitor_id", string(m.ID)), zap.Int64("check_id", r.ID))
		return nil
	}

	contacts, err := d.store.ListActiveContacts(ctx, m.ID)
	if err != nil {
		d.unmark(ctx, m.ID, r.ID)
		return fmt.Errorf("list contacts for %s: %w", m.ID, err)
	}

	var errs error
	for _, c := range contacts {
		if !Eligible(c, current, previous) {
			continue
		}
		ev := domain.NotificationEvent{
			MonitorID:      m.ID,
			MonitorName:    m.Name,
			MonitorURL:     monitorTarget(m),
			ContactID:      c.ID,
			Status:         current,
			PreviousStatus: previous,
			Delay:          time.Duration(c.DelaySeconds) * time.Second,
			ResponseTimeMS: r.ResponseTimeMS,
			Error:          r.Message(),
			Timestamp:      d.now().UTC(),
		}
		if ev.Delay > 0 {
			d.deferSend(ctx, c, ev)
			continue
		}
		errs = multierr.Append(errs, d.deliver(ctx, c, ev))
	}
	return errs
}

// mark writes the dedup marker and reports whether this caller owns the
// notification. Without a KV, or for unsaved checks, it always does.
func (d *Dispatcher) mark(ctx context.Context, id domain.MonitorID, checkID int64) bool {
	if d.kv == nil || checkID == 0 {
		return true
	}
	ok, err := d.kv.PutIfAbsent(ctx, kv.NotifiedKey(id, checkID), d.now().UTC().Format(time.RFC3339), d.dedupTTL)
	if err != nil {
		d.log.Warn("notify_mark_failed", zap.String("monitor_id", string(id)), zap.Error(err))
		return true
	}
	return ok
}

// unmark drops the marker so a later Dispatch for the same check, usually
// from the backstop, can still deliver.
func (d *Dispatcher) unmark(ctx context.Context, id domain.MonitorID, checkID int64) {
	if d.kv == nil || checkID == 0 {
		return
	}
	if err := d.kv.Delete(context.WithoutCancel(ctx), kv.NotifiedKey(id, checkID)); err != nil {
		d.log.Warn("notify_unmark_failed", zap.String("monitor_id", string(id)), zap.Error(err))
	}
}

// deferSend sends ev after its delay, provided the monitor is still in the same
// logical state by then.
func (d *Dispatcher) deferSend(ctx context.Context, c domain.Contact, ev domain.NotificationEvent) {
	d.pending.Add(1)
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer d.pending.Done()
		t := time.NewTimer(ev.Delay)
		defer t.Stop()
		select {
		case <-d.stop:
			d.log.Info("notify_delay_cancelled", zap.String("monitor_id", string(ev.MonitorID)), zap.String("contact_id", c.ID))
			return
		case <-t.C:
		}

		latest, err := d.store.LatestCheck(ctx, ev.MonitorID)
		if err != nil {
			d.log.Warn("notify_delay_lookup_failed", zap.String("monitor_id", string(ev.MonitorID)), zap.Error(err))
		} else if latest != nil && latest.Status.IsDown() != ev.Status.IsDown() {
			d.log.Info("notify_delay_suppressed",
				zap.String("monitor_id", string(ev.MonitorID)),
				zap.String("contact_id", c.ID),
				zap.String("status", string(latest.Status)),
			)
			return
		}
		ev.Timestamp = d.now().UTC()
		_ = d.deliver(ctx, c, ev)
	}()
}

// Wait blocks until every delayed delivery has been sent or dropped.
func (d *Dispatcher) Wait() { d.pending.Wait() }

// Stop drops delayed deliveries that have not fired yet and waits for the
// rest.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
	d.pending.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, c domain.Contact, ev domain.NotificationEvent) error {
	msg := Render(ev)
	err := d.send(ctx, c, msg)

	entry := &domain.AlertLog{
		ContactID: c.ID,
		MonitorID: ev.MonitorID,
		Type:      c.Type,
		Status:    domain.AlertSent,
		Message:   msg.Title,
		CreatedAt: d.now().UTC(),
	}
	if err != nil {
		entry.Status = domain.AlertFailed
		entry.Message = err.Error()
	}
	metrics.NotificationsTotal.WithLabelValues(string(c.Type), string(entry.Status)).Inc()
	if lerr := d.store.InsertAlertLog(ctx, entry); lerr != nil {
		d.log.Error("alert_log_insert_failed", zap.String("contact_id", c.ID), zap.Error(lerr))
	}

	if err != nil {
		d.log.Warn("notify_delivery_failed",
			zap.String("monitor_id", string(ev.MonitorID)),
			zap.String("contact_id", c.ID),
			zap.String("channel", string(c.Type)),
			zap.Error(err),
		)
		return &domain.DeliveryError{ContactID: c.ID, Channel: c.Type, Err: err}
	}
	d.log.Info("notify_sent",
		zap.String("monitor_id", string(ev.MonitorID)),
		zap.String("contact_id", c.ID),
		zap.String("channel", string(c.Type)),
		zap.String("status", string(ev.Status)),
	)
	return nil
}

func (d *Dispatcher) send(ctx context.Context, c domain.Contact, msg Message) error {
	if !d.allow(c.ID) {
		return errRateLimited
	}
	ch, ok := d.channels[c.Type]
	if !ok {
		return fmt.Errorf("unsupported channel %q", c.Type)
	}
	return ch.Send(ctx, c, msg)
}

var errRateLimited = errors.New("rate limited")

func (d *Dispatcher) allow(contactID string) bool {
	if d.perMinute <= 0 {
		return true
	}
	d.mu.Lock()
	l, ok := d.limiters[contactID]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(d.perMinute)), d.perMinute)
		d.limiters[contactID] = l
	}
	d.mu.Unlock()
	return l.Allow()
}

func monitorTarget(m domain.Monitor) string {
	if m.URL != "" {
		return m.URL
	}
	if m.Hostname != "" && m.Port != 0 {
		return fmt.Sprintf("%s:%d", m.Hostname, m.Port)
	}
	return m.Hostname
}
