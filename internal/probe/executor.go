package probe

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimecore/internal/domain"
	"github.com/hamed0406/uptimecore/internal/kv"
	"github.com/hamed0406/uptimecore/internal/metrics"
)

const defaultRetryBackoff = 250 * time.Millisecond

type ExecutorConfig struct {
	Transport      Transport
	KV             kv.Store
	Region         string
	CertInspector  CertInspector
	DNSDiagnostics bool
	Resolver       Resolver
	RetryBackoff   time.Duration
	Logger         *zap.Logger
	Now            func() time.Time
}

// Executor dispatches a monitor to the Probe registered for its kind and
// stamps the result with time and region.
type Executor struct {
	probes    map[domain.Kind]Probe
	transport Transport
	region    string
	diagnose  bool
	resolver  Resolver
	backoff   time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Transport == nil {
		cfg.Transport = NewNetTransport()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	e := &Executor{
		transport: cfg.Transport,
		region:    cfg.Region,
		diagnose:  cfg.DNSDiagnostics,
		resolver:  cfg.Resolver,
		backoff:   cfg.RetryBackoff,
		log:       cfg.Logger,
		now:       cfg.Now,
	}
	e.probes = map[domain.Kind]Probe{
		domain.KindHTTP:      HTTPProbe{},
		domain.KindHTTPS:     HTTPProbe{},
		domain.KindKeyword:   KeywordProbe{},
		domain.KindPing:      PingProbe{},
		domain.KindPort:      PortProbe{},
		domain.KindTLS:       TLSProbe{Inspector: cfg.CertInspector, Now: cfg.Now},
		domain.KindHeartbeat: HeartbeatProbe{KV: cfg.KV, Now: cfg.Now},
	}
	return e
}

// Register replaces the probe used for kind.
func (e *Executor) Register(kind domain.Kind, p Probe) { e.probes[kind] = p }

// Execute runs one probe bounded by the monitor timeout. The only error it
// returns is a *domain.ValidationError; every runtime failure is reported
// in the CheckResult.
func (e *Executor) Execute(ctx context.Context, m domain.Monitor) (domain.CheckResult, error) {
	p, ok := e.probes[m.Kind]
	if !ok {
		return domain.CheckResult{}, invalid(m, "kind", fmt.Errorf("%w: %q", domain.ErrUnknownKind, m.Kind))
	}
	if err := p.Validate(m); err != nil {
		return domain.CheckResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.Timeout())
	defer cancel()

	start := time.Now()
	res := e.attempt(ctx, p, m)
	for i := 0; i < m.RetryCount && m.Kind != domain.KindHeartbeat && res.Status != domain.StatusUp; i++ {
		select {
		case <-ctx.Done():
		case <-time.After(e.backoff):
		}
		if ctx.Err() != nil {
			break
		}
		res = e.attempt(ctx, p, m)
		if res.Status == domain.StatusUp {
			break
		}
		if i == m.RetryCount-1 && res.ErrorMessage != nil {
			res.ErrorMessage = domain.StrPtr(*res.ErrorMessage + fmt.Sprintf(" (after %d retries)", m.RetryCount))
		}
	}

	if e.diagnose && ctx.Err() == nil && transportFailure(m, res) {
		if host := targetHost(m); host != "" {
			st := CheckDNS(ctx, e.resolver, host)
			res.ErrorMessage = domain.StrPtr(res.Message() + " dns=" + st.Class)
		}
	}

	res.MonitorID = m.ID
	res.CheckedAt = e.now().UTC()
	res.Region = e.region

	metrics.ProbesTotal.WithLabelValues(string(m.Kind), string(res.Status)).Inc()
	metrics.ProbeDurationSeconds.WithLabelValues(string(m.Kind)).Observe(time.Since(start).Seconds())
	return res, nil
}

// attempt shields the cycle from a panicking probe.
func (e *Executor) attempt(ctx context.Context, p Probe, m domain.Monitor) (res domain.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("probe_panic", zap.String("monitor_id", string(m.ID)), zap.Any("panic", r))
			res = domain.CheckResult{Status: domain.StatusError, ErrorMessage: domain.StrPtr(fmt.Sprintf("probe panic: %v", r))}
		}
	}()
	return p.Execute(ctx, m, e.transport)
}

// transportFailure is true for network kinds that failed before any HTTP
// status was received.
func transportFailure(m domain.Monitor, res domain.CheckResult) bool {
	if m.Kind == domain.KindHeartbeat || res.Status == domain.StatusUp {
		return false
	}
	return res.StatusCode == nil
}

func targetHost(m domain.Monitor) string {
	if m.Hostname != "" {
		return m.Hostname
	}
	u, err := url.Parse(m.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
