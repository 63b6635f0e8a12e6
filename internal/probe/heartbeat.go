package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
	"github.com/hamed0406/uptimecore/internal/kv"
)

// HeartbeatProbe is passive: it compares the last pushed heartbeat with the
// monitor interval and never touches the network.
type HeartbeatProbe struct {
	KV  kv.Store
	Now func() time.Time
}

func (HeartbeatProbe) Validate(domain.Monitor) error { return nil }

func (p HeartbeatProbe) Execute(ctx context.Context, m domain.Monitor, _ Transport) domain.CheckResult {
	if p.KV == nil {
		return domain.CheckResult{Status: domain.StatusError, ErrorMessage: domain.StrPtr("heartbeat store not configured")}
	}
	last, ok, err := kv.LastHeartbeat(ctx, p.KV, m.ID)
	if err != nil {
		return domain.CheckResult{Status: domain.StatusError, ErrorMessage: domain.StrPtr(fmt.Sprintf("read heartbeat: %v", err))}
	}
	if !ok {
		return down("No heartbeat received")
	}

	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	since := now.Sub(last)
	if since <= 2*m.Interval() {
		return domain.CheckResult{Status: domain.StatusUp}
	}
	return down(fmt.Sprintf("No heartbeat for %s (expected every %s)", since.Truncate(time.Second), m.Interval()))
}
