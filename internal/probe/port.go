package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// PortProbe opens a TCP connection and closes it immediately.
type PortProbe struct{}

func (PortProbe) Validate(m domain.Monitor) error {
	if err := validateHost(m); err != nil {
		return err
	}
	if m.Port == 0 {
		return invalid(m, "port", errRequired)
	}
	return nil
}

func (PortProbe) Execute(ctx context.Context, m domain.Monitor, t Transport) domain.CheckResult {
	start := time.Now()
	if err := t.Connect(ctx, m.Hostname, m.Port); err != nil {
		if isTimeout(ctx, err) {
			return down("connection failed: timed out")
		}
		return down(fmt.Sprintf("connection failed: %v", err))
	}
	return domain.CheckResult{Status: domain.StatusUp, ResponseTimeMS: domain.IntPtr(elapsedMS(start))}
}
