package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

const defaultPingPort = 80

// PingProbe approximates ICMP reachability with an HTTP HEAD to
// http://hostname:port. Any response counts as up.
type PingProbe struct{}

func (PingProbe) Validate(m domain.Monitor) error { return validateHost(m) }

func (PingProbe) Execute(ctx context.Context, m domain.Monitor, t Transport) domain.CheckResult {
	port := m.Port
	if port == 0 {
		port = defaultPingPort
	}
	target := "http://" + net.JoinHostPort(m.Hostname, strconv.Itoa(port))

	start := time.Now()
	resp, err := t.Fetch(ctx, Request{Method: http.MethodHead, URL: target, VerifyTLS: true})
	if err != nil {
		if isTimeout(ctx, err) {
			return down("host unreachable: timed out")
		}
		return down(fmt.Sprintf("host unreachable: %v", err))
	}
	return domain.CheckResult{
		Status:         domain.StatusUp,
		ResponseTimeMS: domain.IntPtr(elapsedMS(start)),
		StatusCode:     domain.IntPtr(resp.StatusCode),
	}
}
