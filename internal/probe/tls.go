package probe

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// PlaceholderTLSDays is reported when no CertInspector is configured.
const PlaceholderTLSDays = 90

// CertInspector derives the days left on a certificate from a completed
// handshake. ok=false means it could not tell.
type CertInspector interface {
	DaysRemaining(state *tls.ConnectionState, now time.Time) (days int, ok bool)
}

// PeerCertInspector reads NotAfter from the leaf certificate.
type PeerCertInspector struct{}

func (PeerCertInspector) DaysRemaining(state *tls.ConnectionState, now time.Time) (int, bool) {
	if state == nil || len(state.PeerCertificates) == 0 {
		return 0, false
	}
	left := state.PeerCertificates[0].NotAfter.Sub(now)
	return int(math.Floor(left.Hours() / 24)), true
}

// TLSProbe checks that an HTTPS handshake and HEAD request complete.
type TLSProbe struct {
	Inspector CertInspector
	Now       func() time.Time
}

func (TLSProbe) Validate(m domain.Monitor) error {
	if m.URL != "" {
		return validateURL(m)
	}
	return validateHost(m)
}

func (p TLSProbe) Execute(ctx context.Context, m domain.Monitor, t Transport) domain.CheckResult {
	start := time.Now()
	resp, err := t.Fetch(ctx, Request{
		Method:          http.MethodHead,
		URL:             tlsTarget(m),
		FollowRedirects: m.FollowRedirects,
		VerifyTLS:       m.VerifyTLS,
	})
	if err != nil {
		return classify(ctx, err)
	}

	days := PlaceholderTLSDays
	if p.Inspector != nil {
		now := time.Now()
		if p.Now != nil {
			now = p.Now()
		}
		if d, ok := p.Inspector.DaysRemaining(resp.TLS, now); ok {
			days = d
		}
	}
	return domain.CheckResult{
		Status:           domain.StatusUp,
		ResponseTimeMS:   domain.IntPtr(elapsedMS(start)),
		StatusCode:       domain.IntPtr(resp.StatusCode),
		TLSDaysRemaining: domain.IntPtr(days),
	}
}

func tlsTarget(m domain.Monitor) string {
	if m.URL != "" {
		return m.URL
	}
	if m.Port != 0 && m.Port != 443 {
		return "https://" + net.JoinHostPort(m.Hostname, strconv.Itoa(m.Port))
	}
	return "https://" + m.Hostname
}
