// Package probe executes one check against a monitor and turns every
// outcome, including transport failures and deadlines, into a CheckResult.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// Probe checks one monitor kind. Validate rejects configurations that can
// never be probed; Execute never fails and reports problems in the result.
type Probe interface {
	Validate(m domain.Monitor) error
	Execute(ctx context.Context, m domain.Monitor, t Transport) domain.CheckResult
}

func invalid(m domain.Monitor, field string, err error) error {
	return &domain.ValidationError{MonitorID: m.ID, Field: field, Err: err}
}

var errRequired = errors.New("required")

func validateURL(m domain.Monitor) error {
	if m.URL == "" {
		return invalid(m, "url", errRequired)
	}
	u, err := url.Parse(m.URL)
	if err != nil {
		return invalid(m, "url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid(m, "url", fmt.Errorf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return invalid(m, "url", errors.New("missing host"))
	}
	return nil
}

func validateHost(m domain.Monitor) error {
	if m.Hostname == "" {
		return invalid(m, "hostname", errRequired)
	}
	if m.Port < 0 || m.Port > 65535 {
		return invalid(m, "port", fmt.Errorf("%d out of range", m.Port))
	}
	return nil
}

func down(msg string) domain.CheckResult {
	return domain.CheckResult{Status: domain.StatusDown, ErrorMessage: domain.StrPtr(msg)}
}
