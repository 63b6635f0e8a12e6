package domain

import (
	"strings"
	"time"
)

type MonitorID string

type Kind string

const (
	KindHTTP      Kind = "http"
	KindHTTPS     Kind = "https"
	KindPing      Kind = "ping"
	KindPort      Kind = "port"
	KindKeyword   Kind = "keyword"
	KindTLS       Kind = "tls"
	KindHeartbeat Kind = "heartbeat"
)

type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
)

type Auth struct {
	Type     AuthType `json:"type" yaml:"type"`
	Username string   `json:"username,omitempty" yaml:"username"`
	Password string   `json:"password,omitempty" yaml:"password"`
	Token    string   `json:"token,omitempty" yaml:"token"`
}

type KeywordType string

const (
	KeywordExists    KeywordType = "exists"
	KeywordNotExists KeywordType = "not_exists"
)

// Monitor is the per-check configuration snapshot of a monitored target.
// The probe engine treats it as read-only; LastCheckedAt, LastStatus and
// Summary are maintained by the Datastore.
type Monitor struct {
	ID   MonitorID `json:"id" yaml:"id"`
	Name string    `json:"name" yaml:"name"`
	Kind Kind      `json:"kind" yaml:"kind"`

	URL      string `json:"url,omitempty" yaml:"url"`
	Hostname string `json:"hostname,omitempty" yaml:"hostname"`
	Port     int    `json:"port,omitempty" yaml:"port"`

	Method  string            `json:"method,omitempty" yaml:"method"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers"`
	Body    string            `json:"body,omitempty" yaml:"body"`
	Auth    Auth              `json:"auth" yaml:"auth"`

	IntervalSeconds int `json:"interval_seconds" yaml:"interval_seconds"`
	TimeoutSeconds  int `json:"timeout_seconds" yaml:"timeout_seconds"`
	RetryCount      int `json:"retry_count" yaml:"retry_count"`

	ExpectedStatusCodes string      `json:"expected_status_codes,omitempty" yaml:"expected_status_codes"`
	Keyword             string      `json:"keyword,omitempty" yaml:"keyword"`
	KeywordType         KeywordType `json:"keyword_type,omitempty" yaml:"keyword_type"`
	FollowRedirects     bool        `json:"follow_redirects" yaml:"follow_redirects"`
	VerifyTLS           bool        `json:"verify_tls" yaml:"verify_tls"`

	Active        bool           `json:"active" yaml:"active"`
	LastCheckedAt *time.Time     `json:"last_checked_at,omitempty" yaml:"-"`
	LastStatus    Status         `json:"last_status,omitempty" yaml:"-"`
	Summary       MonitorSummary `json:"summary" yaml:"-"`
}

// Interval returns the check interval, defaulting to one minute.
func (m Monitor) Interval() time.Duration {
	if m.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(m.IntervalSeconds) * time.Second
}

// Timeout returns the probe bound, defaulting to 30s.
func (m Monitor) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Due reports whether at least one interval has elapsed since the last check.
func (m Monitor) Due(now time.Time) bool {
	if !m.Active {
		return false
	}
	if m.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*m.LastCheckedAt) >= m.Interval()
}

// Redacted masks auth secrets and credential-bearing headers. Monitors
// leaving the process through the API go through it.
func (m Monitor) Redacted() Monitor {
	if m.Auth.Password != "" {
		m.Auth.Password = redactedValue
	}
	if m.Auth.Token != "" {
		m.Auth.Token = redactedValue
	}
	if len(m.Headers) > 0 {
		h := make(map[string]string, len(m.Headers))
		for k, v := range m.Headers {
			if sensitiveHeader(k) {
				v = redactedValue
			}
			h[k] = v
		}
		m.Headers = h
	}
	return m
}

const redactedValue = "***"

func sensitiveHeader(name string) bool {
	n := strings.ToLower(name)
	switch n {
	case "authorization", "proxy-authorization", "cookie":
		return true
	}
	return strings.Contains(n, "token") || strings.Contains(n, "secret") ||
		strings.Contains(n, "key") || strings.Contains(n, "password")
}

// MonitorSummary holds the rolling figures written by the nightly aggregator.
type MonitorSummary struct {
	Uptime7d           *float64   `json:"uptime_7d,omitempty"`
	Uptime30d          *float64   `json:"uptime_30d,omitempty"`
	AvgResponseTime30d *float64   `json:"avg_response_time_30d,omitempty"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}
