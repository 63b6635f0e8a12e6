package domain

import "time"

type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
	StatusUnknown Status = "unknown"
)

// IsDown reports whether s belongs to the logical DOWN state.
func (s Status) IsDown() bool {
	return s == StatusDown || s == StatusTimeout || s == StatusError
}

// CheckResult is one probe outcome. It is created once and never mutated
// after it has been recorded.
type CheckResult struct {
	ID               int64     `json:"id"`
	MonitorID        MonitorID `json:"monitor_id"`
	Status           Status    `json:"status"`
	ResponseTimeMS   *int      `json:"response_time_ms"` // nil when the probe never got a response
	StatusCode       *int      `json:"status_code"`      // nil for non-HTTP probes and transport errors
	ErrorMessage     *string   `json:"error_message"`
	CheckedAt        time.Time `json:"checked_at"`
	Region           string    `json:"region"`
	TLSDaysRemaining *int      `json:"tls_days_remaining,omitempty"`
	KeywordFound     *bool     `json:"keyword_found,omitempty"`
}

// Message returns the error message or "".
func (r CheckResult) Message() string {
	if r.ErrorMessage == nil {
		return ""
	}
	return *r.ErrorMessage
}

func IntPtr(v int) *int           { return &v }
func StrPtr(v string) *string     { return &v }
func BoolPtr(v bool) *bool        { return &v }
func FloatPtr(v float64) *float64 { return &v }
