package domain

import (
	"math"
	"time"
)

// DailyStat is the per monitor, per UTC calendar day rollup.
type DailyStat struct {
	MonitorID         MonitorID `json:"monitor_id"`
	Date              time.Time `json:"date"`
	TotalChecks       int       `json:"total_checks"`
	SuccessfulChecks  int       `json:"successful_checks"`
	DownChecks        int       `json:"down_checks"`
	UptimePercentage  float64   `json:"uptime_percentage"`
	AvgResponseTime   *float64  `json:"avg_response_time"`
	MinResponseTime   *int      `json:"min_response_time"`
	MaxResponseTime   *int      `json:"max_response_time"`
	ResponseSamples   int       `json:"response_samples"`
	P50ResponseTime   *int      `json:"p50_response_time,omitempty"`
	P95ResponseTime   *int      `json:"p95_response_time,omitempty"`
	P99ResponseTime   *int      `json:"p99_response_time,omitempty"`
	DowntimeDuration  float64   `json:"downtime_duration"` // minutes
	DowntimeIncidents int       `json:"downtime_incidents"`
	// AggregatedAt is set once the nightly run has rebuilt the row from raw
	// checks; rows only touched by the recorder leave it nil.
	AggregatedAt *time.Time `json:"aggregated_at,omitempty"`
}

// StatDelta is the increment applied to a DailyStat for one recorded check.
type StatDelta struct {
	Up             bool
	ResponseTimeMS *int
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Uptime returns up/total*100 rounded to two decimals, 0 when total is 0.
func Uptime(up, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(up) / float64(total) * 100)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Apply folds d into s the way the incremental upsert does.
func (s *DailyStat) Apply(d StatDelta) {
	s.TotalChecks++
	if d.Up {
		s.SuccessfulChecks++
	} else {
		s.DownChecks++
	}
	s.UptimePercentage = Uptime(s.SuccessfulChecks, s.TotalChecks)
	if d.ResponseTimeMS == nil {
		return
	}
	rt := *d.ResponseTimeMS
	n := s.ResponseSamples + 1
	old := 0.0
	if s.AvgResponseTime != nil {
		old = *s.AvgResponseTime
	}
	avg := (old*float64(n-1) + float64(rt)) / float64(n)
	s.AvgResponseTime = &avg
	s.ResponseSamples = n
	if s.MinResponseTime == nil || rt < *s.MinResponseTime {
		s.MinResponseTime = IntPtr(rt)
	}
	if s.MaxResponseTime == nil || rt > *s.MaxResponseTime {
		s.MaxResponseTime = IntPtr(rt)
	}
}
