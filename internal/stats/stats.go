// Package stats rebuilds daily rollups from raw checks, refreshes the
// rolling monitor summary and enforces retention.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// Downtime is the result of sweeping one day of checks in time order.
type Downtime struct {
	Incidents int
	Duration  time.Duration
}

// SweepDowntime walks checks (sorted by checked_at) once. A down run opens
// on its first down check and closes on the next up check; a run still open
// at the end is charged up to the last observed check.
func SweepDowntime(checks []domain.CheckResult) Downtime {
	var (
		out     Downtime
		inRun   bool
		runFrom time.Time
	)
	for _, c := range checks {
		down := c.Status.IsDown()
		switch {
		case down && !inRun:
			inRun = true
			runFrom = c.CheckedAt
			out.Incidents++
		case !down && inRun:
			inRun = false
			out.Duration += c.CheckedAt.Sub(runFrom)
		}
	}
	if inRun && len(checks) > 0 {
		out.Duration += checks[len(checks)-1].CheckedAt.Sub(runFrom)
	}
	return out
}

// Percentile returns the nearest-rank p-th percentile of sorted values.
func Percentile(sorted []int, p float64) int {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// Rollup computes the full DailyStat for one monitor and day.
func Rollup(id domain.MonitorID, day time.Time, checks []domain.CheckResult) domain.DailyStat {
	st := domain.DailyStat{MonitorID: id, Date: domain.Day(day), TotalChecks: len(checks)}

	var samples []int
	for _, c := range checks {
		if c.Status == domain.StatusUp {
			st.SuccessfulChecks++
			if c.ResponseTimeMS != nil {
				samples = append(samples, *c.ResponseTimeMS)
			}
		} else {
			st.DownChecks++
		}
	}
	st.UptimePercentage = domain.Uptime(st.SuccessfulChecks, st.TotalChecks)

	if len(samples) > 0 {
		sort.Ints(samples)
		sum := 0
		for _, v := range samples {
			sum += v
		}
		avg := domain.Round2(float64(sum) / float64(len(samples)))
		st.AvgResponseTime = &avg
		st.MinResponseTime = domain.IntPtr(samples[0])
		st.MaxResponseTime = domain.IntPtr(samples[len(samples)-1])
		st.ResponseSamples = len(samples)
		st.P50ResponseTime = domain.IntPtr(Percentile(samples, 50))
		st.P95ResponseTime = domain.IntPtr(Percentile(samples, 95))
		st.P99ResponseTime = domain.IntPtr(Percentile(samples, 99))
	}

	dt := SweepDowntime(checks)
	st.DowntimeIncidents = dt.Incidents
	st.DowntimeDuration = domain.Round2(dt.Duration.Minutes())
	return st
}

// Summarize derives the rolling figures from day rows ending at day
// (inclusive). Windows without rows are left nil.
func Summarize(rows []domain.DailyStat, day time.Time) domain.MonitorSummary {
	day = domain.Day(day)
	from7 := day.AddDate(0, 0, -6)
	var (
		sum7, sum30 float64
		n7, n30     int
		rtSum       float64
		rtN         int
	)
	for _, r := range rows {
		d := domain.Day(r.Date)
		if d.After(day) || d.Before(day.AddDate(0, 0, -29)) {
			continue
		}
		sum30 += r.UptimePercentage
		n30++
		if !d.Before(from7) {
			sum7 += r.UptimePercentage
			n7++
		}
		if r.AvgResponseTime != nil {
			rtSum += *r.AvgResponseTime
			rtN++
		}
	}
	var s domain.MonitorSummary
	if n7 > 0 {
		s.Uptime7d = domain.FloatPtr(domain.Round2(sum7 / float64(n7)))
	}
	if n30 > 0 {
		s.Uptime30d = domain.FloatPtr(domain.Round2(sum30 / float64(n30)))
	}
	if rtN > 0 {
		s.AvgResponseTime30d = domain.FloatPtr(domain.Round2(rtSum / float64(rtN)))
	}
	return s
}
