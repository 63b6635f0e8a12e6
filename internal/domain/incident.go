package domain

import "time"

type IncidentStatus string

const (
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentIdentified    IncidentStatus = "identified"
	IncidentMonitoring    IncidentStatus = "monitoring"
	IncidentResolved      IncidentStatus = "resolved"
)

// Incident is a maximal span during which a monitor is not up.
// At most one incident per monitor has a nil ResolvedAt.
type Incident struct {
	ID              string         `json:"id"`
	MonitorID       MonitorID      `json:"monitor_id"`
	Status          IncidentStatus `json:"status"`
	StartedAt       time.Time      `json:"started_at"`
	ResolvedAt      *time.Time     `json:"resolved_at"`
	DurationSeconds *int64         `json:"duration_seconds"`
	Cause           string         `json:"cause"`
}

func (i Incident) Open() bool { return i.ResolvedAt == nil }

// Resolve closes the incident at t.
func (i *Incident) Resolve(t time.Time) {
	d := int64(t.Sub(i.StartedAt).Seconds())
	if d < 0 {
		d = 0
	}
	i.ResolvedAt = &t
	i.DurationSeconds = &d
	i.Status = IncidentResolved
}
