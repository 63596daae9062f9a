package model

import (
	"time"
)

// TimeEntry is a Toggl time entry as shown in the time-tracking view.
type TimeEntry struct {
	ID          string        `json:"id"`
	Description string        `json:"description,omitempty"`
	Project     string        `json:"project,omitempty"`
	Workspace   string        `json:"workspace,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// CalculatedDuration returns the recorded duration, or the elapsed time
// since start for a running entry.
func (te *TimeEntry) CalculatedDuration(now time.Time) time.Duration {
	if te.Duration > 0 || !te.IsRunning() {
		return te.Duration
	}
	return now.Sub(te.StartedAt)
}

// IsRunning returns true if this time entry is still active
func (te *TimeEntry) IsRunning() bool {
	return te.EndedAt == nil
}

// Day returns the calendar day the entry started on.
func (te *TimeEntry) Day() time.Time {
	return Day(te.StartedAt)
}
