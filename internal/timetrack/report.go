// Package timetrack aggregates Toggl time entries for display. Entries
// never become tasks.
package timetrack

import (
	"fmt"
	"sort"
	"time"

	"github.com/dori/phitodo/internal/model"
)

// NoProject labels entries without a Toggl project.
const NoProject = "No Project"

// Report is a snapshot of the time entries fetched in one refresh.
type Report struct {
	Entries   []model.TimeEntry
	FetchedAt time.Time
}

// ProjectTotal is the time spent on one project.
type ProjectTotal struct {
	Project  string
	Duration time.Duration
}

// Day groups the entries that started on one calendar day.
type Day struct {
	Date    time.Time
	Entries []model.TimeEntry
	Total   time.Duration
}

// NewReport collects the time entries among items. Items of other sources
// are ignored.
func NewReport(items []model.ExternalItem, fetchedAt time.Time) *Report {
	r := &Report{FetchedAt: fetchedAt}
	for _, item := range items {
		if p, ok := item.Payload.(model.TimeEntryPayload); ok {
			r.Entries = append(r.Entries, p.Entry)
		}
	}
	return r
}

// Total returns the time across all entries.
func (r *Report) Total() time.Duration {
	var total time.Duration
	for i := range r.Entries {
		total += r.duration(&r.Entries[i])
	}
	return total
}

// DurationForDate returns the time logged on the given day.
func (r *Report) DurationForDate(day time.Time) time.Duration {
	want := model.Day(day)
	var total time.Duration
	for i := range r.Entries {
		if r.Entries[i].Day().Equal(want) {
			total += r.duration(&r.Entries[i])
		}
	}
	return total
}

// DurationByProject returns per-project totals, largest first. Ties keep
// alphabetical order.
func (r *Report) DurationByProject() []ProjectTotal {
	totals := make(map[string]time.Duration)
	for i := range r.Entries {
		name := r.Entries[i].Project
		if name == "" {
			name = NoProject
		}
		totals[name] += r.duration(&r.Entries[i])
	}

	out := make([]ProjectTotal, 0, len(totals))
	for name, d := range totals {
		out = append(out, ProjectTotal{Project: name, Duration: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Duration != out[j].Duration {
			return out[i].Duration > out[j].Duration
		}
		return out[i].Project < out[j].Project
	})
	return out
}

// EntriesByDate groups entries per day, most recent day first. Within a
// day entries are ordered by start time, latest first.
func (r *Report) EntriesByDate() []Day {
	byDay := make(map[time.Time]*Day)
	for _, e := range r.Entries {
		key := e.Day()
		d, ok := byDay[key]
		if !ok {
			d = &Day{Date: key}
			byDay[key] = d
		}
		d.Entries = append(d.Entries, e)
		d.Total += r.duration(&e)
	}

	days := make([]Day, 0, len(byDay))
	for _, d := range byDay {
		sort.Slice(d.Entries, func(i, j int) bool {
			return d.Entries[i].StartedAt.After(d.Entries[j].StartedAt)
		})
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})
	return days
}

// LastDays returns one Day per calendar day ending at today, oldest first,
// including days with nothing logged. Used for the bar chart.
func (r *Report) LastDays(today time.Time, n int) []Day {
	out := make([]Day, n)
	end := model.Day(today)
	for i := 0; i < n; i++ {
		date := end.AddDate(0, 0, i-n+1)
		out[i] = Day{Date: date, Total: r.DurationForDate(date)}
	}
	return out
}

func (r *Report) duration(e *model.TimeEntry) time.Duration {
	return e.CalculatedDuration(r.FetchedAt)
}

// FormatClock renders d as HH:MM:SS.
func FormatClock(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// FormatShort renders d as "2h 30m", or "45m" under an hour.
func FormatShort(d time.Duration) string {
	secs := int64(d / time.Second)
	hours, minutes := secs/3600, (secs%3600)/60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatHours renders d as hours with one decimal, e.g. "2.5h".
func FormatHours(d time.Duration) string {
	return fmt.Sprintf("%.1fh", d.Hours())
}
