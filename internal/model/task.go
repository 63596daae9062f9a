package model

import (
	"slices"
	"time"
)

// Status represents the current state of a task
type Status string

const (
	StatusInbox     Status = "inbox"
	StatusActive    Status = "active"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusInbox, StatusActive, StatusScheduled, StatusCompleted:
		return true
	}
	return false
}

// Priority represents task priority level
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Weight returns a numeric weight for sorting by priority (High first).
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Next cycles None -> Low -> Medium -> High -> None.
func (p Priority) Next() Priority {
	switch p {
	case PriorityNone:
		return PriorityLow
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityNone
	}
}

// ParsePriority accepts the long names and the quick-add shorthands.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "none", "":
		return PriorityNone, true
	case "low", "l", "1":
		return PriorityLow, true
	case "medium", "med", "m", "2":
		return PriorityMedium, true
	case "high", "h", "3":
		return PriorityHigh, true
	}
	return PriorityNone, false
}

// Kind classifies a task. The gh:* kinds are only produced by sync.
type Kind string

const (
	KindTask         Kind = "task"
	KindBug          Kind = "bug"
	KindFeature      Kind = "feature"
	KindChore        Kind = "chore"
	KindGithubIssue  Kind = "gh:issue"
	KindGithubPR     Kind = "gh:pr"
	KindGithubReview Kind = "gh:review"
)

// IsGithub reports whether the kind belongs to a GitHub-sourced task.
func (k Kind) IsGithub() bool {
	return k == KindGithubIssue || k == KindGithubPR || k == KindGithubReview
}

// ExternalRef links a task to the external item it was created from.
type ExternalRef struct {
	Source    Source `json:"source"`
	StableKey string `json:"stable_key"`
	URL       string `json:"url,omitempty"`
	Repo      string `json:"repo,omitempty"`
}

// Task represents a todo item
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Notes       string       `json:"notes,omitempty"`
	Status      Status       `json:"status"`
	Priority    Priority     `json:"priority"`
	Kind        Kind         `json:"kind"`
	ProjectID   *string      `json:"project_id,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	External    *ExternalRef `json:"external,omitempty"`
	StateHash   StateHash    `json:"external_state_hash,omitempty"`
	Position    int          `json:"position"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsSynced returns true for sync-originated tasks.
func (t *Task) IsSynced() bool {
	return t.External != nil && t.External.StableKey != ""
}

// IsCompleted returns true once the task reached its terminal status.
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// IsOverdue returns true if the task is past its due date on the given day
func (t *Task) IsOverdue(today time.Time) bool {
	if t.DueDate == nil || t.IsCompleted() {
		return false
	}
	return t.DueDate.Before(Day(today))
}

// IsDueOn returns true if the task is due on the given day
func (t *Task) IsDueOn(day time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return t.DueDate.Equal(Day(day))
}

// HasTag reports whether the task carries the named tag.
func (t *Task) HasTag(name string) bool {
	return slices.Contains(t.Tags, name)
}

// URL returns the external link, if any.
func (t *Task) URL() string {
	if t.External == nil {
		return ""
	}
	return t.External.URL
}

// Day truncates t to its calendar date, expressed as midnight UTC. Due
// dates are stored this way so they compare with Equal/Before regardless
// of the local zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
