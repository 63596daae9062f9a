package quickadd

import (
	"testing"
	"time"

	"github.com/dori/phitodo/internal/model"
)

// Monday.
var today = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	in := Parse("Review PR @Work @work !high due:tomorrow", today)

	if in.Title != "Review PR" {
		t.Errorf("Title = %q", in.Title)
	}
	if in.Priority != model.PriorityHigh {
		t.Errorf("Priority = %q", in.Priority)
	}
	if len(in.Tags) != 1 || in.Tags[0] != "work" {
		t.Errorf("Tags = %q", in.Tags)
	}
	if in.DueDate == nil || !in.DueDate.Equal(date(2025, 3, 11)) {
		t.Errorf("DueDate = %v", in.DueDate)
	}
}

func TestParseKeepsUnknownModifiersInTitle(t *testing.T) {
	in := Parse("Fix ! bug !soon due:someday @", today)
	if in.Title != "Fix ! bug !soon due:someday @" {
		t.Errorf("Title = %q", in.Title)
	}
	if in.Priority != model.PriorityNone || in.DueDate != nil || len(in.Tags) != 0 {
		t.Errorf("unexpected modifiers: %+v", in)
	}
}

func TestParsePriorityShorthands(t *testing.T) {
	tests := map[string]model.Priority{
		"!l":      model.PriorityLow,
		"!med":    model.PriorityMedium,
		"!m":      model.PriorityMedium,
		"!h":      model.PriorityHigh,
		"!urgent": model.PriorityHigh,
		"!3":      model.PriorityHigh,
	}
	for token, want := range tests {
		if got := Parse("task "+token, today).Priority; got != want {
			t.Errorf("%s: priority = %q, want %q", token, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"today", date(2025, 3, 10)},
		{"tom", date(2025, 3, 11)},
		{"nextweek", date(2025, 3, 17)},
		{"fri", date(2025, 3, 14)},
		{"monday", date(2025, 3, 17)},
		{"2025-04-01", date(2025, 4, 1)},
		{"04/02/2025", date(2025, 4, 2)},
	}
	for _, tt := range tests {
		got := ParseDate(tt.input, today)
		if got == nil || !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if got := ParseDate("whenever", today); got != nil {
		t.Errorf("ParseDate(whenever) = %v, want nil", got)
	}
}

func TestTask(t *testing.T) {
	task := Parse("Call dentist @home", today).Task()
	if task.Status != model.StatusInbox || task.Kind != model.KindTask {
		t.Errorf("task = %+v", task)
	}
	if task.External != nil {
		t.Error("quick-add task must not be sync-originated")
	}
}

func TestFormatDue(t *testing.T) {
	tests := []struct {
		due  time.Time
		want string
	}{
		{date(2025, 3, 10), "today"},
		{date(2025, 3, 11), "tomorrow"},
		{date(2025, 3, 9), "yesterday"},
		{date(2025, 3, 20), "Thu, Mar 20"},
		{date(2026, 1, 5), "Jan 5, 2026"},
	}
	for _, tt := range tests {
		if got := FormatDue(tt.due, today); got != tt.want {
			t.Errorf("FormatDue(%v) = %q, want %q", tt.due, got, tt.want)
		}
	}
}
