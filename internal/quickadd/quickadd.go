// Package quickadd parses the one-line task syntax shared by
// `phitodo add` and the TUI's add prompt:
//
//	Review release notes @work !high due:friday
package quickadd

import (
	"strings"
	"time"

	"github.com/dori/phitodo/internal/model"
)

// Input is a parsed quick-add line.
type Input struct {
	Title    string
	Priority model.Priority
	DueDate  *time.Time
	Tags     []string
}

// Task converts the input into a new inbox task.
func (in Input) Task() *model.Task {
	return &model.Task{
		Title:    in.Title,
		Status:   model.StatusInbox,
		Priority: in.Priority,
		Kind:     model.KindTask,
		DueDate:  in.DueDate,
		Tags:     in.Tags,
	}
}

// Parse splits text into title words and modifiers. Tokens that look
// like modifiers but do not parse stay in the title.
func Parse(text string, today time.Time) Input {
	in := Input{Priority: model.PriorityNone}

	var titleParts []string
	for _, word := range strings.Fields(text) {
		lower := strings.ToLower(word)
		switch {
		case strings.HasPrefix(word, "@") && len(word) > 1:
			tag := model.NormalizeTag(word)
			if !contains(in.Tags, tag) {
				in.Tags = append(in.Tags, tag)
			}

		case strings.HasPrefix(word, "!") && len(word) > 1:
			if p, ok := parsePriority(strings.TrimPrefix(lower, "!")); ok {
				in.Priority = p
			} else {
				titleParts = append(titleParts, word)
			}

		case strings.HasPrefix(lower, "due:"):
			if due := ParseDate(strings.TrimPrefix(lower, "due:"), today); due != nil {
				in.DueDate = due
			} else {
				titleParts = append(titleParts, word)
			}

		default:
			titleParts = append(titleParts, word)
		}
	}

	in.Title = strings.Join(titleParts, " ")
	return in
}

func parsePriority(s string) (model.Priority, bool) {
	switch s {
	case "hi", "urgent":
		return model.PriorityHigh, true
	case "":
		return model.PriorityNone, false
	}
	return model.ParsePriority(s)
}

// ParseDate understands relative words (today, tomorrow, weekday names,
// nextweek) and a few absolute layouts. The result is a calendar day.
func ParseDate(s string, today time.Time) *time.Time {
	day := model.Day(today)

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today", "tod":
		return &day
	case "tomorrow", "tom":
		t := day.AddDate(0, 0, 1)
		return &t
	case "nextweek", "next-week":
		t := day.AddDate(0, 0, 7)
		return &t
	}
	if wd, ok := weekdays[strings.ToLower(s)]; ok {
		return nextWeekday(day, wd)
	}

	for _, layout := range []string{"2006-01-02", "01/02/2006", "01-02-2006", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			d := model.Day(t)
			return &d
		}
	}
	// Month and day only: this year.
	for _, layout := range []string{"Jan 2", "01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(day.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

// nextWeekday is the next occurrence of wd strictly after day.
func nextWeekday(day time.Time, wd time.Weekday) *time.Time {
	until := int(wd - day.Weekday())
	if until <= 0 {
		until += 7
	}
	t := day.AddDate(0, 0, until)
	return &t
}

// FormatDue renders a due date relative to today.
func FormatDue(due, today time.Time) string {
	day := model.Day(today)
	due = model.Day(due)

	switch {
	case due.Equal(day):
		return "today"
	case due.Equal(day.AddDate(0, 0, 1)):
		return "tomorrow"
	case due.Equal(day.AddDate(0, 0, -1)):
		return "yesterday"
	case due.Year() == day.Year():
		return due.Format("Mon, Jan 2")
	}
	return due.Format("Jan 2, 2006")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
