// Package view computes the read-side task projections shown in the UI.
// Every function is pure over a snapshot of tasks; nothing is cached.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dori/phitodo/internal/model"
)

// Name identifies a built-in view.
type Name string

const (
	Inbox     Name = "inbox"
	Today     Name = "today"
	Upcoming  Name = "upcoming"
	Anytime   Name = "anytime"
	Completed Name = "completed"
	Review    Name = "review"
	Github    Name = "github"
)

// Names lists the views in sidebar order.
var Names = []Name{Inbox, Today, Upcoming, Anytime, Completed, Review, Github}

// Title returns the display title of a view.
func (n Name) Title() string {
	switch n {
	case Github:
		return "GitHub"
	case "":
		return ""
	}
	return strings.ToUpper(string(n[:1])) + string(n[1:])
}

// ParseName resolves a view name, case-insensitively.
func ParseName(s string) (Name, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, n := range Names {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Filter returns the tasks for which keep is true, in input order.
func Filter(tasks []model.Task, keep func(*model.Task) bool) []model.Task {
	var out []model.Task
	for i := range tasks {
		if keep(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}

// InboxTasks: status is Inbox.
func InboxTasks(tasks []model.Task) []model.Task {
	return Filter(tasks, func(t *model.Task) bool { return t.Status == model.StatusInbox })
}

// TodayTasks: due today, or overdue and not completed.
func TodayTasks(tasks []model.Task, today time.Time) []model.Task {
	return Filter(tasks, func(t *model.Task) bool {
		return t.IsDueOn(today) || t.IsOverdue(today)
	})
}

// UpcomingTasks: due after today.
func UpcomingTasks(tasks []model.Task, today time.Time) []model.Task {
	day := model.Day(today)
	return Filter(tasks, func(t *model.Task) bool {
		return t.DueDate != nil && t.DueDate.After(day)
	})
}

// AnytimeTasks: no due date and not completed.
func AnytimeTasks(tasks []model.Task) []model.Task {
	return Filter(tasks, func(t *model.Task) bool {
		return t.DueDate == nil && !t.IsCompleted()
	})
}

// CompletedTasks: completed, most recently completed first.
func CompletedTasks(tasks []model.Task) []model.Task {
	out := Filter(tasks, func(t *model.Task) bool { return t.IsCompleted() })
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CompletedAt, out[j].CompletedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	return out
}

// ReviewTasks: overdue only. A focused subset of Today.
func ReviewTasks(tasks []model.Task, today time.Time) []model.Task {
	return Filter(tasks, func(t *model.Task) bool { return t.IsOverdue(today) })
}

// GithubColumns holds the three disjoint GitHub projections.
type GithubColumns struct {
	Reviews      []model.Task
	PullRequests []model.Task
	Issues       []model.Task
}

// Len returns the number of tasks across all columns.
func (c GithubColumns) Len() int {
	return len(c.Reviews) + len(c.PullRequests) + len(c.Issues)
}

// GithubTasks splits GitHub-kind tasks by kind.
func GithubTasks(tasks []model.Task) GithubColumns {
	var c GithubColumns
	for _, t := range tasks {
		switch t.Kind {
		case model.KindGithubReview:
			c.Reviews = append(c.Reviews, t)
		case model.KindGithubPR:
			c.PullRequests = append(c.PullRequests, t)
		case model.KindGithubIssue:
			c.Issues = append(c.Issues, t)
		}
	}
	return c
}

// Tasks returns the flat task list of a named view. The GitHub view is
// its three columns concatenated: reviews, pull requests, issues.
func Tasks(name Name, tasks []model.Task, today time.Time) []model.Task {
	switch name {
	case Inbox:
		return InboxTasks(tasks)
	case Today:
		return TodayTasks(tasks, today)
	case Upcoming:
		return SortByDueDate(UpcomingTasks(tasks, today))
	case Anytime:
		return AnytimeTasks(tasks)
	case Completed:
		return CompletedTasks(tasks)
	case Review:
		return SortByDueDate(ReviewTasks(tasks, today))
	case Github:
		c := GithubTasks(tasks)
		out := append([]model.Task{}, c.Reviews...)
		out = append(out, c.PullRequests...)
		return append(out, c.Issues...)
	}
	return nil
}

// Counts returns the size of every named view.
func Counts(tasks []model.Task, today time.Time) map[Name]int {
	counts := make(map[Name]int, len(Names))
	for _, n := range Names {
		counts[n] = len(Tasks(n, tasks, today))
	}
	return counts
}
