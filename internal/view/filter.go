package view

import (
	"sort"
	"strings"
	"time"

	"github.com/dori/phitodo/internal/model"
)

// ByProject returns the open tasks of a project.
func ByProject(tasks []model.Task, projectID string) []model.Task {
	return Filter(tasks, func(t *model.Task) bool {
		return !t.IsCompleted() && t.ProjectID != nil && *t.ProjectID == projectID
	})
}

// ByTag returns the open tasks carrying a tag.
func ByTag(tasks []model.Task, tag string) []model.Task {
	tag = model.NormalizeTag(tag)
	return Filter(tasks, func(t *model.Task) bool {
		return !t.IsCompleted() && t.HasTag(tag)
	})
}

// Search matches query against title and notes, case-insensitively.
func Search(tasks []model.Task, query string) []model.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return tasks
	}
	return Filter(tasks, func(t *model.Task) bool {
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Notes), q)
	})
}

// SortByDueDate orders by due date ascending; tasks without one go last,
// keeping their position order.
func SortByDueDate(tasks []model.Task) []model.Task {
	out := append([]model.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a != nil && b != nil:
			return a.Before(*b)
		case a != nil:
			return true
		case b != nil:
			return false
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// SortByPriority orders High first, None last.
func SortByPriority(tasks []model.Task) []model.Task {
	out := append([]model.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Weight() > out[j].Priority.Weight()
	})
	return out
}

// DateGroup is a run of tasks sharing a due date. Date is nil for tasks
// without one.
type DateGroup struct {
	Date  *time.Time
	Tasks []model.Task
}

// GroupByDate groups tasks by due date, earliest first, undated last.
func GroupByDate(tasks []model.Task) []DateGroup {
	var groups []DateGroup
	index := make(map[time.Time]int)
	var undated []model.Task

	for _, t := range SortByDueDate(tasks) {
		if t.DueDate == nil {
			undated = append(undated, t)
			continue
		}
		day := model.Day(*t.DueDate)
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DateGroup{Date: &day})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
	}

	if len(undated) > 0 {
		groups = append(groups, DateGroup{Tasks: undated})
	}
	return groups
}
