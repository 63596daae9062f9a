package ui

import (
	"github.com/dori/phitodo/internal/model"
	"github.com/dori/phitodo/internal/reconcile"
	"github.com/dori/phitodo/internal/view"
)

// Screen is one entry of the sidebar: a task view or the time report.
type Screen string

// ScreenTime shows the Toggl report instead of tasks.
const ScreenTime Screen = "time"

// Screens lists the sidebar in order.
var Screens = func() []Screen {
	var screens []Screen
	for _, n := range view.Names {
		screens = append(screens, Screen(n))
	}
	return append(screens, ScreenTime)
}()

// Title returns the sidebar label.
func (s Screen) Title() string {
	if s == ScreenTime {
		return "Time"
	}
	return view.Name(s).Title()
}

// IsTasks reports whether the screen lists tasks.
func (s Screen) IsTasks() bool {
	return s != ScreenTime
}

// tasksLoadedMsg carries a fresh snapshot of the store.
type tasksLoadedMsg struct {
	tasks    []model.Task
	projects map[string]string
	err      error
}

// refreshDoneMsg ends a sync cycle.
type refreshDoneMsg struct {
	summary reconcile.Summary
}

// taskChangedMsg follows a user edit; the list reloads either way.
type taskChangedMsg struct {
	status string
	err    error
}
