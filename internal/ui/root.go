// Package ui is the bubbletea front end: a sidebar of views, the task
// list of the selected view and a refresh that runs the sync engine.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/phitodo/internal/app"
	"github.com/dori/phitodo/internal/db"
	"github.com/dori/phitodo/internal/model"
	"github.com/dori/phitodo/internal/quickadd"
	"github.com/dori/phitodo/internal/reconcile"
	"github.com/dori/phitodo/internal/timetrack"
	"github.com/dori/phitodo/internal/ui/theme"
	"github.com/dori/phitodo/internal/view"
)

type inputMode int

const (
	modeNormal inputMode = iota
	modeAdd
	modeSearch
	modeConfirmDelete
)

// RootModel is the main application model
type RootModel struct {
	app    *app.App
	ctx    context.Context
	cancel context.CancelFunc

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	input   textinput.Model

	width  int
	height int

	screen   int
	cursor   int
	mode     inputMode
	query    string
	deleteID string

	tasks    []model.Task
	projects map[string]string
	report   *timetrack.Report
	lastSync *reconcile.Summary

	refreshing bool
	statusMsg  string
	errorMsg   string
}

// NewRootModel creates a new root model. startScreen may be empty.
func NewRootModel(application *app.App, startScreen Screen) RootModel {
	ctx, cancel := context.WithCancel(context.Background())

	h := help.New()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	in := textinput.New()
	in.CharLimit = 200

	m := RootModel{
		app:      application,
		ctx:      ctx,
		cancel:   cancel,
		keys:     DefaultKeyMap(),
		help:     h,
		spinner:  sp,
		input:    in,
		projects: map[string]string{},
	}
	for i, s := range Screens {
		if s == startScreen {
			m.screen = i
		}
	}
	return m
}

// Init loads the first snapshot.
func (m RootModel) Init() tea.Cmd {
	return m.loadTasks()
}

func (m RootModel) current() Screen {
	return Screens[m.screen]
}

// visible is the task list of the current screen after search.
func (m RootModel) visible() []model.Task {
	s := m.current()
	if !s.IsTasks() {
		return nil
	}
	tasks := m.tasks
	if m.query != "" {
		tasks = view.Search(tasks, m.query)
	}
	return view.Tasks(view.Name(s), tasks, m.app.Today())
}

func (m RootModel) selected() (model.Task, bool) {
	tasks := m.visible()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.cursor], true
}

func (m *RootModel) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tasksLoadedMsg:
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
			return m, nil
		}
		m.tasks = msg.tasks
		m.projects = msg.projects
		m.clampCursor()
		return m, nil

	case refreshDoneMsg:
		m.refreshing = false
		summary := msg.summary
		m.lastSync = &summary
		if summary.Time != nil {
			m.report = summary.Time
		}
		m.statusMsg = "Synced: " + summary.String()
		if summary.HasErrors() {
			m.errorMsg = summary.Errors[0].Error()
		}
		return m, m.loadTasks()

	case taskChangedMsg:
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
		} else {
			m.statusMsg = msg.status
		}
		return m, m.loadTasks()

	case spinner.TickMsg:
		if !m.refreshing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		// ctrl+c quits from any mode.
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		switch m.mode {
		case modeAdd:
			return m.handleAddMode(msg)
		case modeSearch:
			return m.handleSearchMode(msg)
		case modeConfirmDelete:
			return m.handleDeleteConfirm(msg)
		}
		return m.handleNormalMode(msg)
	}
	return m, nil
}

func (m RootModel) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.statusMsg = ""
	m.errorMsg = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.ThemeCycle):
		next := theme.Next()
		theme.SetTheme(next)
		m.statusMsg = "Theme: " + next.Name

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.cursor = len(m.visible()) - 1
		m.clampCursor()

	case key.Matches(msg, m.keys.NextScreen):
		m.screen = (m.screen + 1) % len(Screens)
		m.cursor = 0
	case key.Matches(msg, m.keys.PrevScreen):
		m.screen = (m.screen + len(Screens) - 1) % len(Screens)
		m.cursor = 0
	case key.Matches(msg, m.keys.Jump):
		if i := int(msg.String()[0] - '1'); i >= 0 && i < len(Screens) {
			m.screen = i
			m.cursor = 0
		}

	case key.Matches(msg, m.keys.Cancel):
		m.query = ""
		m.clampCursor()

	case key.Matches(msg, m.keys.Refresh):
		if m.refreshing {
			m.statusMsg = "Refresh already running"
			return m, nil
		}
		m.refreshing = true
		return m, tea.Batch(m.spinner.Tick, m.refresh())

	case key.Matches(msg, m.keys.Add):
		m.mode = modeAdd
		m.input.SetValue("")
		m.input.Placeholder = "Title @tag !high due:tomorrow"
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.input.SetValue(m.query)
		m.input.Placeholder = "search title and notes"
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Toggle):
		if task, ok := m.selected(); ok {
			return m, m.toggleTask(task)
		}
	case key.Matches(msg, m.keys.Priority):
		if task, ok := m.selected(); ok {
			return m, m.cyclePriority(task)
		}
	case key.Matches(msg, m.keys.Delete):
		if task, ok := m.selected(); ok {
			m.mode = modeConfirmDelete
			m.deleteID = task.ID
		}
	}
	return m, nil
}

func (m RootModel) handleAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		text := strings.TrimSpace(m.input.Value())
		m.mode = modeNormal
		m.input.Blur()
		if text == "" {
			return m, nil
		}
		return m, m.createTask(text)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m RootModel) handleSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeNormal
		m.query = ""
		m.input.Blur()
		m.clampCursor()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.query = strings.TrimSpace(m.input.Value())
	m.cursor = 0
	return m, cmd
}

func (m RootModel) handleDeleteConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeNormal
	id := m.deleteID
	m.deleteID = ""
	if msg.String() != "y" {
		m.statusMsg = "Delete cancelled"
		return m, nil
	}
	return m, m.deleteTask(id)
}

func (m RootModel) loadTasks() tea.Cmd {
	ctx, store := m.ctx, m.app.DB
	return func() tea.Msg {
		tasks, err := store.GetTasks(ctx)
		if err != nil {
			return tasksLoadedMsg{err: err}
		}
		projects, err := store.GetProjects(ctx)
		if err != nil {
			return tasksLoadedMsg{err: err}
		}
		names := make(map[string]string, len(projects))
		for _, p := range projects {
			names[p.ID] = p.Name
		}
		return tasksLoadedMsg{tasks: tasks, projects: names}
	}
}

func (m RootModel) refresh() tea.Cmd {
	ctx, a := m.ctx, m.app
	return func() tea.Msg {
		return refreshDoneMsg{summary: a.Refresh(ctx)}
	}
}

func (m RootModel) createTask(text string) tea.Cmd {
	ctx, store, today := m.ctx, m.app.DB, m.app.Today()
	return func() tea.Msg {
		in := quickadd.Parse(text, today)
		if in.Title == "" {
			return taskChangedMsg{err: errors.New("task title is empty")}
		}
		if _, err := store.CreateTask(ctx, in.Task()); err != nil {
			return taskChangedMsg{err: err}
		}
		return taskChangedMsg{status: "Added: " + in.Title}
	}
}

func (m RootModel) toggleTask(task model.Task) tea.Cmd {
	ctx, store := m.ctx, m.app.DB
	return func() tea.Msg {
		updated, err := store.ToggleTaskCompleted(ctx, task.ID)
		if err != nil {
			return taskChangedMsg{err: describe(err)}
		}
		if updated.IsCompleted() {
			return taskChangedMsg{status: "Completed: " + updated.Title}
		}
		return taskChangedMsg{status: "Reopened: " + updated.Title}
	}
}

func (m RootModel) cyclePriority(task model.Task) tea.Cmd {
	ctx, store := m.ctx, m.app.DB
	next := task.Priority.Next()
	return func() tea.Msg {
		if _, err := store.UpdateTask(ctx, task.ID, db.TaskUpdate{Priority: &next}); err != nil {
			return taskChangedMsg{err: describe(err)}
		}
		return taskChangedMsg{status: fmt.Sprintf("Priority: %s", next)}
	}
}

func (m RootModel) deleteTask(id string) tea.Cmd {
	ctx, store := m.ctx, m.app.DB
	return func() tea.Msg {
		if err := store.DeleteTask(ctx, id); err != nil {
			return taskChangedMsg{err: describe(err)}
		}
		return taskChangedMsg{status: "Deleted"}
	}
}

// describe turns store errors into user-facing text.
func describe(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return errors.New("task no longer exists")
	}
	return err
}
