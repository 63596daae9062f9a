package ui

import (
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/phitodo/internal/app"
	"github.com/dori/phitodo/internal/clock"
	"github.com/dori/phitodo/internal/config"
	"github.com/dori/phitodo/internal/model"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T) RootModel {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Notifications = false

	a, err := app.New(cfg, app.Options{LogOutput: io.Discard, Clock: clock.Fake(testNow)})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	m := NewRootModel(a, "")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m, _ = update(t, m, m.Init()())
	return m
}

func update(t *testing.T, m RootModel, msg tea.Msg) (RootModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	rm, ok := next.(RootModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return rm, cmd
}

func press(t *testing.T, m RootModel, keys string) (RootModel, tea.Cmd) {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
}

// settle runs a store command and the reload that follows it.
func settle(t *testing.T, m RootModel, cmd tea.Cmd) RootModel {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, reload := update(t, m, cmd())
	if reload == nil {
		t.Fatal("expected a reload command")
	}
	m, _ = update(t, m, reload())
	return m
}

func addTask(t *testing.T, m RootModel, text string) RootModel {
	t.Helper()
	m, _ = press(t, m, "a")
	if m.mode != modeAdd {
		t.Fatalf("mode = %v, want add", m.mode)
	}
	m, _ = press(t, m, text)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	return settle(t, m, cmd)
}

func TestAddTask(t *testing.T) {
	m := newTestModel(t)
	m = addTask(t, m, "Buy milk !high @errands")

	if m.errorMsg != "" {
		t.Fatalf("error: %s", m.errorMsg)
	}
	if m.statusMsg != "Added: Buy milk" {
		t.Errorf("status = %q", m.statusMsg)
	}
	tasks := m.visible()
	if len(tasks) != 1 {
		t.Fatalf("inbox has %d tasks, want 1", len(tasks))
	}
	if tasks[0].Priority != model.PriorityHigh {
		t.Errorf("priority = %s, want high", tasks[0].Priority)
	}
	if !tasks[0].HasTag("errands") {
		t.Errorf("tags = %v", tasks[0].Tags)
	}
}

func TestAddCancelled(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, "a")
	m, _ = press(t, m, "never mind")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil || m.mode != modeNormal {
		t.Fatalf("esc should leave add mode without a command")
	}
	if len(m.tasks) != 0 {
		t.Errorf("tasks = %d, want 0", len(m.tasks))
	}
}

func TestToggleMovesToCompleted(t *testing.T) {
	m := newTestModel(t)
	m = addTask(t, m, "Write report")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = settle(t, m, cmd)
	if m.statusMsg != "Completed: Write report" {
		t.Errorf("status = %q", m.statusMsg)
	}
	if n := len(m.visible()); n != 0 {
		t.Errorf("inbox has %d tasks after completing", n)
	}

	m, _ = press(t, m, "5")
	if m.current() != Screen("completed") {
		t.Fatalf("screen = %s, want completed", m.current())
	}
	if n := len(m.visible()); n != 1 {
		t.Fatalf("completed has %d tasks, want 1", n)
	}

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = settle(t, m, cmd)
	if m.statusMsg != "Reopened: Write report" {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestCyclePriority(t *testing.T) {
	m := newTestModel(t)
	m = addTask(t, m, "Plan sprint")

	m, cmd := press(t, m, "p")
	m = settle(t, m, cmd)
	if got := m.visible()[0].Priority; got != model.PriorityLow {
		t.Errorf("priority = %s, want low", got)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m := newTestModel(t)
	m = addTask(t, m, "Old idea")

	m, _ = press(t, m, "d")
	if m.mode != modeConfirmDelete {
		t.Fatalf("mode = %v, want confirm", m.mode)
	}
	m, cmd := press(t, m, "n")
	if cmd != nil || m.statusMsg != "Delete cancelled" {
		t.Fatalf("n should cancel, status %q", m.statusMsg)
	}

	m, _ = press(t, m, "d")
	m, cmd = press(t, m, "y")
	m = settle(t, m, cmd)
	if len(m.tasks) != 0 {
		t.Errorf("tasks = %d after delete", len(m.tasks))
	}
}

func TestSearchFiltersCurrentScreen(t *testing.T) {
	m := newTestModel(t)
	m = addTask(t, m, "Buy milk")
	m = addTask(t, m, "Call plumber")

	m, _ = press(t, m, "/")
	m, _ = press(t, m, "milk")
	if m.query != "milk" {
		t.Fatalf("query = %q", m.query)
	}
	tasks := m.visible()
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Errorf("visible = %v", tasks)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeNormal || m.query != "milk" {
		t.Errorf("enter should keep the filter")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.query != "" || len(m.visible()) != 2 {
		t.Errorf("esc should clear the filter")
	}
}

func TestScreenNavigation(t *testing.T) {
	m := newTestModel(t)

	m, _ = press(t, m, "l")
	if m.current() != Screen("today") {
		t.Errorf("after l: %s", m.current())
	}
	m, _ = press(t, m, "h")
	m, _ = press(t, m, "h")
	if m.current() != ScreenTime {
		t.Errorf("h should wrap to the time screen, got %s", m.current())
	}
	m, _ = press(t, m, "7")
	if m.current() != Screen("github") {
		t.Errorf("after 7: %s", m.current())
	}
}

func TestStartScreen(t *testing.T) {
	m := newTestModel(t)
	m2 := NewRootModel(m.app, Screen("upcoming"))
	if m2.current() != Screen("upcoming") {
		t.Errorf("start screen = %s", m2.current())
	}
}

func TestRefreshWithoutTokens(t *testing.T) {
	m := newTestModel(t)

	m, cmd := press(t, m, "r")
	if !m.refreshing || cmd == nil {
		t.Fatal("r should start a refresh")
	}
	m, _ = update(t, m, m.refresh()())
	if m.refreshing {
		t.Error("refresh should be finished")
	}
	if m.lastSync == nil {
		t.Fatal("lastSync not recorded")
	}
	if !strings.HasPrefix(m.statusMsg, "Synced: ") {
		t.Errorf("status = %q", m.statusMsg)
	}
	if m.errorMsg != "" {
		t.Errorf("error = %q", m.errorMsg)
	}
}

func TestView(t *testing.T) {
	m := newTestModel(t)
	m = addTask(t, m, "Buy milk due:tomorrow")

	out := m.View()
	for _, want := range []string{"phitodo", "Inbox", "Buy milk", "tomorrow"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}

	m, _ = press(t, m, "8")
	if out := m.View(); !strings.Contains(out, "No time data") {
		t.Errorf("time screen without report:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := truncate("hello world", 6); got != "hello…" {
		t.Errorf("got %q", got)
	}
}
