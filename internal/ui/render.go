package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dori/phitodo/internal/model"
	"github.com/dori/phitodo/internal/quickadd"
	"github.com/dori/phitodo/internal/timetrack"
	"github.com/dori/phitodo/internal/ui/theme"
	"github.com/dori/phitodo/internal/view"
)

const sidebarWidth = 18

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 3 {
		contentHeight = 3
	}

	sidebar := theme.Current.Styles.Sidebar.
		Height(contentHeight).
		Width(sidebarWidth).
		Render(m.renderSidebar())

	mainWidth := m.width - lipgloss.Width(sidebar) - 1
	var content string
	switch {
	case m.current() == ScreenTime:
		content = m.renderTime(mainWidth)
	case view.Name(m.current()) == view.Github:
		content = m.renderGithub(mainWidth, contentHeight)
	default:
		content = m.renderList(mainWidth, contentHeight)
	}
	content = lipgloss.NewStyle().Width(mainWidth).Height(contentHeight).MaxHeight(contentHeight).Render(content)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", content)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	left := styles.Header.Render("phitodo") + styles.Label.Render("["+m.current().Title()+"]")

	var right string
	switch {
	case m.refreshing:
		right = m.spinner.View() + " syncing"
	case m.lastSync != nil:
		right = "synced " + m.lastSync.FinishedAt.Format("15:04")
	}
	right = lipgloss.NewStyle().Foreground(t.Subtle).Padding(0, 1).
		Render(strings.TrimSpace(right + "  theme: " + t.Name))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m RootModel) renderSidebar() string {
	styles := theme.Current.Styles
	counts := view.Counts(m.tasks, m.app.Today())

	var lines []string
	for i, s := range Screens {
		label := fmt.Sprintf("%d %s", i+1, s.Title())
		var count int
		if s.IsTasks() {
			count = counts[view.Name(s)]
		} else if m.report != nil {
			count = len(m.report.Entries)
		}
		if count > 0 {
			label = fmt.Sprintf("%-12s %3d", label, count)
		}
		style := styles.SidebarItem
		if i == m.screen {
			style = styles.SidebarActive
			label = "▸" + label
		} else {
			label = " " + label
		}
		lines = append(lines, style.Render(label))
	}
	return strings.Join(lines, "\n")
}

func (m RootModel) renderPrompt() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	switch m.mode {
	case modeAdd:
		return styles.Input.Render(m.input.View()) + "\n"
	case modeSearch:
		return lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render("/") + m.input.View() + "\n"
	case modeConfirmDelete:
		return lipgloss.NewStyle().Foreground(t.Warning).Bold(true).Render("Delete task? (y/n)") + "\n"
	}
	if m.query != "" {
		return lipgloss.NewStyle().Foreground(t.Info).Italic(true).
			Render(fmt.Sprintf("search: %q (esc to clear)", m.query)) + "\n"
	}
	return ""
}

func (m RootModel) renderList(width, height int) string {
	t := theme.Current.Theme

	prompt := m.renderPrompt()
	tasks := m.visible()
	if len(tasks) == 0 {
		empty := lipgloss.NewStyle().Foreground(t.Subtle).Italic(true).Padding(1, 0)
		return prompt + empty.Render("Nothing here. Press 'a' to add a task or 'r' to refresh.")
	}

	rows := height - lipgloss.Height(prompt)
	if prompt == "" {
		rows = height
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(tasks))

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, m.renderTask(tasks[i], i == m.cursor, width))
	}
	return prompt + strings.Join(lines, "\n")
}

// renderGithub draws the three GitHub projections side by side. The
// cursor walks them in reviews, pull requests, issues order.
func (m RootModel) renderGithub(width, height int) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	tasks := m.tasks
	if m.query != "" {
		tasks = view.Search(tasks, m.query)
	}
	cols := view.GithubTasks(tasks)

	colWidth := width/3 - 2
	if colWidth < 10 {
		colWidth = 10
	}

	columns := []struct {
		title string
		color lipgloss.Color
		tasks []model.Task
	}{
		{"Review requests", t.KindReview, cols.Reviews},
		{"Pull requests", t.KindPR, cols.PullRequests},
		{"Issues", t.KindIssue, cols.Issues},
	}

	offset := 0
	var panels []string
	for _, col := range columns {
		title := lipgloss.NewStyle().Foreground(col.color).Bold(true).
			Render(fmt.Sprintf("%s (%d)", col.title, len(col.tasks)))
		lines := []string{title}
		for i, task := range col.tasks {
			lines = append(lines, m.renderTask(task, offset+i == m.cursor, colWidth-2))
		}
		offset += len(col.tasks)
		panels = append(panels, styles.Panel.Width(colWidth).Height(height-2).Render(strings.Join(lines, "\n")))
	}
	return m.renderPrompt() + lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

func (m RootModel) renderTime(width int) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	if m.report == nil {
		return lipgloss.NewStyle().Foreground(t.Subtle).Italic(true).Padding(1, 0).
			Render("No time data yet. Set toggl.token and press 'r'.")
	}

	today := m.app.Today()
	var b strings.Builder
	b.WriteString(styles.Title.Render("Today " + timetrack.FormatClock(m.report.DurationForDate(today))))
	b.WriteString("\n\n")

	b.WriteString(styles.PanelTitle.Render("Last 7 days"))
	b.WriteString("\n")
	for _, day := range m.report.LastDays(today, 7) {
		bar := strings.Repeat("█", int(day.Total.Hours()))
		fmt.Fprintf(&b, "%-10s %8s %s\n",
			day.Date.Format("Mon 02"),
			timetrack.FormatShort(day.Total),
			lipgloss.NewStyle().Foreground(t.Primary).Render(bar))
	}

	b.WriteString("\n")
	b.WriteString(styles.PanelTitle.Render("By project"))
	b.WriteString("\n")
	for _, p := range m.report.DurationByProject() {
		name := truncate(p.Project, max(width-12, 8))
		fmt.Fprintf(&b, "%-*s %8s\n", max(width-12, 8), name, timetrack.FormatHours(p.Duration))
	}
	return b.String()
}

func (m RootModel) renderTask(task model.Task, isCursor bool, width int) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme
	today := m.app.Today()

	checkbox := "[ ]"
	if task.IsCompleted() {
		checkbox = "[x]"
	}

	var priorityColor lipgloss.Color
	priorityChar := " "
	switch task.Priority {
	case model.PriorityHigh:
		priorityColor, priorityChar = t.PriorityHigh, "!"
	case model.PriorityMedium:
		priorityColor, priorityChar = t.PriorityMedium, "-"
	case model.PriorityLow:
		priorityColor, priorityChar = t.PriorityLow, "."
	}
	priority := lipgloss.NewStyle().Foreground(priorityColor).Render(priorityChar)

	var meta []string
	if task.ProjectID != nil {
		if name, ok := m.projects[*task.ProjectID]; ok {
			meta = append(meta, lipgloss.NewStyle().Foreground(t.Secondary).Render("["+name+"]"))
		}
	}
	for _, tag := range task.Tags {
		meta = append(meta, lipgloss.NewStyle().Foreground(t.Info).Render(model.TagLabel(tag)))
	}
	if task.DueDate != nil {
		dueStyle := lipgloss.NewStyle().Foreground(t.Subtle)
		if task.IsOverdue(today) {
			dueStyle = dueStyle.Foreground(t.Error)
		} else if task.IsDueOn(today) {
			dueStyle = dueStyle.Foreground(t.Warning)
		}
		meta = append(meta, dueStyle.Render(quickadd.FormatDue(*task.DueDate, today)))
	}
	metaStr := strings.Join(meta, " ")

	titleStyle := styles.TaskNormal
	switch {
	case task.IsCompleted():
		titleStyle = styles.TaskDone
	case task.IsOverdue(today):
		titleStyle = styles.TaskOverdue
	}
	if isCursor {
		titleStyle = titleStyle.Inherit(styles.TaskSelected)
	}

	prefix := fmt.Sprintf("%s %s ", checkbox, priority)
	room := width - lipgloss.Width(prefix) - lipgloss.Width(metaStr) - 1
	if room < 8 {
		room = 8
	}
	line := prefix + titleStyle.Render(truncate(task.Title, room))
	if metaStr != "" {
		line += " " + metaStr
	}
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func (m RootModel) renderFooter() string {
	t := theme.Current.Theme

	var lines []string
	if m.errorMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Error).Render(m.errorMsg))
	} else if m.statusMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Info).Render(m.statusMsg))
	}
	lines = append(lines, m.help.View(m.keys))
	return strings.Join(lines, "\n")
}
