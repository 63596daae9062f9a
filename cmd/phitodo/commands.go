package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/phitodo/internal/app"
	"github.com/dori/phitodo/internal/config"
	"github.com/dori/phitodo/internal/model"
	"github.com/dori/phitodo/internal/quickadd"
	"github.com/dori/phitodo/internal/timetrack"
	"github.com/dori/phitodo/internal/ui"
	"github.com/dori/phitodo/internal/ui/theme"
	"github.com/dori/phitodo/internal/view"
	"github.com/spf13/cobra"
)

func defaultConfigHint() string {
	if p := config.DefaultPath(); p != "" {
		return p
	}
	return "$XDG_CONFIG_HOME/phitodo/config.yaml"
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	return path
}

// openApp loads the config and opens the store. CLI commands log to
// stderr; the TUI logs to a file in the data dir.
func openApp(cmd *cobra.Command, tui bool) (*app.App, error) {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return nil, err
	}
	opts := app.Options{LogToFile: tui}
	if !tui {
		opts.LogOutput = cmd.ErrOrStderr()
	}
	return app.New(cfg, opts)
}

func runTUI(cmd *cobra.Command, viewName, themeName string) error {
	start := ui.Screen(viewName)
	if start != ui.ScreenTime {
		name, err := view.ParseName(viewName)
		if err != nil {
			return err
		}
		start = ui.Screen(name)
	}
	if themeName != "" {
		t, ok := theme.ByName(themeName)
		if !ok {
			return fmt.Errorf("unknown theme %q", themeName)
		}
		theme.SetTheme(t)
	}

	application, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.NotifyOverdue(cmd.Context()); err != nil {
		application.Logger.Debug("overdue notification failed", "error", err)
	}

	p := tea.NewProgram(
		ui.NewRootModel(application, start),
		tea.WithAltScreen(),
	)
	_, err = p.Run()
	return err
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <task>",
		Short:   "Quick add a task to the inbox",
		Example: `  phitodo add "Buy groceries @errands !high due:tomorrow"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			today := application.Today()
			in := quickadd.Parse(strings.Join(args, " "), today)
			if in.Title == "" {
				return errors.New("task title is empty")
			}
			if _, err := application.DB.CreateTask(cmd.Context(), in.Task()); err != nil {
				return fmt.Errorf("creating task: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created: %s\n", in.Title)
			if in.DueDate != nil {
				fmt.Fprintf(out, "Due: %s\n", quickadd.FormatDue(*in.DueDate, today))
			}
			if in.Priority != model.PriorityNone {
				fmt.Fprintf(out, "Priority: %s\n", in.Priority)
			}
			if len(in.Tags) > 0 {
				labels := make([]string, len(in.Tags))
				for i, tag := range in.Tags {
					labels[i] = model.TagLabel(tag)
				}
				fmt.Fprintf(out, "Tags: %s\n", strings.Join(labels, ", "))
			}
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull GitHub and Toggl data and reconcile local tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			if quiet, _ := cmd.Flags().GetBool("no-notify"); quiet {
				application.Notifier.SetEnabled(false)
			}
			summary := application.Refresh(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Synced: %s\n", summary)
			for _, c := range summary.Skipped {
				fmt.Fprintf(out, "  skipped %s\n", c)
			}
			if summary.Time != nil {
				fmt.Fprintf(out, "Time: %d entries, %s total\n",
					len(summary.Time.Entries), timetrack.FormatShort(summary.Time.Total()))
			}
			if summary.HasErrors() {
				for _, err := range summary.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", err)
				}
				return fmt.Errorf("sync finished with %d error(s)", len(summary.Errors))
			}
			return nil
		},
	}
	cmd.Flags().Bool("no-notify", false, "skip the desktop notification")
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [view]",
		Short: "Print the tasks of a view (default inbox)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := view.Inbox
			if len(args) == 1 {
				var err error
				if name, err = view.ParseName(args[0]); err != nil {
					return err
				}
			}
			projectName, _ := cmd.Flags().GetString("project")
			tag, _ := cmd.Flags().GetString("tag")
			sortBy, _ := cmd.Flags().GetString("sort")
			group, _ := cmd.Flags().GetBool("group")

			application, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx := cmd.Context()
			tasks, err := application.ViewTasks(ctx, name)
			if err != nil {
				return err
			}
			if projectName != "" {
				p, err := findProject(cmd, application, projectName)
				if err != nil {
					return err
				}
				tasks = view.ByProject(tasks, p.ID)
			}
			if tag != "" {
				tasks = view.ByTag(tasks, tag)
			}
			switch sortBy {
			case "":
			case "due":
				tasks = view.SortByDueDate(tasks)
			case "priority":
				tasks = view.SortByPriority(tasks)
			default:
				return fmt.Errorf("unknown sort %q (want due or priority)", sortBy)
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintf(out, "%s is empty\n", name.Title())
				return nil
			}
			today := application.Today()
			if !group {
				for _, t := range tasks {
					fmt.Fprintln(out, formatTask(t, today))
				}
				return nil
			}
			for _, g := range view.GroupByDate(tasks) {
				heading := "No date"
				if g.Date != nil {
					heading = quickadd.FormatDue(*g.Date, today)
				}
				fmt.Fprintf(out, "%s\n", heading)
				for _, t := range g.Tasks {
					fmt.Fprintln(out, "  "+formatTask(t, today))
				}
			}
			return nil
		},
	}
	cmd.Flags().String("project", "", "only tasks of this project")
	cmd.Flags().String("tag", "", "only tasks with this tag")
	cmd.Flags().String("sort", "", "sort by due or priority")
	cmd.Flags().Bool("group", false, "group by due date")
	return cmd
}

func formatTask(t model.Task, today time.Time) string {
	check := " "
	if t.IsCompleted() {
		check = "x"
	}
	line := fmt.Sprintf("[%s] %s", check, t.Title)
	if t.Priority != model.PriorityNone {
		line += " !" + string(t.Priority)
	}
	for _, tag := range t.Tags {
		line += " " + model.TagLabel(tag)
	}
	if t.DueDate != nil {
		line += " (" + quickadd.FormatDue(*t.DueDate, today) + ")"
	}
	if url := t.URL(); url != "" {
		line += " " + url
	}
	return line
}

// findProject matches a project by name, case-insensitively.
func findProject(cmd *cobra.Command, application *app.App, name string) (*model.Project, error) {
	projects, err := application.DB.GetProjects(cmd.Context())
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if strings.EqualFold(projects[i].Name, name) {
			return &projects[i], nil
		}
	}
	return nil, fmt.Errorf("no project named %q", name)
}

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			tags, err := application.DB.GetTags(cmd.Context())
			if err != nil {
				return err
			}
			for _, tag := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), tag.DisplayName())
			}
			return nil
		},
	}
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "List and manage projects",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			projects, err := application.DB.GetProjects(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range projects {
				if p.SourceRepo != "" {
					fmt.Fprintf(out, "%s (github: %s)\n", p.Name, p.SourceRepo)
				} else {
					fmt.Fprintln(out, p.Name)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			p, err := application.DB.CreateProject(cmd.Context(), args[0], "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s\n", p.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Rename a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			p, err := findProject(cmd, application, args[0])
			if err != nil {
				return err
			}
			return application.DB.RenameProject(cmd.Context(), p.ID, args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a project; its tasks are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			p, err := findProject(cmd, application, args[0])
			if err != nil {
				return err
			}
			return application.DB.DeleteProject(cmd.Context(), p.ID)
		},
	})

	return cmd
}

func timeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "time",
		Short: "Show the Toggl time report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")

			application, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.TimeReport(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			today := application.Today()
			fmt.Fprintf(out, "Today: %s\n\n", timetrack.FormatClock(report.DurationForDate(today)))
			for _, day := range report.LastDays(today, days) {
				fmt.Fprintf(out, "%s  %s\n", day.Date.Format("Mon Jan 02"), timetrack.FormatShort(day.Total))
			}
			fmt.Fprintln(out)
			for _, p := range report.DurationByProject() {
				fmt.Fprintf(out, "%-30s %s\n", p.Project, timetrack.FormatHours(p.Duration))
			}
			return nil
		},
	}
	cmd.Flags().Int("days", 7, "number of days to show")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(cmd)
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), configPath(cmd))
		},
	})
	return cmd
}
