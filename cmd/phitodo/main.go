package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		viewName  string
		themeName string
	)

	rootCmd := &cobra.Command{
		Use:   "phitodo",
		Short: "A personal task manager that syncs GitHub work and Toggl time",
		Long: `phitodo keeps a local task list and pulls in the GitHub issues,
pull requests and review requests assigned to you, plus recent
Toggl time entries.

Quick add syntax:
  phitodo add "Review PR @work !high due:tomorrow"

  Tags:      @tag
  Priority:  !low !medium !high
  Due date:  due:today due:friday due:2025-01-15`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, viewName, themeName)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default "+defaultConfigHint()+")")
	rootCmd.Flags().StringVar(&viewName, "view", "inbox", "starting view (inbox, today, upcoming, anytime, completed, review, github, time)")
	rootCmd.Flags().StringVar(&themeName, "theme", "", "theme name (nord, dracula, gruvbox, catppuccin)")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(timeCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "phitodo v%s\n", version)
		},
	})

	return rootCmd
}
