// Package app wires configuration, storage and the sync engine together
// for the CLI and the TUI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dori/phitodo/internal/clock"
	"github.com/dori/phitodo/internal/config"
	"github.com/dori/phitodo/internal/db"
	"github.com/dori/phitodo/internal/external"
	"github.com/dori/phitodo/internal/github"
	"github.com/dori/phitodo/internal/model"
	"github.com/dori/phitodo/internal/notify"
	"github.com/dori/phitodo/internal/project"
	"github.com/dori/phitodo/internal/reconcile"
	"github.com/dori/phitodo/internal/timetrack"
	"github.com/dori/phitodo/internal/toggl"
	"github.com/dori/phitodo/internal/view"
	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("another instance of phitodo is already running")

// ErrNoTimeSource is returned by TimeReport when no Toggl token is set.
var ErrNoTimeSource = errors.New("toggl.token is not configured")

// App holds the application state and dependencies
type App struct {
	Config   *config.Config
	DB       *db.DB
	Notifier *notify.Notifier
	Logger   *slog.Logger
	Clock    clock.Clock

	resolver   *project.Resolver
	httpClient *http.Client
	lockFile   *flock.Flock
	logFile    *os.File
}

// Options adjusts how New builds the App.
type Options struct {
	// LogToFile sends logs to the data directory instead of stderr.
	// The TUI uses this to keep the terminal clean.
	LogToFile bool

	// LogOutput overrides the log destination.
	LogOutput io.Writer

	// HTTPClient is the base client for the GitHub and Toggl transports.
	HTTPClient *http.Client

	Clock clock.Clock
}

// New creates the data directory, takes the single-instance lock and
// opens the database.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	a := &App{
		Config:     cfg,
		Notifier:   notify.NewNotifier(cfg.Notifications),
		Clock:      clock.OrReal(opts.Clock),
		httpClient: opts.HTTPClient,
	}

	if err := a.setupLogger(opts); err != nil {
		return nil, err
	}
	a.resolver = project.NewResolver(a.Logger)

	if err := a.acquireLock(); err != nil {
		a.closeLog()
		return nil, err
	}

	database, err := db.Open(cfg.DBPath(), db.WithClock(a.Clock))
	if err != nil {
		a.releaseLock()
		a.closeLog()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = database

	a.Logger.Debug("app started", "data_dir", cfg.DataDir)
	return a, nil
}

func (a *App) setupLogger(opts Options) error {
	level, err := config.ParseLevel(a.Config.LogLevel)
	if err != nil {
		return err
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
		if opts.LogToFile {
			f, err := os.OpenFile(a.Config.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			a.logFile = f
			out = f
		}
	}

	a.Logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return nil
}

// acquireLock acquires an exclusive file lock to prevent multiple instances
func (a *App) acquireLock() error {
	a.lockFile = flock.New(filepath.Join(a.Config.DataDir, "phitodo.lock"))

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	return nil
}

func (a *App) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

func (a *App) closeLog() {
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}

// Today is the current calendar day used by the views.
func (a *App) Today() time.Time {
	return model.Day(a.Clock.Now())
}

// Fetchers builds a fresh transport per configured source. Credentials
// are read from the config at call time, so a refresh after a config
// change picks up new tokens. Sources without a token are left nil and
// reported as skipped.
func (a *App) Fetchers() (reconcile.Fetchers, []error) {
	var fetchers reconcile.Fetchers
	var errs []error

	if a.Config.GitHub.Token != "" {
		client, err := github.NewClient(github.Config{
			BaseURL:    a.Config.GitHub.BaseURL,
			Token:      a.Config.GitHub.Token,
			HTTPClient: a.httpClient,
			Clock:      a.Clock,
			Logger:     a.Logger.With("source", "github"),
		})
		if err != nil {
			errs = append(errs, err)
		} else {
			fetchers.AssignedIssues = client.AssignedIssues
			fetchers.AuthoredPRs = client.AuthoredPullRequests
			fetchers.ReviewRequests = client.ReviewRequests
		}
	}

	if a.Config.Toggl.Token != "" {
		client, err := a.togglClient()
		if err != nil {
			errs = append(errs, err)
		} else {
			fetchers.TimeEntries = client.TimeEntries
		}
	}

	return fetchers, errs
}

func (a *App) togglClient() (*toggl.Client, error) {
	return toggl.NewClient(toggl.Config{
		BaseURL:    a.Config.Toggl.BaseURL,
		Token:      a.Config.Toggl.Token,
		Days:       a.Config.Toggl.Days,
		HTTPClient: a.httpClient,
		Clock:      a.Clock,
		Logger:     a.Logger.With("source", "toggl"),
	})
}

func (a *App) normalizer() external.Normalizer {
	return external.Normalizer{
		Repos:          a.Config.GitHub.Repos,
		HiddenProjects: a.Config.Toggl.HiddenProjects,
	}
}

// TimeReport fetches the Toggl window without touching tasks.
func (a *App) TimeReport(ctx context.Context) (*timetrack.Report, error) {
	if a.Config.Toggl.Token == "" {
		return nil, ErrNoTimeSource
	}
	client, err := a.togglClient()
	if err != nil {
		return nil, err
	}
	records, err := client.TimeEntries(ctx)
	if err != nil {
		return nil, err
	}
	now := a.Clock.Now()
	return timetrack.NewReport(a.normalizer().TimeEntries(records, now), now), nil
}

// Reconciler returns a reconciler over the configured sources, plus any
// errors building the transports.
func (a *App) Reconciler() (*reconcile.Reconciler, []error) {
	fetchers, errs := a.Fetchers()
	r := reconcile.New(reconcile.Config{
		Store:      a.DB,
		Fetchers:   fetchers,
		Normalizer: a.normalizer(),
		Resolver:   a.resolver,
		Untracked:  a.Config.Policy(),
		Clock:      a.Clock,
		Logger:     a.Logger,
	})
	return r, errs
}

// Refresh runs one sync cycle and notifies about the outcome.
func (a *App) Refresh(ctx context.Context) reconcile.Summary {
	r, setupErrs := a.Reconciler()
	summary := r.Sync(ctx)
	if len(setupErrs) > 0 {
		summary.Errors = append(setupErrs, summary.Errors...)
	}

	if err := a.Notifier.SendSyncSummary(ctx, summary); err != nil {
		a.Logger.Debug("notification failed", "error", err)
	}
	return summary
}

// ViewTasks loads every task and applies the named view.
func (a *App) ViewTasks(ctx context.Context, name view.Name) ([]model.Task, error) {
	tasks, err := a.DB.GetTasks(ctx)
	if err != nil {
		return nil, err
	}
	return view.Tasks(name, tasks, a.Today()), nil
}

// NotifyOverdue sends one reminder for the tasks in the Review view.
func (a *App) NotifyOverdue(ctx context.Context) error {
	overdue, err := a.ViewTasks(ctx, view.Review)
	if err != nil {
		return err
	}
	return a.Notifier.SendOverdue(ctx, len(overdue))
}

// Close cleans up application resources
func (a *App) Close() error {
	var errs []error

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	a.releaseLock()
	a.closeLog()

	return errors.Join(errs...)
}
