// Package reconcile turns fetched GitHub items into tasks. A cycle has two
// phases: categories are fetched in parallel and normalized into immutable
// batches, then the batches are applied while holding the store's writer
// lock. Only the fetch phase observes cancellation.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dori/phitodo/internal/clock"
	"github.com/dori/phitodo/internal/db"
	"github.com/dori/phitodo/internal/external"
	"github.com/dori/phitodo/internal/model"
	"github.com/dori/phitodo/internal/project"
	"github.com/dori/phitodo/internal/timetrack"
	"golang.org/x/sync/errgroup"
)

// UntrackedPolicy decides what happens to open sync tasks whose
// repository is no longer in the tracked set.
type UntrackedPolicy string

const (
	// UntrackedKeep leaves the task alone. Absence from a filtered fetch
	// says nothing about the item's state.
	UntrackedKeep UntrackedPolicy = "keep"
	// UntrackedComplete completes the task as if the item had closed.
	UntrackedComplete UntrackedPolicy = "complete"
	// UntrackedTag adds UntrackedTagName to the task.
	UntrackedTag UntrackedPolicy = "tag"
)

// UntrackedTagName is the tag applied under UntrackedTag.
const UntrackedTagName = "untracked"

// ParseUntrackedPolicy validates a configured policy name.
func ParseUntrackedPolicy(s string) (UntrackedPolicy, error) {
	switch p := UntrackedPolicy(s); p {
	case UntrackedKeep, UntrackedComplete, UntrackedTag:
		return p, nil
	case "":
		return UntrackedKeep, nil
	}
	return "", fmt.Errorf("unknown untracked policy %q (want keep, complete or tag)", s)
}

// Config configures a Reconciler.
type Config struct {
	Store      *db.DB
	Fetchers   Fetchers
	Normalizer external.Normalizer
	Resolver   *project.Resolver
	Untracked  UntrackedPolicy
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Reconciler maps external items to tasks without duplicating them,
// resurrecting completed tasks, or touching user-owned fields.
type Reconciler struct {
	store      *db.DB
	fetchers   Fetchers
	normalizer external.Normalizer
	resolver   *project.Resolver
	untracked  UntrackedPolicy
	clock      clock.Clock
	logger     *slog.Logger
}

// New creates a Reconciler. Store is required.
func New(cfg Config) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = project.NewResolver(logger)
	}
	untracked := cfg.Untracked
	if untracked == "" {
		untracked = UntrackedKeep
	}
	return &Reconciler{
		store:      cfg.Store,
		fetchers:   cfg.Fetchers,
		normalizer: cfg.Normalizer,
		resolver:   resolver,
		untracked:  untracked,
		clock:      clock.OrReal(cfg.Clock),
		logger:     logger,
	}
}

// Sync runs one full cycle. Cancelling ctx aborts pending fetches (their
// categories are reported as failed); once applying starts it runs to
// completion.
func (r *Reconciler) Sync(ctx context.Context) Summary {
	started := r.clock.Now()
	batches := r.Fetch(ctx)
	summary := r.Apply(context.WithoutCancel(ctx), batches)
	summary.StartedAt = started
	summary.FinishedAt = r.clock.Now()

	r.logger.Info("sync finished",
		"created", summary.Created,
		"updated", summary.Updated,
		"auto_completed", summary.AutoCompleted,
		"unchanged", summary.Unchanged,
		"errors", len(summary.Errors),
		"duration", summary.Duration(),
	)
	return summary
}

// Fetch runs every configured category in parallel and returns one batch
// per category, in Categories order.
func (r *Reconciler) Fetch(ctx context.Context) []Batch {
	batches := make([]Batch, len(Categories))

	var g errgroup.Group
	for i, c := range Categories {
		i, c := i, c
		g.Go(func() error {
			batches[i] = r.fetch(ctx, c)
			return nil
		})
	}
	// Failures are carried in the batches.
	_ = g.Wait()

	return batches
}

func (r *Reconciler) fetch(ctx context.Context, c Category) Batch {
	b := Batch{Category: c}

	if c == TimeEntries {
		if r.fetchers.TimeEntries == nil {
			b.Skipped = true
			return b
		}
		records, err := r.fetchers.TimeEntries(ctx)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			b.Err = &FetchError{Category: c, Err: err}
			return b
		}
		b.Items = r.normalizer.TimeEntries(records, r.clock.Now())
		return b
	}

	fetch := r.fetchers.github(c)
	if fetch == nil {
		b.Skipped = true
		return b
	}
	records, err := fetch(ctx)
	if err == nil {
		// A fetcher that ignored cancellation may have returned a
		// partial list; absence in it must not read as closure.
		err = ctx.Err()
	}
	if err != nil {
		b.Err = &FetchError{Category: c, Err: err}
		return b
	}

	switch c {
	case AssignedIssues:
		b.Items = r.normalizer.Issues(records)
	case AuthoredPRs:
		b.Items = r.normalizer.PullRequests(records)
	case ReviewRequests:
		b.Items = r.normalizer.ReviewRequests(records)
	}
	return b
}

// Apply reconciles fetched batches into the store under the writer lock.
// Failed and skipped categories are reported and otherwise ignored.
func (r *Reconciler) Apply(ctx context.Context, batches []Batch) Summary {
	var s Summary

	err := r.store.Exclusive(ctx, func(sess *db.Session) error {
		for _, b := range batches {
			if !b.OK() {
				if b.Skipped {
					s.Skipped = append(s.Skipped, b.Category)
				} else {
					r.logger.Warn("fetch failed, category left untouched",
						"category", b.Category.String(), "error", b.Err)
					s.Errors = append(s.Errors, b.Err)
				}
				continue
			}

			if b.Category == TimeEntries {
				s.Time = timetrack.NewReport(b.Items, r.clock.Now())
				continue
			}

			seen := make(map[string]bool, len(b.Items))
			for _, item := range b.Items {
				seen[item.StableKey] = true
				r.applyItem(ctx, sess, item, &s)
			}
			r.completeMissing(ctx, sess, b.Category, seen, &s)
		}
		return nil
	})
	if err != nil {
		s.Errors = append(s.Errors, err)
	}

	return s
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeCreated
	outcomeUpdated
	outcomeSkipped
)

// applyItem is the per-item create-or-update, in one transaction.
func (r *Reconciler) applyItem(ctx context.Context, sess *db.Session, item model.ExternalItem, s *Summary) {
	var result outcome
	var completed bool

	err := sess.Transaction(func(tx *db.Tx) error {
		existing, err := tx.FindTaskByExternalKey(ctx, item.Source, item.StableKey)
		if err != nil {
			return err
		}
		if existing == nil && !item.Open {
			// Closed before we ever saw it; nothing to track.
			result = outcomeSkipped
			return nil
		}

		proj, err := r.resolver.Ensure(ctx, tx, item.Repo)
		if err != nil {
			return err
		}

		if existing == nil {
			task := &model.Task{
				Title:     item.Title,
				Notes:     item.Description(),
				Status:    model.StatusInbox,
				Kind:      item.Source.Kind(),
				ProjectID: &proj.ID,
				External:  item.Ref(),
				StateHash: item.StateHash,
			}
			if _, err := tx.CreateTask(ctx, task); err != nil {
				return err
			}
			result = outcomeCreated
			return nil
		}

		// Completed is terminal for sync: never resurrect, never rewrite.
		if existing.IsCompleted() {
			result = outcomeUnchanged
			return nil
		}

		if existing.StateHash == item.StateHash {
			result = outcomeUnchanged
			return nil
		}

		// Only externally-owned fields; status and priority belong to the user.
		u := db.TaskUpdate{
			Title:     &item.Title,
			URL:       &item.URL,
			StateHash: &item.StateHash,
		}
		if item.Source == model.SourceGithubIssue {
			notes := item.Description()
			u.Notes = &notes
		}
		if !item.Open {
			done := model.StatusCompleted
			u.Status = &done
			completed = true
		}
		if _, err := tx.UpdateTask(ctx, existing.ID, u); err != nil {
			return err
		}
		result = outcomeUpdated
		return nil
	})
	if err != nil {
		r.logger.Error("failed to apply item",
			"source", string(item.Source), "key", item.StableKey, "error", err)
		s.Errors = append(s.Errors, &ItemError{Source: item.Source, Key: item.StableKey, Err: err})
		return
	}

	switch result {
	case outcomeCreated:
		s.Created++
		r.logger.Info("created task", "source", string(item.Source), "key", item.StableKey)
	case outcomeUpdated:
		if completed {
			s.AutoCompleted++
			r.logger.Info("completed task for closed item", "key", item.StableKey)
		} else {
			s.Updated++
		}
	case outcomeUnchanged:
		s.Unchanged++
	}
}

// completeMissing handles tasks of a successfully fetched category whose
// item did not come back: the fetch lists open items only, so the item
// closed. Tasks last seen closed were reopened by the user and stay as
// they are.
func (r *Reconciler) completeMissing(ctx context.Context, sess *db.Session, c Category, seen map[string]bool, s *Summary) {
	var tasks []model.Task
	err := sess.Transaction(func(tx *db.Tx) error {
		var err error
		tasks, err = tx.ListExternalTasks(ctx, c.Source())
		return err
	})
	if err != nil {
		s.Errors = append(s.Errors, fmt.Errorf("list %s tasks: %w", c, err))
		return
	}

	for _, t := range tasks {
		if t.IsCompleted() || seen[t.External.StableKey] || !t.StateHash.IsOpen() {
			continue
		}

		if !r.normalizer.Tracks(t.External.Repo) {
			switch r.untracked {
			case UntrackedKeep:
				continue
			case UntrackedTag:
				r.tagUntracked(ctx, sess, t, s)
				continue
			}
		}

		r.complete(ctx, sess, t, s)
	}
}

func (r *Reconciler) complete(ctx context.Context, sess *db.Session, t model.Task, s *Summary) {
	err := sess.Transaction(func(tx *db.Tx) error {
		done := model.StatusCompleted
		closed := t.StateHash.Closed()
		_, err := tx.UpdateTask(ctx, t.ID, db.TaskUpdate{Status: &done, StateHash: &closed})
		return err
	})
	if err != nil {
		r.logger.Error("failed to auto-complete task",
			"task_id", t.ID, "key", t.External.StableKey, "error", err)
		s.Errors = append(s.Errors, &ItemError{Source: t.External.Source, Key: t.External.StableKey, Err: err})
		return
	}
	s.AutoCompleted++
	r.logger.Info("auto-completed task", "task_id", t.ID, "key", t.External.StableKey)
}

func (r *Reconciler) tagUntracked(ctx context.Context, sess *db.Session, t model.Task, s *Summary) {
	if t.HasTag(UntrackedTagName) {
		return
	}
	err := sess.Transaction(func(tx *db.Tx) error {
		return tx.AddTaskTag(ctx, t.ID, UntrackedTagName)
	})
	if err != nil {
		s.Errors = append(s.Errors, &ItemError{Source: t.External.Source, Key: t.External.StableKey, Err: err})
		return
	}
	s.Untracked++
	r.logger.Info("tagged task from untracked repository",
		"task_id", t.ID, "repo", t.External.Repo)
}
