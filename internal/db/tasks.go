package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dori/phitodo/internal/model"
	"github.com/google/uuid"
)

const taskColumns = `
	id, title, notes, status, priority, kind, project_id, due_date, completed_at,
	external_source, external_key, external_url, external_repo, external_state_hash,
	position, created_at, updated_at`

const taskOrder = `
	ORDER BY
		CASE status WHEN 'completed' THEN 1 ELSE 0 END,
		CASE priority
			WHEN 'high' THEN 0
			WHEN 'medium' THEN 1
			WHEN 'low' THEN 2
			ELSE 3
		END,
		position,
		created_at DESC`

// TaskUpdate lists the fields to change. Nil fields are left alone.
type TaskUpdate struct {
	Title     *string
	Notes     *string
	Status    *model.Status
	Priority  *model.Priority
	Kind      *model.Kind
	ProjectID *string
	DueDate   *time.Time
	URL       *string
	StateHash *model.StateHash

	ClearProject bool
	ClearDueDate bool
}

// GetTasks returns all tasks, open ones first
func (tx *Tx) GetTasks(ctx context.Context) ([]model.Task, error) {
	return tx.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks`+taskOrder)
}

// GetTasksByProject returns tasks for a specific project
func (tx *Tx) GetTasksByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	return tx.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = ?`+taskOrder, projectID)
}

// ListExternalTasks returns the sync-originated tasks of one source.
func (tx *Tx) ListExternalTasks(ctx context.Context, source model.Source) ([]model.Task, error) {
	return tx.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE external_source = ? ORDER BY created_at`, string(source))
}

// QueryTasks returns the tasks matching pred.
func (tx *Tx) QueryTasks(ctx context.Context, pred func(*model.Task) bool) ([]model.Task, error) {
	all, err := tx.GetTasks(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Task
	for i := range all {
		if pred(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// GetTask returns a single task by ID, or nil if it does not exist
func (tx *Tx) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return tx.queryTask(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
}

// FindTaskByExternalKey returns the task created for (source, key), or nil.
func (tx *Tx) FindTaskByExternalKey(ctx context.Context, source model.Source, key string) (*model.Task, error) {
	return tx.queryTask(ctx, `SELECT `+taskColumns+` FROM tasks WHERE external_source = ? AND external_key = ?`, string(source), key)
}

// CreateTask inserts t, filling in ID, defaults and timestamps, and returns
// the new ID.
func (tx *Tx) CreateTask(ctx context.Context, t *model.Task) (string, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return "", errors.New("task title is required")
	}

	if t.External != nil {
		existing, err := tx.FindTaskByExternalKey(ctx, t.External.Source, t.External.StableKey)
		if err != nil {
			return "", err
		}
		if existing != nil {
			return "", fmt.Errorf("%s %s: %w", t.External.Source, t.External.StableKey, ErrDuplicateExternalKey)
		}
	}

	now := tx.clock.Now()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = model.StatusInbox
	}
	if t.Priority == "" {
		t.Priority = model.PriorityNone
	}
	if t.Kind == "" {
		t.Kind = model.KindTask
	}
	if t.DueDate != nil {
		day := model.Day(*t.DueDate)
		t.DueDate = &day
	}
	if t.Status == model.StatusCompleted && t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	var source, key, url, repo any
	if t.External != nil {
		source = string(t.External.Source)
		key = t.External.StableKey
		url = nullString(t.External.URL)
		repo = nullString(t.External.Repo)
	}

	_, err := tx.q.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, nullString(t.Notes), string(t.Status), string(t.Priority), string(t.Kind),
		t.ProjectID, formatDate(t.DueDate), formatTimePtr(t.CompletedAt),
		source, key, url, repo, nullString(string(t.StateHash)),
		t.Position, formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("insert task %s: %w", t.ID, ErrDuplicateExternalKey)
		}
		return "", fmt.Errorf("insert task: %w", err)
	}

	if len(t.Tags) > 0 {
		if err := tx.SetTaskTags(ctx, t.ID, t.Tags); err != nil {
			return "", err
		}
	}

	return t.ID, nil
}

// UpdateTask applies u to the task and bumps updated_at. Moving a task into
// Completed stamps completed_at; moving it out clears it.
func (tx *Tx) UpdateTask(ctx context.Context, id string, u TaskUpdate) (*model.Task, error) {
	t, err := tx.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	now := tx.clock.Now()
	wasCompleted := t.IsCompleted()

	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Notes != nil {
		t.Notes = *u.Notes
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Kind != nil {
		t.Kind = *u.Kind
	}
	if u.ProjectID != nil {
		t.ProjectID = u.ProjectID
	}
	if u.ClearProject {
		t.ProjectID = nil
	}
	if u.DueDate != nil {
		day := model.Day(*u.DueDate)
		t.DueDate = &day
	}
	if u.ClearDueDate {
		t.DueDate = nil
	}
	if u.URL != nil && t.External != nil {
		t.External.URL = *u.URL
	}
	if u.StateHash != nil {
		t.StateHash = *u.StateHash
	}

	switch {
	case t.IsCompleted() && !wasCompleted:
		t.CompletedAt = &now
	case !t.IsCompleted() && wasCompleted:
		t.CompletedAt = nil
	}
	t.UpdatedAt = now

	var url any
	if t.External != nil {
		url = nullString(t.External.URL)
	}

	_, err = tx.q.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, notes = ?, status = ?, priority = ?, kind = ?, project_id = ?,
			due_date = ?, completed_at = ?, external_url = ?, external_state_hash = ?,
			updated_at = ?
		WHERE id = ?
	`, t.Title, nullString(t.Notes), string(t.Status), string(t.Priority), string(t.Kind), t.ProjectID,
		formatDate(t.DueDate), formatTimePtr(t.CompletedAt), url, nullString(string(t.StateHash)),
		formatTime(now), id)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}

	return t, nil
}

// ToggleTaskCompleted flips a task between Completed and Active
func (tx *Tx) ToggleTaskCompleted(ctx context.Context, id string) (*model.Task, error) {
	t, err := tx.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	status := model.StatusCompleted
	if t.IsCompleted() {
		status = model.StatusActive
	}
	return tx.UpdateTask(ctx, id, TaskUpdate{Status: &status})
}

// DeleteTask deletes a task. Tag links go with it.
func (tx *Tx) DeleteTask(ctx context.Context, id string) error {
	res, err := tx.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// Helper functions

func (tx *Tx) queryTask(ctx context.Context, query string, args ...any) (*model.Task, error) {
	t, err := scanTaskRow(tx.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tags, err := tx.tagsFor(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Tags = tags[t.ID]
	return t, nil
}

func (tx *Tx) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := tx.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Close before loading tags: the pool has a single connection.
	rows.Close()

	if len(tasks) == 0 {
		return tasks, nil
	}

	tags, err := tx.tagsFor(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Tags = tags[tasks[i].ID]
	}
	return tasks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTaskRow(s scanner) (*model.Task, error) {
	var t model.Task
	var notes, projectID, dueDate, completedAt *string
	var source, key, url, repo, hash *string
	var createdAt, updatedAt string

	err := s.Scan(
		&t.ID, &t.Title, &notes, &t.Status, &t.Priority, &t.Kind,
		&projectID, &dueDate, &completedAt,
		&source, &key, &url, &repo, &hash,
		&t.Position, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if notes != nil {
		t.Notes = *notes
	}
	t.ProjectID = projectID
	t.DueDate = parseDate(dueDate)
	t.CompletedAt = parseTimePtr(completedAt)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)

	if source != nil && key != nil {
		ref := &model.ExternalRef{Source: model.Source(*source), StableKey: *key}
		if url != nil {
			ref.URL = *url
		}
		if repo != nil {
			ref.Repo = *repo
		}
		t.External = ref
	}
	if hash != nil {
		t.StateHash = model.StateHash(*hash)
	}

	return &t, nil
}

// Convenience wrappers on DB. Writes take the writer lock.

// GetTasks returns all tasks
func (db *DB) GetTasks(ctx context.Context) ([]model.Task, error) {
	return db.reader().GetTasks(ctx)
}

// GetTasksByProject returns tasks for a specific project
func (db *DB) GetTasksByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	return db.reader().GetTasksByProject(ctx, projectID)
}

// QueryTasks returns the tasks matching pred
func (db *DB) QueryTasks(ctx context.Context, pred func(*model.Task) bool) ([]model.Task, error) {
	return db.reader().QueryTasks(ctx, pred)
}

// GetTask returns a single task by ID, or nil
func (db *DB) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return db.reader().GetTask(ctx, id)
}

// FindTaskByExternalKey returns the task for (source, key), or nil
func (db *DB) FindTaskByExternalKey(ctx context.Context, source model.Source, key string) (*model.Task, error) {
	return db.reader().FindTaskByExternalKey(ctx, source, key)
}

// CreateTask creates a new task and returns its ID
func (db *DB) CreateTask(ctx context.Context, t *model.Task) (string, error) {
	var id string
	err := db.Transaction(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.CreateTask(ctx, t)
		return err
	})
	return id, err
}

// UpdateTask applies u to task id
func (db *DB) UpdateTask(ctx context.Context, id string, u TaskUpdate) (*model.Task, error) {
	var t *model.Task
	err := db.Transaction(ctx, func(tx *Tx) error {
		var err error
		t, err = tx.UpdateTask(ctx, id, u)
		return err
	})
	return t, err
}

// ToggleTaskCompleted flips a task between Completed and Active
func (db *DB) ToggleTaskCompleted(ctx context.Context, id string) (*model.Task, error) {
	var t *model.Task
	err := db.Transaction(ctx, func(tx *Tx) error {
		var err error
		t, err = tx.ToggleTaskCompleted(ctx, id)
		return err
	})
	return t, err
}

// DeleteTask deletes a task
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	return db.Transaction(ctx, func(tx *Tx) error {
		return tx.DeleteTask(ctx, id)
	})
}
