package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dori/phitodo/internal/model"
	"github.com/google/uuid"
)

// GetTags returns all tags
func (tx *Tx) GetTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := tx.q.QueryContext(ctx, `
		SELECT id, name, color, created_at
		FROM tags
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		var color *string
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &color, &createdAt); err != nil {
			return nil, err
		}
		if color != nil {
			t.Color = *color
		}
		t.CreatedAt = parseTime(createdAt)
		tags = append(tags, t)
	}

	return tags, rows.Err()
}

// GetOrCreateTag gets a tag by name or creates it if it doesn't exist
func (tx *Tx) GetOrCreateTag(ctx context.Context, name string) (string, error) {
	name = model.NormalizeTag(name)
	if name == "" {
		return "", errors.New("tag name is required")
	}

	var id string
	err := tx.q.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id = uuid.New().String()
	_, err = tx.q.ExecContext(ctx, `INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, formatTime(tx.clock.Now()))
	if err != nil {
		return "", fmt.Errorf("create tag %q: %w", name, err)
	}
	return id, nil
}

// SetTaskTags replaces all tags on a task, creating missing tags by name
func (tx *Tx) SetTaskTags(ctx context.Context, taskID string, names []string) error {
	if _, err := tx.q.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = ?`, taskID); err != nil {
		return err
	}
	for _, name := range names {
		if err := tx.AddTaskTag(ctx, taskID, name); err != nil {
			return err
		}
	}
	return nil
}

// AddTaskTag attaches one tag to a task
func (tx *Tx) AddTaskTag(ctx context.Context, taskID, name string) error {
	tagID, err := tx.GetOrCreateTag(ctx, name)
	if err != nil {
		return err
	}
	_, err = tx.q.ExecContext(ctx, `INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)`, taskID, tagID)
	return err
}

// tagsFor maps task id to tag names. An empty taskID loads every link.
func (tx *Tx) tagsFor(ctx context.Context, taskID string) (map[string][]string, error) {
	query := `
		SELECT tt.task_id, t.name
		FROM task_tags tt
		JOIN tags t ON t.id = tt.tag_id`
	var args []any
	if taskID != "" {
		query += ` WHERE tt.task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY t.name`

	rows, err := tx.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

// GetTags returns all tags
func (db *DB) GetTags(ctx context.Context) ([]model.Tag, error) {
	return db.reader().GetTags(ctx)
}

// SetTaskTags replaces all tags on a task
func (db *DB) SetTaskTags(ctx context.Context, taskID string, names []string) error {
	return db.Transaction(ctx, func(tx *Tx) error {
		return tx.SetTaskTags(ctx, taskID, names)
	})
}
