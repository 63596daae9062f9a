package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dori/phitodo/internal/model"
	"github.com/google/uuid"
)

const projectColumns = `p.id, p.name, p.color, p.source_repo, p.position, p.created_at, p.updated_at`

// GetProjects returns all projects with their open task counts
func (tx *Tx) GetProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := tx.q.QueryContext(ctx, `
		SELECT `+projectColumns+`,
		       (SELECT COUNT(*) FROM tasks WHERE project_id = p.id AND status != 'completed') AS task_count
		FROM projects p
		ORDER BY p.position, p.created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows, true)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}

	return projects, rows.Err()
}

// GetProject returns a single project by ID, or nil
func (tx *Tx) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return tx.queryProject(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, id)
}

// FindProjectBySourceRepo returns the project created for repo, or nil
func (tx *Tx) FindProjectBySourceRepo(ctx context.Context, repo string) (*model.Project, error) {
	return tx.queryProject(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.source_repo = ?`, repo)
}

// CreateProject inserts p at the end of the project list
func (tx *Tx) CreateProject(ctx context.Context, p *model.Project) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errors.New("project name is required")
	}

	if p.SourceRepo != "" {
		existing, err := tx.FindProjectBySourceRepo(ctx, p.SourceRepo)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("project for %s: %w", p.SourceRepo, ErrDuplicateProject)
		}
	}

	var maxPos sql.NullInt64
	if err := tx.q.QueryRowContext(ctx, `SELECT MAX(position) FROM projects`).Scan(&maxPos); err != nil {
		return fmt.Errorf("project position: %w", err)
	}

	now := tx.clock.Now()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Position = int(maxPos.Int64) + 1
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := tx.q.ExecContext(ctx, `
		INSERT INTO projects (id, name, color, source_repo, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, nullString(p.Color), nullString(p.SourceRepo), p.Position, formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("project for %s: %w", p.SourceRepo, ErrDuplicateProject)
		}
		return fmt.Errorf("insert project: %w", err)
	}

	return nil
}

// RenameProject changes a project's display name
func (tx *Tx) RenameProject(ctx context.Context, id, name string) error {
	res, err := tx.q.ExecContext(ctx, `UPDATE projects SET name = ?, updated_at = ? WHERE id = ?`,
		name, formatTime(tx.clock.Now()), id)
	if err != nil {
		return err
	}
	return requireRow(res, "project", id)
}

// DeleteProject removes a project. Its tasks survive without a project.
func (tx *Tx) DeleteProject(ctx context.Context, id string) error {
	now := formatTime(tx.clock.Now())
	if _, err := tx.q.ExecContext(ctx, `UPDATE tasks SET project_id = NULL, updated_at = ? WHERE project_id = ?`, now, id); err != nil {
		return fmt.Errorf("detach tasks: %w", err)
	}

	res, err := tx.q.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "project", id)
}

func (tx *Tx) queryProject(ctx context.Context, query string, args ...any) (*model.Project, error) {
	p, err := scanProject(tx.q.QueryRowContext(ctx, query, args...), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func scanProject(s scanner, withCount bool) (*model.Project, error) {
	var p model.Project
	var color, repo *string
	var createdAt, updatedAt string

	dest := []any{&p.ID, &p.Name, &color, &repo, &p.Position, &createdAt, &updatedAt}
	if withCount {
		dest = append(dest, &p.TaskCount)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	if color != nil {
		p.Color = *color
	}
	if repo != nil {
		p.SourceRepo = *repo
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func requireRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

// GetProjects returns all projects
func (db *DB) GetProjects(ctx context.Context) ([]model.Project, error) {
	return db.reader().GetProjects(ctx)
}

// GetProject returns a single project by ID
func (db *DB) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return db.reader().GetProject(ctx, id)
}

// CreateProject creates a user project
func (db *DB) CreateProject(ctx context.Context, name, color string) (*model.Project, error) {
	p := &model.Project{Name: name, Color: color}
	err := db.Transaction(ctx, func(tx *Tx) error {
		return tx.CreateProject(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RenameProject changes a project's display name
func (db *DB) RenameProject(ctx context.Context, id, name string) error {
	return db.Transaction(ctx, func(tx *Tx) error {
		return tx.RenameProject(ctx, id, name)
	})
}

// DeleteProject deletes a project, leaving its tasks project-less
func (db *DB) DeleteProject(ctx context.Context, id string) error {
	return db.Transaction(ctx, func(tx *Tx) error {
		return tx.DeleteProject(ctx, id)
	})
}
