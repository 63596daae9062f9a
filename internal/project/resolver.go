// Package project maps external repositories to local projects.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dori/phitodo/internal/db"
	"github.com/dori/phitodo/internal/model"
)

// Resolver creates one project per source repository on first sight and
// returns the same project afterwards.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver returns a Resolver. A nil logger uses slog.Default().
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Ensure returns the project whose source_repo is repo, creating it inside
// tx if needed. Callers hold the store's writer lock through tx, so two
// Ensure calls for the same repo cannot both insert; a duplicate reported
// by the store is resolved by re-reading.
func (r *Resolver) Ensure(ctx context.Context, tx *db.Tx, repo string) (*model.Project, error) {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return nil, errors.New("repository identifier is required")
	}

	existing, err := tx.FindProjectBySourceRepo(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("lookup project %s: %w", repo, err)
	}
	if existing != nil {
		return existing, nil
	}

	p := &model.Project{Name: repo, SourceRepo: repo}
	if err := tx.CreateProject(ctx, p); err != nil {
		if !errors.Is(err, db.ErrDuplicateProject) {
			return nil, fmt.Errorf("create project %s: %w", repo, err)
		}
		existing, err := tx.FindProjectBySourceRepo(ctx, repo)
		if err != nil || existing == nil {
			return nil, fmt.Errorf("reload project %s: %w", repo, err)
		}
		return existing, nil
	}

	r.logger.Info("created project for repository", "repo", repo, "project_id", p.ID)
	return p, nil
}

// EnsureProject is Ensure in its own transaction.
func (r *Resolver) EnsureProject(ctx context.Context, store *db.DB, repo string) (*model.Project, error) {
	var p *model.Project
	err := store.Transaction(ctx, func(tx *db.Tx) error {
		var err error
		p, err = r.Ensure(ctx, tx, repo)
		return err
	})
	return p, err
}
