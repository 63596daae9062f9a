package model

import (
	"time"
)

// Project represents a task list/project
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color,omitempty"`
	SourceRepo string    `json:"source_repo,omitempty"` // set only for projects created by sync
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Computed fields (not stored)
	TaskCount int `json:"task_count,omitempty"`
}

// IsSynced returns true if the project was created for a tracked repository
func (p *Project) IsSynced() bool {
	return p.SourceRepo != ""
}
