package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/dori/phitodo/internal/timetrack"
)

// Summary is the result of one reconciliation cycle. Sync always returns
// one; failures are listed in Errors. A written task counts in exactly
// one of Created, Updated, AutoCompleted and Untracked.
type Summary struct {
	Created       int
	Updated       int
	AutoCompleted int
	Unchanged     int
	// Untracked counts tasks handled by the untracked-repository policy.
	Untracked int

	Errors  []error
	Skipped []Category

	// Time is nil unless the time-entry category succeeded.
	Time *timetrack.Report

	StartedAt  time.Time
	FinishedAt time.Time
}

// Changed returns the number of tasks written in the cycle.
func (s Summary) Changed() int {
	return s.Created + s.Updated + s.AutoCompleted + s.Untracked
}

// HasErrors reports whether any category or item failed.
func (s Summary) HasErrors() bool {
	return len(s.Errors) > 0
}

// Duration returns how long the cycle took.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s Summary) String() string {
	parts := []string{
		fmt.Sprintf("%d created", s.Created),
		fmt.Sprintf("%d updated", s.Updated),
		fmt.Sprintf("%d completed", s.AutoCompleted),
	}
	if s.Untracked > 0 {
		parts = append(parts, fmt.Sprintf("%d untracked", s.Untracked))
	}
	switch len(s.Errors) {
	case 0:
	case 1:
		parts = append(parts, "1 error")
	default:
		parts = append(parts, fmt.Sprintf("%d errors", len(s.Errors)))
	}
	return strings.Join(parts, ", ")
}
