package reconcile

import (
	"context"
	"fmt"

	"github.com/dori/phitodo/internal/external"
	"github.com/dori/phitodo/internal/model"
)

// Category is one fetch stream. Success or failure is tracked per
// category: absence from a failed category never means "closed".
type Category int

const (
	AssignedIssues Category = iota
	AuthoredPRs
	ReviewRequests
	TimeEntries
)

// Categories lists every category in apply order.
var Categories = []Category{AssignedIssues, AuthoredPRs, ReviewRequests, TimeEntries}

func (c Category) String() string {
	switch c {
	case AssignedIssues:
		return "assigned issues"
	case AuthoredPRs:
		return "authored pull requests"
	case ReviewRequests:
		return "review requests"
	case TimeEntries:
		return "time entries"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Source returns the item source produced by the category.
func (c Category) Source() model.Source {
	switch c {
	case AssignedIssues:
		return model.SourceGithubIssue
	case AuthoredPRs:
		return model.SourceGithubPR
	case ReviewRequests:
		return model.SourceGithubReview
	}
	return model.SourceTogglEntry
}

// GithubFetcher returns the raw records of one GitHub category.
type GithubFetcher func(ctx context.Context) ([]external.GithubRecord, error)

// TogglFetcher returns raw Toggl time entries.
type TogglFetcher func(ctx context.Context) ([]external.TogglRecord, error)

// Fetchers holds one fetch function per category. A nil fetcher means
// the category is not configured and is skipped.
type Fetchers struct {
	AssignedIssues GithubFetcher
	AuthoredPRs    GithubFetcher
	ReviewRequests GithubFetcher
	TimeEntries    TogglFetcher
}

func (f Fetchers) github(c Category) GithubFetcher {
	switch c {
	case AssignedIssues:
		return f.AssignedIssues
	case AuthoredPRs:
		return f.AuthoredPRs
	case ReviewRequests:
		return f.ReviewRequests
	}
	return nil
}

// Batch is the outcome of fetching one category.
type Batch struct {
	Category Category
	Items    []model.ExternalItem
	Err      error
	Skipped  bool
}

// OK reports whether the batch can be reconciled.
func (b Batch) OK() bool {
	return !b.Skipped && b.Err == nil
}
