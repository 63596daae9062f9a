package model

import (
	"strings"
	"time"
)

// Source identifies where an external item came from. Each source has its
// own stable-key namespace.
type Source string

const (
	SourceGithubIssue  Source = "gh:issue"
	SourceGithubPR     Source = "gh:pr"
	SourceGithubReview Source = "gh:review"
	SourceTogglEntry   Source = "toggl"
)

// Kind maps a GitHub source to the task kind created for it. Toggl entries
// never become tasks and map to KindTask.
func (s Source) Kind() Kind {
	switch s {
	case SourceGithubIssue:
		return KindGithubIssue
	case SourceGithubPR:
		return KindGithubPR
	case SourceGithubReview:
		return KindGithubReview
	}
	return KindTask
}

// IsGithub reports whether items of this source are reconciled into tasks.
func (s Source) IsGithub() bool {
	return s == SourceGithubIssue || s == SourceGithubPR || s == SourceGithubReview
}

// StateHash fingerprints the last-seen external state. It carries the
// open/closed flag as a prefix followed by a content digest.
type StateHash string

const (
	hashOpen   = "open:"
	hashClosed = "closed:"
)

// NewStateHash joins the open flag with a content digest.
func NewStateHash(open bool, digest string) StateHash {
	if open {
		return StateHash(hashOpen + digest)
	}
	return StateHash(hashClosed + digest)
}

// IsOpen reports whether the item was open when the hash was taken.
func (h StateHash) IsOpen() bool {
	return strings.HasPrefix(string(h), hashOpen)
}

// Closed returns the same digest flagged as closed.
func (h StateHash) Closed() StateHash {
	return NewStateHash(false, h.Digest())
}

// Digest returns the content part of the hash.
func (h StateHash) Digest() string {
	s := string(h)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Payload is the source-specific part of an ExternalItem. Implemented by
// IssuePayload, PullRequestPayload and TimeEntryPayload only.
type Payload interface {
	isPayload()
}

// IssuePayload carries the issue body.
type IssuePayload struct {
	Number      int
	Description string
}

// PullRequestPayload is shared by authored PRs and review requests.
type PullRequestPayload struct {
	Number    int
	Author    string
	Reviewers []string
	Draft     bool
}

// TimeEntryPayload carries a Toggl entry.
type TimeEntryPayload struct {
	Entry TimeEntry
}

func (IssuePayload) isPayload()       {}
func (PullRequestPayload) isPayload() {}
func (TimeEntryPayload) isPayload()   {}

// ExternalItem is a normalized record from GitHub or Toggl. It is never
// persisted; the reconciler turns GitHub items into tasks.
type ExternalItem struct {
	Source    Source
	StableKey string
	Title     string
	URL       string
	// Repo is "owner/name" for GitHub items and the workspace id for Toggl.
	Repo      string
	Open      bool
	StateHash StateHash
	UpdatedAt time.Time
	Payload   Payload
}

// Description returns the issue body. Other sources have none.
func (e *ExternalItem) Description() string {
	if p, ok := e.Payload.(IssuePayload); ok {
		return p.Description
	}
	return ""
}

// Ref returns the external reference stored on a task created from e.
func (e *ExternalItem) Ref() *ExternalRef {
	return &ExternalRef{
		Source:    e.Source,
		StableKey: e.StableKey,
		URL:       e.URL,
		Repo:      e.Repo,
	}
}
