package github

import (
	"time"

	"github.com/dori/phitodo/internal/external"
)

// Issue is the subset of GitHub's issue object used here. The issues and
// search endpoints return pull requests in the same shape, with
// PullRequest set.
type Issue struct {
	ID            int64       `json:"id"`
	Number        int         `json:"number"`
	Title         string      `json:"title"`
	Body          string      `json:"body"`
	State         string      `json:"state"`
	HTMLURL       string      `json:"html_url"`
	RepositoryURL string      `json:"repository_url"`
	Repository    *Repository `json:"repository"`
	User          *User       `json:"user"`
	Assignees     []User      `json:"assignees"`
	Draft         bool        `json:"draft"`
	PullRequest   *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
	RequestedReviewers []User    `json:"requested_reviewers"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Repository is embedded in issues from the /issues endpoint only.
type Repository struct {
	FullName string `json:"full_name"`
}

// User is a GitHub account reference.
type User struct {
	Login string `json:"login"`
}

type searchResult struct {
	TotalCount        int     `json:"total_count"`
	IncompleteResults bool    `json:"incomplete_results"`
	Items             []Issue `json:"items"`
}

// Record converts the issue into the source-neutral record the
// normalizer consumes.
func (issue Issue) Record() external.GithubRecord {
	var fullName string
	if issue.Repository != nil {
		fullName = issue.Repository.FullName
	}
	record := external.GithubRecord{
		ID:            issue.ID,
		Number:        issue.Number,
		Title:         issue.Title,
		Body:          issue.Body,
		URL:           issue.HTMLURL,
		State:         issue.State,
		Repo:          external.RepoName(fullName, issue.RepositoryURL, issue.HTMLURL),
		Draft:         issue.Draft,
		IsPullRequest: issue.PullRequest != nil,
		UpdatedAt:     issue.UpdatedAt,
	}
	if issue.User != nil {
		record.Author = issue.User.Login
	}
	for _, reviewer := range issue.RequestedReviewers {
		record.Reviewers = append(record.Reviewers, reviewer.Login)
	}
	return record
}

// Records converts a slice of issues.
func Records(issues []Issue) []external.GithubRecord {
	records := make([]external.GithubRecord, len(issues))
	for i, issue := range issues {
		records[i] = issue.Record()
	}
	return records
}
