// Package external turns raw GitHub and Toggl records into normalized
// ExternalItems. Everything here is pure: no I/O, no clock reads.
package external

import (
	"net/url"
	"strings"
	"time"
)

// GithubRecord is the minimal shape of an issue or pull request as
// returned by the GitHub transport.
type GithubRecord struct {
	ID            int64
	Number        int
	Title         string
	Body          string
	URL           string
	State         string
	Repo          string
	Author        string
	Reviewers     []string
	Draft         bool
	IsPullRequest bool
	UpdatedAt     time.Time
}

// TogglRecord is one Toggl time entry. Duration is in seconds and is
// negative while the timer is running.
type TogglRecord struct {
	ID          int64
	WorkspaceID int64
	ProjectID   *int64
	ProjectName string
	Description string
	Start       time.Time
	Stop        *time.Time
	Duration    int64
}

// RepoName picks the "owner/name" of a GitHub item: the repository's
// full name if present, else the path of the repository API URL, else the
// path of the item's web URL. Unknown repositories are reported as
// "unknown".
func RepoName(fullName, repositoryURL, htmlURL string) string {
	if fullName != "" {
		return CanonicalRepo(fullName)
	}
	if repo := repoFromAPIURL(repositoryURL); repo != "" {
		return CanonicalRepo(repo)
	}
	if repo := repoFromHTMLURL(htmlURL); repo != "" {
		return CanonicalRepo(repo)
	}
	return "unknown"
}

// CanonicalRepo lowercases an "owner/name". GitHub names are
// case-insensitive; keys, projects and the tracked filter all compare
// the canonical form.
func CanonicalRepo(repo string) string {
	return strings.ToLower(strings.TrimSpace(repo))
}

// https://api.github.com/repos/owner/name
func repoFromAPIURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part == "repos" && i+2 < len(parts) {
			return parts[i+1] + "/" + parts[i+2]
		}
	}
	return ""
}

// https://github.com/owner/name/issues/42
func repoFromHTMLURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return parts[0] + "/" + parts[1]
}
