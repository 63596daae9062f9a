package external

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dori/phitodo/internal/model"
	"github.com/zeebo/blake3"
)

// stateKey separates state fingerprints from any other blake3 use. ASCII
// "phitodo.external.state", zero padded to 32 bytes.
var stateKey = [32]byte{
	'p', 'h', 'i', 't', 'o', 'd', 'o', '.', 'e', 'x', 't', 'e', 'r', 'n', 'a', 'l',
	'.', 's', 't', 'a', 't', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Normalizer converts raw records into ExternalItems.
type Normalizer struct {
	// Repos limits GitHub items to these "owner/name" repositories. Empty
	// means every repository.
	Repos []string

	// HiddenProjects drops Toggl entries whose project name matches.
	HiddenProjects []string
}

// Tracks reports whether items from repo are kept by the repository filter.
func (n Normalizer) Tracks(repo string) bool {
	if len(n.Repos) == 0 {
		return true
	}
	repo = CanonicalRepo(repo)
	for _, r := range n.Repos {
		if CanonicalRepo(r) == repo {
			return true
		}
	}
	return false
}

// Issues normalizes the "assigned to me" issue list. Records flagged as
// pull requests are dropped: the issues endpoint returns both.
func (n Normalizer) Issues(records []GithubRecord) []model.ExternalItem {
	items := make([]model.ExternalItem, 0, len(records))
	for _, r := range records {
		if r.IsPullRequest || !n.Tracks(r.Repo) {
			continue
		}
		item := n.github(model.SourceGithubIssue, "issue", r)
		item.Payload = model.IssuePayload{Number: r.Number, Description: r.Body}
		items = append(items, item)
	}
	return items
}

// PullRequests normalizes pull requests authored by the user.
func (n Normalizer) PullRequests(records []GithubRecord) []model.ExternalItem {
	return n.pulls(model.SourceGithubPR, "pr", records)
}

// ReviewRequests normalizes pull requests awaiting the user's review. The
// key namespace differs from PullRequests so a self-authored PR that also
// requests the user's review yields two independent items.
func (n Normalizer) ReviewRequests(records []GithubRecord) []model.ExternalItem {
	return n.pulls(model.SourceGithubReview, "review", records)
}

func (n Normalizer) pulls(source model.Source, prefix string, records []GithubRecord) []model.ExternalItem {
	items := make([]model.ExternalItem, 0, len(records))
	for _, r := range records {
		if !n.Tracks(r.Repo) {
			continue
		}
		item := n.github(source, prefix, r)
		item.Payload = model.PullRequestPayload{
			Number:    r.Number,
			Author:    r.Author,
			Reviewers: r.Reviewers,
			Draft:     r.Draft,
		}
		items = append(items, item)
	}
	return items
}

func (n Normalizer) github(source model.Source, prefix string, r GithubRecord) model.ExternalItem {
	open := !strings.EqualFold(r.State, "closed")
	repo := CanonicalRepo(r.Repo)
	return model.ExternalItem{
		Source:    source,
		StableKey: StableKey(prefix, repo, r.Number),
		Title:     r.Title,
		URL:       r.URL,
		Repo:      repo,
		Open:      open,
		StateHash: model.NewStateHash(open, Digest(r.Title, r.Body, r.URL, repo)),
		UpdatedAt: r.UpdatedAt,
	}
}

// TimeEntries normalizes Toggl entries. Running timers get their elapsed
// time as of now.
func (n Normalizer) TimeEntries(records []TogglRecord, now time.Time) []model.ExternalItem {
	items := make([]model.ExternalItem, 0, len(records))
	for _, r := range records {
		if n.hidden(r.ProjectName) {
			continue
		}

		running := r.Duration < 0
		duration := time.Duration(r.Duration) * time.Second
		if running {
			duration = now.Sub(r.Start)
		}

		entry := model.TimeEntry{
			ID:          strconv.FormatInt(r.ID, 10),
			Description: r.Description,
			Project:     r.ProjectName,
			Workspace:   strconv.FormatInt(r.WorkspaceID, 10),
			StartedAt:   r.Start,
			EndedAt:     r.Stop,
			Duration:    duration,
		}
		if running {
			entry.EndedAt = nil
		}

		title := r.Description
		if title == "" {
			title = "(no description)"
		}

		items = append(items, model.ExternalItem{
			Source:    model.SourceTogglEntry,
			StableKey: entry.ID,
			Title:     title,
			Repo:      entry.Workspace,
			Open:      running,
			StateHash: model.NewStateHash(running, Digest(r.Description, r.ProjectName, r.Start.UTC().Format(time.RFC3339), strconv.FormatInt(r.Duration, 10))),
			UpdatedAt: r.Start,
			Payload:   model.TimeEntryPayload{Entry: entry},
		})
	}
	return items
}

func (n Normalizer) hidden(project string) bool {
	if project == "" {
		return false
	}
	for _, p := range n.HiddenProjects {
		if strings.EqualFold(p, project) {
			return true
		}
	}
	return false
}

// StableKey builds "<prefix>#<owner/name>#<number>".
func StableKey(prefix, repo string, number int) string {
	return fmt.Sprintf("%s#%s#%d", prefix, repo, number)
}

// Digest fingerprints the given fields with keyed BLAKE3. Each field is
// length-prefixed so ("ab", "c") and ("a", "bc") differ.
func Digest(fields ...string) string {
	h, err := blake3.NewKeyed(stateKey[:])
	if err != nil {
		// Only fails for a key that is not 32 bytes.
		panic(err)
	}
	var lenBuf [8]byte
	for _, f := range fields {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(f)))
		h.Write(lenBuf[:])
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}
