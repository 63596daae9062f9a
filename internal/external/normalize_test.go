package external

import (
	"testing"
	"time"

	"github.com/dori/phitodo/internal/model"
)

func issue(repo string, number int, title, state string) GithubRecord {
	return GithubRecord{
		ID:     int64(number),
		Number: number,
		Title:  title,
		Body:   "steps to reproduce",
		URL:    "https://github.com/" + repo + "/issues/1",
		State:  state,
		Repo:   repo,
	}
}

func TestIssues(t *testing.T) {
	var n Normalizer
	records := []GithubRecord{
		issue("acme/app", 42, "Fix login bug", "open"),
		{Number: 7, Title: "A PR", Repo: "acme/app", IsPullRequest: true, State: "open"},
		issue("acme/app", 43, "Old bug", "closed"),
	}

	items := n.Issues(records)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (pull request dropped)", len(items))
	}

	first := items[0]
	if first.Source != model.SourceGithubIssue {
		t.Errorf("Source = %s", first.Source)
	}
	if first.StableKey != "issue#acme/app#42" {
		t.Errorf("StableKey = %q", first.StableKey)
	}
	if !first.Open || !first.StateHash.IsOpen() {
		t.Errorf("open issue normalized as closed: %+v", first)
	}
	if first.Description() != "steps to reproduce" {
		t.Errorf("Description() = %q", first.Description())
	}
	if first.Repo != "acme/app" {
		t.Errorf("Repo = %q", first.Repo)
	}

	if items[1].Open || items[1].StateHash.IsOpen() {
		t.Errorf("closed issue normalized as open: %+v", items[1])
	}
}

func TestPullRequestAndReviewKeysDiffer(t *testing.T) {
	var n Normalizer
	pr := GithubRecord{
		Number: 7, Title: "Add caching", Repo: "acme/app", State: "open",
		Author: "me", Reviewers: []string{"me", "bob"}, IsPullRequest: true,
	}

	prs := n.PullRequests([]GithubRecord{pr})
	reviews := n.ReviewRequests([]GithubRecord{pr})
	if len(prs) != 1 || len(reviews) != 1 {
		t.Fatalf("got %d prs, %d reviews", len(prs), len(reviews))
	}
	if prs[0].StableKey == reviews[0].StableKey && prs[0].Source == reviews[0].Source {
		t.Fatal("PR and review items share an identity")
	}
	if prs[0].StableKey != "pr#acme/app#7" || reviews[0].StableKey != "review#acme/app#7" {
		t.Errorf("keys = %q, %q", prs[0].StableKey, reviews[0].StableKey)
	}
	if reviews[0].Source != model.SourceGithubReview {
		t.Errorf("review source = %s", reviews[0].Source)
	}

	payload, ok := prs[0].Payload.(model.PullRequestPayload)
	if !ok || payload.Author != "me" || len(payload.Reviewers) != 2 {
		t.Errorf("payload = %#v", prs[0].Payload)
	}
	if prs[0].Description() != "" {
		t.Error("pull requests carry no description")
	}
}

func TestRepoFilter(t *testing.T) {
	n := Normalizer{Repos: []string{"Acme/App"}}
	items := n.Issues([]GithubRecord{
		issue("acme/app", 1, "kept", "open"),
		issue("other/repo", 2, "dropped", "open"),
	})
	if len(items) != 1 || items[0].Title != "kept" {
		t.Fatalf("items = %+v", items)
	}
	if n.Tracks("other/repo") {
		t.Error("other/repo should not be tracked")
	}
	if !(Normalizer{}).Tracks("anything") {
		t.Error("empty filter tracks everything")
	}
}

func TestRepoCaseIsCanonical(t *testing.T) {
	var n Normalizer
	mixed := issue("Acme/App", 42, "Fix login bug", "open")
	mixed.URL = "https://github.com/acme/app/issues/1"
	upper := n.Issues([]GithubRecord{mixed})[0]
	lower := n.Issues([]GithubRecord{issue("acme/app", 42, "Fix login bug", "open")})[0]
	if upper.StableKey != lower.StableKey || upper.StableKey != "issue#acme/app#42" {
		t.Errorf("keys = %q, %q", upper.StableKey, lower.StableKey)
	}
	if upper.Repo != "acme/app" {
		t.Errorf("repo = %q", upper.Repo)
	}
	if upper.StateHash != lower.StateHash {
		t.Error("repo case changed the state hash")
	}
}

func TestStateHashDeterministic(t *testing.T) {
	var n Normalizer
	a := n.Issues([]GithubRecord{issue("acme/app", 42, "Fix login bug", "open")})[0]
	b := n.Issues([]GithubRecord{issue("acme/app", 42, "Fix login bug", "open")})[0]
	if a.StateHash != b.StateHash {
		t.Fatalf("same input, different hashes: %q vs %q", a.StateHash, b.StateHash)
	}

	c := n.Issues([]GithubRecord{issue("acme/app", 42, "Fix login bug (v2)", "open")})[0]
	if a.StateHash == c.StateHash {
		t.Fatal("title change did not change the hash")
	}

	if Digest("ab", "c") == Digest("a", "bc") {
		t.Fatal("field boundaries must affect the digest")
	}
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		name                      string
		fullName, apiURL, htmlURL string
		want                      string
	}{
		{"full name", "acme/app", "", "", "acme/app"},
		{"api url", "", "https://api.github.com/repos/acme/api", "", "acme/api"},
		{"html url", "", "", "https://github.com/acme/web/pull/3", "acme/web"},
		{"unknown", "", "", "", "unknown"},
		{"mixed case", "Acme/App", "", "", "acme/app"},
		{"mixed case url", "", "https://api.github.com/repos/Acme/API", "", "acme/api"},
		{"bad api url falls through", "", "https://api.github.com/users/x", "https://github.com/acme/cli/issues/1", "acme/cli"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RepoName(tt.fullName, tt.apiURL, tt.htmlURL); got != tt.want {
				t.Errorf("RepoName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimeEntries(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-2 * time.Hour)
	stop := start.Add(30 * time.Minute)
	n := Normalizer{HiddenProjects: []string{"Break"}}

	items := n.TimeEntries([]TogglRecord{
		{ID: 1, WorkspaceID: 9, ProjectName: "phitodo", Description: "review", Start: start, Stop: &stop, Duration: 1800},
		{ID: 2, WorkspaceID: 9, Description: "", Start: now.Add(-15 * time.Minute), Duration: -now.Add(-15 * time.Minute).Unix()},
		{ID: 3, WorkspaceID: 9, ProjectName: "break", Start: start, Duration: 600},
	}, now)

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (hidden project dropped)", len(items))
	}

	done := items[0]
	if done.Source != model.SourceTogglEntry || done.StableKey != "1" || done.Repo != "9" {
		t.Errorf("item = %+v", done)
	}
	entry := done.Payload.(model.TimeEntryPayload).Entry
	if entry.Duration != 30*time.Minute || entry.IsRunning() {
		t.Errorf("entry = %+v", entry)
	}

	running := items[1]
	if !running.Open || running.Title != "(no description)" {
		t.Errorf("running item = %+v", running)
	}
	re := running.Payload.(model.TimeEntryPayload).Entry
	if re.Duration != 15*time.Minute || !re.IsRunning() {
		t.Errorf("running entry = %+v", re)
	}
}
