package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes the CLI against a config whose data dir lives in a temp
// directory.
func run(t *testing.T, configFile string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configFile}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "data_dir: " + filepath.Join(dir, "data") + "\nnotifications: false\nlog_level: error\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAddThenList(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "add", "Buy", "groceries", "@errands", "!high")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	for _, want := range []string{"Created: Buy groceries", "Priority: high", "Tags: @errands"} {
		if !strings.Contains(out, want) {
			t.Errorf("add output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, cfg, "list", "inbox")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[ ] Buy groceries !high @errands") {
		t.Errorf("list output:\n%s", out)
	}
}

func TestAddRequiresTitle(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := run(t, cfg, "add", "!high"); err == nil {
		t.Fatal("expected an error for an empty title")
	}
}

func TestListUnknownView(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := run(t, cfg, "list", "someday"); err == nil {
		t.Fatal("expected an error for an unknown view")
	}
}

func TestListEmpty(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, cfg, "list", "today")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Today is empty") {
		t.Errorf("output:\n%s", out)
	}
}

func TestSyncWithoutTokens(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, cfg, "sync")
	if err != nil {
		t.Fatalf("sync: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Synced: 0 created") {
		t.Errorf("output:\n%s", out)
	}
}

func TestTimeWithoutToken(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := run(t, cfg, "time"); err == nil || !strings.Contains(err.Error(), "toggl.token") {
		t.Fatalf("err = %v, want missing token", err)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phitodo", "config.yaml")

	out, err := run(t, path, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("output:\n%s", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	if _, err := run(t, path, "config", "init"); err == nil {
		t.Error("second init should refuse to overwrite")
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, writeConfig(t), "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "phitodo v"+version {
		t.Errorf("output = %q", out)
	}
}

func TestListFiltersAndGroups(t *testing.T) {
	cfg := writeConfig(t)
	for _, text := range []string{"Pay rent @home due:today", "Ship release @work !high", "Fix sink @home"} {
		if out, err := run(t, cfg, "add", text); err != nil {
			t.Fatalf("add %q: %v\n%s", text, err, out)
		}
	}

	out, err := run(t, cfg, "list", "inbox", "--tag", "home", "--group")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Contains(out, "Ship release") {
		t.Errorf("tag filter leaked a @work task:\n%s", out)
	}
	for _, want := range []string{"today\n  [ ] Pay rent", "No date\n  [ ] Fix sink"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	out, err = run(t, cfg, "list", "inbox", "--sort", "priority")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.HasPrefix(out, "[ ] Ship release") {
		t.Errorf("high priority task should come first:\n%s", out)
	}

	out, err = run(t, cfg, "tags")
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if out != "@home\n@work\n" {
		t.Errorf("tags = %q", out)
	}

	if _, err := run(t, cfg, "list", "--sort", "alphabetical"); err == nil {
		t.Error("expected an error for an unknown sort")
	}
}

func TestProjectCommands(t *testing.T) {
	cfg := writeConfig(t)

	if _, err := run(t, cfg, "project", "add", "Garden"); err != nil {
		t.Fatalf("project add: %v", err)
	}
	if _, err := run(t, cfg, "project", "rename", "garden", "Backyard"); err != nil {
		t.Fatalf("project rename: %v", err)
	}
	out, err := run(t, cfg, "project", "list")
	if err != nil {
		t.Fatalf("project list: %v", err)
	}
	if strings.TrimSpace(out) != "Backyard" {
		t.Errorf("projects = %q", out)
	}

	if _, err := run(t, cfg, "project", "delete", "Backyard"); err != nil {
		t.Fatalf("project delete: %v", err)
	}
	if _, err := run(t, cfg, "project", "delete", "Backyard"); err == nil {
		t.Error("deleting a missing project should fail")
	}
}
