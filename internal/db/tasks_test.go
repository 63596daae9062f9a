package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dori/phitodo/internal/model"
)

func githubTask(key string) *model.Task {
	return &model.Task{
		Title: "Fix login bug",
		Kind:  model.KindGithubIssue,
		External: &model.ExternalRef{
			Source:    model.SourceGithubIssue,
			StableKey: key,
			URL:       "https://github.com/acme/app/issues/42",
			Repo:      "acme/app",
		},
		StateHash: model.NewStateHash(true, "d1"),
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	id, err := db.CreateTask(ctx, &model.Task{Title: "  Buy milk  "})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := db.GetTask(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("GetTask = %v, %v", got, err)
	}
	if got.Title != "Buy milk" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Status != model.StatusInbox || got.Priority != model.PriorityNone || got.Kind != model.KindTask {
		t.Errorf("defaults = %s/%s/%s", got.Status, got.Priority, got.Kind)
	}
	if !got.CreatedAt.Equal(testNow) || !got.UpdatedAt.Equal(testNow) {
		t.Errorf("timestamps = %v/%v, want %v", got.CreatedAt, got.UpdatedAt, testNow)
	}
	if got.IsSynced() {
		t.Error("user task must not carry an external ref")
	}
}

func TestCreateTaskRejectsEmptyTitle(t *testing.T) {
	db, _ := openTestDB(t)
	if _, err := db.CreateTask(context.Background(), &model.Task{Title: "   "}); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestFindByExternalKey(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	id, err := db.CreateTask(ctx, githubTask("issue#acme/app#42"))
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := db.FindTaskByExternalKey(ctx, model.SourceGithubIssue, "issue#acme/app#42")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != id {
		t.Fatalf("FindTaskByExternalKey = %+v, want id %s", got, id)
	}
	if got.External.URL != "https://github.com/acme/app/issues/42" || got.External.Repo != "acme/app" {
		t.Errorf("external ref = %+v", got.External)
	}
	if !got.StateHash.IsOpen() {
		t.Errorf("state hash = %q", got.StateHash)
	}

	// Same key, different source namespace.
	other, err := db.FindTaskByExternalKey(ctx, model.SourceGithubPR, "issue#acme/app#42")
	if err != nil {
		t.Fatal(err)
	}
	if other != nil {
		t.Errorf("lookup crossed source namespaces: %+v", other)
	}
}

func TestCreateTaskDuplicateExternalKey(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateTask(ctx, githubTask("issue#acme/app#42")); err != nil {
		t.Fatal(err)
	}
	_, err := db.CreateTask(ctx, githubTask("issue#acme/app#42"))
	if !errors.Is(err, ErrDuplicateExternalKey) {
		t.Fatalf("second create error = %v, want ErrDuplicateExternalKey", err)
	}

	tasks, _ := db.GetTasks(ctx)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
}

func TestUniqueIndexBacksDuplicateCheck(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateTask(ctx, githubTask("issue#acme/app#1")); err != nil {
		t.Fatal(err)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, external_source, external_key, created_at, updated_at)
		VALUES ('raw', 'raw', 'gh:issue', 'issue#acme/app#1', 'x', 'x')`)
	if err == nil || !isUniqueViolation(err) {
		t.Fatalf("raw insert error = %v, want unique violation", err)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	db, _ := openTestDB(t)
	title := "x"
	_, err := db.UpdateTask(context.Background(), "missing", TaskUpdate{Title: &title})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateTaskCompletedAt(t *testing.T) {
	db, clk := openTestDB(t)
	ctx := context.Background()

	id, err := db.CreateTask(ctx, &model.Task{Title: "Ship it"})
	if err != nil {
		t.Fatal(err)
	}

	clk.Advance(time.Hour)
	done := model.StatusCompleted
	got, err := db.UpdateTask(ctx, id, TaskUpdate{Status: &done})
	if err != nil {
		t.Fatal(err)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(testNow.Add(time.Hour)) {
		t.Fatalf("CompletedAt = %v", got.CompletedAt)
	}
	if !got.UpdatedAt.Equal(testNow.Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}

	clk.Advance(time.Hour)
	active := model.StatusActive
	got, err = db.UpdateTask(ctx, id, TaskUpdate{Status: &active})
	if err != nil {
		t.Fatal(err)
	}
	if got.CompletedAt != nil {
		t.Errorf("CompletedAt should clear on reopen, got %v", got.CompletedAt)
	}

	stored, _ := db.GetTask(ctx, id)
	if stored.Status != model.StatusActive || stored.CompletedAt != nil {
		t.Errorf("stored = %s / %v", stored.Status, stored.CompletedAt)
	}
}

func TestUpdateTaskDueDateAndProject(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	p, err := db.CreateProject(ctx, "Home", "")
	if err != nil {
		t.Fatal(err)
	}
	id, err := db.CreateTask(ctx, &model.Task{Title: "Paint"})
	if err != nil {
		t.Fatal(err)
	}

	due := time.Date(2025, 3, 12, 18, 45, 0, 0, time.UTC)
	got, err := db.UpdateTask(ctx, id, TaskUpdate{DueDate: &due, ProjectID: &p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if got.DueDate == nil || !got.DueDate.Equal(model.Day(due)) {
		t.Errorf("DueDate = %v", got.DueDate)
	}

	stored, _ := db.GetTask(ctx, id)
	if stored.DueDate == nil || !stored.DueDate.Equal(model.Day(due)) {
		t.Errorf("stored DueDate = %v", stored.DueDate)
	}
	if stored.ProjectID == nil || *stored.ProjectID != p.ID {
		t.Errorf("stored ProjectID = %v", stored.ProjectID)
	}

	got, err = db.UpdateTask(ctx, id, TaskUpdate{ClearDueDate: true, ClearProject: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.DueDate != nil || got.ProjectID != nil {
		t.Errorf("clear flags ignored: %v %v", got.DueDate, got.ProjectID)
	}
}

func TestToggleTaskCompleted(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	id, _ := db.CreateTask(ctx, &model.Task{Title: "Toggle me"})

	got, err := db.ToggleTaskCompleted(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusCompleted || got.CompletedAt == nil {
		t.Fatalf("after first toggle: %s %v", got.Status, got.CompletedAt)
	}

	got, err = db.ToggleTaskCompleted(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusActive || got.CompletedAt != nil {
		t.Fatalf("after second toggle: %s %v", got.Status, got.CompletedAt)
	}
}

func TestDeleteTask(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	id, _ := db.CreateTask(ctx, &model.Task{Title: "Temp", Tags: []string{"x"}})
	if err := db.DeleteTask(ctx, id); err != nil {
		t.Fatal(err)
	}
	if got, _ := db.GetTask(ctx, id); got != nil {
		t.Fatalf("task still present: %+v", got)
	}
	if err := db.DeleteTask(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestQueryTasks(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	db.CreateTask(ctx, &model.Task{Title: "a", Priority: model.PriorityHigh})
	db.CreateTask(ctx, &model.Task{Title: "b"})
	db.CreateTask(ctx, githubTask("issue#acme/app#7"))

	synced, err := db.QueryTasks(ctx, func(t *model.Task) bool { return t.IsSynced() })
	if err != nil {
		t.Fatal(err)
	}
	if len(synced) != 1 || synced[0].Kind != model.KindGithubIssue {
		t.Fatalf("synced = %+v", synced)
	}

	high, _ := db.QueryTasks(ctx, func(t *model.Task) bool { return t.Priority == model.PriorityHigh })
	if len(high) != 1 || high[0].Title != "a" {
		t.Fatalf("high = %+v", high)
	}
}

func TestTaskTags(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	id, err := db.CreateTask(ctx, &model.Task{Title: "Tagged", Tags: []string{"@Work", "home"}})
	if err != nil {
		t.Fatal(err)
	}

	got, _ := db.GetTask(ctx, id)
	if len(got.Tags) != 2 || got.Tags[0] != "home" || got.Tags[1] != "work" {
		t.Fatalf("Tags = %v, want [home work]", got.Tags)
	}

	if err := db.SetTaskTags(ctx, id, []string{"errands"}); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetTask(ctx, id)
	if len(got.Tags) != 1 || !got.HasTag("errands") {
		t.Fatalf("Tags after replace = %v", got.Tags)
	}

	tags, err := db.GetTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 3 {
		t.Errorf("GetTags returned %d tags, want 3", len(tags))
	}
}
