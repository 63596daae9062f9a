package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dori/phitodo/internal/clock"
	"github.com/dori/phitodo/internal/model"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) (*DB, *clock.FakeClock) {
	t.Helper()
	clk := clock.Fake(testNow)
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), WithClock(clk))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, clk
}

// TestTaskListWithTagsNoDeadlock is a regression test for nested queries
// while iterating rows: with SetMaxOpenConns(1) loading tags inside the
// task rows loop would wait forever for the only connection.
func TestTaskListWithTagsNoDeadlock(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		task := &model.Task{Title: "Task", Tags: []string{"work", "home"}}
		if _, err := db.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() {
		tasks, err := db.GetTasks(ctx)
		if err == nil && len(tasks) != 5 {
			t.Errorf("got %d tasks, want 5", len(tasks))
		}
		for _, task := range tasks {
			if len(task.Tags) != 2 {
				t.Errorf("task %s has tags %v, want 2", task.ID, task.Tags)
			}
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("GetTasks failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Test timed out - possible deadlock detected")
	}
}

func TestExclusiveBlocksOtherWriters(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var order []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := db.Exclusive(ctx, func(s *Session) error {
			close(entered)
			<-release
			record("exclusive")
			return s.Transaction(func(tx *Tx) error {
				_, err := tx.CreateTask(ctx, &model.Task{Title: "from sync"})
				return err
			})
		})
		if err != nil {
			t.Errorf("Exclusive: %v", err)
		}
	}()

	<-entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := db.CreateTask(ctx, &model.Task{Title: "from user"}); err != nil {
			t.Errorf("CreateTask: %v", err)
		}
		record("user")
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if len(order) != 2 || order[0] != "exclusive" || order[1] != "user" {
		t.Fatalf("writer order = %v, want [exclusive user]", order)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(tx *Tx) error {
		if _, err := tx.CreateTask(ctx, &model.Task{Title: "half done"}); err != nil {
			return err
		}
		return ErrNotFound
	})
	if err != ErrNotFound {
		t.Fatalf("Transaction error = %v, want ErrNotFound", err)
	}

	tasks, err := db.GetTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Fatalf("rolled back transaction left %d tasks", len(tasks))
	}
}
