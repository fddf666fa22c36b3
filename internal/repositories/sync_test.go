package repositories

import (
	"database/sql"
	"testing"

	"github.com/desertthunder/likeshift/internal/shared"
	"github.com/desertthunder/likeshift/internal/tasks"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestSyncRepositoryCursor(t *testing.T) {
	repo := NewSyncRepository(setupTestDB(t))

	index, err := repo.LoadCursor()
	if err != nil {
		t.Fatalf("LoadCursor() error: %v", err)
	}
	if index != 0 {
		t.Errorf("fresh database cursor = %d, want 0", index)
	}

	for _, want := range []int{1, 2, 5} {
		if err := repo.SaveCursor(want); err != nil {
			t.Fatalf("SaveCursor(%d) error: %v", want, err)
		}
		got, err := repo.LoadCursor()
		if err != nil {
			t.Fatalf("LoadCursor() error: %v", err)
		}
		if got != want {
			t.Errorf("LoadCursor() = %d, want %d", got, want)
		}
	}

	if err := repo.ResetCursor(); err != nil {
		t.Fatalf("ResetCursor() error: %v", err)
	}
	index, err = repo.LoadCursor()
	if err != nil {
		t.Fatalf("LoadCursor() after reset error: %v", err)
	}
	if index != 0 {
		t.Errorf("cursor after reset = %d, want 0", index)
	}
}

func TestSyncRepositoryFailures(t *testing.T) {
	repo := NewSyncRepository(setupTestDB(t))

	entries := []tasks.FailureEntry{
		{RunID: "run-1", Index: 3, Title: "Imagine", Artist: "John Lennon", Reason: tasks.FailureNoCandidates, Detail: "search returned no results"},
		{RunID: "run-1", Index: 7, Title: "Hey Jude", Artist: "The Beatles", Reason: tasks.FailureNoMatch, Detail: "best score 0.61 below threshold"},
		{RunID: "run-2", Index: 7, Title: "Hey Jude", Artist: "The Beatles", Reason: tasks.FailureApplyFailed, Detail: "service unavailable: status 503"},
	}
	for _, entry := range entries {
		if err := repo.AppendFailure(entry); err != nil {
			t.Fatalf("AppendFailure(%+v) error: %v", entry, err)
		}
	}

	t.Run("list by run", func(t *testing.T) {
		got, err := repo.ListFailures("run-1")
		if err != nil {
			t.Fatalf("ListFailures() error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 entries for run-1, got %d", len(got))
		}
		if got[0].Index != 3 || got[0].Reason != tasks.FailureNoCandidates {
			t.Errorf("unexpected first entry: %+v", got[0])
		}
		if got[1].Title != "Hey Jude" {
			t.Errorf("unexpected second entry: %+v", got[1])
		}
	})

	t.Run("list all runs", func(t *testing.T) {
		got, err := repo.ListFailures("")
		if err != nil {
			t.Fatalf("ListFailures() error: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected 3 entries, got %d", len(got))
		}
	})

	t.Run("counts by reason", func(t *testing.T) {
		counts, err := repo.FailureCounts("run-1")
		if err != nil {
			t.Fatalf("FailureCounts() error: %v", err)
		}
		if counts[tasks.FailureNoCandidates] != 1 || counts[tasks.FailureNoMatch] != 1 {
			t.Errorf("unexpected counts: %v", counts)
		}
		if counts[tasks.FailureApplyFailed] != 0 {
			t.Errorf("run-2 failure leaked into run-1 counts: %v", counts)
		}
	})

	t.Run("latest run", func(t *testing.T) {
		runID, err := repo.LatestRunID()
		if err != nil {
			t.Fatalf("LatestRunID() error: %v", err)
		}
		if runID != "run-2" {
			t.Errorf("LatestRunID() = %q, want run-2", runID)
		}
	})
}

func TestSyncRepositoryLatestRunIDEmpty(t *testing.T) {
	repo := NewSyncRepository(setupTestDB(t))

	runID, err := repo.LatestRunID()
	if err != nil {
		t.Fatalf("LatestRunID() error: %v", err)
	}
	if runID != "" {
		t.Errorf("LatestRunID() on empty log = %q, want empty", runID)
	}
}
