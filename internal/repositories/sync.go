package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/likeshift/internal/shared"
	"github.com/desertthunder/likeshift/internal/tasks"
)

// SyncRepository persists the resume cursor and the failure log.
//
// Implements tasks.CursorStore and tasks.FailureStore. The cursor is a
// single row (id = 1); failures accumulate append-only across runs.
type SyncRepository struct {
	db *sql.DB
}

// NewSyncRepository creates a new SyncRepository with the given database connection
func NewSyncRepository(db *sql.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// LoadCursor returns the index of the last fully processed source record.
// A missing row means no run has completed a record yet and reads as 0.
func (r *SyncRepository) LoadCursor() (int, error) {
	var index int
	err := r.db.QueryRow("SELECT last_index FROM sync_cursor WHERE id = 1").Scan(&index)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load cursor: %w", err)
	}

	return index, nil
}

// SaveCursor upserts the cursor row with the given index
func (r *SyncRepository) SaveCursor(index int) error {
	query := `
		INSERT INTO sync_cursor (id, last_index, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_index = excluded.last_index,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, index, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}

	return nil
}

// ResetCursor deletes the cursor row so the next run starts from the beginning
func (r *SyncRepository) ResetCursor() error {
	if _, err := r.db.Exec("DELETE FROM sync_cursor WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to reset cursor: %w", err)
	}

	return nil
}

// AppendFailure inserts one failure record with a generated ID
func (r *SyncRepository) AppendFailure(entry tasks.FailureEntry) error {
	query := `
		INSERT INTO sync_failures (id, run_id, idx, title, artist, reason, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		shared.GenerateID(),
		entry.RunID,
		entry.Index,
		entry.Title,
		entry.Artist,
		string(entry.Reason),
		entry.Detail,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert failure: %w", err)
	}

	return nil
}

// ListFailures returns failure entries in insertion order. An empty runID
// returns entries from every run.
func (r *SyncRepository) ListFailures(runID string) ([]tasks.FailureEntry, error) {
	query := "SELECT run_id, idx, title, artist, reason, detail FROM sync_failures"
	args := []any{}
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY created_at, idx"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var entries []tasks.FailureEntry
	for rows.Next() {
		var entry tasks.FailureEntry
		var reason string
		if err := rows.Scan(&entry.RunID, &entry.Index, &entry.Title, &entry.Artist, &reason, &entry.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		entry.Reason = tasks.FailureReason(reason)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate failures: %w", err)
	}

	return entries, nil
}

// FailureCounts aggregates failure entries by reason. An empty runID
// aggregates across every run.
func (r *SyncRepository) FailureCounts(runID string) (map[tasks.FailureReason]int, error) {
	query := "SELECT reason, COUNT(*) FROM sync_failures"
	args := []any{}
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " GROUP BY reason"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count failures: %w", err)
	}
	defer rows.Close()

	counts := map[tasks.FailureReason]int{}
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("failed to scan failure count: %w", err)
		}
		counts[tasks.FailureReason(reason)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate failure counts: %w", err)
	}

	return counts, nil
}

// LatestRunID returns the run_id of the most recently recorded failure, or
// an empty string when the log is empty.
func (r *SyncRepository) LatestRunID() (string, error) {
	var runID string
	err := r.db.QueryRow("SELECT run_id FROM sync_failures ORDER BY created_at DESC, idx DESC LIMIT 1").Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest run: %w", err)
	}

	return runID, nil
}
