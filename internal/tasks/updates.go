package tasks

import (
	"fmt"

	"github.com/desertthunder/likeshift/internal/services"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current source index (1-based)
	Total   int    // Total records in the source sequence
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ReadSource Phase = iota
	ProcessTrack
	TrackCommitted
	TrackDuplicate
	TrackFailed
	RunCompleted
)

func (p Phase) String() string {
	switch p {
	case ReadSource:
		return "read_source"
	case ProcessTrack:
		return "process_track"
	case TrackCommitted:
		return "track_committed"
	case TrackDuplicate:
		return "track_duplicate"
	case TrackFailed:
		return "track_failed"
	case RunCompleted:
		return "run_completed"
	default:
		return ""
	}
}

func readSourceUpdate(total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadSource,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Read %d tracks from %s", total, name),
	}
}

func processTrackUpdate(step, total int, tr services.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProcessTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.Artist, tr.Title),
	}
}

func committedUpdate(step, total int, tr services.Track, score float64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   TrackCommitted,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s - %s (score %.2f)", step, total, tr.Artist, tr.Title, score),
	}
}

func duplicateUpdate(step, total int, tr services.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   TrackDuplicate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ⊘ %s - %s (duplicate, skipped)", step, total, tr.Artist, tr.Title),
	}
}

func failedUpdate(step, total int, tr services.Track, reason FailureReason) ProgressUpdate {
	return ProgressUpdate{
		Phase:   TrackFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s - %s (%s)", step, total, tr.Artist, tr.Title, reason),
	}
}

func completedUpdate(result *RunResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: RunCompleted,
		Step:  result.LastIndex,
		Total: result.TotalTracks,
		Message: fmt.Sprintf("Completed: %d committed, %d duplicates, %d failed",
			result.Committed, result.Duplicates, result.Failed),
		Data: result,
	}
}
