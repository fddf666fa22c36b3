package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likeshift/internal/match"
	"github.com/desertthunder/likeshift/internal/services"
	"github.com/desertthunder/likeshift/internal/shared"
	"golang.org/x/time/rate"
)

// SourceReader produces the finite, ordered source sequence. Order and
// content must be stable across calls within a run; cursor-based resume
// depends on it.
type SourceReader interface {
	ReadTracks(ctx context.Context) ([]services.Track, error)
	Name() string
}

// Searcher queries the target catalog for candidates matching a query.
// Results arrive relevance-ranked by the target service.
type Searcher interface {
	SearchCandidates(ctx context.Context, query string) ([]services.Candidate, error)
}

// Applier commits one matched target record into the destination collection.
// Apply must be safe to call twice with the same target ID; retries and
// resumed runs may re-invoke it.
type Applier interface {
	Apply(ctx context.Context, targetID string) error
}

// CursorStore persists the resume cursor: the index of the last fully
// processed source record.
type CursorStore interface {
	LoadCursor() (int, error)
	SaveCursor(index int) error
}

// FailureStore records source tracks that could not be committed.
// Entries are append-only and accumulate across runs.
type FailureStore interface {
	AppendFailure(entry FailureEntry) error
}

// FailureReason classifies why a record was not committed.
type FailureReason string

const (
	FailureNoCandidates FailureReason = "no_candidates"
	FailureNoMatch      FailureReason = "no_match"
	FailureApplyFailed  FailureReason = "apply_failed"
)

// FailureEntry is one record of a source track that could not be committed.
type FailureEntry struct {
	RunID  string
	Index  int
	Title  string
	Artist string
	Reason FailureReason
	Detail string
}

// RunOpts carries the caller-supplied knobs for one run.
type RunOpts struct {
	// StartIndex overrides the stored cursor when greater than it. A lower
	// value is refused unless Rewind is set; resuming must never silently
	// reprocess committed records.
	StartIndex int
	Rewind     bool
	// DryRun searches and scores without applying, checkpointing, or
	// recording failures to the store.
	DryRun bool
	// Limit caps how many records this run processes (0 = to the end).
	Limit int
}

// RunResult summarizes a completed or halted run.
type RunResult struct {
	RunID       string
	Source      string
	TotalTracks int
	StartIndex  int // first index processed this run
	LastIndex   int // last fully processed index (the cursor position)
	HaltedAt    int // index in flight when a fatal error halted the run, 0 otherwise
	Committed   int
	Duplicates  int
	Failed      int
	ByReason    map[FailureReason]int
	Failures    []FailureEntry
	DryRun      bool
}

// SyncEngine orchestrates one resumable synchronization of the source
// collection into the target collection. Records are processed one at a
// time in source order; the single in-flight record is what keeps the
// persisted cursor honest.
type SyncEngine struct {
	source   SourceReader
	searcher Searcher
	applier  Applier
	scorer   *match.Scorer
	cursors  CursorStore
	failures FailureStore
	limiter  *rate.Limiter
	retry    RetryPolicy
	logger   *log.Logger
}

// EngineOpts contains the collaborators and tuning for a SyncEngine.
type EngineOpts struct {
	Source   SourceReader
	Searcher Searcher
	Applier  Applier
	Scorer   *match.Scorer
	Cursors  CursorStore
	Failures FailureStore
	// RecordDelay is the pause between records (rate-limit etiquette for
	// the target service). Zero disables the delay.
	RecordDelay time.Duration
	Retry       RetryPolicy
	Logger      *log.Logger
}

// NewSyncEngine creates a SyncEngine with the provided collaborators.
func NewSyncEngine(opts EngineOpts) *SyncEngine {
	if opts.Scorer == nil {
		opts.Scorer = match.NewScorer(match.DefaultConfig())
	}
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RecordDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.RecordDelay), 1)
	}

	return &SyncEngine{
		source:   opts.Source,
		searcher: opts.Searcher,
		applier:  opts.Applier,
		scorer:   opts.Scorer,
		cursors:  opts.Cursors,
		failures: opts.Failures,
		limiter:  limiter,
		retry:    opts.Retry,
		logger:   opts.Logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SyncEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run performs one synchronization pass, resuming from the stored cursor.
//
// Per-record errors are absorbed into the failure log and never abort the
// run. Only fatal collaborator errors (authentication rejected, context
// cancelled) halt it; the cursor is not advanced for the in-flight record,
// so the next run retries exactly that record.
func (e *SyncEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, opts RunOpts) (*RunResult, error) {
	if e.source == nil || e.searcher == nil || e.applier == nil {
		return nil, fmt.Errorf("%w: sync engine not fully initialized", shared.ErrServiceUnavailable)
	}

	tracks, err := e.source.ReadTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read source catalog: %w", err)
	}

	cursor := 0
	if e.cursors != nil {
		if cursor, err = e.cursors.LoadCursor(); err != nil {
			return nil, fmt.Errorf("failed to load cursor: %w", err)
		}
	}

	start, err := resolveStart(cursor, opts)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:       shared.GenerateID(),
		Source:      e.source.Name(),
		TotalTracks: len(tracks),
		StartIndex:  start,
		LastIndex:   cursor,
		ByReason:    map[FailureReason]int{},
		DryRun:      opts.DryRun,
	}

	e.sendProgress(progress, readSourceUpdate(len(tracks), e.source.Name()))
	e.logger.Info("starting sync run",
		"run_id", result.RunID, "source", result.Source,
		"tracks", len(tracks), "start", start, "dry_run", opts.DryRun)

	// Identities committed before the start index were applied by earlier
	// runs; seeding them keeps resumed runs from re-applying a duplicate of
	// an already-committed record.
	committed := make(map[string]struct{}, len(tracks))
	for _, tr := range tracks[:min(start-1, len(tracks))] {
		committed[shared.NormalizeTrackKey(tr.Title, tr.Artist)] = struct{}{}
	}

	end := len(tracks)
	if opts.Limit > 0 && start+opts.Limit-1 < end {
		end = start + opts.Limit - 1
	}

	for i := start; i <= end; i++ {
		track := tracks[i-1]
		e.sendProgress(progress, processTrackUpdate(i, len(tracks), track))

		key := shared.NormalizeTrackKey(track.Title, track.Artist)
		if _, dup := committed[key]; dup {
			result.Duplicates++
			e.sendProgress(progress, duplicateUpdate(i, len(tracks), track))
			if err := e.checkpoint(result, i, opts); err != nil {
				return result, err
			}
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			result.HaltedAt = i
			return result, err
		}

		outcome, err := e.processTrack(ctx, track, committed, opts)
		if err != nil {
			result.HaltedAt = i
			e.logger.Error("run halted", "index", i, "err", err)
			return result, err
		}

		e.record(result, progress, i, track, outcome, opts)

		if err := e.checkpoint(result, i, opts); err != nil {
			return result, err
		}
	}

	e.sendProgress(progress, completedUpdate(result))
	e.logger.Info("sync run completed",
		"run_id", result.RunID, "committed", result.Committed,
		"duplicates", result.Duplicates, "failed", result.Failed)

	return result, nil
}

// trackOutcome is the per-record result before bookkeeping.
type trackOutcome struct {
	committed bool
	score     float64
	reason    FailureReason
	detail    string
}

// processTrack searches, scores, and applies a single record. A returned
// error is always fatal to the run; everything recoverable is folded into
// the outcome.
func (e *SyncEngine) processTrack(ctx context.Context, track services.Track, committed map[string]struct{}, opts RunOpts) (trackOutcome, error) {
	var candidates []services.Candidate

	err := e.retry.Do(ctx, func() error {
		var searchErr error
		candidates, searchErr = e.searcher.SearchCandidates(ctx, track.SearchQuery())
		return searchErr
	})
	if err != nil {
		if shared.IsFatal(err) || ctx.Err() != nil {
			return trackOutcome{}, err
		}
		// Retries exhausted: treated as an empty result for this attempt.
		e.logger.Warn("search failed", "index", track.Index, "err", err)
		candidates = nil
	}

	res := e.scorer.Match(track, candidates)
	if !res.Matched() {
		reason := FailureNoMatch
		detail := fmt.Sprintf("best score %.2f below threshold", res.Score)
		if res.Reason == match.ReasonNoCandidates {
			reason = FailureNoCandidates
			detail = "search returned no results"
		}
		return trackOutcome{reason: reason, detail: detail}, nil
	}

	key := shared.NormalizeTrackKey(track.Title, track.Artist)

	if opts.DryRun {
		committed[key] = struct{}{}
		return trackOutcome{committed: true, score: res.Score}, nil
	}

	err = e.retry.Do(ctx, func() error {
		return e.applier.Apply(ctx, res.Candidate.ID)
	})
	if err != nil {
		if shared.IsFatal(err) || ctx.Err() != nil {
			return trackOutcome{}, err
		}
		return trackOutcome{reason: FailureApplyFailed, detail: err.Error()}, nil
	}

	committed[key] = struct{}{}
	return trackOutcome{committed: true, score: res.Score}, nil
}

// record folds a track outcome into the result and the failure store.
func (e *SyncEngine) record(result *RunResult, progress chan<- ProgressUpdate, index int, track services.Track, outcome trackOutcome, opts RunOpts) {
	if outcome.committed {
		result.Committed++
		e.sendProgress(progress, committedUpdate(index, result.TotalTracks, track, outcome.score))
		return
	}

	entry := FailureEntry{
		RunID:  result.RunID,
		Index:  index,
		Title:  track.Title,
		Artist: track.Artist,
		Reason: outcome.reason,
		Detail: outcome.detail,
	}

	result.Failed++
	result.ByReason[outcome.reason]++
	result.Failures = append(result.Failures, entry)
	e.sendProgress(progress, failedUpdate(index, result.TotalTracks, track, outcome.reason))

	if e.failures != nil && !opts.DryRun {
		if err := e.failures.AppendFailure(entry); err != nil {
			// The in-memory copy still reaches the summary and report.
			e.logger.Warn("failed to persist failure entry", "index", index, "err", err)
		}
	}
}

// checkpoint persists the cursor after a fully processed record, bounding
// rework after interruption to at most one record.
func (e *SyncEngine) checkpoint(result *RunResult, index int, opts RunOpts) error {
	result.LastIndex = index

	if e.cursors == nil || opts.DryRun {
		return nil
	}
	if err := e.cursors.SaveCursor(index); err != nil {
		return fmt.Errorf("failed to persist cursor at %d: %w", index, err)
	}
	return nil
}

// resolveStart merges the stored cursor with the caller's override.
func resolveStart(cursor int, opts RunOpts) (int, error) {
	start := cursor + 1

	if opts.StartIndex > 0 && opts.StartIndex != start {
		if opts.StartIndex > cursor || opts.Rewind {
			start = opts.StartIndex
		} else {
			return 0, fmt.Errorf("%w: start index %d is behind stored cursor %d",
				shared.ErrRewindRefused, opts.StartIndex, cursor)
		}
	}

	return start, nil
}
