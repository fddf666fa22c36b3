package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likeshift/internal/formatter"
	"github.com/desertthunder/likeshift/internal/repositories"
	"github.com/desertthunder/likeshift/internal/shared"
	"github.com/desertthunder/likeshift/internal/tasks"
	"github.com/desertthunder/likeshift/internal/ui"
	"github.com/urfave/cli/v3"
)

// reloadConfig applies the --config flag when the file exists.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	configPath := cmd.String("config")
	if configPath == "" {
		return
	}
	if _, err := os.Stat(configPath); err != nil {
		return
	}
	if config, err := shared.LoadConfig(configPath); err == nil {
		r.config = config
	} else {
		r.logger.Warn("failed to load config, keeping current", "error", err)
	}
}

// buildSource selects the source catalog reader from the run flags.
//
// --csv reads a scraped export; --spotify (the default) reads the liked
// collection from the Web API using the saved token.
func (r *Runner) buildSource(cmd *cli.Command) (tasks.SourceReader, error) {
	csvPath := cmd.String("csv")
	useSpotify := cmd.Bool("spotify")

	if csvPath != "" && useSpotify {
		return nil, fmt.Errorf("%w: cannot specify both --csv and --spotify", shared.ErrInvalidArgument)
	}

	if csvPath != "" {
		return formatter.NewCSVCatalog(csvPath), nil
	}

	if r.spotify == nil {
		return nil, fmt.Errorf("%w: set credentials.spotify in config.toml or pass --csv",
			shared.ErrMissingCredentials)
	}
	if err := r.spotify.LoadToken(); err != nil {
		return nil, fmt.Errorf("run `likeshift auth spotify` first: %w", err)
	}

	return r.spotify, nil
}

func runOpts(cmd *cli.Command) tasks.RunOpts {
	return tasks.RunOpts{
		StartIndex: cmd.Int("start"),
		Rewind:     cmd.Bool("rewind"),
		DryRun:     cmd.Bool("dry-run"),
		Limit:      cmd.Int("limit"),
	}
}

// prepareRun wires the source, target credentials, and SQLite stores for one
// engine run. The caller owns closing the returned database.
func (r *Runner) prepareRun(ctx context.Context, cmd *cli.Command) (*tasks.SyncEngine, tasks.SourceReader, *repositories.SyncRepository, func(), error) {
	r.reloadConfig(cmd)

	source, err := r.buildSource(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if headersPath := r.config.Credentials.YouTube.HeadersPath; headersPath != "" {
		if err := r.youtube.Authenticate(ctx, map[string]string{"auth_file": headersPath}); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	db, err := r.openDatabase()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	repo := repositories.NewSyncRepository(db)
	engine, err := r.buildEngine(source, repo)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, err
	}

	return engine, source, repo, func() { db.Close() }, nil
}

// SyncRun executes the pipeline with plain-text progress output.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	engine, source, repo, cleanup, err := r.prepareRun(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := runOpts(cmd)

	r.writePlain("Starting liked songs sync...\n")
	r.writePlain("Source: %s\n\n", source.Name())

	progressCh := make(chan tasks.ProgressUpdate, 50)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ReadSource:
				r.writePlain("📥 %s\n\n", update.Message)
			case tasks.TrackCommitted, tasks.TrackDuplicate, tasks.TrackFailed:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, runErr := engine.Run(ctx, progressCh, opts)
	close(progressCh)
	<-progressDone

	if runErr != nil {
		if result != nil && result.HaltedAt > 0 {
			r.writePlain("\n✗ Sync halted at track %d: %v\n", result.HaltedAt, runErr)
			r.writePlain("Fix the problem and rerun; the sync resumes from track %d.\n", result.LastIndex+1)
		}
		return runErr
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete!")
	r.writePlain("Source: %s (%d tracks)\n", result.Source, result.TotalTracks)
	r.writePlain("Committed: %d\n", result.Committed)
	r.writePlain("Duplicates skipped: %d\n", result.Duplicates)
	r.writePlain("Failed: %d\n", result.Failed)
	for reason, count := range result.ByReason {
		r.writePlain("  %s: %d\n", reason, count)
	}

	if result.DryRun {
		r.writePlain("\nDry run: nothing was liked or recorded.\n")
		return nil
	}

	if len(result.Failures) > 0 {
		reportPath := cmd.String("report")
		if reportPath == "" {
			reportPath = r.config.Sync.FailureReportPath
		}
		if reportPath != "" {
			entries, err := repo.ListFailures(result.RunID)
			if err != nil {
				r.logger.Warn("failed to list failures for report", "error", err)
				entries = result.Failures
			}
			if err := formatter.WriteFailureReport(entries, reportPath); err != nil {
				return err
			}
			r.writePlain("\nFailure report written to %s\n", reportPath)
		}
	}

	return nil
}

// SyncUI executes the pipeline inside the interactive terminal view.
func (r *Runner) SyncUI(ctx context.Context, cmd *cli.Command) error {
	engine, source, _, cleanup, err := r.prepareRun(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// Redirect logs to a file so they don't corrupt the TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/likeshift-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, engine, source.Name(), runOpts(cmd))
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// SyncStatus prints the stored cursor position and failure totals.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewSyncRepository(db)

	cursor, err := repo.LoadCursor()
	if err != nil {
		return err
	}

	counts, err := repo.FailureCounts("")
	if err != nil {
		return err
	}

	r.writePlainHeader("Sync Status")
	if cursor == 0 {
		r.writePlain("Cursor: none (next run starts from the beginning)\n")
	} else {
		r.writePlain("Cursor: track %d completed (next run starts at %d)\n", cursor, cursor+1)
	}

	total := 0
	for _, count := range counts {
		total += count
	}
	r.writePlain("Recorded failures: %d\n", total)
	for reason, count := range counts {
		r.writePlain("  %s: %d\n", reason, count)
	}

	return nil
}

// SyncFailures exports recorded failures as a CSV report.
func (r *Runner) SyncFailures(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewSyncRepository(db)

	entries, err := repo.ListFailures(cmd.String("run"))
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		r.writePlain("No recorded failures.\n")
		return nil
	}

	outputPath := cmd.String("output")
	if outputPath == "" {
		outputPath = r.config.Sync.FailureReportPath
	}
	if outputPath == "" {
		outputPath = "failed_songs.csv"
	}

	if err := formatter.WriteFailureReport(entries, outputPath); err != nil {
		return err
	}

	r.writePlain("✓ Wrote %d failures to %s\n", len(entries), outputPath)
	return nil
}
