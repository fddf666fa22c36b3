package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likeshift/internal/match"
	"github.com/desertthunder/likeshift/internal/repositories"
	"github.com/desertthunder/likeshift/internal/services"
	"github.com/desertthunder/likeshift/internal/shared"
	"github.com/desertthunder/likeshift/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	spotify *services.SpotifyService
	youtube *services.YouTubeService
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Spotify *services.SpotifyService
	YouTube *services.YouTubeService
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		spotify: opts.Spotify,
		youtube: opts.YouTube,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

// SetLogger replaces the runner's logger
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openDatabase opens the configured SQLite database and applies migrations
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// scorerConfig translates the sync section of the TOML config into the
// scorer's tuning. Zero values fall back to the scorer defaults.
func (r *Runner) scorerConfig() match.Config {
	return match.Config{
		Threshold:    r.config.Sync.Threshold,
		TitleWeight:  r.config.Sync.TitleWeight,
		ArtistWeight: r.config.Sync.ArtistWeight,
	}
}

// retryPolicy translates the sync section of the TOML config into the
// engine's retry schedule.
func (r *Runner) retryPolicy() tasks.RetryPolicy {
	policy := tasks.DefaultRetryPolicy()
	if r.config.Sync.RetryAttempts > 0 {
		policy.MaxAttempts = r.config.Sync.RetryAttempts
	}
	if r.config.Sync.RetryBackoffMS > 0 {
		policy.InitialBackoff = time.Duration(r.config.Sync.RetryBackoffMS) * time.Millisecond
	}
	if r.config.Sync.RetryMultiplier > 1 {
		policy.Multiplier = r.config.Sync.RetryMultiplier
	}
	return policy
}

// buildEngine assembles a SyncEngine around the given source and the
// SQLite-backed cursor and failure stores.
func (r *Runner) buildEngine(source tasks.SourceReader, repo *repositories.SyncRepository) (*tasks.SyncEngine, error) {
	if r.youtube == nil {
		return nil, fmt.Errorf("%w: YouTube Music service not initialized", shared.ErrServiceUnavailable)
	}

	return tasks.NewSyncEngine(tasks.EngineOpts{
		Source:      source,
		Searcher:    r.youtube,
		Applier:     r.youtube,
		Scorer:      match.NewScorer(r.scorerConfig()),
		Cursors:     repo,
		Failures:    repo,
		RecordDelay: time.Duration(r.config.Sync.RecordDelayMS) * time.Millisecond,
		Retry:       r.retryPolicy(),
		Logger:      r.logger,
	}), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
