package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/likeshift/internal/formatter"
	"github.com/desertthunder/likeshift/internal/repositories"
	"github.com/desertthunder/likeshift/internal/shared"
	"github.com/desertthunder/likeshift/internal/tasks"
	tu "github.com/desertthunder/likeshift/internal/testing"
	"github.com/urfave/cli/v3"
)

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()

	output := &bytes.Buffer{}
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "likeshift.db")
	config.Credentials.YouTube.HeadersPath = ""

	runner := NewRunner(RunnerOpts{
		Config: config,
		Output: output,
	})
	return runner, output
}

func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()

	app := &cli.Command{Name: "likeshift", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"likeshift"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) != 3 {
			t.Errorf("expected 3 top-level commands, got %d", len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

func TestRetryPolicyFromConfig(t *testing.T) {
	runner, _ := newTestRunner(t)
	runner.config.Sync.RetryAttempts = 5
	runner.config.Sync.RetryBackoffMS = 100
	runner.config.Sync.RetryMultiplier = 3

	policy := runner.retryPolicy()
	if policy.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", policy.MaxAttempts)
	}
	if policy.InitialBackoff.Milliseconds() != 100 {
		t.Errorf("InitialBackoff = %v, want 100ms", policy.InitialBackoff)
	}
	if policy.Multiplier != 3 {
		t.Errorf("Multiplier = %v, want 3", policy.Multiplier)
	}

	t.Run("zero config keeps defaults", func(t *testing.T) {
		runner, _ := newTestRunner(t)
		runner.config.Sync = shared.SyncConfig{}

		if runner.retryPolicy() != tasks.DefaultRetryPolicy() {
			t.Error("expected default retry policy")
		}
	})
}

func TestSetupDatabaseCommand(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	// The created config uses a relative database path, so run from tmpDir.
	wd := tu.MustGetwd(t)
	tu.MustChdir(t, tmpDir)
	defer tu.MustChdir(t, wd)

	runner, output := newTestRunner(t)

	if err := runApp(t, runner, "setup", "--config", configPath); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, configPath)
	if !strings.Contains(output.String(), "Setup complete") {
		t.Errorf("unexpected output: %q", output.String())
	}
}

func TestSetupYouTubeCommand(t *testing.T) {
	tmpDir := t.TempDir()

	curlFile := filepath.Join(tmpDir, "request.sh")
	curl := `curl 'https://music.youtube.com/browse' -H 'user-agent: test-agent' -H 'cookie: VISITOR_INFO1_LIVE=abc; SID=xyz'`
	if err := os.WriteFile(curlFile, []byte(curl), 0644); err != nil {
		t.Fatalf("failed to write curl file: %v", err)
	}

	outputPath := filepath.Join(tmpDir, "browser.json")
	runner, output := newTestRunner(t)

	if err := runApp(t, runner, "setup", "youtube", "--curl-file", curlFile, "--output", outputPath); err != nil {
		t.Fatalf("setup youtube failed: %v", err)
	}

	tu.AssertFileExists(t, outputPath)
	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read browser.json: %v", err)
	}
	if !strings.Contains(string(data), "VISITOR_INFO1_LIVE") {
		t.Errorf("browser.json missing cookie: %s", data)
	}
	if !strings.Contains(output.String(), "configured successfully") {
		t.Errorf("unexpected output: %q", output.String())
	}

	t.Run("requires a curl source", func(t *testing.T) {
		runner, _ := newTestRunner(t)
		if err := runApp(t, runner, "setup", "youtube"); err == nil {
			t.Error("expected error without --curl or --curl-file")
		}
	})

	t.Run("rejects both curl sources", func(t *testing.T) {
		runner, _ := newTestRunner(t)
		if err := runApp(t, runner, "setup", "youtube", "--curl", curl, "--curl-file", curlFile); err == nil {
			t.Error("expected error with both --curl and --curl-file")
		}
	})
}

func TestSyncStatusCommand(t *testing.T) {
	runner, output := newTestRunner(t)

	if err := runApp(t, runner, "sync", "status"); err != nil {
		t.Fatalf("sync status failed: %v", err)
	}

	if !strings.Contains(output.String(), "none (next run starts from the beginning)") {
		t.Errorf("unexpected output: %q", output.String())
	}

	t.Run("with stored cursor and failures", func(t *testing.T) {
		runner, output := newTestRunner(t)

		db, err := runner.openDatabase()
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		repo := repositories.NewSyncRepository(db)
		if err := repo.SaveCursor(7); err != nil {
			t.Fatalf("failed to save cursor: %v", err)
		}
		entry := tasks.FailureEntry{RunID: "run-1", Index: 3, Title: "Imagine", Artist: "John Lennon", Reason: tasks.FailureNoMatch}
		if err := repo.AppendFailure(entry); err != nil {
			t.Fatalf("failed to append failure: %v", err)
		}
		db.Close()

		if err := runApp(t, runner, "sync", "status"); err != nil {
			t.Fatalf("sync status failed: %v", err)
		}

		if !strings.Contains(output.String(), "track 7 completed (next run starts at 8)") {
			t.Errorf("missing cursor line: %q", output.String())
		}
		if !strings.Contains(output.String(), "no_match: 1") {
			t.Errorf("missing failure count: %q", output.String())
		}
	})
}

func TestSyncFailuresCommand(t *testing.T) {
	t.Run("no failures recorded", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runApp(t, runner, "sync", "failures"); err != nil {
			t.Fatalf("sync failures failed: %v", err)
		}
		if !strings.Contains(output.String(), "No recorded failures") {
			t.Errorf("unexpected output: %q", output.String())
		}
	})

	t.Run("exports recorded failures", func(t *testing.T) {
		runner, output := newTestRunner(t)
		reportPath := filepath.Join(t.TempDir(), "failed_songs.csv")

		db, err := runner.openDatabase()
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		repo := repositories.NewSyncRepository(db)
		entry := tasks.FailureEntry{RunID: "run-1", Index: 3, Title: "Imagine", Artist: "John Lennon", Reason: tasks.FailureNoCandidates, Detail: "search returned no results"}
		if err := repo.AppendFailure(entry); err != nil {
			t.Fatalf("failed to append failure: %v", err)
		}
		db.Close()

		if err := runApp(t, runner, "sync", "failures", "--output", reportPath); err != nil {
			t.Fatalf("sync failures failed: %v", err)
		}

		tu.AssertFileExists(t, reportPath)
		data, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(data), "Imagine") {
			t.Errorf("report missing entry: %s", data)
		}
		if !strings.Contains(output.String(), "Wrote 1 failures") {
			t.Errorf("unexpected output: %q", output.String())
		}
	})
}

func TestBuildSource(t *testing.T) {
	t.Run("csv flag selects the catalog reader", func(t *testing.T) {
		csvPath := filepath.Join(t.TempDir(), "liked.csv")
		content := "index,song_name,artist_name,scraped_at\n1,Yesterday,The Beatles,2024-01-01\n"
		if err := os.WriteFile(csvPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write csv: %v", err)
		}

		runner, _ := newTestRunner(t)

		var source tasks.SourceReader
		app := &cli.Command{
			Name: "likeshift",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "csv"},
				&cli.BoolFlag{Name: "spotify"},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				var err error
				source, err = runner.buildSource(cmd)
				return err
			},
		}
		if err := app.Run(context.Background(), []string{"likeshift", "--csv", csvPath}); err != nil {
			t.Fatalf("buildSource failed: %v", err)
		}

		if _, ok := source.(*formatter.CSVCatalog); !ok {
			t.Errorf("expected CSVCatalog source, got %T", source)
		}
	})

	t.Run("spotify without credentials errors", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		app := &cli.Command{
			Name: "likeshift",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "csv"},
				&cli.BoolFlag{Name: "spotify"},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				_, err := runner.buildSource(cmd)
				return err
			},
		}
		if err := app.Run(context.Background(), []string{"likeshift", "--spotify"}); err == nil {
			t.Error("expected error without spotify credentials")
		}
	})
}
