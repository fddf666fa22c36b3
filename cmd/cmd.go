// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles first-run initialization
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config, initialize database, and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.SetupDatabase,
		Commands: []*cli.Command{
			{
				Name:  "youtube",
				Usage: "Configure YouTube Music authentication from browser headers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from browser DevTools",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path for the generated browser.json",
					},
				},
				Action: r.SetupYouTube,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication operations",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthSpotify,
			},
			{
				Name:   "status",
				Usage:  "Check YouTube Music proxy health and credentials",
				Action: r.AuthStatus,
			},
		},
	}
}

// syncCommand handles the liked-songs synchronization pipeline
func syncCommand(r *Runner) *cli.Command {
	runFlags := []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:  "csv",
			Usage: "Read the source catalog from a scraped CSV file",
		},
		&cli.BoolFlag{
			Name:  "spotify",
			Usage: "Read the source catalog from the Spotify Web API",
		},
		&cli.IntFlag{
			Name:  "start",
			Usage: "Override the stored cursor with a 1-based start index",
		},
		&cli.BoolFlag{
			Name:  "rewind",
			Usage: "Allow --start to move behind the stored cursor",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Search and score without liking, checkpointing, or recording failures",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Process at most N tracks this run",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write the failure report CSV to this path",
		},
	}

	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize liked songs to YouTube Music",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the sync pipeline, resuming from the stored cursor",
				Flags:  runFlags,
				Action: r.SyncRun,
			},
			{
				Name:   "ui",
				Usage:  "Run the sync pipeline with an interactive progress view",
				Flags:  runFlags,
				Action: r.SyncUI,
			},
			{
				Name:   "status",
				Usage:  "Show the stored cursor and failure counts",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SyncStatus,
			},
			{
				Name:  "failures",
				Usage: "Export recorded failures as a CSV report",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "run",
						Usage: "Limit the report to one run ID (default: all runs)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Report path (default: sync.failure_report_path)",
					},
				},
				Action: r.SyncFailures,
			},
		},
	}
}
