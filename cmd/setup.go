package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/likeshift/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the configuration file and database.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		} else {
			r.config = config
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else if config, err := shared.LoadConfig(configPath); err == nil {
			r.logger.Info("config file created", "path", configPath)
			r.config = config
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config: %s\n", configPath)
	r.writePlain("Database: %s\n", r.config.Database.Path)

	return nil
}

// SetupYouTube configures YouTube Music authentication from browser headers.
//
// Accepts a cURL command copied from DevTools and generates browser.json.
func (r *Runner) SetupYouTube(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	outputPath := cmd.String("output")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	r.logger.Info("parsing cURL command for YouTube Music headers")

	var curlHeaders *shared.CurlHeaders
	var err error

	if curlFile != "" {
		curlHeaders, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		curlHeaders, err = shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	if outputPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		outputPath = filepath.Join(homeDir, ".likeshift", "browser.json")
	}

	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := curlHeaders.WriteBrowserJSON(outputPath); err != nil {
		return err
	}

	r.logger.Info("browser.json saved", "path", outputPath)

	r.writePlain("✓ YouTube Music authentication configured successfully\n")
	r.writePlain("Auth file saved to: %s\n", outputPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Update config.toml with: credentials.youtube.headers_path = \"%s\"\n", outputPath)
	r.writePlain("2. Run 'likeshift auth status' to test authentication\n")

	return nil
}
