package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/likeshift/internal/services"
	"github.com/desertthunder/likeshift/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var spotifyService *services.SpotifyService
	if svc, err := services.NewSpotifyService(config.Credentials.Spotify); err == nil {
		spotifyService = svc
	}

	youtubeService := services.NewYouTubeService(config.Credentials.YouTube.ProxyURL)

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Spotify: spotifyService,
		YouTube: youtubeService,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "likeshift",
		Usage:    "Migrate liked songs from Spotify to YouTube Music",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
