package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/likeshift/internal/server"
	"github.com/desertthunder/likeshift/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthSpotify runs the OAuth2 authorization flow with a local HTTP server and
// persists the resulting token.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: set credentials.spotify.client_id and client_secret in config.toml",
			shared.ErrMissingCredentials)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return err
	}

	callback, err := server.NewCallbackServer(r.spotify.OAuthConfig(), state, r.logger)
	if err != nil {
		return err
	}
	callback.Start()

	authURL := r.spotify.AuthURL(state)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	token, err := callback.WaitForToken(ctx, 2*time.Minute)
	if err != nil {
		return err
	}

	r.spotify.SetToken(token)
	if err := r.spotify.SaveToken(); err != nil {
		return err
	}

	r.logger.Info("spotify authorization complete")
	r.writePlain("✓ Spotify authorization successful\n")

	return nil
}

// AuthStatus checks YouTube Music proxy reachability and credential validity.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	if r.youtube == nil {
		return fmt.Errorf("%w: YouTube Music service not initialized", shared.ErrServiceUnavailable)
	}

	if headersPath := r.config.Credentials.YouTube.HeadersPath; headersPath != "" {
		if err := r.youtube.Authenticate(ctx, map[string]string{"auth_file": headersPath}); err != nil {
			return err
		}
	}

	if err := r.youtube.Health(ctx); err != nil {
		r.writePlain("✗ YouTube Music proxy check failed\n")
		return err
	}

	r.writePlain("✓ YouTube Music proxy is healthy\n")

	if err := r.spotifyTokenStatus(); err != nil {
		r.writePlain("✗ Spotify: %v\n", err)
	} else {
		r.writePlain("✓ Spotify token loaded\n")
	}

	return nil
}

func (r *Runner) spotifyTokenStatus() error {
	if r.spotify == nil {
		return fmt.Errorf("%w: credentials not configured", shared.ErrMissingCredentials)
	}
	return r.spotify.LoadToken()
}
