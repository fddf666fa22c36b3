// Spotify Web API client
//
// Reads the authenticated user's Liked Songs collection, replacing the
// browser-scraper path when API credentials are available. Response types
// based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/desertthunder/likeshift/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	savedTracksPageSize = 50
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
}

// SpotifySavedTrack represents a saved ("liked") track with its added-at timestamp.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

// SpotifyService reads the liked collection from the Spotify Web API.
// Implements the sync engine's SourceReader contract.
type SpotifyService struct {
	oauthConfig *oauth2.Config
	token       *oauth2.Token
	tokenPath   string
	baseURL     string
	httpClient  *http.Client
}

// NewSpotifyService creates a Spotify client from configuration.
// Returns an error when the OAuth client credentials are missing.
func NewSpotifyService(cfg shared.SpotifyConfig) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8888/callback"
	}

	return &SpotifyService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"user-library-read"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		tokenPath: cfg.TokenPath,
		baseURL:   spotifyBaseURL,
	}, nil
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the authorization URL to open in a browser.
// The state token should be cryptographically random for CSRF protection.
func (s *SpotifyService) AuthURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig exposes the underlying OAuth2 config for the callback server.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.oauthConfig
}

// SetToken installs an access token obtained from the authorization flow.
func (s *SpotifyService) SetToken(token *oauth2.Token) {
	s.token = token
	s.httpClient = nil
}

// SaveToken persists the current token as JSON at the configured path.
func (s *SpotifyService) SaveToken() error {
	if s.token == nil {
		return fmt.Errorf("%w: no token to save", shared.ErrNotAuthenticated)
	}
	if s.tokenPath == "" {
		return fmt.Errorf("%w: token_path not configured", shared.ErrInvalidConfig)
	}

	data, err := json.MarshalIndent(s.token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(s.tokenPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}

	return nil
}

// LoadToken restores a previously saved token from disk.
func (s *SpotifyService) LoadToken() error {
	if s.tokenPath == "" {
		return fmt.Errorf("%w: token_path not configured", shared.ErrInvalidConfig)
	}

	data, err := os.ReadFile(s.tokenPath)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("%w: invalid token file: %v", shared.ErrNotAuthenticated, err)
	}

	s.SetToken(&token)
	return nil
}

// client returns an HTTP client that injects and refreshes the bearer token.
func (s *SpotifyService) client(ctx context.Context) (*http.Client, error) {
	if s.token == nil {
		return nil, fmt.Errorf("%w: run `likeshift auth spotify` first", shared.ErrNotAuthenticated)
	}
	if s.httpClient == nil {
		s.httpClient = s.oauthConfig.Client(ctx, s.token)
	}
	return s.httpClient, nil
}

func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status 401", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status 403", shared.ErrAuthFailed)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status 429", shared.ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// SavedTracks retrieves one page of the user's saved tracks.
//
// Calls GET /v1/me/tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	if limit <= 0 || limit > savedTracksPageSize {
		limit = savedTracksPageSize
	}

	var page SpotifyPaginatedTracks
	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)
	if err := s.doRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// ReadTracks pages through the entire liked collection and returns it in API
// order. The order is stable across calls within a run, which is what makes
// cursor-based resume meaningful.
func (s *SpotifyService) ReadTracks(ctx context.Context) ([]Track, error) {
	var tracks []Track
	offset := 0

	for {
		page, err := s.SavedTracks(ctx, savedTracksPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			track := Track{
				Index: len(tracks) + 1,
				Title: item.Track.Name,
			}
			if len(item.Track.Artists) > 0 {
				track.Artist = item.Track.Artists[0].Name
			}

			if err := track.Validate(); err != nil {
				// Local files and removed tracks come back with blank
				// metadata; they cannot be searched for, skip them.
				continue
			}
			track.Index = len(tracks) + 1
			tracks = append(tracks, track)
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return tracks, nil
}
