// YouTube Music client
//
// Communicates with the FastAPI proxy server wrapping the ytmusicapi Python
// library. The proxy authenticates requests with browser credentials written
// by `likeshift setup youtube` (X-Auth-File header points at browser.json).
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/likeshift/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeSearchResult represents one entry of a proxy search response.
type YouTubeSearchResult struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"`
}

// YouTubeService talks to the YouTube Music proxy. It implements the sync
// engine's Searcher and Applier contracts.
type YouTubeService struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
}

// NewYouTubeService creates a new YouTube Music service instance.
func NewYouTubeService(baseURL string) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// Authenticate stores the browser credentials file path for subsequent requests.
//
// Expects credentials["auth_file"] to contain the path to browser.json.
func (y *YouTubeService) Authenticate(ctx context.Context, credentials map[string]string) error {
	authFile, ok := credentials["auth_file"]
	if !ok || authFile == "" {
		return fmt.Errorf("%w: missing auth_file in credentials", shared.ErrMissingCredentials)
	}

	y.authFile = authFile
	return nil
}

func (y *YouTubeService) doRequest(ctx context.Context, method, endpoint string, body io.Reader, result any) error {
	apiURL := y.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return y.statusError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// statusError maps proxy response codes onto the shared error taxonomy so the
// sync engine can tell a fatal auth problem from a retryable hiccup.
func (y *YouTubeService) statusError(resp *http.Response) error {
	detail := ""
	var errResp struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
		detail = ": " + errResp.Detail
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d%s", shared.ErrAuthFailed, resp.StatusCode, detail)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d%s", shared.ErrRateLimited, resp.StatusCode, detail)
	case resp.StatusCode == http.StatusRequestTimeout:
		return fmt.Errorf("%w: status %d%s", shared.ErrTimeout, resp.StatusCode, detail)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d%s", shared.ErrServiceUnavailable, resp.StatusCode, detail)
	default:
		return fmt.Errorf("%w: status %d%s", shared.ErrAPIRequest, resp.StatusCode, detail)
	}
}

// SearchCandidates searches the proxy for songs matching the query and
// returns the full relevance-ranked result list. Selection is the match
// scorer's job, not the client's.
//
// Calls GET /api/search?q={query}&filter=songs on the proxy.
func (y *YouTubeService) SearchCandidates(ctx context.Context, query string) ([]Candidate, error) {
	endpoint := fmt.Sprintf("/api/search?q=%s&filter=songs", url.QueryEscape(query))

	var results []YouTubeSearchResult
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(results))
	for _, result := range results {
		if result.VideoID == "" {
			continue
		}

		candidate := Candidate{
			ID:          result.VideoID,
			Title:       result.Title,
			DurationSec: result.DurationSec,
		}
		if len(result.Artists) > 0 {
			candidate.Artist = result.Artists[0].Name
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// Apply adds the track to the authenticated user's liked songs.
//
// Calls POST /api/songs/{videoId}/rate with a LIKE rating. The rating is a
// set-state operation on the YouTube Music side, so applying twice is safe.
func (y *YouTubeService) Apply(ctx context.Context, targetID string) error {
	endpoint := fmt.Sprintf("/api/songs/%s/rate", url.PathEscape(targetID))
	body := strings.NewReader(`{"rating":"LIKE"}`)

	return y.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// Health checks proxy reachability and credential validity.
//
// Calls GET /health; the proxy performs a lightweight authenticated library
// call before reporting ok.
func (y *YouTubeService) Health(ctx context.Context) error {
	return y.doRequest(ctx, http.MethodGet, "/health", nil, nil)
}
