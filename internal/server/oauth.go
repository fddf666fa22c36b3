package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likeshift/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthResult carries the outcome of one authorization callback.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// CallbackHandler processes a single OAuth2 authorization-code callback.
//
// The state parameter is checked against the value sent with the
// authorization URL, and repeated callbacks are rejected so a replayed
// redirect cannot trigger a second exchange.
type CallbackHandler struct {
	config  *oauth2.Config
	state   string
	results chan OAuthResult
	once    sync.Once
	mu      sync.Mutex
	handled bool
}

// NewCallbackHandler creates a handler expecting the given state token
func NewCallbackHandler(config *oauth2.Config, state string) *CallbackHandler {
	return &CallbackHandler{
		config:  config,
		state:   state,
		results: make(chan OAuthResult, 1),
	}
}

// Result returns the channel that receives exactly one OAuthResult
func (h *CallbackHandler) Result() <-chan OAuthResult {
	return h.results
}

func (h *CallbackHandler) send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// ServeHTTP validates the callback and exchanges the code for a token
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.handled {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.handled = true
	h.mu.Unlock()

	query := r.URL.Query()

	if query.Get("state") != h.state {
		h.send(OAuthResult{err: fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.send(OAuthResult{err: fmt.Errorf("%w: %s - %s",
			shared.ErrAuthFailed, query.Get("error"), query.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .card { text-align: center; background: white; padding: 2rem;
                border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>✓ Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`

// CallbackServer runs the one-shot HTTP server for the authorization flow.
type CallbackServer struct {
	handler *CallbackHandler
	srv     *http.Server
	errs    chan error
	logger  *log.Logger
}

// NewCallbackServer builds a server listening on the host and port of the
// OAuth2 config's redirect URL, serving its path.
func NewCallbackServer(config *oauth2.Config, state string, logger *log.Logger) (*CallbackServer, error) {
	redirect, err := url.Parse(config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad redirect URI: %v", shared.ErrInvalidConfig, err)
	}

	path := redirect.Path
	if path == "" {
		path = "/"
	}

	handler := NewCallbackHandler(config, state)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &CallbackServer{
		handler: handler,
		srv:     &http.Server{Addr: redirect.Host, Handler: mux},
		errs:    make(chan error, 1),
		logger:  logger,
	}, nil
}

// Start begins serving in the background
func (s *CallbackServer) Start() {
	go func() {
		s.logger.Info("waiting for authorization callback", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.errs <- err
		}
	}()
}

// WaitForToken blocks until the callback arrives, the server fails, the
// timeout elapses, or ctx is cancelled. The server is shut down before
// returning.
func (s *CallbackServer) WaitForToken(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result OAuthResult

	select {
	case result = <-s.handler.Result():
	case err := <-s.errs:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timer.C:
		s.shutdown()
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		s.shutdown()
		return nil, ctx.Err()
	}

	s.shutdown()

	if result.Error() != nil {
		return nil, result.Error()
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

func (s *CallbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("error shutting down callback server", "err", err)
	}
}
