package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Sync errors
	ErrRewindRefused = fmt.Errorf("refusing to rewind cursor")
	ErrEmptySource   = fmt.Errorf("source catalog is empty")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// IsFatal reports whether err makes further progress impossible for a sync
// run. Fatal errors halt the pipeline without advancing the cursor so the
// in-flight record is retried on the next run.
func IsFatal(err error) bool {
	for _, target := range []error{
		ErrAuthFailed,
		ErrNotAuthenticated,
		ErrTokenExpired,
		ErrRefreshFailed,
		ErrInvalidCredentials,
		ErrMissingCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is worth retrying with backoff.
// Unknown errors are not transient; callers downgrade them to a per-record
// failure after classification.
func IsTransient(err error) bool {
	for _, target := range []error{
		ErrRateLimited,
		ErrTimeout,
		ErrServiceUnavailable,
		ErrAPIRequest,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
