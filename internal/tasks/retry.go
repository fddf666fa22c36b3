package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/likeshift/internal/shared"
)

// RetryPolicy bounds how transient collaborator errors are retried before
// being downgraded to a per-record failure. The schedule is explicit
// configuration; the engine itself contains no sleep-based control flow
// beyond the inter-record delay.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
}

// DefaultRetryPolicy returns the documented default schedule.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		Multiplier:     2.0,
	}
}

// Do runs op until it succeeds, fails permanently, or attempts run out.
//
// Only transient errors (per shared.IsTransient) are retried. Fatal and
// unclassified errors return immediately; context cancellation interrupts
// the backoff wait.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	backoff := p.InitialBackoff
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}

		if shared.IsFatal(err) || !shared.IsTransient(err) {
			return err
		}

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if p.Multiplier > 1 {
			backoff = time.Duration(float64(backoff) * p.Multiplier)
		}
	}

	return err
}
