// Package retry implements the exponential-backoff retry policy of §5:
// PlatformTransient failures are retried a bounded number of times with a
// growing delay; every other error (including PlatformFatal) is returned
// immediately.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
)

// Policy configures the backoff.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Do calls fn, retrying while it returns an *errs.PlatformTransient, up to
// MaxAttempts total tries. The delay doubles each attempt, capped at
// MaxDelay. A non-transient error, or running out of attempts, returns the
// last error seen.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	delay := p.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var transient *errs.PlatformTransient
		if !errors.As(lastErr, &transient) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}
