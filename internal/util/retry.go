package util

import (
	"context"
	"time"
)

// Retry calls fn up to maxAttempts times with exponential backoff starting at
// baseDelay. It returns nil on the first successful call, or the last error
// if all attempts fail. The function respects context cancellation between
// retries.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Don't sleep after the last failed attempt.
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return err
}

// RetrySchedule calls fn once per entry in delays, sleeping the entry's
// duration (via clock) before the call. A zero first entry makes the first
// call immediate. fn returns (done, err); iteration stops as soon as done is
// true. If the schedule is exhausted without fn reporting done, the last
// observed error (possibly nil) is returned alongside done=false.
//
// Unlike Retry, the delay pattern is fixed rather than geometric, which is
// what challenge polling and login resubmission need.
func RetrySchedule(ctx context.Context, clock Clock, delays []time.Duration, fn func(attempt int) (bool, error)) (bool, error) {
	var err error
	for i, d := range delays {
		if serr := clock.Sleep(ctx, d); serr != nil {
			return false, serr
		}

		var done bool
		done, err = fn(i)
		if done {
			return true, err
		}
	}
	return false, err
}
