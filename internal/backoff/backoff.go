// Package backoff implements bounded exponential backoff for
// transient store errors (spec.md §7: "lock timeout is retried with
// bounded exponential backoff before surfacing").
package backoff

import (
	"context"
	"time"
)

// Policy describes a bounded exponential backoff schedule.
type Policy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	MaxRetries int
}

// Default is a reasonable policy for short store transactions on a
// shared filesystem: sub-second initial delay, capped at a few
// seconds, at most 5 retries.
var Default = Policy{
	Initial:    20 * time.Millisecond,
	Max:        2 * time.Second,
	Multiplier: 2,
	MaxRetries: 5,
}

// Retry calls fn until it succeeds, returns a non-retryable error (per
// retryable), or the policy's retry budget is exhausted. The last
// error is returned on exhaustion.
func Retry(ctx context.Context, p Policy, retryable func(error) bool, fn func() error) error {
	delay := p.Initial
	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == p.MaxRetries {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.Max {
			delay = p.Max
		}
	}
	return err
}
