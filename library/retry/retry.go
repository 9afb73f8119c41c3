// Package retry runs an operation until it succeeds, with a fixed wait between attempts.
package retry

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
)

// Clock waits for durations. Tests replace it to avoid real sleeps.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// RealClock is backed by time.After
var RealClock Clock = realClock{}

// Policy is a fixed-interval retry policy.
type Policy struct {
	// Interval is the wait between two attempts
	Interval time.Duration
	// MaxAttempts caps the number of attempts, 0 means unbounded
	MaxAttempts int
	// Clock defaults to RealClock
	Clock Clock
}

// Once returns a policy that makes exactly one attempt.
func Once() Policy {
	return Policy{MaxAttempts: 1}
}

// Forever returns a policy that retries every interval until success or cancellation.
func Forever(interval time.Duration) Policy {
	return Policy{Interval: interval}
}

// Do calls fn until it returns nil.
//
// onFailure, if not nil, is called after every failed attempt with the 1-based attempt number.
// Do returns the last error of fn when MaxAttempts is exhausted,
// or the context error when ctx is done while waiting.
func (p Policy) Do(ctx context.Context,
	fn func(ctx context.Context) error,
	onFailure func(attempt int, err error),
) error {
	clock := p.Clock
	if clock == nil {
		clock = RealClock
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "canceled before attempt %d", attempt)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if onFailure != nil {
			onFailure(attempt, err)
		}

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return errors.Wrapf(err, "give up after %d attempts", attempt)
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "canceled after %d attempts", attempt)
		case <-clock.After(p.Interval):
		}
	}
}
