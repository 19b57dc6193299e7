package agent

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hupe1980/literaryfinder/logging"
)

// RetryPolicy configures exponential backoff for calls to external sources.
// It never escapes a worker: the engine only sees the final outcome.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps a single delay.
	MaxDelay time.Duration
}

// DefaultRetryPolicy retries three times starting at one second, capped at 15s.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	MaxDelay:   15 * time.Second,
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.MaxInterval = p.MaxDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0.5
	eb.MaxElapsedTime = 0 // bounded by MaxRetries and ctx

	return backoff.WithContext(backoff.WithMaxRetries(eb, p.MaxRetries), ctx)
}

// Do runs op until it succeeds, returns a permanent error, retries are
// exhausted or ctx is done. Wrap errors with backoff.Permanent to stop early.
func (p RetryPolicy) Do(ctx context.Context, logger logging.Logger, name string, op func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return op()
	}, p.backOff(ctx), func(err error, next time.Duration) {
		logger.Warn("%s attempt %d/%d failed: %v; retrying in %s", name, attempt, p.MaxRetries+1, err, next.Round(time.Millisecond))
	})
}

// permanent marks err as not worth retrying.
func permanent(err error) error {
	return backoff.Permanent(err)
}
