// Package backoff implements the retry delay policy for backing-service
// connections.
package backoff

import "time"

// Policy computes the wait before a retry attempt. The delay grows linearly
// with the retry count and is capped, and past MaxRetries the policy reports
// terminal failure. No jitter is applied.
type Policy struct {
	Step       time.Duration // Delay added per retry
	Cap        time.Duration // Upper bound on the delay
	MaxRetries int           // Retries allowed before giving up
}

// Default returns the standard policy: 50ms per retry, capped at 1s,
// giving up after 20 retries.
func Default() Policy {
	return Policy{
		Step:       50 * time.Millisecond,
		Cap:        time.Second,
		MaxRetries: 20,
	}
}

// Next returns the delay to wait before the next attempt, given the number of
// failures so far. The second return value is false once the retry budget is
// exhausted; the caller must stop retrying.
func (p Policy) Next(retries int) (time.Duration, bool) {
	if retries > p.MaxRetries {
		return 0, false
	}

	delay := time.Duration(retries) * p.Step
	if delay > p.Cap {
		delay = p.Cap
	}
	return delay, true
}
