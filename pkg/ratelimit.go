package lldapcli

import (
	"context"
	"encoding/json"
	"time"
)

// Rate-limit retry policy.
const (
	maxRateLimitRetries = 3
	rateLimitBaseDelay  = time.Second
)

// rateLimiter retries an operation with bounded exponential backoff when it
// fails with the HTTP 429 signal. Any other failure propagates immediately.
// The retry counter is shared across calls and reset on every success, so
// each independent logical operation starts fresh.
type rateLimiter struct {
	retries int
	base    time.Duration
	max     int
	sleep   func(time.Duration) // overridable in tests
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{base: rateLimitBaseDelay, max: maxRateLimitRetries, sleep: time.Sleep}
}

// Execute runs op, retrying while the failure is a 429 signal and the
// counter is below the cap. Delay before retry n is base·2^(n-1):
// 1s, 2s, 4s for the default cap of 3. Exhausting the cap yields a
// RateLimit-kind error regardless of the signal's message.
func (r *rateLimiter) Execute(ctx context.Context, op func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	for {
		result, err := op(ctx)
		if err == nil {
			r.retries = 0
			return result, nil
		}
		if !isRateLimitSignal(err) {
			return nil, err
		}
		if r.retries >= r.max {
			return nil, NewError(KindRateLimit, "rate limit exceeded, giving up after %d retries", r.max)
		}
		r.retries++
		r.sleep(r.base << (r.retries - 1))
	}
}
