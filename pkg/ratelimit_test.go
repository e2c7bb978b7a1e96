package lldapcli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingLimiter returns a limiter whose sleeps are recorded instead of
// actually waiting.
func recordingLimiter() (*rateLimiter, *[]time.Duration) {
	var slept []time.Duration
	r := newRateLimiter()
	r.sleep = func(d time.Duration) { slept = append(slept, d) }
	return r, &slept
}

func TestRateLimiter_RetriesOn429Signal(t *testing.T) {
	r, slept := recordingLimiter()
	calls := 0

	result, err := r.Execute(context.Background(), func(context.Context) (json.RawMessage, error) {
		calls++
		if calls == 1 {
			return nil, rateLimitSignal("slow down")
		}
		return json.RawMessage(`{"ok":true}`), nil
	})

	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(result))
	require.Equal(t, 2, calls)
	require.Equal(t, []time.Duration{time.Second}, *slept)
	require.Zero(t, r.retries, "counter resets on success")
}

func TestRateLimiter_ExhaustsRetries(t *testing.T) {
	r, slept := recordingLimiter()
	calls := 0

	_, err := r.Execute(context.Background(), func(context.Context) (json.RawMessage, error) {
		calls++
		return nil, rateLimitSignal("always throttled")
	})

	require.Error(t, err)
	require.Equal(t, KindRateLimit, KindOf(err))
	require.Equal(t, maxRateLimitRetries+1, calls, "initial attempt plus the full retry budget")
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *slept)
}

func TestRateLimiter_OtherFailuresPropagateImmediately(t *testing.T) {
	r, slept := recordingLimiter()
	boom := errors.New("connection refused")
	calls := 0

	_, err := r.Execute(context.Background(), func(context.Context) (json.RawMessage, error) {
		calls++
		return nil, boom
	})

	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
	require.Empty(t, *slept)
}

func TestRateLimiter_CounterResetsBetweenOperations(t *testing.T) {
	r, _ := recordingLimiter()

	// First operation spends two retries then succeeds.
	calls := 0
	_, err := r.Execute(context.Background(), func(context.Context) (json.RawMessage, error) {
		calls++
		if calls <= 2 {
			return nil, rateLimitSignal("throttled")
		}
		return json.RawMessage(`1`), nil
	})
	require.NoError(t, err)

	// A later independent operation gets the full budget again.
	calls = 0
	_, err = r.Execute(context.Background(), func(context.Context) (json.RawMessage, error) {
		calls++
		return nil, rateLimitSignal("throttled")
	})
	require.Error(t, err)
	require.Equal(t, KindRateLimit, KindOf(err))
	require.Equal(t, maxRateLimitRetries+1, calls)
}
