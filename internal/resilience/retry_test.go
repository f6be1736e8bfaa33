package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(3), "test", func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransient(t *testing.T) {
	calls := 0
	transient := &StatusError{Err: errors.New("upstream busy"), StatusCode: http.StatusServiceUnavailable}

	got, err := Do(context.Background(), fastPolicy(3), "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", transient
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("bad request")

	_, err := Do(context.Background(), fastPolicy(5), "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	transient := &StatusError{Err: errors.New("flaky"), StatusCode: http.StatusBadGateway}

	_, err := Do(context.Background(), fastPolicy(3), "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, transient
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	transient := &StatusError{Err: errors.New("flaky"), StatusCode: http.StatusTooManyRequests}

	_, err := Do(ctx, Policy{Attempts: 10, BaseDelay: 50 * time.Millisecond}, "test", func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, transient
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CustomRetryable(t *testing.T) {
	sentinel := errors.New("retry me")
	calls := 0

	p := fastPolicy(3)
	p.Retryable = func(err error) bool { return errors.Is(err, sentinel) }

	_, err := Do(context.Background(), p, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestTransient(t *testing.T) {
	assert.False(t, Transient(nil))
	assert.False(t, Transient(errors.New("schema mismatch")))
	assert.True(t, Transient(&StatusError{Err: errors.New("too many requests"), StatusCode: 429}))
	assert.False(t, Transient(&StatusError{Err: errors.New("forbidden"), StatusCode: 403}))
	assert.True(t, Transient(errors.New("read tcp: i/o timeout")))
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, RetryableStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 201, 301, 400, 401, 404} {
		assert.False(t, RetryableStatus(code), "code %d", code)
	}
}
