package server

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.False(t, isTransient(nil))
	assert.True(t, isTransient(&statusError{Status: 502}))
	assert.True(t, isTransient(&statusError{Status: http.StatusTooManyRequests}))
	assert.False(t, isTransient(&statusError{Status: 404}))
	assert.False(t, isTransient(context.Canceled))
	assert.True(t, isTransient(errors.New("connection refused")))
}

func TestRetryConfig_Backoff(t *testing.T) {
	c := &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     300 * time.Millisecond,
	}

	assert.Equal(t, 100*time.Millisecond, c.backoff(0))
	assert.Equal(t, 200*time.Millisecond, c.backoff(1))
	assert.Equal(t, 300*time.Millisecond, c.backoff(2), "capped at MaxBackoff")
}

func TestRetryConfig_Retry(t *testing.T) {
	c := &RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	calls := 0
	err := c.retry(context.Background(), "deliver", func() error {
		calls++
		return &statusError{Status: 503}
	})
	assert.EqualError(t, err, "deliver: HTTP 503 (after 2 retries)")
	assert.Equal(t, 3, calls)

	calls = 0
	err = c.retry(context.Background(), "deliver", func() error {
		calls++
		return &statusError{Status: 400}
	})
	assert.EqualError(t, err, "HTTP 400")
	assert.Equal(t, 1, calls)
}

func TestRetryConfig_RetryCancelled(t *testing.T) {
	c := &RetryConfig{MaxRetries: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.retry(ctx, "deliver", func() error { return &statusError{Status: 500} })
	assert.ErrorContains(t, err, "retry cancelled")
}
