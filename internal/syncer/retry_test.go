package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"clsync/internal/modal"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), "op", fastRetry(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), "op", fastRetry(), func(context.Context) error {
		attempts++
		return modal.ErrFileNotFound
	})
	assert.ErrorIs(t, err, modal.ErrFileNotFound)
	assert.NotErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	cause := errors.New("flaky")
	err := WithRetry(context.Background(), "op", fastRetry(), func(context.Context) error {
		attempts++
		return cause
	})
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, attempts, "initial attempt plus MaxRetries")
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := WithRetry(ctx, "op", RetryConfig{
		MaxRetries:     5,
		InitialBackoff: time.Hour,
		MaxBackoff:     time.Hour,
	}, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts, "cancellation interrupts the backoff wait")
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}
	assert.Equal(t, time.Second, calculateBackoff(1, cfg))
	assert.Equal(t, 2*time.Second, calculateBackoff(2, cfg))
	assert.Equal(t, 4*time.Second, calculateBackoff(3, cfg))
	assert.Equal(t, 5*time.Second, calculateBackoff(4, cfg), "capped at MaxBackoff")
	assert.Equal(t, 5*time.Second, calculateBackoff(60, cfg), "overflow falls back to the cap")
}

func TestRetryableClassification(t *testing.T) {
	assert.False(t, Retryable(modal.ErrFileNotFound))
	assert.False(t, Retryable(modal.ErrNoContentExtracted))
	assert.False(t, Retryable(context.Canceled))
	assert.True(t, Retryable(errors.New("connection reset")))
}
