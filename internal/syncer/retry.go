package syncer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"clsync/internal/logging"
	"clsync/internal/modal"
)

// ErrMaxRetriesExceeded wraps the last failure after all attempts are spent.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// RetryConfig controls the exponential backoff schedule.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig mirrors the config package defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     8 * time.Second,
	}
}

// Retryable classifies failures. Deterministic outcomes are final: a file
// that is not on the page will not appear on a retry, and a preview that
// yielded no content will not yield any the second time.
func Retryable(err error) bool {
	if errors.Is(err, modal.ErrFileNotFound) || errors.Is(err, modal.ErrNoContentExtracted) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// WithRetry runs op until it succeeds, fails permanently, or the attempts
// are exhausted. Backoff doubles per attempt up to MaxBackoff.
func WithRetry(ctx context.Context, name string, cfg RetryConfig, op func(context.Context) error) error {
	var last error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := calculateBackoff(attempt, cfg)
			logging.SyncWarn("%s failed (attempt %d/%d), retrying in %s: %v",
				name, attempt, cfg.MaxRetries, backoff, last)
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
		}
		last = op(ctx)
		if last == nil {
			return nil
		}
		if !Retryable(last) {
			return last
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrMaxRetriesExceeded, name, last)
}

func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	d := time.Duration(float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt-1)))
	if d > cfg.MaxBackoff || d <= 0 {
		d = cfg.MaxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
