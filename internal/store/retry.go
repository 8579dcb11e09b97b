package store

import (
	"context"
	"errors"
	"time"
)

const readMaxRetries = 3

// readSleepFunc is the sleep function used between retries (injectable for tests)
var readSleepFunc = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Retry runs fn up to three times with exponential backoff while it fails
// with a storage error. Other errors, including ErrNotFound, return at once.
func Retry[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for attempt := 0; attempt < readMaxRetries; attempt++ {
		out, err = fn(ctx)
		if !isRetryable(err) {
			return out, err
		}
		if attempt < readMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * 200 * time.Millisecond
			if sleepErr := readSleepFunc(ctx, backoff); sleepErr != nil {
				return out, err
			}
		}
	}
	return out, err
}

func isRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrStorage)
}
