package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func init() {
	// Disable retry sleep in all tests for fast execution
	readSleepFunc = func(ctx context.Context, d time.Duration) error { return nil }
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, Wrap("list terms", errors.New("connection reset"))
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, Wrap("list terms", errors.New("timeout"))
	})

	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected storage error, got %v", err)
	}
	if calls != readMaxRetries {
		t.Errorf("expected %d calls, got %d", readMaxRetries, calls)
	}
}

func TestRetry_NotRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", ErrNotFound},
		{"plain error", errors.New("bad input")},
		{"cancelled", Wrap("get", context.Canceled)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Retry(context.Background(), func(ctx context.Context) (string, error) {
				calls++
				return "", tt.err
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if calls != 1 {
				t.Errorf("expected a single call, got %d", calls)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap("op", nil) != nil {
		t.Error("expected nil for nil error")
	}
	err := Wrap("save relation", errors.New("disk full"))
	if !errors.Is(err, ErrStorage) {
		t.Error("expected wrapped error to match ErrStorage")
	}
}
