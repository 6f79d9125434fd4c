package donetick

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func testPolicy(maxRetries int) (*retryPolicy, *[]time.Duration) {
	p := newRetryPolicy(maxRetries, 100*time.Millisecond, 5*time.Second, slog.Default())
	var delays []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return p, &delays
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	p, delays := testPolicy(3)

	calls := 0
	err := p.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		if calls <= 3 {
			return &statusError{code: 503}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success on 4th attempt, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 attempts, got %d", calls)
	}
	if len(*delays) != 3 {
		t.Fatalf("expected 3 backoff delays, got %d", len(*delays))
	}
	// base*2^(n-1) plus jitter in [0, base) is strictly increasing per attempt.
	for i := 1; i < len(*delays); i++ {
		if (*delays)[i] <= (*delays)[i-1] {
			t.Errorf("delay %d (%v) not greater than delay %d (%v)",
				i, (*delays)[i], i-1, (*delays)[i-1])
		}
	}
}

func TestRetry_ClientErrorFailsImmediately(t *testing.T) {
	p, delays := testPolicy(3)

	calls := 0
	err := p.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return &ClientRequestError{StatusCode: 404}
	})

	if calls != 1 {
		t.Errorf("expected exactly 1 attempt for a 404, got %d", calls)
	}
	if len(*delays) != 0 {
		t.Errorf("expected no backoff delays, got %v", *delays)
	}
	var cre *ClientRequestError
	if !errors.As(err, &cre) || cre.StatusCode != 404 {
		t.Errorf("expected ClientRequestError(404), got %v", err)
	}
}

func TestRetry_ValidationAndAuthNotRetried(t *testing.T) {
	for name, failure := range map[string]error{
		"validation": &ValidationError{Field: "name", Message: "empty"},
		"auth":       &AuthenticationError{Reason: "bad credentials"},
	} {
		p, _ := testPolicy(3)
		calls := 0
		err := p.Do(context.Background(), name, func(ctx context.Context) error {
			calls++
			return failure
		})
		if calls != 1 {
			t.Errorf("%s: expected 1 attempt, got %d", name, calls)
		}
		if !errors.Is(err, failure) {
			t.Errorf("%s: expected original error, got %v", name, err)
		}
	}
}

func TestRetry_ExhaustionClassifies503(t *testing.T) {
	p, _ := testPolicy(2)

	calls := 0
	err := p.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return &statusError{code: 503}
	})

	if calls != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", calls)
	}
	var tse *TransientServerError
	if !errors.As(err, &tse) {
		t.Fatalf("expected TransientServerError, got %v", err)
	}
	if tse.StatusCode != 503 || tse.Attempts != 3 {
		t.Errorf("expected status 503 / 3 attempts, got %d / %d", tse.StatusCode, tse.Attempts)
	}
}

func TestRetry_ExhaustionClassifies429(t *testing.T) {
	p, _ := testPolicy(1)

	err := p.Do(context.Background(), "test", func(ctx context.Context) error {
		return &statusError{code: 429}
	})

	var rle *RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if rle.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", rle.Attempts)
	}
}

func TestRetry_RetryAfterHintTakesPrecedence(t *testing.T) {
	p, delays := testPolicy(1)

	calls := 0
	_ = p.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &statusError{code: 429, retryAfter: 7}
		}
		return nil
	})

	if len(*delays) != 1 {
		t.Fatalf("expected 1 delay, got %d", len(*delays))
	}
	if (*delays)[0] != 7*time.Second {
		t.Errorf("expected Retry-After hint of 7s to win, got %v", (*delays)[0])
	}
}

func TestRetry_CancelledContextStopsLoop(t *testing.T) {
	p := newRetryPolicy(3, 10*time.Millisecond, time.Second, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, "test", func(ctx context.Context) error {
		calls++
		cancel()
		return &statusError{code: 503}
	})

	if calls != 1 {
		t.Errorf("expected 1 attempt before cancellation stopped the loop, got %d", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
