package donetick

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryPolicy wraps one upstream call with bounded exponential backoff.
// Network failures, 5xx and 429 are retried; every other status propagates
// immediately. The attempt callback is a complete gated request: it
// re-acquires the rate limiter and re-checks the session each time.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	log        *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func newRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration, log *slog.Logger) *retryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	return &retryPolicy{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		log:        log,
		sleep:      sleepCtx,
	}
}

// Do runs attempt up to maxRetries+1 times. On exhaustion the last failure
// is classified into the public error taxonomy, annotated with the attempt
// count.
func (p *retryPolicy) Do(ctx context.Context, op string, attempt func(ctx context.Context) error) error {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = p.baseDelay
	schedule.Multiplier = 2
	schedule.RandomizationFactor = 0 // jitter is added below, uniform in [0, baseDelay)
	schedule.MaxInterval = p.maxDelay
	schedule.MaxElapsedTime = 0
	schedule.Reset()

	var lastErr error
	attempts := 0
	for {
		attempts++
		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempts > p.maxRetries {
			return classifyExhausted(lastErr, attempts)
		}

		delay := schedule.NextBackOff()
		if delay > p.maxDelay {
			delay = p.maxDelay
		}
		delay += time.Duration(rand.Int63n(int64(p.baseDelay)))

		// A Retry-After hint from a 429 overrides the computed backoff.
		var se *statusError
		if errors.As(lastErr, &se) && se.code == 429 && se.retryAfter > 0 {
			delay = time.Duration(se.retryAfter) * time.Second
		}

		p.log.Warn("retrying upstream call",
			"op", op,
			"attempt", attempts,
			"delay", delay.String(),
			"error", lastErr.Error(),
		)

		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryable classifies a single-attempt failure. Caller cancellation,
// validation, auth and non-429 4xx failures are final; connection errors,
// timeouts, 5xx and 429 are worth another gated attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return false
	}
	var ae *AuthenticationError
	if errors.As(err, &ae) {
		return false
	}
	var cre *ClientRequestError
	if errors.As(err, &cre) {
		return false
	}
	if errors.Is(err, ErrClosed) {
		return false
	}
	// Network-level failure (refused connection, reset, phase timeout).
	return true
}

func classifyExhausted(err error, attempts int) error {
	var se *statusError
	if errors.As(err, &se) {
		if se.code == 429 {
			return &RateLimitedError{Attempts: attempts, Err: err}
		}
		return &TransientServerError{StatusCode: se.code, Attempts: attempts, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) || isNetTimeout(err) {
		return &TimeoutError{Attempts: attempts, Err: err}
	}
	return &TransientServerError{Attempts: attempts, Err: err}
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
