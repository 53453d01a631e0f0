package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// MaxRetries bounds attempts per embedding call.
const MaxRetries = 3

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	msg := e.Message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, msg)
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// retryableStatus reports whether an HTTP status signals a transient fault.
func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// Retrying re-issues calls that fail with a RetryableError.
type Retrying struct {
	Next Embedder
	Log  *slog.Logger
	// Sleep waits between attempts; nil means Backoff.
	Sleep func(attempt int) time.Duration
}

func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	wait := r.Sleep
	if wait == nil {
		wait = Backoff
	}
	var lastErr error
	for attempt := range MaxRetries {
		v, err := r.Next.Embed(ctx, text)
		if err == nil || !IsRetryable(err) {
			return v, err
		}
		lastErr = err
		if attempt == MaxRetries-1 {
			break
		}
		if r.Log != nil {
			r.Log.Warn("retryable embedding error", "attempt", attempt, "error", err)
		}
		select {
		case <-time.After(wait(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
