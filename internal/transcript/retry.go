package transcript

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"time"

	"yt-transcripts/internal/model"
)

// RetryConfig controls retries of a single provider request.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     8 * time.Second,
	Multiplier:  2.0,
}

// retryDo retries fn with exponential backoff while the error is retryable.
// Rate-limit and forbidden responses are returned at once so the batch
// driver can stop the run.
func retryDo[T any](ctx context.Context, rc RetryConfig, logger *slog.Logger, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return zero, err
		}

		if attempt < rc.MaxRetries {
			wait := time.Duration(float64(rc.InitialWait) * math.Pow(rc.Multiplier, float64(attempt)))
			if wait > rc.MaxWait {
				wait = rc.MaxWait
			}
			if logger != nil {
				logger.Debug("retrying provider request",
					slog.Int("attempt", attempt+1),
					slog.Duration("wait", wait),
					slog.Any("error", err),
				)
			}
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *model.StatusError
	if errors.As(err, &statusErr) {
		return isRetryableStatus(statusErr.StatusCode)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func isRetryableStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	}
	return false
}
