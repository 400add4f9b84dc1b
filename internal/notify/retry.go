package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// permanentError stops retry after the current attempt
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// permanent marks err as not worth retrying
func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// retry runs fn up to maxAttempts times, sleeping delay between failures.
// It stops early when ctx is done or fn returns a permanent error.
func retry(ctx context.Context, logger *zap.Logger, op string, maxAttempts int, delay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(); err != nil {
			var perm *permanentError
			if errors.As(err, &perm) {
				return fmt.Errorf("%s failed on attempt %d: %w", op, attempt, perm.err)
			}
			lastErr = err
			logger.Debug("send attempt failed",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxAttempts),
				zap.Error(err),
			)
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return fmt.Errorf("%s aborted after %d attempts: %w", op, attempt, ctx.Err())
				case <-time.After(delay):
				}
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, maxAttempts, lastErr)
}
