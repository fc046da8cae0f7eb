package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/debatearchive/catalog/pkg/logger"
)

// Retry calls fn up to attempts times, sleeping delay between failures.
// It stops early when ctx is cancelled and returns the last error.
func Retry(ctx context.Context, name string, attempts int, delay time.Duration, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	log := logger.Component("retry").With("operation", name)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		log.Warn("operation failed, retrying", "attempt", attempt, "max_attempts", attempts, "error", lastErr, "next_delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}
	return fmt.Errorf("all %d attempts failed for %s: %w", attempts, name, lastErr)
}
