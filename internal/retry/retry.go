package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cryptofolio/internal/logging"
)

// Config configures retry behavior for transient storage failures.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns the backoff used for snapshot ingestion.
// Pattern: 500ms, 1s, 2s, 4s, capped at 10s.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  4,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// Func is an operation that may be retried. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

// WithBackoff runs fn with exponential backoff until it succeeds, the
// attempts are exhausted, or the context is cancelled.
func WithBackoff(ctx context.Context, config *Config, fn Func) error {
	logger := logging.FromContext(ctx)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				logger.WithFields(map[string]interface{}{
					"attempts":      attempt,
					"totalDuration": time.Since(start).String(),
				}).Info("Operation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if attempt >= config.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}

		delay := backoffDelay(config, attempt)
		logger.WithFields(map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": config.MaxAttempts,
			"delay":       delay.String(),
			"error":       err.Error(),
		}).Warn("Operation failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
		}
	}

	logger.WithFields(map[string]interface{}{
		"attempts":      config.MaxAttempts,
		"totalDuration": time.Since(start).String(),
	}).Error("Operation failed after max retry attempts")
	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// WithDefault runs fn with the default ingestion backoff.
func WithDefault(ctx context.Context, fn Func) error {
	return WithBackoff(ctx, DefaultConfig(), fn)
}

func backoffDelay(config *Config, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
