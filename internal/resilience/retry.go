// Package resilience makes outbound request operations tolerant of transient
// failure and redundant traffic without changing their success-path contract.
package resilience

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// RetryConfig holds retry policy configuration.
type RetryConfig struct {
	// MaxAttempts is the total number of invocations, first try included.
	MaxAttempts int

	// BaseDelay is the wait after the first failure; it doubles per attempt.
	BaseDelay time.Duration
}

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	return c
}

// Retry invokes op until it succeeds or the attempt budget is exhausted,
// waiting BaseDelay * 2^i between attempts. A success on the first attempt
// returns immediately with no artificial delay. After exhausting the budget
// the last observed error is returned verbatim, so callers can still
// pattern-match the original failure kind. Retry holds no knowledge of HTTP
// or transport specifics.
func Retry[T any](ctx context.Context, clock clockwork.Clock, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var zero T
	var lastErr error
	for i := 0; i < cfg.MaxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-clock.After(cfg.BaseDelay << (i - 1)):
			}
		}
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}
