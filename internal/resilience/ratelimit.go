package resilience

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter is a session-scoped sliding-window rate limiter. It keeps, per
// key, the request timestamps inside the trailing window; pruning happens on
// every check so stale entries self-clean without a separate sweep.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	clock   clockwork.Clock
}

// NewLimiter creates a Limiter. A nil clock uses the wall clock.
func NewLimiter(clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{
		windows: make(map[string][]time.Time),
		clock:   clock,
	}
}

// Allow reports whether another request under key fits within the trailing
// window: the call is allowed only if fewer than maxRequests timestamps
// remain after discarding entries older than window. An allowed call records
// the current timestamp.
func (l *Limiter) Allow(key string, maxRequests int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	cutoff := now.Add(-window)

	timestamps := l.windows[key]
	valid := make([]time.Time, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= maxRequests {
		l.windows[key] = valid
		return false
	}

	l.windows[key] = append(valid, now)
	return true
}
