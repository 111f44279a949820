package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
)

const defaultWakeTimeout = 60 * time.Second

// Prober accommodates a backend that cold-starts slowly after an idle
// period: when a request fails with a cold-start signature, it issues a
// long-timeout health probe before the next retry.
type Prober struct {
	healthURL string
	timeout   time.Duration
	client    *http.Client
	logger    log.Logger
}

// NewProber creates a Prober against the given health endpoint.
func NewProber(healthURL string, timeout time.Duration, logger log.Logger) *Prober {
	if timeout <= 0 {
		timeout = defaultWakeTimeout
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Prober{
		healthURL: healthURL,
		timeout:   timeout,
		client:    &http.Client{},
		logger:    logger,
	}
}

// IsColdStart reports whether err carries a cold-start failure signature:
// a timeout-class failure, a refused connection, or wake-up phrasing from
// the backend.
func IsColdStart(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range []string{"waking up", "timeout", "timed out", "connection refused", "network error"} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// Probe issues a health request bounded by the wake timeout, giving a
// dormant backend time to become responsive.
func (p *Prober) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("resilience: health probe returned %d", resp.StatusCode)
	}
	return nil
}

// RetryWithWake layers cold-start probing on top of Retry: an attempt that
// fails with a cold-start signature triggers a wake probe before the next
// scheduled attempt. The original failure identity is preserved.
func RetryWithWake[T any](ctx context.Context, clock clockwork.Clock, cfg RetryConfig, p *Prober, op func(context.Context) (T, error)) (T, error) {
	if p == nil {
		return Retry(ctx, clock, cfg, op)
	}
	return Retry(ctx, clock, cfg, func(ctx context.Context) (T, error) {
		v, err := op(ctx)
		if err != nil && IsColdStart(err) {
			p.logger.Infof(ctx, "resilience: backend appears to be waking up, probing %s", p.healthURL)
			if perr := p.Probe(ctx); perr != nil {
				p.logger.Warnf(ctx, "resilience: wake probe failed: %v", perr)
			}
		}
		return v, err
	})
}
