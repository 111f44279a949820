// Package apiclient is a thin REST client for the disaster backend, with
// every call wrapped in the resilience layer: bounded timeouts, retry with
// backoff, cold-start probing, response caching and client-side rate
// limiting.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sharath2004-tech/climate-disaster-sub001/internal/cache"
	"github.com/sharath2004-tech/climate-disaster-sub001/internal/resilience"
	"github.com/sharath2004-tech/climate-disaster-sub001/pkg/log"
)

// Config holds backend client configuration.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	WakeTimeout    time.Duration
	Retry          resilience.RetryConfig

	// ChatMaxRequests/ChatWindow bound how often Ask reaches the backend.
	ChatMaxRequests int
	ChatWindow      time.Duration
}

const (
	defaultRequestTimeout  = 15 * time.Second
	defaultChatMaxRequests = 10
	defaultChatWindow      = time.Minute
)

// Client talks to the disaster backend REST API.
type Client struct {
	cfg     Config
	http    *http.Client
	clock   clockwork.Clock
	logger  log.Logger
	cache   *cache.ResponseCache
	limiter *resilience.Limiter
	prober  *resilience.Prober
}

// New creates a backend client. cache and limiter may be nil to disable
// caching and client-side rate limiting.
func New(cfg Config, clock clockwork.Clock, logger log.Logger, respCache *cache.ResponseCache, limiter *resilience.Limiter) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ChatMaxRequests <= 0 {
		cfg.ChatMaxRequests = defaultChatMaxRequests
	}
	if cfg.ChatWindow <= 0 {
		cfg.ChatWindow = defaultChatWindow
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		clock:   clock,
		logger:  logger,
		cache:   respCache,
		limiter: limiter,
		prober:  resilience.NewProber(cfg.BaseURL+"/api/health", cfg.WakeTimeout, logger),
	}
}

// ActiveAlerts fetches the currently active alerts, retrying transient
// failures and riding out backend cold starts.
func (c *Client) ActiveAlerts(ctx context.Context) ([]Alert, error) {
	return resilience.RetryWithWake(ctx, c.clock, c.cfg.Retry, c.prober, func(ctx context.Context) ([]Alert, error) {
		var out struct {
			Alerts []Alert `json:"alerts"`
		}
		if err := c.getJSON(ctx, "/api/alerts", &out); err != nil {
			return nil, err
		}
		return out.Alerts, nil
	})
}

// Ask sends a question to the assistant endpoint. The response cache is
// consulted first (keyed by the question plus the situational context), and
// the client-side rate limiter gates calls that actually reach the backend.
func (c *Client) Ask(ctx context.Context, question, situation string) (string, error) {
	if c.cache != nil {
		if answer, ok := c.cache.Get(question, situation); ok {
			c.logger.Debugf(ctx, "apiclient: cache hit for question")
			return answer, nil
		}
	}
	if c.limiter != nil && !c.limiter.Allow("chat", c.cfg.ChatMaxRequests, c.cfg.ChatWindow) {
		return "", ErrRateLimited
	}

	answer, err := resilience.RetryWithWake(ctx, c.clock, c.cfg.Retry, c.prober, func(ctx context.Context) (string, error) {
		req := map[string]string{"question": question, "context": situation}
		var out struct {
			Answer string `json:"answer"`
		}
		if err := c.postJSON(ctx, "/api/chat", req, &out); err != nil {
			return "", err
		}
		return out.Answer, nil
	})
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		c.cache.Set(question, answer, situation)
	}
	return answer, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("apiclient: decode %s: %w", path, err)
	}
	return nil
}

// errorMessage extracts the server-provided message, falling back to a
// generic one so the UI always has something to show.
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return "request failed"
}
