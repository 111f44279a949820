package apiclient

import (
	"errors"
	"fmt"
	"time"
)

// Alert is an active emergency alert as served by the backend.
type Alert struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	HazardType  string    `json:"hazard_type"`
	Severity    string    `json:"severity"`
	Area        string    `json:"area"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// APIError is a non-success response from the backend. It survives retries
// verbatim so callers can distinguish, e.g., validation failures (do not
// retry, show message) from transient network errors.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// ErrRateLimited is returned by Ask when the client-side chat rate limit
// rejects the call before it reaches the backend.
var ErrRateLimited = errors.New("apiclient: chat rate limit exceeded")
