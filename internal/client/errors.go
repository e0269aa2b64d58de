// ABOUTME: Error taxonomy for the authenticated transport
// ABOUTME: Sentinels for 401/429/unreachable plus a typed APIError carrying status and Retry-After

package client

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrUnauthorized matches any 401 response
	ErrUnauthorized = errors.New("authentication rejected")
	// ErrRateLimited matches any 429 response
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidPayload means the backend answered with a body that failed validation
	ErrInvalidPayload = errors.New("invalid response payload")
	// ErrUnreachable means no HTTP response was received
	ErrUnreachable = errors.New("backend unreachable")
)

// APIError is a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // only set for 429 responses that carry a hint
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend error (%d): %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match APIError against the status sentinels
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// RetryAfter returns the server's retry hint for a rate-limited error
func RetryAfter(err error) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return apiErr.RetryAfter, true
	}
	return 0, false
}

// StatusCode extracts the HTTP status from err, or 0 if there was no response
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
