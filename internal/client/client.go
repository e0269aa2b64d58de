// ABOUTME: Authenticated HTTP transport for the equipment-lending backend
// ABOUTME: Attaches the bearer token per request, discards it on 401, surfaces 429 without retrying

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenSource supplies the bearer token for each outgoing request
type TokenSource interface {
	Token() string
}

// TokenDiscarder drops the durable token after an authentication rejection
type TokenDiscarder interface {
	DiscardToken() error
}

// Client is the API client for the lending backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	discarder  TokenDiscarder
}

// Option configures a Client
type Option func(*Client) error

// WithTokenSource sets where the bearer token is read from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) error {
		c.tokens = ts
		return nil
	}
}

// WithTokenDiscarder sets what is cleared when the backend answers 401
func WithTokenDiscarder(d TokenDiscarder) Option {
	return func(c *Client) error {
		c.discarder = d
		return nil
	}
}

// WithTimeout overrides the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// WithProxy routes all connections through an ssh+socks5:// jumpbox
func WithProxy(allProxy string) Option {
	return func(c *Client) error {
		if allProxy == "" {
			return nil
		}
		dial, err := newSOCKS5DialContext(allProxy)
		if err != nil {
			return err
		}
		c.httpClient.Transport = &http.Transport{
			DialContext:         dial,
			TLSHandshakeTimeout: 30 * time.Second,
		}
		return nil
	}
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BaseURL returns the backend URL this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends one request and decodes a 2xx JSON body into out (if non-nil)
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal input: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	var token string
	if c.tokens != nil {
		token = c.tokens.Token()
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	slog.Debug("API request",
		"request_id", requestID,
		"method", method,
		"path", path,
		"authenticated", token != "",
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = c.handleRequestError(ctx, err)
		slog.Warn("API request failed", "request_id", requestID, "method", method, "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	slog.Debug("API response",
		"request_id", requestID,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := c.handleErrorResponse(resp)
		slog.Warn("API error",
			"request_id", requestID,
			"method", method,
			"path", path,
			"status", apiErr.StatusCode,
			"message", apiErr.Message,
		)
		if apiErr.StatusCode == http.StatusUnauthorized {
			c.discardToken(token)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// discardToken clears the durable token unless it was replaced while the
// rejected request was in flight. The in-memory session is left to the
// caller, which observes ErrUnauthorized.
func (c *Client) discardToken(rejected string) {
	if c.discarder == nil {
		return
	}
	if c.tokens != nil && c.tokens.Token() != rejected {
		slog.Debug("Token changed during rejected request, keeping it")
		return
	}
	if err := c.discarder.DiscardToken(); err != nil {
		slog.Warn("Failed to discard rejected token", "error", err)
		return
	}
	slog.Info("Discarded token rejected by backend")
}

// handleRequestError converts context errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled: %w", context.Canceled)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", ErrUnreachable)
	}
	return fmt.Errorf("%w: cannot connect to backend at %s: %v", ErrUnreachable, c.baseURL, err)
}

// handleErrorResponse parses API error responses
func (c *Client) handleErrorResponse(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}

	var errResp errorBody
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return apiErr
	}
	apiErr.Message = errResp.message()
	if apiErr.RetryAfter == 0 && errResp.RetryAfter > 0 {
		apiErr.RetryAfter = time.Duration(errResp.RetryAfter) * time.Second
	}
	return apiErr
}

// errorBody accepts both the auth endpoints' and the middleware's error shapes
type errorBody struct {
	Message    string `json:"message"`
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after"`
}

func (b errorBody) message() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}
