// Package benchapi is the console's client for the bench server's REST
// surface: configuration, manual station control and manual step
// submission. The live telemetry feed is not carried here.
package benchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPDoer defines the http.Client interface subset the client needs.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// APIError is a non-2xx server response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("benchapi: server returned %d: %s", e.Status, e.Message)
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient substitutes the transport.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) { c.client = doer }
}

// WithToken attaches a bearer token to every request. The protected
// control endpoints reject requests without one.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout replaces the transport with a default http.Client using
// the given timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client = &http.Client{Timeout: d} }
}

// Client talks to one bench server.
type Client struct {
	baseURL string
	client  HTTPDoer
	token   string
}

// New builds a client for baseURL, e.g. http://localhost:8000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do executes one JSON request. A non-2xx status decodes into an
// *APIError; a 2xx body decodes into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("benchapi: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("benchapi: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("benchapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("benchapi: read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("benchapi: decode response: %w", err)
	}
	return nil
}

// newAPIError extracts the server's {"error": "..."} envelope when
// present and falls back to the raw body.
func newAPIError(status int, raw []byte) *APIError {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return &APIError{Status: status, Message: envelope.Error}
	}
	message := strings.TrimSpace(string(raw))
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{Status: status, Message: message}
}
