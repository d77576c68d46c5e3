// Package httpclient provides the shared HTTP transport used by the vehicle sources.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "rdw-vehicle-watch/1.0"

	// AcceptJSON is the Accept header for JSON endpoints
	AcceptJSON = "application/json"

	// AcceptHTML is the Accept header for HTML pages
	AcceptHTML = "text/html,application/xhtml+xml"
)

// Client is an interface for HTTP operations. Implementations are safe for concurrent use.
type Client interface {
	// Get performs an HTTP GET request with the given Accept header and returns the response body
	Get(ctx context.Context, url, accept string) ([]byte, error)
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client  *http.Client
	timeout time.Duration
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration) *DefaultClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Timeout returns the overall request timeout.
func (c *DefaultClient) Timeout() time.Duration {
	return c.timeout
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	if accept == "" {
		accept = AcceptJSON
	}
	req.Header.Set("Accept", accept)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d bytes (%.2f MB)",
			ErrResponseTooLarge, resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	// +1 to detect if limit exceeded
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes (%.2f MB)",
			ErrResponseTooLarge, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	return body, nil
}
