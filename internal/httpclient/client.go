// Package httpclient is a thin wrapper around net/http shared by the
// outbound integrations (LLM oracle, WhatsApp gateway): JSON helpers,
// bounded retries with backoff, and a small middleware chain.
package httpclient

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

// Config holds the client options.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	Headers          map[string]string
	RetryCount       int
	RetryWaitTime    time.Duration
	MaxRetryWaitTime time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:          30 * time.Second,
		Headers:          map[string]string{},
		RetryCount:       3,
		RetryWaitTime:    1 * time.Second,
		MaxRetryWaitTime: 30 * time.Second,
	}
}

// Client wraps http.Client with retries and middleware.
type Client struct {
	httpClient  *http.Client
	config      *Config
	middlewares []Middleware
}

func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
	}
}

// WithMiddleware appends a middleware to the chain.
func (c *Client) WithMiddleware(middleware Middleware) *Client {
	c.middlewares = append(c.middlewares, middleware)
	return c
}

// Do runs a request through the middleware chain.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	handler := c.executeRequest
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler(ctx, req.Clone(ctx))
}

func (c *Client) executeRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; ; attempt++ {
		resp, err = c.httpClient.Do(req)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}

		if !c.shouldRetry(resp, err) || attempt >= c.config.RetryCount {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryWait(attempt)):
		}
		req = req.Clone(ctx)
	}
	return resp, err
}

// shouldRetry allows retries on network errors, 5xx, and 429.
func (c *Client) shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}

func (c *Client) retryWait(attempt int) time.Duration {
	wait := c.config.RetryWaitTime * time.Duration(1<<uint(attempt))
	if wait > c.config.MaxRetryWaitTime {
		wait = c.config.MaxRetryWaitTime
	}
	return wait
}

// NewRequest builds a request against the configured base URL with a JSON
// body.
func (c *Client) NewRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	fullURL := path
	if c.config.BaseURL != "" && !strings.HasPrefix(path, "http") {
		fullURL = strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Get performs a GET request and decodes the JSON response into result.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.DoRequest(ctx, req, result)
}

// Post performs a JSON POST request and decodes the response into result.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	req, err := c.NewRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.DoRequest(ctx, req, result)
}

// DoRequest executes a request and decodes the response body. Non-2xx
// responses become an *APIError.
func (c *Client) DoRequest(ctx context.Context, req *http.Request, result interface{}) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewAPIError(resp)
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}
