// Package ratelimit provides HTTP rate limit handling with exponential backoff
// for REST API clients.
package ratelimit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Config holds configuration for the rate-limiting HTTP client.
type Config struct {
	// MaxRetries is the maximum number of retry attempts after a
	// rate-limited response or a transport failure.
	// Default: 3
	MaxRetries int

	// BaseDelay is the initial delay before the first retry.
	// Default: 1 second
	BaseDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	// Default: 32 seconds
	MaxDelay time.Duration

	// EnableJitter adds random jitter (±20%) to prevent thundering herd.
	EnableJitter bool

	// Stats is an optional stats tracker for recording rate limit events.
	Stats *Stats

	// Service name for error messages and logging.
	Service string

	// HTTPClient overrides the underlying HTTP client (for testing).
	HTTPClient *http.Client
}

// Client is an HTTP client that handles rate limiting with exponential backoff.
//
// A response is treated as rate-limited when it is either HTTP 429, or
// HTTP 403 with an X-RateLimit-Remaining header reading zero (the GitHub
// REST API signals primary rate limiting this way). Transport errors are
// retried with the same backoff schedule and re-thrown on final exhaustion.
type Client struct {
	httpClient   *http.Client
	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	enableJitter bool
	stats        *Stats
	service      string
}

// NewClient creates a new rate-limiting HTTP client with the given configuration.
func NewClient(cfg Config) *Client {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 1 * time.Second
	}

	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 32 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient:   httpClient,
		maxRetries:   maxRetries,
		baseDelay:    baseDelay,
		maxDelay:     maxDelay,
		enableJitter: cfg.EnableJitter,
		stats:        cfg.Stats,
		service:      cfg.Service,
	}
}

// IsRateLimited reports whether a response signals rate limiting.
func IsRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// Do performs an HTTP request with automatic retry on rate limiting and
// transport errors. The supplied header is applied to every attempt.
func (c *Client) Do(ctx context.Context, method, url string, body io.Reader, header http.Header) (*http.Response, error) {
	// Read body into buffer so we can re-send on retry
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transport failure: retry with backoff, re-throw on exhaustion
			lastErr = err
			if attempt >= c.maxRetries {
				return nil, lastErr
			}
			if waitErr := c.wait(ctx, c.calculateBackoff(attempt, nil)); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		if !IsRateLimited(resp) {
			return resp, nil
		}

		// Close body from rate-limited response (we'll retry)
		_ = resp.Body.Close()

		if c.stats != nil {
			c.stats.RecordRateLimit()
		}

		if attempt >= c.maxRetries {
			break
		}

		retryAfter := ParseRetryAfter(resp.Header.Get("Retry-After"))
		if waitErr := c.wait(ctx, c.calculateBackoff(attempt, retryAfter)); waitErr != nil {
			return nil, waitErr
		}
	}

	return nil, &RateLimitError{
		Service:     c.service,
		RetryAfter:  c.baseDelay,
		Attempt:     c.maxRetries,
		MaxAttempts: c.maxRetries,
	}
}

// wait blocks for the delay or until the context is cancelled.
func (c *Client) wait(ctx context.Context, delay time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// calculateBackoff computes the backoff duration for a given attempt.
func (c *Client) calculateBackoff(attempt int, retryAfter *time.Duration) time.Duration {
	if retryAfter != nil {
		return *retryAfter
	}

	// Exponential backoff: base * 2^attempt
	delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt)))

	// Cap at maxDelay
	if delay > c.maxDelay {
		delay = c.maxDelay
	}

	// Add jitter if enabled (±20%)
	if c.enableJitter {
		jitterFactor := 0.8 + rand.Float64()*0.4 // 0.8 to 1.2
		delay = time.Duration(float64(delay) * jitterFactor)
	}

	return delay
}

// RateLimitError represents an error when rate limit retries are exhausted.
type RateLimitError struct {
	Service     string
	RetryAfter  time.Duration
	Attempt     int
	MaxAttempts int
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	service := e.Service
	if service == "" {
		service = "API"
	}
	return fmt.Sprintf("%s rate limit exceeded after %d retries (max %d)", service, e.Attempt, e.MaxAttempts)
}

// ParseRetryAfter parses the Retry-After header value.
// It supports both seconds format (integer) and HTTP-date format.
// Returns nil if the value is invalid or empty.
func ParseRetryAfter(value string) *time.Duration {
	if value == "" {
		return nil
	}

	// Try parsing as seconds (integer)
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			return nil
		}
		d := time.Duration(seconds) * time.Second
		return &d
	}

	// Try parsing as HTTP-date
	if t, err := http.ParseTime(value); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return &d
	}

	return nil
}

// Stats tracks rate limit statistics for a service.
type Stats struct {
	mu              sync.RWMutex
	rateLimitCount  int64
	lastRateLimitAt time.Time
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{}
}

// RecordRateLimit records a rate limit event.
func (s *Stats) RecordRateLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimitCount++
	s.lastRateLimitAt = time.Now()
}

// RateLimitCount returns the total number of rate limit events.
func (s *Stats) RateLimitCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rateLimitCount
}

// LastRateLimitTime returns the time of the last rate limit event.
func (s *Stats) LastRateLimitTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRateLimitAt
}
