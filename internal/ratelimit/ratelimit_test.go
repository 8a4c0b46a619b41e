package ratelimit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestRateLimitRetry429 tests that a 429 response triggers automatic retry after backoff
func TestRateLimitRetry429(t *testing.T) {
	requestCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&requestCount, 1)
		if count == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	}))
	defer server.Close()

	client := NewClient(Config{
		MaxRetries:   3,
		BaseDelay:    10 * time.Millisecond, // Fast for testing
		EnableJitter: false,
	})

	ctx := context.Background()
	resp, err := client.Do(ctx, http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	if requestCount != 2 {
		t.Errorf("expected 2 requests (1 retry), got %d", requestCount)
	}
}

// TestRateLimitRetry403Exhausted tests that 403 with a zeroed rate-limit header
// is treated as rate limiting and retried
func TestRateLimitRetry403Exhausted(t *testing.T) {
	requestCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&requestCount, 1)
		if count == 1 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{
		MaxRetries:   3,
		BaseDelay:    10 * time.Millisecond,
		EnableJitter: false,
	})

	resp, err := client.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if requestCount != 2 {
		t.Errorf("expected 2 requests (1 retry), got %d", requestCount)
	}
}

// TestForbiddenWithQuotaLeftPassesThrough tests that a plain 403 (quota remaining)
// is not retried
func TestForbiddenWithQuotaLeftPassesThrough(t *testing.T) {
	requestCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.Header().Set("X-RateLimit-Remaining", "42")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(Config{
		MaxRetries:   3,
		BaseDelay:    10 * time.Millisecond,
		EnableJitter: false,
	})

	resp, err := client.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", resp.StatusCode)
	}
	if requestCount != 1 {
		t.Errorf("expected 1 request (no retry), got %d", requestCount)
	}
}

// TestRateLimitMaxRetries tests that after max retries, the call fails with a clear error
func TestRateLimitMaxRetries(t *testing.T) {
	requestCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{
		MaxRetries:   3,
		BaseDelay:    1 * time.Millisecond,
		EnableJitter: false,
		Service:      "GitHub",
	})

	resp, err := client.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err == nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		t.Fatal("expected error after max retries, got nil")
	}

	if !strings.Contains(err.Error(), "rate limit") || !strings.Contains(err.Error(), "GitHub") {
		t.Errorf("expected rate limit error naming the service, got: %v", err)
	}

	// Initial request + 3 retries
	if requestCount != 4 {
		t.Errorf("expected 4 requests, got %d", requestCount)
	}
}

// TestTransportErrorRetried tests that transport failures retry and re-throw on exhaustion
func TestTransportErrorRetried(t *testing.T) {
	// Point at a closed server so every attempt fails at the transport level
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(Config{
		MaxRetries:   2,
		BaseDelay:    1 * time.Millisecond,
		EnableJitter: false,
	})

	start := time.Now()
	_, err := client.Do(context.Background(), http.MethodGet, url, nil, nil)
	if err == nil {
		t.Fatal("expected transport error after retries")
	}
	// The final error is the transport error, not a RateLimitError
	if strings.Contains(err.Error(), "rate limit") {
		t.Errorf("expected transport error to be re-thrown, got: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("retries took unexpectedly long")
	}
}

// TestRetryAfterHeaderRespected tests that Retry-After overrides the computed backoff
func TestRetryAfterHeaderRespected(t *testing.T) {
	requestCount := int32(0)
	var startTime, endTime time.Time

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&requestCount, 1)
		if count == 1 {
			startTime = time.Now()
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		endTime = time.Now()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{
		MaxRetries:   3,
		BaseDelay:    10 * time.Millisecond, // Small base, should be overridden by header
		EnableJitter: false,
	})

	resp, err := client.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	actualDelay := endTime.Sub(startTime)
	if actualDelay < 800*time.Millisecond || actualDelay > 1500*time.Millisecond {
		t.Errorf("expected ~1s delay from Retry-After, got %v", actualDelay)
	}
}

// TestContextCancellation tests that retries stop when the context is cancelled
func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{
		MaxRetries:   10,
		BaseDelay:    1 * time.Second, // Long delay
		EnableJitter: false,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Do(ctx, http.MethodGet, server.URL, nil, nil)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected error due to context cancellation")
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("expected quick cancellation, but took %v", elapsed)
	}
}

// TestHeadersAppliedOnEveryAttempt tests that custom headers survive retries
func TestHeadersAppliedOnEveryAttempt(t *testing.T) {
	authHeaders := make([]string, 0, 2)
	requestCount := int32(0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		count := atomic.AddInt32(&requestCount, 1)
		if count == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{
		MaxRetries:   3,
		BaseDelay:    10 * time.Millisecond,
		EnableJitter: false,
	})

	header := http.Header{}
	header.Set("Authorization", "Bearer secret")

	resp, err := client.Do(context.Background(), http.MethodGet, server.URL, nil, header)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if len(authHeaders) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(authHeaders))
	}
	for i, h := range authHeaders {
		if h != "Bearer secret" {
			t.Errorf("attempt %d: expected auth header on retry, got %q", i, h)
		}
	}
}

// TestBodyResentOnRetry tests that the request body is correctly re-sent
func TestBodyResentOnRetry(t *testing.T) {
	requestBodies := make([]string, 0, 2)
	requestCount := int32(0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requestBodies = append(requestBodies, string(body))
		count := atomic.AddInt32(&requestCount, 1)
		if count == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{
		MaxRetries:   3,
		BaseDelay:    10 * time.Millisecond,
		EnableJitter: false,
	})

	body := strings.NewReader(`{"test": "data"}`)
	resp, err := client.Do(context.Background(), http.MethodPost, server.URL, body, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if len(requestBodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requestBodies))
	}
	if requestBodies[0] != requestBodies[1] || requestBodies[0] != `{"test": "data"}` {
		t.Errorf("request bodies differ on retry: %q vs %q", requestBodies[0], requestBodies[1])
	}
}

// TestParseRetryAfter tests parsing of Retry-After header values
func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected *time.Duration
	}{
		{"seconds integer", "60", durationPtr(60 * time.Second)},
		{"zero seconds", "0", durationPtr(0)},
		{"empty value", "", nil},
		{"invalid value", "invalid", nil},
		{"negative value", "-1", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := ParseRetryAfter(tc.value)

			if tc.expected == nil {
				if result != nil {
					t.Errorf("expected nil, got %v", *result)
				}
			} else {
				if result == nil {
					t.Errorf("expected %v, got nil", *tc.expected)
				} else if *result != *tc.expected {
					t.Errorf("expected %v, got %v", *tc.expected, *result)
				}
			}
		})
	}
}

// TestStatsTracking tests that rate limit events are recorded
func TestStatsTracking(t *testing.T) {
	requestCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&requestCount, 1)
		if count == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	stats := NewStats()
	client := NewClient(Config{
		MaxRetries:   3,
		BaseDelay:    10 * time.Millisecond,
		EnableJitter: false,
		Stats:        stats,
	})

	resp, err := client.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if stats.RateLimitCount() != 1 {
		t.Errorf("expected 1 rate limit event, got %d", stats.RateLimitCount())
	}
	if time.Since(stats.LastRateLimitTime()) > 5*time.Second {
		t.Error("expected recent rate limit time")
	}
}

// TestNon429Passthrough tests that ordinary error statuses are returned immediately
func TestNon429Passthrough(t *testing.T) {
	for _, code := range []int{400, 401, 404, 500, 502} {
		requestCount := int32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(code)
		}))

		client := NewClient(Config{
			MaxRetries:   3,
			BaseDelay:    10 * time.Millisecond,
			EnableJitter: false,
		})

		resp, err := client.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
		server.Close()
		if err != nil {
			t.Fatalf("status %d: expected no error, got: %v", code, err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != code {
			t.Errorf("expected status %d, got %d", code, resp.StatusCode)
		}
		if requestCount != 1 {
			t.Errorf("status %d: expected 1 request (no retry), got %d", code, requestCount)
		}
	}
}

// durationPtr is a helper to create a duration pointer
func durationPtr(d time.Duration) *time.Duration {
	return &d
}
