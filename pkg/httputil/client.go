package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/labelpal/pkg/observability"
)

const (
	httpTimeout = 30 * time.Second

	// MaxBodySize caps a fetched document.
	MaxBodySize = 256 << 20
)

var (
	// ErrNotFound is returned when the server answers 404.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for connection failures and unexpected statuses.
	ErrNetwork = errors.New("network error")
)

// Client fetches remote layer documents with retries and an optional body
// cache.
type Client struct {
	http     *http.Client
	cache    *Cache
	headers  map[string]string
	attempts int
	delay    time.Duration
	refresh  bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCache stores fetched bodies in c. A nil cache disables caching.
func WithCache(c *Cache) ClientOption {
	return func(cl *Client) { cl.cache = c }
}

// WithHeaders sets headers sent with every request.
func WithHeaders(h map[string]string) ClientOption {
	return func(cl *Client) { cl.headers = h }
}

// WithRetry overrides the retry attempts and initial backoff.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(cl *Client) {
		cl.attempts = attempts
		cl.delay = delay
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(cl *Client) { cl.http = h }
}

// NewClient creates a Client with a 30s timeout, 3 attempts and 1s backoff.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:     &http.Client{Timeout: httpTimeout},
		attempts: 3,
		delay:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refreshing returns a copy of c whose fetches always bypass fresh cache
// entries. Fetched bodies are still written to the cache.
func (c *Client) Refreshing() *Client {
	cp := *c
	cp.refresh = true
	return &cp
}

// Fetch returns the body at url. Unless refresh is set a fresh cached body is
// returned without a request. When every attempt fails and a stale cached
// body exists, the stale body is returned instead of the error.
func (c *Client) Fetch(ctx context.Context, url string, refresh bool) ([]byte, error) {
	var stale []byte
	if c.cache != nil && !refresh && !c.refresh {
		data, ok, err := c.cache.Get(url)
		if ok {
			return data, nil
		}
		if errors.Is(err, ErrExpired) {
			stale = data
		}
	}

	var body []byte
	err := Retry(ctx, c.attempts, c.delay, func() error {
		b, err := c.get(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		if stale != nil && !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
			return stale, nil
		}
		return nil, err
	}
	if c.cache != nil {
		_ = c.cache.Set(url, body)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("%w: read body: %v", ErrNetwork, err)}
	}
	return data, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
