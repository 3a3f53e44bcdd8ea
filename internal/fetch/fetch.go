// Package fetch retrieves listing pages with retry, backoff and per-host
// rate limiting. Scrapers depend on the Client interface so tests can serve
// canned documents.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Browser-like headers; some listing sites reject default Go clients.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// Options bound a single logical fetch: per-attempt timeout, attempt cap and
// the exponential backoff base (delay = base * 2^attempt).
type Options struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

func (o Options) normalized() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	return o
}

// Client fetches one URL into raw document bytes.
type Client interface {
	Fetch(ctx context.Context, rawURL string, opts Options) ([]byte, error)
}

// HTTPClient is the production Client. A shared per-host limiter keeps
// concurrent date-page workers from hammering one server.
type HTTPClient struct {
	httpClient *http.Client
	logger     *log.Logger

	hostRate  rate.Limit
	hostBurst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

type HTTPClientConfig struct {
	HTTPClient *http.Client
	Logger     *log.Logger
	// HostRequestsPerSecond caps the request rate against any single host.
	HostRequestsPerSecond float64
	HostBurst             int
}

func NewHTTPClient(config HTTPClientConfig) *HTTPClient {
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.HostRequestsPerSecond <= 0 {
		config.HostRequestsPerSecond = 2
	}
	if config.HostBurst <= 0 {
		config.HostBurst = 4
	}
	return &HTTPClient{
		httpClient: config.HTTPClient,
		logger:     config.Logger,
		hostRate:   rate.Limit(config.HostRequestsPerSecond),
		hostBurst:  config.HostBurst,
		limiters:   make(map[string]*rate.Limiter),
	}
}

func (c *HTTPClient) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	limiter, ok := c.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(c.hostRate, c.hostBurst)
		c.limiters[host] = limiter
	}
	return limiter
}

// Fetch issues a GET with retry and exponential backoff. The last transport
// error propagates after attempts are exhausted.
func (c *HTTPClient) Fetch(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	opts = opts.normalized()

	host := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}

	var lastErr error
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if err := c.limiterFor(host).Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.fetchOnce(ctx, rawURL, opts.Timeout)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == opts.MaxAttempts-1 {
			break
		}
		delay := opts.RetryDelay * (1 << attempt)
		if c.logger != nil {
			c.logger.Printf("fetch failed (attempt %d), retrying in %s: %v", attempt+1, delay, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", rawURL, lastErr)
}

func (c *HTTPClient) fetchOnce(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	request.Header.Set("Accept-Language", "en-US,en;q=0.5")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", response.StatusCode)
	}
	return io.ReadAll(response.Body)
}
