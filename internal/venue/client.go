// Package venue holds one HTTP client per price source. All three
// share the same retrying GET transport; each client maps its vendor's
// wire shapes onto domain.TokenPrice.
package venue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"sharkspread/internal/apperr"
	"sharkspread/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
	DefaultRPS         = 5
)

// httpClient is the shared retrying GET transport. Vendor clients
// embed it and add their own routes and response decoding.
type httpClient struct {
	name        string
	baseURL     string
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	headers     map[string]string
	log         *zap.Logger
}

// Option configures a vendor client's transport.
type Option func(*httpClient)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(c *httpClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *httpClient) {
		c.retryDelay = d
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps int) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *httpClient) {
		c.client = client
	}
}

// WithHeader adds a header to every outbound request.
func WithHeader(name, value string) Option {
	return func(c *httpClient) {
		c.headers[name] = value
	}
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *httpClient) {
		c.log = log
	}
}

func newHTTPClient(name, baseURL string, opts ...Option) httpClient {
	c := httpClient{
		name:        name,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRPS), DefaultRPS),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		headers:     make(map[string]string),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// get performs a GET with retries and exponential backoff, returning
// the raw body of the first 2xx response. 4xx statuses other than 429
// are not retried.
func (c *httpClient) get(ctx context.Context, path string) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		for name, value := range c.headers {
			req.Header.Set(name, value)
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		observability.FetchLatency.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
		if err != nil {
			lastErr = apperr.Wrap(classifyNetErr(ctx, err), "venue unreachable", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = apperr.New(apperr.KindUpstream, "venue rate limited")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			err := apperr.Wrap(apperr.KindUpstream, "venue returned an error",
				fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 256)))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				observability.FetchErrors.WithLabelValues(c.name).Inc()
				return nil, err
			}
			lastErr = err
			continue
		}

		return body, nil
	}

	observability.FetchErrors.WithLabelValues(c.name).Inc()
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func classifyNetErr(ctx context.Context, err error) apperr.Kind {
	if ctx.Err() != nil || isTimeout(err) {
		return apperr.KindTimeout
	}
	return apperr.KindUpstream
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	for e := err; e != nil; {
		if t, ok := e.(timeout); ok && t.Timeout() {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		e = u.Unwrap()
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
