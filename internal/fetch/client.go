// Package fetch provides the HTTP clients for the market-data providers.
// Each client owns its own TTL cache and sliding-window rate limiter and
// resolves every failure into a typed error; nothing here panics or leaks
// provider-specific failures past the aggregation engine.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/yourorg/marketdata-aggregator/internal/cache"
	"github.com/yourorg/marketdata-aggregator/internal/ratelimit"
)

// Error taxonomy. The aggregation engine switches on these to decide
// whether a provider can serve a request right now.
var (
	// ErrAuth covers 401/403 and missing required credentials; permanent
	// for the current call, never retried.
	ErrAuth = errors.New("provider authentication failed")

	// ErrNotFound covers 404 for a specific resource.
	ErrNotFound = errors.New("resource not found")

	// ErrExhausted means all retry attempts were used without a usable
	// response.
	ErrExhausted = errors.New("provider retries exhausted")
)

const (
	// maxRetries bounds transient-failure attempts per request
	maxRetries = 3

	// retryBaseDelay seeds the exponential backoff between attempts
	retryBaseDelay = 500 * time.Millisecond

	// maxRateLimitWaits bounds consecutive 429 waits so a stuck provider
	// cannot stall a caller forever. Rate-limit waits do not consume the
	// retry budget.
	maxRateLimitWaits = 5
)

// client is the shared request core embedded by both provider clients.
type client struct {
	name              string
	baseURL           string
	httpClient        *http.Client
	limiter           *ratelimit.SlidingWindow
	cache             *cache.Cache
	group             singleflight.Group
	headers           map[string]string
	retryAfterDefault time.Duration

	// sleep is swappable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

// newClient wires the shared plumbing for one provider.
func newClient(name, baseURL string, limit int, window, timeout, retryAfterDefault time.Duration) *client {
	return &client{
		name:              name,
		baseURL:           baseURL,
		httpClient:        newRetryHTTPClient(timeout, retryBaseDelay, retryBaseDelay*(1<<maxRetries)),
		limiter:           ratelimit.NewSlidingWindow(limit, window),
		cache:             cache.New(),
		headers:           map[string]string{},
		retryAfterDefault: retryAfterDefault,
		sleep:             sleepContext,
	}
}

// newRetryHTTPClient builds the underlying HTTP client. Transient failures
// (network errors and 5xx) are retried with exponential backoff inside
// retryablehttp; 4xx statuses pass through so fetch can apply the provider
// failure taxonomy itself.
func newRetryHTTPClient(timeout, waitMin, waitMax time.Duration) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = waitMin
	rc.RetryWaitMax = waitMax
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		// 429 and auth failures are handled by the caller, not retried here
		return resp.StatusCode >= 500, nil
	}
	return rc.StandardClient()
}

// getJSON performs a cached, rate-limited GET against the provider and
// decodes the JSON body into out. Concurrent callers for the same cache
// key are collapsed into a single upstream request.
func (c *client) getJSON(ctx context.Context, path string, params url.Values, cacheKey string, ttl time.Duration, out interface{}) error {
	if cacheKey != "" {
		if raw, ok := c.cache.Get(cacheKey); ok {
			return json.Unmarshal(raw.([]byte), out)
		}
	}

	flightKey := cacheKey
	if flightKey == "" {
		flightKey = path + "?" + params.Encode()
	}

	raw, err, _ := c.group.Do(flightKey, func() (interface{}, error) {
		body, err := c.fetch(ctx, path, params)
		if err != nil {
			return nil, err
		}
		if cacheKey != "" {
			c.cache.Set(cacheKey, body, ttl)
		}
		return body, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), out)
}

// fetch issues one logical request: rate-limiter wait, HTTP call, status
// taxonomy. 429 responses sleep the advertised Retry-After and retry the
// same attempt without touching the retry budget.
func (c *client) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	for waits := 0; ; waits++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		logrus.Debugf("[%s] GET %s", c.name, u)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			// retryablehttp already exhausted its transient retries
			return nil, fmt.Errorf("%w: %s: %v", ErrExhausted, c.name, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("%w: %s: reading body: %v", ErrExhausted, c.name, err)
			}
			return body, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			if waits >= maxRateLimitWaits {
				return nil, fmt.Errorf("%w: %s: rate limited %d times", ErrExhausted, c.name, waits)
			}
			wait := c.retryAfter(resp)
			logrus.Warnf("[%s] rate limited, waiting %s", c.name, wait)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			// retry the same attempt

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			logrus.Warnf("[%s] authentication rejected (status %d)", c.name, resp.StatusCode)
			return nil, fmt.Errorf("%w: %s: status %d", ErrAuth, c.name, resp.StatusCode)

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s: %s", ErrNotFound, c.name, path)

		default:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s: status %d, body: %s", ErrExhausted, c.name, resp.StatusCode, truncate(body, 200))
		}
	}
}

// retryAfter parses the Retry-After header, falling back to the
// provider-specific default.
func (c *client) retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.retryAfterDefault
}

// sleepContext sleeps for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// truncate clips a response body for log-friendly error messages.
func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
