// Package httpclient is the outbound HTTP client for upstream APIs. Each
// Client serves one upstream: it adds the upstream's fixed headers, retries
// transient failures and sheds load through a circuit breaker once the
// upstream keeps failing.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

// Config describes one upstream.
type Config struct {
	// Name labels metrics, logs and error messages.
	Name            string
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
	// Headers are added to every request that does not set them itself.
	Headers http.Header
	Breaker BreakerConfig
}

// DefaultConfig suits a request/response API reached over the internet.
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 32,
		Breaker:         DefaultBreakerConfig(),
	}
}

// Client sends requests to a single upstream.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
}

// New builds a Client with its own connection pool.
func New(cfg Config, logger *slog.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.MaxConnsPerHost
	transport.MaxConnsPerHost = cfg.MaxConnsPerHost

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Transport: transport, Timeout: cfg.Timeout},
		breaker: newBreaker(cfg.Name, cfg.Breaker, logger),
		logger:  logger,
	}
}

// Do sends req. Network errors and 5xx or 429 responses are retried, with
// req.GetBody replaying the body. A 5xx that outlives the retries is
// returned as an error and counts against the breaker. Other responses are
// returned for the caller to inspect and close. While the breaker is open Do
// fails fast with a 503 AppError.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	for k, vs := range c.cfg.Headers {
		if req.Header.Get(k) == "" {
			req.Header[k] = vs
		}
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.send(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, ParseResponseError(resp, c.cfg.Name)
		}
		return resp, nil
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, apperrors.ServiceUnavailable(c.cfg.Name+" is temporarily unavailable", err)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", c.cfg.Name, err)
	}
	return resp, nil
}

// State reports the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		resp, err := c.http.Do(req)
		recordAttempt(c.cfg.Name, resp, err)

		wait, retry := c.retryAfter(ctx, resp, err, attempt)
		if !retry {
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
			}
			return resp, nil
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
		}
		c.logger.DebugContext(ctx, "retrying upstream request",
			slog.String("upstream", c.cfg.Name),
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait),
		)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// retryAfter decides whether attempt should be repeated and how long to wait.
func (c *Client) retryAfter(ctx context.Context, resp *http.Response, err error, attempt int) (time.Duration, bool) {
	if attempt >= c.cfg.MaxRetries || ctx.Err() != nil {
		return 0, false
	}
	if err != nil {
		return c.backoff(attempt), transient(err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusNotImplemented:
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			return min(d, c.cfg.RetryWaitMax), true
		}
		return c.backoff(attempt), true
	}
	return 0, false
}

// backoff doubles RetryWaitMin per attempt up to RetryWaitMax, then picks a
// point in the upper half of that window.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.RetryWaitMin << attempt
	if d <= 0 || d > c.cfg.RetryWaitMax {
		d = c.cfg.RetryWaitMax
	}
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + rand.N(half+1) // #nosec G404 -- jitter, not security
}

// parseRetryAfter reads a Retry-After header in either delay-seconds or
// HTTP-date form.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(at.Sub(now), 0), true
	}
	return 0, false
}

func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
