package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

// upstream answers with the queued statuses in order, repeating the last.
type upstream struct {
	mu       sync.Mutex
	statuses []int
	header   http.Header
	bodies   []string
	seen     []http.Header
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	b, _ := io.ReadAll(r.Body)
	u.bodies = append(u.bodies, string(b))
	u.seen = append(u.seen, r.Header.Clone())
	status := u.statuses[0]
	if len(u.statuses) > 1 {
		u.statuses = u.statuses[1:]
	}
	for k, vs := range u.header {
		w.Header()[k] = vs
	}
	u.mu.Unlock()

	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"message":"` + http.StatusText(status) + `"}`))
}

func (u *upstream) calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.bodies)
}

func (u *upstream) setStatuses(s ...int) {
	u.mu.Lock()
	u.statuses = s
	u.mu.Unlock()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(name string) Config {
	cfg := DefaultConfig(name)
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	return cfg
}

func serve(t *testing.T, cfg Config, statuses ...int) (*Client, *upstream, string) {
	t.Helper()
	u := &upstream{statuses: statuses}
	srv := httptest.NewServer(u)
	t.Cleanup(srv.Close)
	return New(cfg, quietLogger()), u, srv.URL
}

func get(t *testing.T, c *Client, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	resp, err := c.Do(context.Background(), req)
	if resp != nil {
		t.Cleanup(func() { _ = resp.Body.Close() })
	}
	return resp, err
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("supabase")
	assert.Equal(t, "supabase", cfg.Name)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, DefaultBreakerConfig(), cfg.Breaker)
	assert.Less(t, cfg.RetryWaitMin, cfg.RetryWaitMax)
}

func TestDo_Headers(t *testing.T) {
	cfg := testConfig("headers")
	cfg.Headers = http.Header{"Apikey": {"anon"}, "Accept": {"application/json"}}
	c, u, url := serve(t, cfg, http.StatusOK)

	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/csv")
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "anon", u.seen[0].Get("Apikey"))
	assert.Equal(t, "text/csv", u.seen[0].Get("Accept"))
}

func TestDo_RetriesTransientStatuses(t *testing.T) {
	c, u, url := serve(t, testConfig("retry-ok"), http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusOK)

	resp, err := get(t, c, url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, u.calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(upstreamAttempts.WithLabelValues("retry-ok", "503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(upstreamAttempts.WithLabelValues("retry-ok", "200")))
}

func TestDo_ServerErrorAfterRetries(t *testing.T) {
	c, u, url := serve(t, testConfig("retry-exhausted"), http.StatusInternalServerError)

	_, err := get(t, c, url)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Equal(t, 3, u.calls())
}

func TestDo_NoRetry(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusNotImplemented} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			c, u, url := serve(t, testConfig("no-retry"), status)
			_, _ = get(t, c, url)
			assert.Equal(t, 1, u.calls())
		})
	}
}

func TestDo_ClientErrorReturnedAsResponse(t *testing.T) {
	c, _, url := serve(t, testConfig("client-error"), http.StatusConflict)

	resp, err := get(t, c, url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDo_RetryAfter(t *testing.T) {
	cfg := testConfig("retry-after")
	c, u, url := serve(t, cfg, http.StatusTooManyRequests, http.StatusOK)
	u.header = http.Header{"Retry-After": {"0"}}

	resp, err := get(t, c, url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, u.calls())
}

func TestDo_ReplaysBody(t *testing.T) {
	c, u, url := serve(t, testConfig("replay"), http.StatusServiceUnavailable, http.StatusCreated)

	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(`{"rating":5}`))
	require.NoError(t, err)
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, []string{`{"rating":5}`, `{"rating":5}`}, u.bodies)
}

func TestDo_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	c := New(testConfig("slow"), quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequest(http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)

	_, err = c.Do(ctx, req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func breakerConfig(name string) Config {
	cfg := testConfig(name)
	cfg.MaxRetries = 0
	cfg.Breaker = BreakerConfig{HalfOpenRequests: 1, Window: time.Minute, OpenFor: time.Hour, MinRequests: 2, FailureRatio: 0.5}
	return cfg
}

func TestBreaker_OpensAndFailsFast(t *testing.T) {
	c, u, url := serve(t, breakerConfig("trip"), http.StatusInternalServerError)

	for range 2 {
		_, err := get(t, c, url)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())
	assert.Equal(t, 2.0, testutil.ToFloat64(breakerState.WithLabelValues("trip")))

	_, err := get(t, c, url)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, u.calls(), "open breaker must not reach the upstream")
}

func TestBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cfg := breakerConfig("recover")
	cfg.Breaker.OpenFor = 20 * time.Millisecond
	c, u, url := serve(t, cfg, http.StatusBadGateway)

	for range 2 {
		_, _ = get(t, c, url)
	}
	require.Equal(t, gobreaker.StateOpen, c.State())

	u.setStatuses(http.StatusOK)
	time.Sleep(40 * time.Millisecond)

	resp, err := get(t, c, url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestBreaker_IgnoresClientErrorsAndCancellation(t *testing.T) {
	c, _, url := serve(t, breakerConfig("healthy"), http.StatusNotFound)

	for range 4 {
		_, err := get(t, c, url)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 4 {
		req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
		require.NoError(t, err)
		_, err = c.Do(ctx, req)
		require.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in     string
		want   time.Duration
		wantOK bool
	}{
		{"", 0, false},
		{"3", 3 * time.Second, true},
		{"-1", 0, false},
		{"soon", 0, false},
		{now.Add(5 * time.Second).Format(http.TimeFormat), 5 * time.Second, true},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0, true},
	}
	for _, tt := range tests {
		got, ok := parseRetryAfter(tt.in, now)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBackoff(t *testing.T) {
	c := New(Config{RetryWaitMin: 100 * time.Millisecond, RetryWaitMax: time.Second}, quietLogger())

	for attempt, ceiling := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second} {
		for range 50 {
			d := c.backoff(attempt)
			assert.GreaterOrEqual(t, d, ceiling/2)
			assert.LessOrEqual(t, d, ceiling)
		}
	}

	// Shifting past the int64 range clamps to the maximum instead of wrapping.
	d := c.backoff(62)
	assert.GreaterOrEqual(t, d, time.Second/2)
	assert.LessOrEqual(t, d, time.Second)
}

func TestTransient(t *testing.T) {
	assert.True(t, transient(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	assert.True(t, transient(io.ErrUnexpectedEOF))
	assert.False(t, transient(context.Canceled))
	assert.False(t, transient(errors.New("tls: bad certificate")))
}
