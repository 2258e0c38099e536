package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker in front of an upstream.
type BreakerConfig struct {
	// HalfOpenRequests is how many probes may run while half-open.
	HalfOpenRequests uint32
	// Window is how often counts reset while closed.
	Window time.Duration
	// OpenFor is how long the breaker rejects calls before probing.
	OpenFor time.Duration
	// MinRequests calls must be seen in a window before FailureRatio applies.
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig opens after half of at least five calls in a minute
// fail and probes again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		HalfOpenRequests: 1,
		Window:           time.Minute,
		OpenFor:          30 * time.Second,
		MinRequests:      5,
		FailureRatio:     0.5,
	}
}

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state per upstream: 0 closed, 1 half-open, 2 open.",
	}, []string{"name"})

	upstreamAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_http_attempts_total",
		Help: "Outbound HTTP attempts per upstream by status code, or error.",
	}, []string{"upstream", "status"})
)

func newBreaker(name string, cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	breakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Window,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= cfg.MinRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureRatio
		},
		// A caller that gives up says nothing about the upstream's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("upstream", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

func recordAttempt(upstream string, resp *http.Response, err error) {
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	upstreamAttempts.WithLabelValues(upstream, status).Inc()
}
