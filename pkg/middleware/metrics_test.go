package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_LabelsByRoutePattern(t *testing.T) {
	const svc = "metrics-route-test"
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(svc))
	r.Get("/shoes/{slug}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, slug := range []string{"nike-pegasus-41", "hoka-clifton-9"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/shoes/"+slug, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(svc, "GET", "/shoes/{slug}", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(HTTPRequestsInFlight.WithLabelValues(svc)))
}

func TestPrometheusMetrics_ImplicitOK(t *testing.T) {
	const svc = "metrics-implicit-test"
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(svc))
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(svc, "GET", "/ping", "200")))
}

func TestPrometheusMetrics_Unmatched(t *testing.T) {
	const svc = "metrics-unmatched-test"
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(svc))
	r.Get("/ping", func(http.ResponseWriter, *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(svc, "GET", unmatchedRoute, "404")))
}

func TestPrometheusMetrics_InFlightDuringRequest(t *testing.T) {
	const svc = "metrics-inflight-test"
	var during float64
	h := PrometheusMetrics(svc)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		during = testutil.ToFloat64(HTTPRequestsInFlight.WithLabelValues(svc))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, 1.0, during)
	assert.Equal(t, 0.0, testutil.ToFloat64(HTTPRequestsInFlight.WithLabelValues(svc)))

	m := &dto.Metric{}
	require.NoError(t, HTTPRequestDuration.WithLabelValues(svc, "GET", unmatchedRoute).(prometheus.Metric).Write(m))
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}
