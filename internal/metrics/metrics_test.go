package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("http", "ok", time.Second)
		m.CompletionError("transport")
		m.WeatherMiss()
		m.Directive(true)
		m.DispatchFailure("http")
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveRequest("http", "ok", 2*time.Second)
	m.ObserveRequest("http", "ok", time.Second)
	m.CompletionError("rate_limited")
	m.WeatherMiss()
	m.Directive(true)
	m.Directive(true)
	m.Directive(false)
	m.DispatchFailure("mqtt")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("http", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completionErrors.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.weatherMisses))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.directives.WithLabelValues("parsed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.directives.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchFailures.WithLabelValues("mqtt")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Directive(true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `glados_directives_total{result="parsed"} 1`)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))
}
