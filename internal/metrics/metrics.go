// Package metrics exposes Prometheus collectors for the request pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "glados"

type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  prometheus.Histogram
	completionErrors *prometheus.CounterVec
	weatherMisses    prometheus.Counter
	directives       *prometheus.CounterVec
	dispatchFailures *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Utterances handled, by outcome.",
		}, []string{"source", "outcome"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent handling one utterance.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160, 300},
		}),
		completionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_errors_total",
			Help:      "Failed chat completions, by kind.",
		}, []string{"kind"}),
		weatherMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_misses_total",
			Help:      "Prompts built without a weather line.",
		}),
		directives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directives_total",
			Help:      "Command tags found in replies, by parse result.",
		}, []string{"result"}),
		dispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_failures_total",
			Help:      "Directive deliveries that failed, by sink.",
		}, []string{"sink"}),
	}

	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.completionErrors,
		m.weatherMisses,
		m.directives,
		m.dispatchFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(source, outcome).Inc()
	m.requestDuration.Observe(d.Seconds())
}

func (m *Metrics) CompletionError(kind string) {
	if m == nil {
		return
	}
	m.completionErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) WeatherMiss() {
	if m == nil {
		return
	}
	m.weatherMisses.Inc()
}

func (m *Metrics) Directive(parsed bool) {
	if m == nil {
		return
	}
	result := "parsed"
	if !parsed {
		result = "skipped"
	}
	m.directives.WithLabelValues(result).Inc()
}

func (m *Metrics) DispatchFailure(sink string) {
	if m == nil {
		return
	}
	m.dispatchFailures.WithLabelValues(sink).Inc()
}

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	if m != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve runs the metrics listener until it fails.
func (m *Metrics) Serve(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
