// Package monitoring exports client call metrics to Prometheus and tracks
// the health of the API servers a process talks to.
package monitoring

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NERVsystems/osmapi/pkg/osm"
	"github.com/NERVsystems/osmapi/pkg/version"
)

const (
	// Namespace prefixes every metric name
	Namespace = "osmapi"
)

// Metrics holds the collectors for one registry
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimitWait   *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec
	InFlight        prometheus.Gauge
	BuildInfo       *prometheus.GaugeVec
}

// NewMetrics registers the client collectors with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "requests_total",
				Help:      "Total number of API calls by operation and outcome",
			},
			[]string{"operation", "method", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "request_duration_seconds",
				Help:      "API call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"operation"},
		),
		RateLimitWait: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "rate_limit_wait_duration_seconds",
				Help:      "Time spent waiting on the client rate limiter",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"operation"},
		),
		ErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "errors_total",
				Help:      "Total number of failed API calls by error code",
			},
			[]string{"operation", "code"},
		),
		InFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "requests_in_flight",
				Help:      "Number of API calls currently running",
			},
		),
		BuildInfo: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "build_info",
				Help:      "Client build information",
			},
			[]string{"version", "go_version"},
		),
	}

	m.BuildInfo.WithLabelValues(version.BuildVersion, runtime.Version()).Set(1)
	return m
}

// Hooks returns client hooks that feed m
func (m *Metrics) Hooks() *osm.MonitoringHooks {
	return &osm.MonitoringHooks{
		OnRequest: func(operation, method string) {
			m.InFlight.Inc()
		},
		OnResponse: func(operation, method string, duration time.Duration, success bool) {
			m.InFlight.Dec()
			status := "success"
			if !success {
				status = "error"
			}
			m.RequestsTotal.WithLabelValues(operation, method, status).Inc()
			m.RequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
		},
		OnRateLimit: func(operation string, waitTime time.Duration) {
			m.RateLimitWait.WithLabelValues(operation).Observe(waitTime.Seconds())
		},
		OnError: func(operation, errorCode string) {
			m.ErrorsTotal.WithLabelValues(operation, errorCode).Inc()
		},
	}
}
