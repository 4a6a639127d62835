package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	detectionsTotal *prometheus.CounterVec
	uploadBytes     *prometheus.HistogramVec
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "drug",
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"method", "route", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "drug",
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"method", "route"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "drug",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	detectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "drug",
			Subsystem:   "detection",
			Name:        "requests_total",
			Help:        "Detection requests by contract, mode and outcome.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"source", "mode", "outcome"},
	)
	uploadBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "drug",
			Subsystem:   "detection",
			Name:        "upload_bytes",
			Help:        "Size of successfully analysed images.",
			Buckets:     prometheus.ExponentialBuckets(1<<10, 4, 8),
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"source"},
	)

	registry.MustRegister(requestTotal, requestDuration, requestInFlight, detectionsTotal, uploadBytes)

	return &Metrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		detectionsTotal: detectionsTotal,
		uploadBytes:     uploadBytes,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RequestStarted() func(method, route string, status int) {
	start := time.Now()
	m.requestInFlight.Inc()
	return func(method, route string, status int) {
		m.requestInFlight.Dec()
		if route == "" {
			route = "unmatched"
		}
		m.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RecordDetection(source, mode, outcome string, size int64) {
	if mode == "" {
		mode = "none"
	}
	m.detectionsTotal.WithLabelValues(source, mode, outcome).Inc()
	if outcome == "success" && size > 0 {
		m.uploadBytes.WithLabelValues(source).Observe(float64(size))
	}
}
