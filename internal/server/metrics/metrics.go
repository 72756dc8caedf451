// Package metrics exposes Prometheus metrics about HTTP traffic and the
// content of the comic store.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/maruel/comicdb/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "comicdb"

// StatsSource reports the current composition of the store.
type StatsSource interface {
	Stats() storage.Stats
}

// Metrics owns a private registry so tests can create several instances.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the HTTP and store collectors.
func New(src StatsSource) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		newStoreCollector(src),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records every request served by next. It must wrap the
// ServeMux directly so that the matched route pattern is visible. A nil
// Metrics returns next unchanged.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		m.requests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// storeCollector reads the store statistics at scrape time.
type storeCollector struct {
	src        StatsSource
	comics     *prometheus.Desc
	tombstones *prometheus.Desc
}

func newStoreCollector(src StatsSource) *storeCollector {
	return &storeCollector{
		src: src,
		comics: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "comics"),
			"Number of comics in the catalog by origin",
			[]string{"source"}, nil,
		),
		tombstones: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "tombstones"),
			"Number of deleted seed entries",
			nil, nil,
		),
	}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.comics
	ch <- c.tombstones
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.comics, prometheus.GaugeValue, float64(st.Seed), "seed")
	ch <- prometheus.MustNewConstMetric(c.comics, prometheus.GaugeValue, float64(st.Promoted), "promoted")
	ch <- prometheus.MustNewConstMetric(c.comics, prometheus.GaugeValue, float64(st.Added), "added")
	ch <- prometheus.MustNewConstMetric(c.tombstones, prometheus.GaugeValue, float64(st.Tombstones))
}
