// Package metrics owns the process's prometheus registry and the metric
// vectors every component reports to.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "anatomy_twin"

var (
	fetchDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	httpDurationBuckets  = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
)

// Fetch outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics holds the registered vectors. All methods are safe on a nil
// receiver so components can run without metrics.
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	fetchTotal        *prometheus.CounterVec
	fetchDuration     prometheus.Histogram
	subFetchFailures  *prometheus.CounterVec
	complexityChanges *prometheus.CounterVec
	complexityLevel   prometheus.Gauge
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers every vector on a fresh registry, together with the Go
// runtime and process collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry:  reg,
		namespace: namespace,
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "fetch_total",
			Help:      "Region fetches by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "fetch_duration_seconds",
			Help:      "Region fetch latency including the live fan-out.",
			Buckets:   fetchDurationBuckets,
		}),
		subFetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "subfetch_failures_total",
			Help:      "Live content fetches that failed and were degraded to empty.",
		}, []string{"source"}),
		complexityChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "complexity",
			Name:      "changes_total",
			Help:      "Accepted complexity level changes by new level.",
		}, []string{"level"}),
		complexityLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "complexity",
			Name:      "level",
			Help:      "Current complexity level.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   httpDurationBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.fetchTotal,
		m.fetchDuration,
		m.subFetchFailures,
		m.complexityChanges,
		m.complexityLevel,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveFetch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SubFetchFailed(source string) {
	if m == nil {
		return
	}
	m.subFetchFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) ComplexityChanged(level int) {
	if m == nil {
		return
	}
	m.complexityChanges.WithLabelValues(strconv.Itoa(level)).Inc()
	m.complexityLevel.Set(float64(level))
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// MemoStats reads the patient memo's counters: hits, misses and the number
// of cached entries.
type MemoStats func() (hits, misses int64, entries int)

// ObservePatientMemo exports the patient memo counters, read at scrape
// time. Call it once per Metrics.
func (m *Metrics) ObservePatientMemo(stats MemoStats) {
	if m == nil || stats == nil {
		return
	}
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: "patient_memo", Name: name, Help: help}
	}
	m.registry.MustRegister(
		prometheus.NewCounterFunc(opts("hits_total", "Patient filter results served from the memo."), func() float64 {
			hits, _, _ := stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(opts("misses_total", "Patient filter results computed and stored in the memo."), func() float64 {
			_, misses, _ := stats()
			return float64(misses)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts("entries", "Patient filter results currently memoized.")), func() float64 {
			_, _, entries := stats()
			return float64(entries)
		}),
	)
}
