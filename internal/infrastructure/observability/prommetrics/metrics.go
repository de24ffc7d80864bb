package prommetrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

const namespace = "infra_optimizer"

// Metrics holds the Prometheus collectors of the server.
// Implements runner.Observer.
type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal    *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	actionsTotal   *prometheus.CounterVec
	lastCycleTime  prometheus.Gauge
	degradedSeries prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates a dedicated registry with runtime collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Optimization cycles by final status.",
		}, []string{"status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of optimization cycles.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Recommended actions by outcome.",
		}, []string{"outcome"}),
		lastCycleTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time of the last finished cycle.",
		}),
		degradedSeries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_degraded_categories",
			Help:      "Metric categories that failed to collect in the last cycle.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cyclesTotal,
		m.cycleDuration,
		m.actionsTotal,
		m.lastCycleTime,
		m.degradedSeries,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// RegisterGaugeFunc exposes a value sampled on scrape (e.g. WebSocket clients).
func (m *Metrics) RegisterGaugeFunc(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// ObserveCycle records a finished cycle. err is a primary-write failure.
func (m *Metrics) ObserveCycle(result *entity.CycleResult, err error) {
	if result == nil {
		m.cyclesTotal.WithLabelValues("error").Inc()
		return
	}

	status := result.Status.String()
	if err != nil {
		status = "error"
	}
	m.cyclesTotal.WithLabelValues(status).Inc()
	m.cycleDuration.Observe(result.Duration().Seconds())
	m.lastCycleTime.Set(float64(result.FinishedAt.Unix()))

	if result.Metrics != nil {
		m.degradedSeries.Set(float64(len(result.Metrics.DegradedCategories())))
	}
	if result.Results != nil {
		m.actionsTotal.WithLabelValues("applied").Add(float64(len(result.Results.AppliedChanges)))
		m.actionsTotal.WithLabelValues("skipped").Add(float64(len(result.Results.SkippedChanges)))
		m.actionsTotal.WithLabelValues("error").Add(float64(len(result.Results.Errors)))
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
