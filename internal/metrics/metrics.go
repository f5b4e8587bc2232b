// Package metrics exposes Prometheus collectors for the analysis pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/artscan/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "artscan"

// Metrics implements the observer hooks of the analyzer, the music poller and
// the narration channels.
type Metrics struct {
	registry *prometheus.Registry

	analyses         *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	pollAttempts     *prometheus.CounterVec
	musicOutcomes    *prometheus.CounterVec
	narrations       *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "total",
			Help:      "Completed analyses by mode, result source and outcome.",
		}, []string{"mode", "source", "outcome"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Wall time of an analysis, including music generation.",
			Buckets:   []float64{0.05, 0.5, 2, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"mode", "source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "cache_lookups_total",
			Help:      "Prior-analysis lookups by path and result.",
		}, []string{"path", "result"}),
		pollAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "music",
			Name:      "poll_attempts_total",
			Help:      "Music task status checks by reported status.",
		}, []string{"status"}),
		musicOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "music",
			Name:      "generations_total",
			Help:      "Music generations by outcome.",
		}, []string{"outcome"}),
		narrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "speech",
			Name:      "narrations_total",
			Help:      "Narration jobs by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}

	reg.MustRegister(
		m.analyses,
		m.analysisDuration,
		m.cacheLookups,
		m.pollAttempts,
		m.musicOutcomes,
		m.narrations,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) AnalysisFinished(mode models.Mode, source, outcome string, elapsed time.Duration) {
	m.analyses.WithLabelValues(string(mode), source, outcome).Inc()
	m.analysisDuration.WithLabelValues(string(mode), source).Observe(elapsed.Seconds())
}

func (m *Metrics) CacheLookup(path string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(path, result).Inc()
}

func (m *Metrics) PollAttempt(status string) {
	if status == "" {
		status = "unknown"
	}
	m.pollAttempts.WithLabelValues(status).Inc()
}

func (m *Metrics) GenerationFinished(outcome string) {
	m.musicOutcomes.WithLabelValues(outcome).Inc()
}

// OnDone and OnError count narration outcomes. Sessions are not labels
// because they are unbounded.
func (m *Metrics) OnDone(string) {
	m.narrations.WithLabelValues("done").Inc()
}

func (m *Metrics) OnError(string, error) {
	m.narrations.WithLabelValues("error").Inc()
}

// ObserveRequest counts one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
