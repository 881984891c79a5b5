package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	resolutions     *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	fieldSources    *prometheus.CounterVec
	fetches         *prometheus.CounterVec
	generations     *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	votes           *prometheus.CounterVec
	jobs            *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	queueDepth      *prometheus.GaugeVec
}

// New registers every collector on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolshed_resolutions_total",
				Help: "Metadata resolutions by the tier that produced the title",
			},
			[]string{"tier"},
		),
		resolveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "toolshed_resolve_duration_seconds",
				Help:    "Duration of a full metadata resolution",
				Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		fieldSources: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolshed_resolved_fields_total",
				Help: "Resolved metadata fields by where their value came from",
			},
			[]string{"field", "source"},
		),
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolshed_fetches_total",
				Help: "Page fetches by outcome",
			},
			[]string{"status"},
		),
		generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolshed_generations_total",
				Help: "Structured generation calls by prompt and outcome",
			},
			[]string{"prompt", "status"},
		),
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolshed_submissions_total",
				Help: "Tool submissions by outcome",
			},
			[]string{"status"},
		),
		votes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolshed_votes_total",
				Help: "Applied vote deltas by counter and direction",
			},
			[]string{"counter", "direction"},
		),
		jobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolshed_jobs_total",
				Help: "Queue jobs processed by type and outcome",
			},
			[]string{"type", "status"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolshed_job_duration_seconds",
				Help:    "Duration of queue job processing",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"type"},
		),
		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "toolshed_queue_pending",
				Help: "Jobs waiting in the queue",
			},
			[]string{"type"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it)
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveResolution(tier string, duration time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(tier).Inc()
	m.resolveDuration.Observe(duration.Seconds())
}

func (m *Metrics) ObserveFieldSource(field, source string) {
	if m == nil {
		return
	}
	m.fieldSources.WithLabelValues(field, source).Inc()
}

func (m *Metrics) ObserveFetch(ok bool) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(status(ok)).Inc()
}

func (m *Metrics) ObserveGeneration(prompt string, err error) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(prompt, status(err == nil)).Inc()
}

func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveVote(upvotes, downvotes int) {
	if m == nil {
		return
	}
	if upvotes != 0 {
		m.votes.WithLabelValues("upvotes", direction(upvotes)).Inc()
	}
	if downvotes != 0 {
		m.votes.WithLabelValues("downvotes", direction(downvotes)).Inc()
	}
}

func (m *Metrics) ObserveJob(jobType string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(jobType, status(err == nil)).Inc()
	m.jobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

func (m *Metrics) SetQueueDepth(jobType string, pending int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(jobType).Set(float64(pending))
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

func direction(delta int) string {
	if delta > 0 {
		return "up"
	}
	return "down"
}
