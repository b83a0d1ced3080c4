// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors of the engine. Collectors
// live on a private registry so several engines (and tests) never collide
// on the default one; the CLI writes the registry to a textfile for the
// node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bibliometrics"

// Metrics groups the engine collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// ProviderRequests counts page requests, labeled by provider.
	ProviderRequests *prometheus.CounterVec

	// PageFailures counts pages that ended pagination on an error.
	PageFailures *prometheus.CounterVec

	// RecordsFetched counts records returned by providers.
	RecordsFetched *prometheus.CounterVec

	// PapersProcessed counts papers whose timeline was built.
	PapersProcessed prometheus.Counter

	// PapersSkipped counts papers whose timeline build failed.
	PapersSkipped prometheus.Counter

	// Jobs counts finished jobs, labeled by terminal state.
	Jobs *prometheus.CounterVec

	// JobDuration observes job wall time in seconds.
	JobDuration prometheus.Histogram
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		ProviderRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Page requests sent to the bibliographic provider",
		}, []string{"provider"}),
		PageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_failures_total",
			Help:      "Pages whose request failed and truncated pagination",
		}, []string{"provider"}),
		RecordsFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Records returned by the bibliographic provider",
		}, []string{"provider"}),
		PapersProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_processed_total",
			Help:      "Papers whose citation timeline was built",
		}),
		PapersSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_skipped_total",
			Help:      "Papers skipped because their timeline build failed",
		}),
		Jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Finished jobs by terminal state",
		}, []string{"state"}),
		JobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of finished jobs",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		}),
	}
}

// Request records one page request to provider.
func (m *Metrics) Request(provider string, records int) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider).Inc()
	m.RecordsFetched.WithLabelValues(provider).Add(float64(records))
}

// PageFailed records a page that ended pagination on an error.
func (m *Metrics) PageFailed(provider string) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider).Inc()
	m.PageFailures.WithLabelValues(provider).Inc()
}

// Paper records the outcome of one timeline build.
func (m *Metrics) Paper(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.PapersProcessed.Inc()
	} else {
		m.PapersSkipped.Inc()
	}
}

// JobFinished records a job's terminal state and duration.
func (m *Metrics) JobFinished(state string, d time.Duration) {
	if m == nil {
		return
	}
	m.Jobs.WithLabelValues(state).Inc()
	m.JobDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
