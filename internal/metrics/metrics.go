// Package metrics exposes Prometheus instruments for the job pipeline.
//
// All methods are safe on a nil *Collector so components can run without
// metrics wired in.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadgen"

// Collector holds the pipeline instruments
type Collector struct {
	jobsCreated   prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter
	jobsInFlight  prometheus.Gauge
	jobDuration   prometheus.Histogram

	artifactsMaterialized prometheus.Counter
	artifactsReclaimed    prometheus.Counter
	jobsReclaimed         prometheus.Counter
	reclaimErrors         prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewCollector creates the instruments and registers them with reg.
// A nil reg registers with a fresh private registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		jobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_created_total",
			Help:      "Total number of lead generation jobs created",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs completed successfully",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of jobs failed",
		}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_processing",
			Help:      "Number of jobs currently processing",
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from job start to terminal state in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		artifactsMaterialized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_materialized_total",
			Help:      "Total number of artifacts materialized",
		}),
		artifactsReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_reclaimed_total",
			Help:      "Total number of expired artifacts removed by the reclaimer",
		}),
		jobsReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_reclaimed_total",
			Help:      "Total number of jobs removed by the reclaimer",
		}),
		reclaimErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reclaim_errors_total",
			Help:      "Total number of reclaimer deletions that failed",
		}),
	}

	reg.MustRegister(
		c.jobsCreated,
		c.jobsCompleted,
		c.jobsFailed,
		c.jobsInFlight,
		c.jobDuration,
		c.artifactsMaterialized,
		c.artifactsReclaimed,
		c.jobsReclaimed,
		c.reclaimErrors,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	} else {
		c.gatherer = prometheus.DefaultGatherer
	}

	return c
}

// Handler returns the exposition handler for the collector's registry
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// RecordJobCreated counts a new job
func (c *Collector) RecordJobCreated() {
	if c == nil {
		return
	}
	c.jobsCreated.Inc()
}

// RecordJobStarted marks a job as running
func (c *Collector) RecordJobStarted() {
	if c == nil {
		return
	}
	c.jobsInFlight.Inc()
}

// RecordJobCompleted records a successful job and its duration
func (c *Collector) RecordJobCompleted(d time.Duration) {
	if c == nil {
		return
	}
	c.jobsCompleted.Inc()
	c.jobsInFlight.Dec()
	c.jobDuration.Observe(d.Seconds())
}

// RecordJobFailed records a failed job and its duration
func (c *Collector) RecordJobFailed(d time.Duration) {
	if c == nil {
		return
	}
	c.jobsFailed.Inc()
	c.jobsInFlight.Dec()
	c.jobDuration.Observe(d.Seconds())
}

// RecordArtifactMaterialized counts a generated artifact
func (c *Collector) RecordArtifactMaterialized() {
	if c == nil {
		return
	}
	c.artifactsMaterialized.Inc()
}

// RecordArtifactReclaimed counts an expired artifact removed by a sweep
func (c *Collector) RecordArtifactReclaimed() {
	if c == nil {
		return
	}
	c.artifactsReclaimed.Inc()
}

// RecordJobReclaimed counts a job removed by a sweep
func (c *Collector) RecordJobReclaimed() {
	if c == nil {
		return
	}
	c.jobsReclaimed.Inc()
}

// RecordReclaimError counts a failed sweep deletion
func (c *Collector) RecordReclaimError() {
	if c == nil {
		return
	}
	c.reclaimErrors.Inc()
}
