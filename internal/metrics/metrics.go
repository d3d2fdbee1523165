// Package metrics exposes prometheus metrics of the job subsystem
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/domainbrowser/searchjobs/internal/events"
	"github.com/domainbrowser/searchjobs/internal/types"
)

const namespace = "searchjobs"

// Collector holds the job subsystem metrics on its own registry.
// All methods are safe on a nil collector.
type Collector struct {
	registry *prometheus.Registry

	jobsSubmitted        *prometheus.CounterVec
	submissionsRejected  *prometheus.CounterVec
	launchFailures       *prometheus.CounterVec
	statusResolved       *prometheus.CounterVec
	statusLatency        prometheus.Histogram
	schedulerFailures    prometheus.Counter
	correlationFailures  prometheus.Counter
	reaperRemoved        prometheus.Counter
	reaperErrors         prometheus.Counter
	reaperLastSweepJobs  prometheus.Gauge
	reaperLastSweepStamp prometheus.Gauge
}

// NewCollector creates the metrics and registers them with Go runtime
// and process collectors
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Total number of accepted job submissions",
		}, []string{"kind"}),
		submissionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Total number of submissions rejected before a job was created",
		}, []string{"kind"}),
		launchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launch_failures_total",
			Help:      "Total number of jobs the runner could not start",
		}, []string{"backend"}),
		statusResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_resolved_total",
			Help:      "Total number of status reads by resulting status",
		}, []string{"status"}),
		statusLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "status_resolve_seconds",
			Help:      "Time to resolve a job status, including result parsing",
			Buckets:   prometheus.DefBuckets,
		}),
		schedulerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_query_failures_total",
			Help:      "Total number of failed batch scheduler state queries",
		}),
		correlationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlation_failures_total",
			Help:      "Total number of failed domain store lookups",
		}),
		reaperRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaper_removed_total",
			Help:      "Total number of expired job directories removed",
		}),
		reaperErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaper_errors_total",
			Help:      "Total number of entries the reaper failed to process",
		}),
		reaperLastSweepJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reaper_last_sweep_scanned",
			Help:      "Number of entries scanned by the last sweep",
		}),
		reaperLastSweepStamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reaper_last_sweep_timestamp_seconds",
			Help:      "Unix time of the last completed sweep",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.jobsSubmitted,
		c.submissionsRejected,
		c.launchFailures,
		c.statusResolved,
		c.statusLatency,
		c.schedulerFailures,
		c.correlationFailures,
		c.reaperRemoved,
		c.reaperErrors,
		c.reaperLastSweepJobs,
		c.reaperLastSweepStamp,
	)
	return c
}

// Registry returns the registry the metrics are registered with
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the HTTP handler exposing the metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Subscribe feeds the lifecycle counters from the event bus
func (c *Collector) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventJobSubmitted, func(_ context.Context, e events.Event) error {
		c.RecordSubmitted(e.Kind)
		return nil
	})
	bus.Subscribe(events.EventJobRejected, func(_ context.Context, e events.Event) error {
		c.RecordRejected(e.Kind)
		return nil
	})
	bus.Subscribe(events.EventJobLaunchFailed, func(_ context.Context, e events.Event) error {
		c.RecordLaunchFailure(e.Backend)
		return nil
	})
}

// RecordSubmitted counts an accepted submission
func (c *Collector) RecordSubmitted(kind types.JobKind) {
	if c == nil {
		return
	}
	c.jobsSubmitted.WithLabelValues(kind.String()).Inc()
}

// RecordRejected counts a rejected submission
func (c *Collector) RecordRejected(kind types.JobKind) {
	if c == nil {
		return
	}
	c.submissionsRejected.WithLabelValues(kind.String()).Inc()
}

// RecordLaunchFailure counts a job the runner could not start
func (c *Collector) RecordLaunchFailure(backend string) {
	if c == nil {
		return
	}
	c.launchFailures.WithLabelValues(backend).Inc()
}

// RecordStatus counts a status read and observes its latency
func (c *Collector) RecordStatus(status types.JobStatus, took time.Duration) {
	if c == nil {
		return
	}
	c.statusResolved.WithLabelValues(status.String()).Inc()
	c.statusLatency.Observe(took.Seconds())
}

// RecordSchedulerFailure counts a failed scheduler query
func (c *Collector) RecordSchedulerFailure() {
	if c == nil {
		return
	}
	c.schedulerFailures.Inc()
}

// RecordCorrelationFailure counts a failed domain lookup
func (c *Collector) RecordCorrelationFailure() {
	if c == nil {
		return
	}
	c.correlationFailures.Inc()
}

// RecordSweep records the outcome of one retention sweep
func (c *Collector) RecordSweep(report types.CleanupReport) {
	if c == nil {
		return
	}
	c.reaperRemoved.Add(float64(report.JobsRemoved))
	c.reaperErrors.Add(float64(len(report.Errors)))
	c.reaperLastSweepJobs.Set(float64(report.JobsScanned))
	c.reaperLastSweepStamp.SetToCurrentTime()
}
