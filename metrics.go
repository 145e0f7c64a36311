package fixedpool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by a WorkerPool.
// A nil *Metrics disables instrumentation.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsPanicked  prometheus.Counter
	BusyWorkers   prometheus.Gauge
	QueuedJobs    prometheus.Gauge
	JobDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg,
// prometheus.DefaultRegisterer is used if reg is nil.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs accepted by the pool.",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs that returned normally.",
		}),
		JobsPanicked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_panicked_total",
			Help:      "Total number of jobs that panicked.",
		}),
		BusyWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "busy_workers",
			Help:      "Number of workers currently running a job.",
		}),
		QueuedJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queued_jobs",
			Help:      "Number of jobs waiting in the dispatch queue.",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "job_duration_seconds",
			Help:      "Histogram of job execution time.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		m.JobsSubmitted,
		m.JobsCompleted,
		m.JobsPanicked,
		m.BusyWorkers,
		m.QueuedJobs,
		m.JobDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// jobQueued is called before the job is sent so that
// QueuedJobs never goes below zero.
func (m *Metrics) jobQueued() {
	if m == nil {
		return
	}
	m.QueuedJobs.Inc()
}

func (m *Metrics) jobRejected() {
	if m == nil {
		return
	}
	m.QueuedJobs.Dec()
}

func (m *Metrics) jobSubmitted() {
	if m == nil {
		return
	}
	m.JobsSubmitted.Inc()
}

func (m *Metrics) jobDequeued() {
	if m == nil {
		return
	}
	m.QueuedJobs.Dec()
}

func (m *Metrics) jobCompleted() {
	if m == nil {
		return
	}
	m.JobsCompleted.Inc()
}

func (m *Metrics) jobPanicked() {
	if m == nil {
		return
	}
	m.JobsPanicked.Inc()
}

func (m *Metrics) workerBusy() {
	if m == nil {
		return
	}
	m.BusyWorkers.Inc()
}

func (m *Metrics) workerIdle(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BusyWorkers.Dec()
	m.JobDuration.Observe(elapsed.Seconds())
}
