package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records runs of the housekeeping jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	affected *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "housekeeping_job_duration_seconds",
		Help:    "Duration of housekeeping jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "housekeeping_job_success_total",
		Help: "Successful housekeeping job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "housekeeping_job_failure_total",
		Help: "Failed housekeeping job executions.",
	}, []string{"job"})
	affected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "housekeeping_items_removed_total",
		Help: "Sessions or entries removed by housekeeping jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure, affected)
	return &JobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		affected: affected,
	}
}

func (j *JobMetrics) ObserveDuration(job string, duration time.Duration) {
	if j == nil || j.duration == nil {
		return
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (j *JobMetrics) IncSuccess(job string) {
	if j == nil || j.success == nil {
		return
	}
	j.success.WithLabelValues(normalizeLabel(job)).Inc()
}

func (j *JobMetrics) IncFailure(job string) {
	if j == nil || j.failure == nil {
		return
	}
	j.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddRemoved counts items a job evicted or deleted.
func (j *JobMetrics) AddRemoved(job string, n int64) {
	if j == nil || j.affected == nil || n <= 0 {
		return
	}
	j.affected.WithLabelValues(normalizeLabel(job)).Add(float64(n))
}
