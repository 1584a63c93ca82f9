package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestJobMetricsRecordRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)

	metrics.ObserveDuration("session-sweep", 20*time.Millisecond)
	metrics.IncSuccess("session-sweep")
	metrics.IncFailure("entry-purge")
	metrics.AddRemoved("session-sweep", 3)
	metrics.AddRemoved("session-sweep", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "housekeeping_job_success_total", "job", "session-sweep"); err != nil || got != 1 {
		t.Fatalf("expected one success, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "housekeeping_job_failure_total", "job", "entry-purge"); err != nil || got != 1 {
		t.Fatalf("expected one failure, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "housekeeping_items_removed_total", "job", "session-sweep"); err != nil || got != 3 {
		t.Fatalf("expected three removed, got %f err=%v", got, err)
	}
}

func TestNilJobMetricsAreSafe(t *testing.T) {
	var metrics *JobMetrics
	metrics.IncSuccess("x")
	metrics.IncFailure("x")
	metrics.ObserveDuration("x", time.Second)
	metrics.AddRemoved("x", 1)
	NewJobMetrics(nil).IncSuccess("x")
}
