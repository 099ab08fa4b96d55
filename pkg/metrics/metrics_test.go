package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.ObserveDuration("token-cleanup", 250*time.Millisecond)
	m.IncSuccess("token-cleanup")
	m.IncFailure("token-cleanup")
	m.IncFailure("")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.success.WithLabelValues("token-cleanup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failure.WithLabelValues("token-cleanup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failure.WithLabelValues("unknown")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("GET", "/api/v1/health", 200, time.Millisecond)
	m.Observe("GET", "/api/v1/health", 200, time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestNilRegistererIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second)
		j := NewJobMetrics(nil)
		j.IncSuccess("x")
		j.IncFailure("x")
		j.ObserveDuration("x", time.Second)
		var nilJobs *JobMetrics
		nilJobs.IncSuccess("x")
	})
}
