package observability

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePrometheus(t *testing.T) {
	m := New()
	m.ObserveAPI("GET", "/api/jobs/:id", "200", 30*time.Millisecond)
	m.ObserveAPI("GET", "/api/jobs/:id", "200", 2*time.Second)
	m.ObserveJob("day_tasks", "succeeded", 3*time.Second)
	m.ObserveLLM("", errors.New("boom"), time.Second)
	m.APIInflight(1)

	var buf bytes.Buffer
	require.NoError(t, m.WritePrometheus(&buf))
	out := buf.String()

	assert.Contains(t, out, `studyplan_api_requests_total{method="GET",route="/api/jobs/:id",status="200"} 2`)
	assert.Contains(t, out, `studyplan_api_request_duration_seconds_bucket{method="GET",route="/api/jobs/:id",le="0.05"} 1`)
	assert.Contains(t, out, `studyplan_api_request_duration_seconds_bucket{method="GET",route="/api/jobs/:id",le="+Inf"} 2`)
	assert.Contains(t, out, `studyplan_llm_requests_total{schema="chat",status="error"} 1`)
	assert.Contains(t, out, "studyplan_api_inflight_requests 1")
	assert.Equal(t, 1.0, m.JobRuns("day_tasks", "succeeded"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Second)
	m.ObserveJob("x", "failed", time.Second)
	m.APIInflight(-1)
	assert.Zero(t, m.JobRuns("x", "failed"))
	assert.NoError(t, m.WritePrometheus(&bytes.Buffer{}))
}

func TestLabelEscaping(t *testing.T) {
	assert.Equal(t, `{a="x\"y",b="unknown"}`, labelString([]string{"a", "b"}, []string{`x"y`}))
	assert.Equal(t, `{le="1"}`, withLe("", "1"))
	assert.Equal(t, map[string]string{"k": "v", "x": "y=z"}, parseHeaders(" k=v , x=y=z,bad"))
}
