package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	recordingSink
	observations []Observation
	flushes      int
	closed       bool
}

func (w *recordingWriter) WriteObservationSummary(o Observation) {
	w.observations = append(w.observations, o)
}

func (w *recordingWriter) Flush() { w.flushes++ }

func (w *recordingWriter) Close() { w.closed = true }

func Test_observer_fans_out_to_writers(t *testing.T) {
	a, b := &recordingWriter{}, &recordingWriter{}
	observer := NewObserver()
	observer.AddWriter(a)
	observer.AddWriter(b)

	observer.Gauge(MetricTopicOffset, 1, []string{"cluster:east"})
	observer.ServiceCheck(ServiceCheckName, StatusOK, "fine", nil)
	observer.Flush()
	observer.Close()

	for _, w := range []*recordingWriter{a, b} {
		assert.Len(t, w.gauges, 1)
		assert.Len(t, w.checks, 1)
		assert.Equal(t, 1, w.flushes)
		assert.True(t, w.closed)
	}
}

func Test_observer_counts_observations(t *testing.T) {
	w := &recordingWriter{}
	observer := NewObserver()
	observer.AddWriter(w)

	tally := NewTally()
	tally.AddCluster("east")
	tally.AddTopic("east", "orders")
	tally.AddPartition("east", "orders", 0)

	observer.Observation(time.Second, tally, 0)
	obs := observer.Observation(2*time.Second, tally, 1)

	require.Len(t, w.observations, 2)
	assert.Equal(t, int64(2), obs.Count)
	assert.Equal(t, 2*time.Second, obs.Duration)
	assert.Equal(t, 1, obs.ClusterCount)
	assert.Equal(t, 1, obs.TopicCount)
	assert.Equal(t, 1, obs.PartitionCount)
	assert.Equal(t, 1, obs.Failed)
}

func Test_status_strings(t *testing.T) {
	assert.Equal(t, "OK", StatusOK.String())
	assert.Equal(t, "CRITICAL", StatusCritical.String())
	assert.Equal(t, "UNKNOWN", Status(3).String())
}
