package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_runner_observes_every_instance(t *testing.T) {
	healthy := newFakeRumour(healthyRoutes())
	defer healthy.Close()

	broken := newFakeRumour(map[string]route{})
	defer broken.Close()

	w := &recordingWriter{}
	observer := NewObserver()
	observer.AddWriter(w)

	runner := NewRunner(observer, []Instance{
		{URL: broken.URL},
		{URL: healthy.URL},
		{},
	}, nil)

	failed := runner.Observe(context.Background())

	assert.Equal(t, 2, failed)
	assert.Len(t, w.named(MetricTopicOffset), 4)
	assert.Equal(t, 1, w.flushes)

	require.Len(t, w.observations, 1)
	obs := w.observations[0]
	assert.Equal(t, 2, obs.Failed)
	assert.Equal(t, 2, obs.ClusterCount)
	assert.Equal(t, 4, obs.PartitionCount)

	var statuses []Status
	for _, c := range w.checks {
		statuses = append(statuses, c.status)
	}
	assert.Equal(t, []Status{StatusCritical, StatusOK}, statuses)
}

func Test_runner_stops_when_cancelled(t *testing.T) {
	server := newFakeRumour(healthyRoutes())
	defer server.Close()

	w := &recordingWriter{}
	observer := NewObserver()
	observer.AddWriter(w)
	runner := NewRunner(observer, []Instance{{URL: server.URL}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return server.requested("/healthz") }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func Test_runner_starts_each_cycle_with_an_empty_tally(t *testing.T) {
	healthy := newFakeRumour(healthyRoutes())
	defer healthy.Close()

	broken := newFakeRumour(map[string]route{})
	defer broken.Close()

	w := &recordingWriter{}
	observer := NewObserver()
	observer.AddWriter(w)

	runner := NewRunner(observer, []Instance{{URL: healthy.URL}}, nil)
	runner.Observe(context.Background())

	runner.instances = []Instance{{URL: broken.URL}}
	runner.Observe(context.Background())

	require.Len(t, w.observations, 2)
	assert.Equal(t, 2, w.observations[0].ClusterCount)
	assert.Equal(t, 0, w.observations[1].ClusterCount)
	assert.Equal(t, 0, w.observations[1].PartitionCount)
}
