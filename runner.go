package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	units "github.com/docker/go-units"
	log "github.com/sirupsen/logrus"
)

// Runner checks every instance once per interval. Cycles never overlap.
type Runner struct {
	observer  *Observer
	instances []Instance
	filter    *TopicFilter
	client    HTTPClient
	tally     *Tally
}

func NewRunner(observer *Observer, instances []Instance, filter *TopicFilter) *Runner {
	return &Runner{
		observer:  observer,
		instances: instances,
		filter:    filter,
		client:    &http.Client{},
		tally:     NewTally(),
	}
}

// Run blocks until ctx is done, starting with an immediate cycle.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.Observe(ctx)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Observe runs one cycle over all instances and returns
// the number of instances that failed.
func (r *Runner) Observe(ctx context.Context) int {
	log.Info("Beginning observation")
	observationStart := time.Now()

	tally := r.tally
	tally.Reset()
	failed := 0
	for _, inst := range r.instances {
		instTally, err := Collect(ctx, inst, r.client, r.observer, r.filter)
		tally.Merge(instTally)

		if err != nil {
			failed++
			log.WithField("url", inst.URL).Errorf("Check failed: %v", err)
		}
	}

	observationDuration := time.Since(observationStart)
	r.observer.Observation(observationDuration, tally, failed)
	r.observer.Flush()

	log.WithFields(log.Fields{
		"clusters":    tally.ClusterCount(),
		"topics":      tally.TopicCount(),
		"groups":      tally.GroupCount(),
		"partitions":  tally.PartitionCount(),
		"failed":      failed,
		"duration_ms": observationDuration.Nanoseconds() / 1000 / 1000,
	}).Infof("Observation complete in %v", strings.ToLower(units.HumanDuration(observationDuration)))

	return failed
}
