package main

import (
	"time"
)

// Status is a service check status, using the DogStatsD codes.
type Status int

const (
	StatusOK       Status = 0
	StatusCritical Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusCritical:
		return "CRITICAL"
	}
	return "UNKNOWN"
}

// Sink receives the metric events produced by a check.
type Sink interface {
	Gauge(name string, value float64, tags []string)
	ServiceCheck(name string, status Status, message string, tags []string)
}

// Writer is a Sink backed by a metrics system.
type Writer interface {
	Sink
	WriteObservationSummary(o Observation)
	Flush()
	Close()
}

// Observation summarises one poll cycle.
type Observation struct {
	Duration       time.Duration
	Count          int64
	ClusterCount   int
	TopicCount     int
	GroupCount     int
	PartitionCount int
	Failed         int
}

// Observer fans events out to every registered writer.
type Observer struct {
	writers          []Writer
	observationCount int64
}

func NewObserver() *Observer {
	return &Observer{}
}

func (o *Observer) AddWriter(w Writer) {
	o.writers = append(o.writers, w)
}

func (o *Observer) Gauge(name string, value float64, tags []string) {
	for _, w := range o.writers {
		w.Gauge(name, value, tags)
	}
}

func (o *Observer) ServiceCheck(name string, status Status, message string, tags []string) {
	for _, w := range o.writers {
		w.ServiceCheck(name, status, message, tags)
	}
}

// Observation records the summary of a finished poll cycle.
func (o *Observer) Observation(duration time.Duration, tally *Tally, failed int) Observation {
	o.observationCount++
	obs := Observation{
		Duration:       duration,
		Count:          o.observationCount,
		ClusterCount:   tally.ClusterCount(),
		TopicCount:     tally.TopicCount(),
		GroupCount:     tally.GroupCount(),
		PartitionCount: tally.PartitionCount(),
		Failed:         failed,
	}

	for _, w := range o.writers {
		w.WriteObservationSummary(obs)
	}

	return obs
}

func (o *Observer) Flush() {
	for _, w := range o.writers {
		w.Flush()
	}
}

func (o *Observer) Close() {
	for _, w := range o.writers {
		w.Close()
	}
}
