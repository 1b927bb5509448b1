package main

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	dd "github.com/zorkian/go-datadog-api"
)

type DatadogConfig struct {
	APIKey string
	AppKey string
	// Host is reported with every series and check run.
	Host string
}

// datadogClient is the subset of *dd.Client in use.
type datadogClient interface {
	PostMetrics(series []dd.Metric) error
	PostCheck(check dd.Check) error
}

// DatadogWriter buffers gauges and service checks and
// posts them to the Datadog API on Flush.
type DatadogWriter struct {
	client datadogClient
	host   string

	mutex  sync.Mutex
	series []dd.Metric
	checks []dd.Check
	now    func() time.Time
}

func NewDatadogWriter(config *DatadogConfig) (*DatadogWriter, error) {
	client := dd.NewClient(config.APIKey, config.AppKey)

	ok, err := client.Validate()
	if err != nil {
		return nil, &APIError{Request: "validate credentials", Message: err.Error()}
	}

	if !ok {
		return nil, &APIError{Request: "validate credentials", Message: "invalid API or app key"}
	}

	return newDatadogWriter(client, config.Host), nil
}

func newDatadogWriter(client datadogClient, host string) *DatadogWriter {
	return &DatadogWriter{
		client: client,
		host:   host,
		now:    time.Now,
	}
}

func (w *DatadogWriter) Gauge(name string, value float64, tags []string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.series = append(w.series, w.metric(name, value, tags))
}

func (w *DatadogWriter) ServiceCheck(name string, status Status, message string, tags []string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	ddStatus := dd.Status(status)
	check := dd.Check{
		Check:   dd.String(name),
		Status:  &ddStatus,
		Message: dd.String(message),
		Tags:    copyTags(tags),
	}
	if w.host != "" {
		check.HostName = dd.String(w.host)
	}

	w.checks = append(w.checks, check)
}

func (w *DatadogWriter) WriteObservationSummary(o Observation) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.series = append(w.series,
		w.metric("rumour.check.clusters", float64(o.ClusterCount), nil),
		w.metric("rumour.check.topics", float64(o.TopicCount), nil),
		w.metric("rumour.check.consumer_groups", float64(o.GroupCount), nil),
		w.metric("rumour.check.partitions", float64(o.PartitionCount), nil),
		w.metric("rumour.check.failed_instances", float64(o.Failed), nil),
		w.metric("rumour.check.duration", o.Duration.Seconds(), nil),
	)
}

func (w *DatadogWriter) metric(name string, value float64, tags []string) dd.Metric {
	ts := float64(w.now().Unix())
	m := dd.Metric{
		Metric: dd.String(name),
		Points: []dd.DataPoint{{&ts, dd.Float64(value)}},
		Type:   dd.String("gauge"),
		Tags:   copyTags(tags),
	}
	if w.host != "" {
		m.Host = dd.String(w.host)
	}

	return m
}

// Flush posts everything buffered so far. Failed
// posts are logged and the batch is dropped.
func (w *DatadogWriter) Flush() {
	w.mutex.Lock()
	series, checks := w.series, w.checks
	w.series, w.checks = nil, nil
	w.mutex.Unlock()

	if len(series) > 0 {
		if err := w.client.PostMetrics(series); err != nil {
			log.Errorf("%v", &APIError{Request: "post series", Message: err.Error()})
		}
	}

	for _, check := range checks {
		if err := w.client.PostCheck(check); err != nil {
			log.Errorf("%v", &APIError{Request: "post check", Message: err.Error()})
		}
	}
}

func (w *DatadogWriter) Close() {
	w.Flush()
}

func copyTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	return append([]string(nil), tags...)
}
