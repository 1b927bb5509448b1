package main

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const defaultNamespace string = "rumour_check"

type PrometheusConfig struct {
	Namespace string
	WebAddr   string
	WebPath   string
}

var (
	topicLabels    = []string{"cluster", "topic", "partition"}
	consumerLabels = []string{"cluster", "topic", "partition", "consumer"}
)

// PrometheusExporter keeps the latest value of every gauge so
// it can be scraped. Extra tags are not exported as labels.
// rumour_can_connect carries no labels: with several instances
// it reflects whichever instance reported last.
type PrometheusExporter struct {
	registry *prometheus.Registry
	server   *http.Server

	duration     prometheus.Gauge
	observations prometheus.Counter
	clusterCount prometheus.Gauge
	topicCount   prometheus.Gauge
	groupCount   prometheus.Gauge
	failed       prometheus.Gauge

	topicOffset    *prometheus.GaugeVec
	consumerOffset *prometheus.GaugeVec
	consumerLag    *prometheus.GaugeVec
	canConnect     prometheus.Gauge

	mutex sync.Mutex
}

func NewPrometheusExporter(config *PrometheusConfig) (*PrometheusExporter, error) {
	namespace := defaultNamespace
	if config.Namespace != "" {
		namespace = config.Namespace
	}

	exporter := &PrometheusExporter{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "observation",
			Name:      "duration_seconds",
			Help:      "Duration of the last observation in seconds.",
		}),
		observations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_total",
			Help:      "Total number of times an observation was made.",
		}),
		clusterCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "observation",
			Name:      "cluster_count",
			Help:      "Current number of observed clusters.",
		}),
		topicCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "observation",
			Name:      "topic_count",
			Help:      "Current number of observed topics.",
		}),
		groupCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "observation",
			Name:      "consumer_group_count",
			Help:      "Current number of observed consumer groups.",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "observation",
			Name:      "failed_instances",
			Help:      "Number of instances whose last check failed.",
		}),
		topicOffset: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kafka_topic_offset",
			Help: "Latest offset of a topic partition.",
		}, topicLabels),
		consumerOffset: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kafka_consumer_offset",
			Help: "Committed offset of a consumer group on a topic partition.",
		}, consumerLabels),
		consumerLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kafka_consumer_offset_lag",
			Help: "Delta between a partition's offset and the consumer group's committed offset.",
		}, consumerLabels),
		canConnect: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rumour_can_connect",
			Help: "Whether the last request to Rumour succeeded.",
		}),
	}

	exporter.registry.MustRegister(
		exporter.duration,
		exporter.observations,
		exporter.clusterCount,
		exporter.topicCount,
		exporter.groupCount,
		exporter.failed,
		exporter.topicOffset,
		exporter.consumerOffset,
		exporter.consumerLag,
		exporter.canConnect,
	)

	if config.WebAddr != "" {
		exporter.serve(config.WebAddr, config.WebPath)
	}

	return exporter, nil
}

func (pe *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(pe.registry, promhttp.HandlerOpts{})
}

func (pe *PrometheusExporter) serve(addr, path string) {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, pe.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
			<head><title>Rumour Check Exporter</title></head>
			<body>
			<h1>Rumour Check Exporter</h1>
			<p><a href="` + path + `">Metrics</a></p>
			</body>
			</html>`))
	})

	pe.server = &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info("Starting Prometheus handler ", addr)
		if err := pe.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()
}

func (pe *PrometheusExporter) Gauge(name string, value float64, tags []string) {
	pe.mutex.Lock()
	defer pe.mutex.Unlock()

	switch name {
	case MetricTopicOffset:
		pe.topicOffset.With(tagLabels(tags, topicLabels)).Set(value)
	case MetricConsumerOffset:
		pe.consumerOffset.With(tagLabels(tags, consumerLabels)).Set(value)
	case MetricConsumerLag:
		pe.consumerLag.With(tagLabels(tags, consumerLabels)).Set(value)
	}
}

func (pe *PrometheusExporter) ServiceCheck(name string, status Status, message string, tags []string) {
	if name != ServiceCheckName {
		return
	}

	pe.mutex.Lock()
	defer pe.mutex.Unlock()

	if status == StatusOK {
		pe.canConnect.Set(1)
	} else {
		pe.canConnect.Set(0)
	}
}

func (pe *PrometheusExporter) WriteObservationSummary(o Observation) {
	pe.mutex.Lock()
	defer pe.mutex.Unlock()

	pe.observations.Inc()
	pe.duration.Set(o.Duration.Seconds())
	pe.clusterCount.Set(float64(o.ClusterCount))
	pe.topicCount.Set(float64(o.TopicCount))
	pe.groupCount.Set(float64(o.GroupCount))
	pe.failed.Set(float64(o.Failed))
}

func (pe *PrometheusExporter) Flush() {
}

func (pe *PrometheusExporter) Close() {
	if pe.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pe.server.Shutdown(ctx)
}

// tagLabels picks the named labels out of k:v tags. The first
// tag for a label wins, so extra tags can't shadow the cluster,
// topic, partition or consumer. Missing labels are empty.
func tagLabels(tags []string, names []string) prometheus.Labels {
	labels := make(prometheus.Labels, len(names))
	for _, name := range names {
		labels[name] = ""
	}

	set := make(map[string]bool, len(names))
	for _, tag := range tags {
		parts := strings.SplitN(tag, ":", 2)
		if len(parts) != 2 || set[parts[0]] {
			continue
		}
		if _, ok := labels[parts[0]]; ok {
			labels[parts[0]] = parts[1]
			set[parts[0]] = true
		}
	}

	return labels
}
