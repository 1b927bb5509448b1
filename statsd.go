package main

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PagerDuty/godspeed"
	log "github.com/sirupsen/logrus"
)

const (
	TagFormatDatadog = "datadog"
	TagFormatPlain   = "plain"
)

type StatsDConfig struct {
	Addr      string
	Namespace string
	TagFormat string
}

// statsdClient is the subset of *godspeed.Godspeed in use.
type statsdClient interface {
	Gauge(stat string, value float64, tags []string) error
	Timing(stat string, value float64, tags []string) error
	ServiceCheck(name string, status int, fields map[string]string, tags []string) error
}

var _ statsdClient = (*godspeed.Godspeed)(nil)

type StatsDWriter struct {
	gsw       statsdClient
	conn      io.Closer
	tagFormat string
}

func NewStatsDWriter(config *StatsDConfig) (*StatsDWriter, error) {
	var port int
	var host string
	var err error

	addr := strings.SplitN(config.Addr, ":", 2)
	if len(addr) == 1 {
		host = addr[0]
		port = godspeed.DefaultPort
	} else if len(addr) == 2 {
		host = addr[0]
		port, err = strconv.Atoi(addr[1])
		if err != nil {
			return nil, fmt.Errorf("Invalid host:port addr: %v", err)
		}
	}

	if host == "" {
		host = godspeed.DefaultHost
	}

	gs, err := godspeed.New(host, port, false)
	if err != nil {
		return nil, err
	}

	gs.Namespace = config.Namespace

	w := newStatsDWriter(gs, config.TagFormat)
	w.conn = gs.Conn
	return w, nil
}

func newStatsDWriter(client statsdClient, tagFormat string) *StatsDWriter {
	if tagFormat == "" {
		tagFormat = TagFormatDatadog
	}

	return &StatsDWriter{gsw: client, tagFormat: tagFormat}
}

func (w *StatsDWriter) Gauge(name string, value float64, tags []string) {
	var err error
	if w.tagFormat == TagFormatDatadog {
		err = w.gsw.Gauge(name, value, tags)
	} else {
		err = w.gsw.Gauge(plainMetricName(name, tags), value, nil)
	}

	if err != nil {
		log.WithField("metric", name).Debugf("Problem writing to StatsD: %v", err)
	}
}

func (w *StatsDWriter) ServiceCheck(name string, status Status, message string, tags []string) {
	if w.tagFormat != TagFormatDatadog {
		tags = nil
	}

	fields := map[string]string{"service_check_message": message}
	if err := w.gsw.ServiceCheck(name, int(status), fields, tags); err != nil {
		log.WithField("check", name).Debugf("Problem writing to StatsD: %v", err)
	}
}

func (w *StatsDWriter) WriteObservationSummary(o Observation) {
	w.gsw.Gauge("rumour.check.observations", float64(o.Count), nil)
	w.gsw.Gauge("rumour.check.clusters", float64(o.ClusterCount), nil)
	w.gsw.Gauge("rumour.check.topics", float64(o.TopicCount), nil)
	w.gsw.Gauge("rumour.check.consumer_groups", float64(o.GroupCount), nil)
	w.gsw.Gauge("rumour.check.partitions", float64(o.PartitionCount), nil)
	w.gsw.Gauge("rumour.check.failed_instances", float64(o.Failed), nil)
	w.gsw.Timing("rumour.check.duration.ms", float64(o.Duration.Nanoseconds()/1000/1000), nil)
}

func (w *StatsDWriter) Flush() {
}

func (w *StatsDWriter) Close() {
	if w.conn != nil {
		w.conn.Close()
	}
}

// plainMetricName folds tag values into the metric name for
// servers that don't understand DogStatsD tags.
func plainMetricName(name string, tags []string) string {
	segments := []string{name}
	for _, tag := range tags {
		value := tag
		if i := strings.Index(tag, ":"); i >= 0 {
			value = tag[i+1:]
		}
		segments = append(segments, statsdSafeString(value))
	}

	return strings.Join(segments, ".")
}

var (
	statsdQuotes = strings.NewReplacer(`"`, "", "'", "", ".", "_")
	statsdUnsafe = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)
)

func statsdSafeString(s string) string {
	return statsdUnsafe.ReplaceAllString(statsdQuotes.Replace(s), "-")
}
