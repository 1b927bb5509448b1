package main

import (
	"fmt"
	"strings"
	"time"

	influxdb "github.com/influxdata/influxdb/client/v2"
	log "github.com/sirupsen/logrus"
)

type InfluxDBConfig struct {
	Database        string
	RetentionPolicy string
	Precision       string
	HTTPConfig      influxdb.HTTPConfig
	UDPConfig       influxdb.UDPConfig
	BufferSize      int
	FlushInterval   int
}

type InfluxDBWriter struct {
	config   *InfluxDBConfig
	client   influxdb.Client
	pointsCh chan *influxdb.Point
	flushCh  chan chan bool
	closeCh  chan bool

	bufferSize    int
	bufferTimeout time.Duration
}

func NewInfluxDBWriter(config *InfluxDBConfig) (*InfluxDBWriter, error) {
	client, err := newInfluxdbClient(config)
	if err != nil {
		return nil, fmt.Errorf("Unable to create InfluxDB client: %v", err)
	}
	return newInfluxDBWriter(config, client)
}

func newInfluxDBWriter(config *InfluxDBConfig, client influxdb.Client) (*InfluxDBWriter, error) {
	bufferSize := config.BufferSize
	if bufferSize < 0 {
		bufferSize = 0
	}

	flushInterval := config.FlushInterval
	if flushInterval < 1 {
		flushInterval = 1
	}

	w := &InfluxDBWriter{
		config:        config,
		client:        client,
		pointsCh:      make(chan *influxdb.Point),
		flushCh:       make(chan chan bool),
		closeCh:       make(chan bool),
		bufferSize:    bufferSize,
		bufferTimeout: time.Duration(flushInterval) * time.Second,
	}

	go w.capturePoints()
	return w, nil
}

func newInfluxdbClient(config *InfluxDBConfig) (influxdb.Client, error) {
	if config.HTTPConfig.Addr != "" {
		return influxdb.NewHTTPClient(config.HTTPConfig)
	}

	if config.UDPConfig.Addr != "" {
		return influxdb.NewUDPClient(config.UDPConfig)
	}

	return nil, fmt.Errorf("Neither an HTTP nor a UDP address is configured")
}

func (w *InfluxDBWriter) Gauge(name string, value float64, tags []string) {
	w.write(name, influxTags(tags), map[string]interface{}{"value": value})
}

func (w *InfluxDBWriter) ServiceCheck(name string, status Status, message string, tags []string) {
	w.write(name, influxTags(tags), map[string]interface{}{
		"status":  int(status),
		"message": message,
	})
}

func (w *InfluxDBWriter) WriteObservationSummary(o Observation) {
	w.write("rumour_check_observation", nil, map[string]interface{}{
		"observation_count": o.Count,
		"duration":          o.Duration.Nanoseconds(),
		"cluster_count":     o.ClusterCount,
		"topic_count":       o.TopicCount,
		"group_count":       o.GroupCount,
		"partition_count":   o.PartitionCount,
		"failed_instances":  o.Failed,
	})
}

func (w *InfluxDBWriter) write(name string, tags map[string]string, fields map[string]interface{}) {
	point, err := influxdb.NewPoint(name, tags, fields, time.Now())
	if err != nil {
		log.WithField("measurement", name).Errorf("Problem creating point! %v", err)
		return
	}

	w.Write(point)
}

func (w *InfluxDBWriter) Write(point *influxdb.Point) {
	w.pointsCh <- point
}

func (w *InfluxDBWriter) Flush() {
	done := make(chan bool)
	w.flushCh <- done
	<-done
}

func (w *InfluxDBWriter) Close() {
	w.Flush()
	w.closeCh <- true
	w.client.Close()
}

func (w *InfluxDBWriter) flushPoints(points []*influxdb.Point) {
	if len(points) == 0 {
		return
	}

	bp, err := influxdb.NewBatchPoints(influxdb.BatchPointsConfig{
		Database:        w.config.Database,
		Precision:       w.config.Precision,
		RetentionPolicy: w.config.RetentionPolicy,
	})

	if err != nil {
		log.Errorf("Problem creating batch point! %v", err)
		return
	}

	for _, pt := range points {
		bp.AddPoint(pt)
	}

	if err := w.client.Write(bp); err != nil {
		log.Errorf("Problem writing to InfluxDB! %v", err)
	}
}

func (w *InfluxDBWriter) capturePoints() {
	points := make([]*influxdb.Point, 0)
	timer := time.NewTimer(w.bufferTimeout)

	for {
		select {

		case p := <-w.pointsCh:
			points = append(points, p)

			if w.bufferSize <= len(points) {

				w.flushPoints(points)
				points = make([]*influxdb.Point, 0)

				timer.Reset(w.bufferTimeout)
			}

		case <-timer.C:
			if len(points) > 0 {

				w.flushPoints(points)
				points = make([]*influxdb.Point, 0)
			}

			timer.Reset(w.bufferTimeout)

		case flushed := <-w.flushCh:

			w.flushPoints(points)
			points = make([]*influxdb.Point, 0)

			flushed <- true
			timer.Reset(w.bufferTimeout)

		case <-w.closeCh:
			timer.Stop()
			return
		}
	}
}

// influxTags turns k:v tags into a tag map. A tag
// without a colon becomes a key with an empty value.
func influxTags(tags []string) map[string]string {
	m := make(map[string]string, len(tags))
	for _, tag := range tags {
		parts := strings.SplitN(tag, ":", 2)
		if len(parts) == 2 {
			m[parts[0]] = parts[1]
		} else {
			m[parts[0]] = ""
		}
	}

	return m
}
