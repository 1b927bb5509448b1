package main

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsdCall struct {
	stat   string
	value  float64
	status int
	fields map[string]string
	tags   []string
}

type fakeStatsD struct {
	gauges []statsdCall
	checks []statsdCall
	timing []statsdCall
}

func (f *fakeStatsD) Gauge(stat string, value float64, tags []string) error {
	f.gauges = append(f.gauges, statsdCall{stat: stat, value: value, tags: tags})
	return nil
}

func (f *fakeStatsD) Timing(stat string, value float64, tags []string) error {
	f.timing = append(f.timing, statsdCall{stat: stat, value: value, tags: tags})
	return nil
}

func (f *fakeStatsD) ServiceCheck(name string, status int, fields map[string]string, tags []string) error {
	f.checks = append(f.checks, statsdCall{stat: name, status: status, fields: fields, tags: tags})
	return nil
}

type fakeCloser struct {
	closed bool
}

func (f *fakeCloser) Close() error {
	f.closed = true
	return nil
}

func Test_safe_statsd_metric_names(t *testing.T) {
	assert.Equal(t, "foo", statsdSafeString("foo"))
	assert.Equal(t, "foo-bar", statsdSafeString("foo@bar"))
	assert.Equal(t, "foo-bar", statsdSafeString(`"foo" 'bar'`))
	assert.Equal(t, "foo_bar", statsdSafeString("foo.bar"))
}

func Test_statsd_writer_sends_datadog_tags(t *testing.T) {
	client := &fakeStatsD{}
	w := newStatsDWriter(client, TagFormatDatadog)

	tags := []string{"topic:orders", "partition:0", "cluster:east"}
	w.Gauge(MetricTopicOffset, 42, tags)

	if assert.Len(t, client.gauges, 1) {
		assert.Equal(t, MetricTopicOffset, client.gauges[0].stat)
		assert.Equal(t, float64(42), client.gauges[0].value)
		assert.Equal(t, tags, client.gauges[0].tags)
	}
}

func Test_statsd_writer_folds_plain_tags_into_names(t *testing.T) {
	client := &fakeStatsD{}
	w := newStatsDWriter(client, TagFormatPlain)

	w.Gauge(MetricTopicOffset, 42, []string{"topic:order.events", "partition:3", "cluster:east"})

	if assert.Len(t, client.gauges, 1) {
		assert.Equal(t, "kafka.topic.offset.order_events.3.east", client.gauges[0].stat)
		assert.Nil(t, client.gauges[0].tags)
	}
}

func Test_statsd_writer_sends_service_checks(t *testing.T) {
	client := &fakeStatsD{}
	w := newStatsDWriter(client, "")

	w.ServiceCheck(ServiceCheckName, StatusCritical, "boom", []string{"env:test"})

	if assert.Len(t, client.checks, 1) {
		assert.Equal(t, ServiceCheckName, client.checks[0].stat)
		assert.Equal(t, 2, client.checks[0].status)
		assert.Equal(t, "boom", client.checks[0].fields["service_check_message"])
		assert.Equal(t, []string{"env:test"}, client.checks[0].tags)
	}
}

func Test_statsd_writer_closes_the_connection(t *testing.T) {
	conn := &fakeCloser{}
	w := newStatsDWriter(&fakeStatsD{}, "")
	w.conn = conn
	w.Close()

	assert.True(t, conn.closed)
}

func Test_statsd_writer_sends_datagrams(t *testing.T) {
	listener, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	w, err := NewStatsDWriter(&StatsDConfig{Addr: listener.LocalAddr().String()})
	require.NoError(t, err)
	defer w.Close()

	read := func() string {
		buf := make([]byte, 8192)
		listener.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := listener.ReadFrom(buf)
		require.NoError(t, err)
		return string(buf[:n])
	}

	w.ServiceCheck(ServiceCheckName, StatusCritical, "connection refused", []string{"env:test"})
	datagram := read()
	assert.Contains(t, datagram, "_sc|rumour.can_connect|2|")
	assert.Contains(t, datagram, "#env:test")
	assert.Contains(t, datagram, "|m:connection refused")

	w.Gauge(MetricTopicOffset, 42, []string{"topic:orders", "partition:0", "cluster:east"})
	datagram = read()
	assert.Contains(t, datagram, "kafka.topic.offset:42|g")
	assert.Contains(t, datagram, "topic:orders")
}
