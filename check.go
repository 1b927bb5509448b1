package main

import (
	"context"
	"strconv"

	log "github.com/sirupsen/logrus"
)

const (
	ServiceCheckName = "rumour.can_connect"

	MetricTopicOffset    = "kafka.topic.offset"
	MetricConsumerOffset = "kafka.consumer.offset"
	MetricConsumerLag    = "kafka.consumer.offset.lag"

	healthPath   = "/healthz"
	clustersPath = "/v1/clusters"
)

type clusterList struct {
	Clusters []string `json:"clusters"`
}

type topicList struct {
	Topics []string `json:"topics"`
}

type topicOffsets struct {
	Offsets []int64 `json:"offsets"`
}

type consumerList struct {
	Consumers []string `json:"consumers"`
}

type consumerTopics struct {
	Topics []consumerTopic `json:"topics"`
}

type consumerTopic struct {
	Topic   string           `json:"topic"`
	Offsets []consumerOffset `json:"offsets"`
}

type consumerOffset struct {
	Offset int64 `json:"offset"`
	Lag    int64 `json:"lag"`
}

// Check polls one Rumour instance and reports what it finds to a Sink.
// A Check is good for a single poll cycle.
type Check struct {
	settings *Settings
	fetcher  *Fetcher
	sink     Sink
	filter   *TopicFilter
	tally    *Tally
	log      log.FieldLogger
}

func NewCheck(settings *Settings, client HTTPClient, sink Sink) *Check {
	return &Check{
		settings: settings,
		fetcher:  NewFetcher(client, settings.URL, settings.Timeout),
		sink:     sink,
		tally:    NewTally(),
		log:      log.StandardLogger(),
	}
}

// WithTopicFilter skips topics excluded by f in both collectors.
func (c *Check) WithTopicFilter(f *TopicFilter) *Check {
	c.filter = f
	return c
}

// WithLogger replaces the logger used by the check and its fetcher.
func (c *Check) WithLogger(l log.FieldLogger) *Check {
	c.log = l
	c.fetcher.log = l
	return c
}

func (c *Check) Tally() *Tally {
	return c.tally
}

// Collect resolves inst and runs one full poll cycle against it.
// The returned tally is never nil.
func Collect(ctx context.Context, inst Instance, client HTTPClient, sink Sink, filter *TopicFilter) (*Tally, error) {
	settings, err := inst.Settings()
	if err != nil {
		return NewTally(), err
	}

	check := NewCheck(settings, client, sink).WithTopicFilter(filter)
	return check.Tally(), check.Run(ctx)
}

// Run checks health, resolves clusters, and then collects topic
// and consumer offsets. The first failure ends the cycle.
func (c *Check) Run(ctx context.Context) error {
	if err := c.CheckHealth(ctx); err != nil {
		return err
	}

	clusters, err := c.ResolveClusters(ctx)
	if err != nil {
		return err
	}

	c.log.Debug("Collecting topic offsets")
	if err := c.CollectTopicOffsets(ctx, clusters); err != nil {
		return err
	}

	c.log.Debug("Collecting consumer offsets")
	return c.CollectConsumerOffsets(ctx, clusters)
}

// CheckHealth probes the liveness endpoint and reports the outcome
// as a service check.
func (c *Check) CheckHealth(ctx context.Context) error {
	if err := c.rest(ctx, healthPath, nil); err != nil {
		return err
	}

	target, _ := c.fetcher.URL(healthPath)
	c.sink.ServiceCheck(ServiceCheckName, StatusOK, "Connection to "+target+" was successful", c.settings.Tags)
	return nil
}

// ResolveClusters returns the known clusters, narrowed to the configured
// ones when there are any. Configured clusters keep their configured order.
func (c *Check) ResolveClusters(ctx context.Context) ([]string, error) {
	var resp clusterList
	if err := c.rest(ctx, clustersPath, &resp); err != nil {
		return nil, err
	}

	known := resp.Clusters
	if len(known) == 0 {
		return nil, &NoClustersError{}
	}

	selected := c.settings.Clusters
	if len(selected) == 0 {
		for _, name := range known {
			c.tally.AddCluster(name)
		}
		return known, nil
	}

	knownSet := make(map[string]struct{}, len(known))
	for _, name := range known {
		knownSet[name] = struct{}{}
	}

	clusters := make([]string, 0, len(selected))
	for _, name := range selected {
		if _, ok := knownSet[name]; !ok {
			c.log.WithField("cluster", name).Errorf("Cluster '%s' does not exist", name)
			continue
		}
		c.tally.AddCluster(name)
		clusters = append(clusters, name)
	}

	return clusters, nil
}

// CollectTopicOffsets emits one kafka.topic.offset gauge per partition.
func (c *Check) CollectTopicOffsets(ctx context.Context, clusters []string) error {
	for _, cluster := range clusters {
		var topics topicList
		if err := c.rest(ctx, joinPath("v1", "clusters", cluster, "topics"), &topics); err != nil {
			return err
		}

		for _, topic := range topics.Topics {
			if c.filter.Excludes(topic) {
				continue
			}

			var resp topicOffsets
			if err := c.rest(ctx, joinPath("v1", "clusters", cluster, "topics", topic), &resp); err != nil {
				return err
			}

			c.tally.AddTopic(cluster, topic)
			for partition, offset := range resp.Offsets {
				c.tally.AddPartition(cluster, topic, partition)
				c.sink.Gauge(MetricTopicOffset, float64(offset), c.tags(
					"topic:"+topic,
					"partition:"+strconv.Itoa(partition),
					"cluster:"+cluster,
				))
			}
		}

		c.log.WithFields(log.Fields{
			"cluster": cluster,
			"topics":  len(topics.Topics),
		}).Debug("Collected topic offsets")
	}

	return nil
}

// CollectConsumerOffsets emits an offset and a lag gauge for every
// partition each consumer group has committed to.
func (c *Check) CollectConsumerOffsets(ctx context.Context, clusters []string) error {
	for _, cluster := range clusters {
		var consumers consumerList
		if err := c.rest(ctx, joinPath("v1", "clusters", cluster, "consumers"), &consumers); err != nil {
			return err
		}

		for _, consumer := range consumers.Consumers {
			var resp consumerTopics
			if err := c.rest(ctx, joinPath("v1", "clusters", cluster, "consumers", consumer), &resp); err != nil {
				return err
			}

			c.tally.AddGroup(cluster, consumer)
			for _, topic := range resp.Topics {
				if c.filter.Excludes(topic.Topic) {
					continue
				}

				for partition, offset := range topic.Offsets {
					tags := c.tags(
						"topic:"+topic.Topic,
						"partition:"+strconv.Itoa(partition),
						"cluster:"+cluster,
						"consumer:"+consumer,
					)
					c.sink.Gauge(MetricConsumerOffset, float64(offset.Offset), tags)
					c.sink.Gauge(MetricConsumerLag, float64(offset.Lag), tags)
				}
			}
		}

		c.log.WithFields(log.Fields{
			"cluster":   cluster,
			"consumers": len(consumers.Consumers),
		}).Debug("Collected consumer offsets")
	}

	return nil
}

// rest fetches path and reports hard failures as a critical service check.
func (c *Check) rest(ctx context.Context, path string, v interface{}) error {
	err := c.fetcher.Fetch(ctx, path, v)
	if err != nil {
		c.sink.ServiceCheck(ServiceCheckName, StatusCritical, err.Error(), c.settings.Tags)
	}

	return err
}

func (c *Check) tags(base ...string) []string {
	tags := make([]string, 0, len(base)+len(c.settings.Tags))
	tags = append(tags, base...)
	return append(tags, c.settings.Tags...)
}
