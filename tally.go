package main

// Tally counts what a poll cycle walked through. Topics,
// groups and partitions are scoped to their cluster.
type Tally struct {
	clusters   clusterBucket
	topics     topicBucket
	groups     groupBucket
	partitions partitionBucket
}

type clusterBucket map[string]int
type topicBucket map[string]int
type groupBucket map[string]int
type partitionBucket map[string]map[int]int

func NewTally() *Tally {
	return &Tally{
		clusters:   make(clusterBucket),
		topics:     make(topicBucket),
		groups:     make(groupBucket),
		partitions: make(partitionBucket),
	}
}

func (t *Tally) AddCluster(cluster string) {
	t.clusters[cluster] = 1
}

func (t *Tally) AddTopic(cluster, topic string) {
	t.topics[cluster+"/"+topic] = 1
}

func (t *Tally) AddGroup(cluster, group string) {
	t.groups[cluster+"/"+group] = 1
}

func (t *Tally) AddPartition(cluster, topic string, partition int) {
	key := cluster + "/" + topic
	partitionMap := t.partitions[key]
	if partitionMap == nil {
		partitionMap = make(map[int]int)
		t.partitions[key] = partitionMap
	}

	partitionMap[partition] = 1
}

// Merge folds other into t.
func (t *Tally) Merge(other *Tally) {
	for k, v := range other.clusters {
		t.clusters[k] = v
	}
	for k, v := range other.topics {
		t.topics[k] = v
	}
	for k, v := range other.groups {
		t.groups[k] = v
	}
	for k, partitionMap := range other.partitions {
		for p, v := range partitionMap {
			if t.partitions[k] == nil {
				t.partitions[k] = make(map[int]int)
			}
			t.partitions[k][p] = v
		}
	}
}

func (t *Tally) ClusterCount() int {
	return len(t.clusters)
}

func (t *Tally) GroupCount() int {
	return len(t.groups)
}

func (t *Tally) TopicCount() int {
	return len(t.topics)
}

func (t *Tally) PartitionCount() (count int) {
	for _, partitionMap := range t.partitions {
		count = count + len(partitionMap)
	}

	return
}

func (t *Tally) Reset() {
	t.clusters = make(clusterBucket)
	t.topics = make(topicBucket)
	t.groups = make(groupBucket)
	t.partitions = make(partitionBucket)
}
