// Package group implements the PartitionGroup of spec section 4.3: it
// merges the per-partition queue.RecordQueue instances into a single
// logical stream, selecting the next record to drain by lowest head
// timestamp and tracking a monotonically non-decreasing stream time.
package group

import (
	"fmt"
	"sort"

	"github.com/jabolina/go-streamtask/queue"
	"github.com/jabolina/go-streamtask/types"
)

// PartitionGroup owns one RecordQueue per assigned partition. The set of
// partitions is fixed at construction and never changes over the group's
// lifetime.
type PartitionGroup struct {
	queues     map[types.TopicPartition]*queue.RecordQueue
	extractor  types.TimestampExtractor
	streamTime int64
}

// New creates a PartitionGroup with one empty RecordQueue per entry in
// sources, which maps a partition to the topology source node its
// records should be dispatched to.
func New(sources map[types.TopicPartition]string, extractor types.TimestampExtractor) *PartitionGroup {
	queues := make(map[types.TopicPartition]*queue.RecordQueue, len(sources))
	for tp, node := range sources {
		queues[tp] = queue.New(tp, node)
	}
	return &PartitionGroup{
		queues:     queues,
		extractor:  extractor,
		streamTime: -1,
	}
}

// AddRawRecords deserializes and timestamps each raw record for
// partition, appends it to that partition's queue immediately (per the
// spec's mandated immediate-ingestion rule — see SPEC_FULL.md section 9),
// and returns the queue's new size. deserialize turns a raw
// record's key/value; pass nil to skip deserialization and leave KeyObj/
// ValueObj nil.
func (g *PartitionGroup) AddRawRecords(partition types.TopicPartition, raws []types.RawRecord, deserialize func(types.RawRecord) (key, value interface{}, err error)) (int, error) {
	q, ok := g.queues[partition]
	if !ok {
		return 0, fmt.Errorf("group: unknown partition %s", partition)
	}
	for _, raw := range raws {
		var keyObj, valueObj interface{}
		if deserialize != nil {
			k, v, err := deserialize(raw)
			if err != nil {
				return q.Size(), fmt.Errorf("group: deserializing %s offset %d: %w", partition, raw.Offset, err)
			}
			keyObj, valueObj = k, v
		}
		ts := g.extractor.Extract(raw.Topic, raw.Key, raw.Value)
		if ts < 0 {
			ts = -1
		}
		q.Add(types.StampedRecord{RawRecord: raw, Timestamp: ts, KeyObj: keyObj, ValueObj: valueObj})
	}
	return q.Size(), nil
}

// NextQueue returns the non-empty queue whose head record has the lowest
// timestamp, breaking ties by lowest partition index then topic name for
// a deterministic, stable order. Returns (nil, false) iff every queue is
// empty.
func (g *PartitionGroup) NextQueue() (*queue.RecordQueue, bool) {
	var best *queue.RecordQueue
	var bestHead types.StampedRecord

	partitions := make([]types.TopicPartition, 0, len(g.queues))
	for tp := range g.queues {
		partitions = append(partitions, tp)
	}
	sort.Slice(partitions, func(i, j int) bool {
		if partitions[i].Partition != partitions[j].Partition {
			return partitions[i].Partition < partitions[j].Partition
		}
		return partitions[i].Topic < partitions[j].Topic
	})

	for _, tp := range partitions {
		q := g.queues[tp]
		head, ok := q.Peek()
		if !ok {
			continue
		}
		if best == nil || head.Timestamp < bestHead.Timestamp {
			best, bestHead = q, head
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// PollRecord pops the head of q, which the caller must have just obtained
// via NextQueue. Stream time is advanced just before the pop, so the
// polled record still counts towards it while it is being processed.
func (g *PartitionGroup) PollRecord(q *queue.RecordQueue) (types.StampedRecord, bool) {
	g.advanceStreamTime()
	return q.Poll()
}

// StreamTime returns the group's stream time: the minimum tracked
// timestamp across all non-empty queues as of the last PollRecord call
// (the polled record included), clamped so it never regresses even if a
// late record lowers a queue's tracked minimum below the previously
// reported value. It is -1 until the first record is polled, and records
// added since the last poll do not move it.
func (g *PartitionGroup) StreamTime() int64 {
	return g.streamTime
}

func (g *PartitionGroup) advanceStreamTime() {
	min := int64(-1)
	for _, q := range g.queues {
		if q.IsEmpty() {
			continue
		}
		t := q.TrackedTimestamp()
		if min == -1 || t < min {
			min = t
		}
	}
	if min == -1 {
		// All queues empty: hold at the last reported value.
		return
	}
	if min > g.streamTime {
		g.streamTime = min
	}
}

// NumBuffered returns the number of records currently buffered for
// partition, or 0 if partition is unknown.
func (g *PartitionGroup) NumBuffered(partition types.TopicPartition) int {
	q, ok := g.queues[partition]
	if !ok {
		return 0
	}
	return q.Size()
}

// NumBufferedTotal returns the total number of records currently
// buffered across all partitions.
func (g *PartitionGroup) NumBufferedTotal() int {
	total := 0
	for _, q := range g.queues {
		total += q.Size()
	}
	return total
}

// Partitions returns the fixed set of partitions this group was
// constructed with.
func (g *PartitionGroup) Partitions() []types.TopicPartition {
	out := make([]types.TopicPartition, 0, len(g.queues))
	for tp := range g.queues {
		out = append(out, tp)
	}
	return out
}

// Close clears every queue, releasing buffered records. Called from
// StreamTask.Close.
func (g *PartitionGroup) Close() {
	for tp, node := range g.sourceNodes() {
		g.queues[tp] = queue.New(tp, node)
	}
}

func (g *PartitionGroup) sourceNodes() map[types.TopicPartition]string {
	out := make(map[types.TopicPartition]string, len(g.queues))
	for tp, q := range g.queues {
		out[tp] = q.SourceNode()
	}
	return out
}
