// Package queue implements the per-partition RecordQueue of spec section
// 4.2: an insertion-order FIFO of StampedRecord, backed by a
// tracker.Tracker for O(1) amortized tracked-timestamp reads.
package queue

import (
	"github.com/jabolina/go-streamtask/tracker"
	"github.com/jabolina/go-streamtask/types"
)

// RecordQueue buffers the records fetched for one topic-partition,
// in the order they were fetched. It never reorders by timestamp;
// cross-queue reordering is PartitionGroup's job.
type RecordQueue struct {
	partition     types.TopicPartition
	sourceNode    string
	records       []types.StampedRecord
	head          int
	tracker       *tracker.Tracker
	highestOffset int64
}

// New creates an empty RecordQueue for partition, dispatching to
// sourceNode once records are polled.
func New(partition types.TopicPartition, sourceNode string) *RecordQueue {
	return &RecordQueue{
		partition:     partition,
		sourceNode:    sourceNode,
		tracker:       tracker.New(),
		highestOffset: -1,
	}
}

// Add appends a record to the FIFO tail and updates the tracker and the
// highest-offset watermark.
func (q *RecordQueue) Add(r types.StampedRecord) {
	q.records = append(q.records, r)
	q.tracker.Add(r)
	if r.Offset > q.highestOffset {
		q.highestOffset = r.Offset
	}
}

// Poll pops the FIFO head, or returns (zero value, false) if empty.
func (q *RecordQueue) Poll() (types.StampedRecord, bool) {
	if q.head >= len(q.records) {
		return types.StampedRecord{}, false
	}
	r := q.records[q.head]
	q.records[q.head] = types.StampedRecord{}
	q.head++
	q.tracker.Remove(r)
	q.compact()
	return r, true
}

// compact reclaims the backing array once it is fully drained, so a
// long-lived queue doesn't retain an ever-growing slice of empty slots.
func (q *RecordQueue) compact() {
	if q.head > 0 && q.head == len(q.records) {
		q.records = q.records[:0]
		q.head = 0
	}
}

// Size returns the number of records currently buffered.
func (q *RecordQueue) Size() int {
	return len(q.records) - q.head
}

// IsEmpty reports whether the queue currently holds no records.
func (q *RecordQueue) IsEmpty() bool {
	return q.Size() == 0
}

// Partition returns the topic-partition this queue serves.
func (q *RecordQueue) Partition() types.TopicPartition {
	return q.partition
}

// SourceNode returns the name of the topology node deserialized records
// from this queue are dispatched to.
func (q *RecordQueue) SourceNode() string {
	return q.sourceNode
}

// HighestOffset returns the highest offset ever inserted, or -1 if none.
func (q *RecordQueue) HighestOffset() int64 {
	return q.highestOffset
}

// TrackedTimestamp returns the tracker's current minimum, or -1 if empty.
func (q *RecordQueue) TrackedTimestamp() int64 {
	return q.tracker.Get()
}

// Peek returns the FIFO head without removing it, or false if empty.
func (q *RecordQueue) Peek() (types.StampedRecord, bool) {
	if q.head >= len(q.records) {
		return types.StampedRecord{}, false
	}
	return q.records[q.head], true
}
