package kafka

import (
	"context"
	"sync"

	"github.com/jabolina/go-streamtask/types"
)

// MemoryFetcher is an in-memory stand-in for Fetcher, implementing the
// same types.Consumer contract plus Drain for pulling buffered raw
// records. Used by cmd/taskdemo for a runnable, broker-free demonstration
// and by this package's own tests to exercise Pause/Resume/Commit
// bookkeeping without a live cluster.
type MemoryFetcher struct {
	mu        sync.Mutex
	pending   map[types.TopicPartition][]types.RawRecord
	paused    map[types.TopicPartition]bool
	committed map[types.TopicPartition]int64
}

// NewMemoryFetcher creates an empty MemoryFetcher.
func NewMemoryFetcher() *MemoryFetcher {
	return &MemoryFetcher{
		pending:   make(map[types.TopicPartition][]types.RawRecord),
		paused:    make(map[types.TopicPartition]bool),
		committed: make(map[types.TopicPartition]int64),
	}
}

// Push appends raws to partition's pending queue, as if they had just
// been fetched from a broker.
func (m *MemoryFetcher) Push(partition types.TopicPartition, raws ...types.RawRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[partition] = append(m.pending[partition], raws...)
}

// Pause marks partition as paused; Drain returns nothing for a paused
// partition until Resume is called.
func (m *MemoryFetcher) Pause(partition types.TopicPartition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused[partition] = true
}

// Resume un-pauses partition.
func (m *MemoryFetcher) Resume(partition types.TopicPartition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused[partition] = false
}

// Commit records the committed offsets in memory.
func (m *MemoryFetcher) Commit(_ context.Context, offsets map[types.TopicPartition]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tp, off := range offsets {
		m.committed[tp] = off
	}
	return nil
}

// Committed returns the last committed offset for partition, and whether
// one has been committed yet. Test/diagnostic helper.
func (m *MemoryFetcher) Committed(partition types.TopicPartition) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	off, ok := m.committed[partition]
	return off, ok
}

// Drain pops and returns every pending record for partition, or nil if
// the partition is paused or has nothing pending.
func (m *MemoryFetcher) Drain(partition types.TopicPartition) []types.RawRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused[partition] {
		return nil
	}
	raws := m.pending[partition]
	delete(m.pending, partition)
	return raws
}

// Partitions returns every partition that has been pushed to and not
// drained since; Drain removes a partition from this set.
func (m *MemoryFetcher) Partitions() []types.TopicPartition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.TopicPartition, 0, len(m.pending))
	for tp := range m.pending {
		out = append(out, tp)
	}
	return out
}

// MemoryProducer is an in-memory stand-in for Producer: every Send is
// appended to an in-order log and acknowledged immediately, assigning a
// monotonically increasing offset per output topic-partition.
type MemoryProducer struct {
	mu         sync.Mutex
	sent       []types.RawRecord
	nextOffset map[types.TopicPartition]int64
}

// NewMemoryProducer creates an empty MemoryProducer.
func NewMemoryProducer() *MemoryProducer {
	return &MemoryProducer{nextOffset: make(map[types.TopicPartition]int64)}
}

// Send appends key/value to the in-memory log, returning the assigned
// topic-partition/offset. Always succeeds.
func (m *MemoryProducer) Send(_ context.Context, topic string, partition *int32, key, value []byte) (types.TopicPartition, int64, error) {
	p := int32(0)
	if partition != nil {
		p = *partition
	}
	tp := types.TopicPartition{Topic: topic, Partition: p}

	m.mu.Lock()
	defer m.mu.Unlock()
	off := m.nextOffset[tp]
	m.nextOffset[tp] = off + 1
	m.sent = append(m.sent, types.RawRecord{TopicPartition: tp, Offset: off, Key: key, Value: value})
	return tp, off, nil
}

// Flush is a no-op: every Send is already durable once it returns.
func (m *MemoryProducer) Flush(context.Context) error {
	return nil
}

// Sent returns every record published so far, in send order. Test/demo
// helper.
func (m *MemoryProducer) Sent() []types.RawRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.RawRecord(nil), m.sent...)
}
