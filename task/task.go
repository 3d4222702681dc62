// Package task implements the StreamTask of spec section 4.7: the
// orchestrator owning a PartitionGroup, PunctuationQueue, ProcessorContext,
// ProcessorTopology, and RecordCollector, exposing AddRecords/Process/
// Commit/Close and enforcing the flow-control and commit protocols.
package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jabolina/go-streamtask/collector"
	"github.com/jabolina/go-streamtask/config"
	"github.com/jabolina/go-streamtask/group"
	"github.com/jabolina/go-streamtask/internal/logging"
	"github.com/jabolina/go-streamtask/internal/metrics"
	"github.com/jabolina/go-streamtask/processor"
	"github.com/jabolina/go-streamtask/punctuation"
	"github.com/jabolina/go-streamtask/types"
)

// Deserializer turns a raw record's key/value bytes into the objects
// handed to processor nodes. Passed through to PartitionGroup.AddRawRecords
// unchanged; nil skips deserialization and leaves KeyObj/ValueObj nil.
type Deserializer func(raw types.RawRecord) (key, value interface{}, err error)

// StreamTask is the single-threaded-cooperative orchestrator of spec
// section 4.7/5: exactly one goroutine calls Process/Commit/Close at a
// time, serialized by mu; a different goroutine (the fetcher) may call
// AddRecords concurrently, also serialized by the same mu — mirroring the
// teacher's single *sync.Mutex-guarded Peer struct.
type StreamTask struct {
	mu sync.Mutex

	id          int
	partitions  []types.TopicPartition
	maxBuffered int

	group       *group.PartitionGroup
	punctuation *punctuation.Queue
	topology    *processor.Topology
	ctx         *processor.Context
	collector   *collector.Collector

	consumer     types.Consumer
	stateManager types.StateManager
	logger       logging.Logger
	metrics      metrics.Sink

	consumedOffsets    map[types.TopicPartition]int64
	paused             map[types.TopicPartition]bool
	commitRequested    bool
	commitOffsetNeeded bool

	closed bool
}

// New constructs a StreamTask over topo, which must already have a
// source node registered for the topic of every entry in cfg.Partitions.
// It initializes every topology node before returning.
func New(
	cfg config.TaskConfig,
	topo *processor.Topology,
	consumer types.Consumer,
	producer types.Producer,
	stateManager types.StateManager,
	logger logging.Logger,
	sink metrics.Sink,
) (*StreamTask, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}

	sources := make(map[types.TopicPartition]string, len(cfg.Partitions))
	for _, p := range cfg.Partitions {
		name, ok := topo.Source(p.Topic)
		if !ok {
			return nil, fmt.Errorf("task: no source node wired for topic %q (partition %s)", p.Topic, p)
		}
		sources[p] = name
	}

	st := &StreamTask{
		id:              cfg.TaskID,
		partitions:      append([]types.TopicPartition(nil), cfg.Partitions...),
		maxBuffered:     cfg.BufferedRecordsPerPartition,
		group:           group.New(sources, cfg.TimestampExtractor),
		punctuation:     punctuation.New(),
		topology:        topo,
		collector:       collector.New(producer, logger),
		consumer:        consumer,
		stateManager:    stateManager,
		logger:          logger,
		metrics:         sink,
		consumedOffsets: make(map[types.TopicPartition]int64),
		paused:          make(map[types.TopicPartition]bool),
	}
	st.ctx = processor.NewContext(cfg.TaskID, topo, &scheduler{task: st}, stateManager, st.collector)

	if err := topo.Init(st.ctx); err != nil {
		return nil, fmt.Errorf("task %d: init topology: %w", cfg.TaskID, err)
	}
	return st, nil
}

// ID returns the task's integer id.
func (t *StreamTask) ID() int { return t.id }

// Partitions returns the fixed set of partitions this task owns.
func (t *StreamTask) Partitions() []types.TopicPartition {
	return append([]types.TopicPartition(nil), t.partitions...)
}

// AddRecords delegates raws to the PartitionGroup and pauses the fetcher
// for partition the moment its queue size exceeds maxBuffered. This is
// the only place a pause is issued (spec section 4.7, step 2); the pause
// flag is tracked so a sustained over-watermark burst of AddRecords calls
// issues at most one Pause per watermark crossing, keeping property P2
// (pauses - resumes in {0,1}) even though Consumer.Pause is itself
// idempotent.
func (t *StreamTask) AddRecords(partition types.TopicPartition, raws []types.RawRecord, deserialize Deserializer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var fn func(types.RawRecord) (interface{}, interface{}, error)
	if deserialize != nil {
		fn = func(raw types.RawRecord) (interface{}, interface{}, error) { return deserialize(raw) }
	}
	size, err := t.group.AddRawRecords(partition, raws, fn)
	if err != nil {
		t.logger.Errorf("task %d: add records for %s: %v", t.id, partition, err)
		return err
	}
	t.metrics.SetBufferedRecords(t.id, partition.String(), size)

	if size > t.maxBuffered && !t.paused[partition] {
		t.consumer.Pause(partition)
		t.paused[partition] = true
		t.metrics.IncPause(t.id, partition.String())
	}
	return nil
}

// Process drains and processes exactly one record, per spec section 4.7.
// Returns the total number of records still buffered across all
// partitions after the step, or 0 if no record was available.
func (t *StreamTask) Process(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.group.NextQueue()
	if !ok {
		return 0, nil
	}
	rec, ok := t.group.PollRecord(q)
	if !ok {
		return 0, nil
	}
	partition := q.Partition()
	sourceNode := q.SourceNode()

	if err := t.topology.Dispatch(t.ctx, sourceNode, &rec, rec.KeyObj, rec.ValueObj); err != nil {
		t.logger.Errorf("task %d: process %s offset %d on node %q: %v", t.id, partition, rec.Offset, sourceNode, err)
		return 0, fmt.Errorf("task %d: process %s offset %d: %w", t.id, partition, rec.Offset, err)
	}

	t.consumedOffsets[partition] = rec.Offset
	t.commitOffsetNeeded = true
	t.metrics.IncRecordsProcessed(t.id, partition.String())

	if t.commitRequested {
		if err := t.commitLocked(ctx); err != nil {
			return 0, err
		}
		t.commitRequested = false
	}

	if t.paused[partition] && t.group.NumBuffered(partition) == t.maxBuffered {
		t.consumer.Resume(partition)
		t.paused[partition] = false
		t.metrics.IncResume(t.id, partition.String())
	}
	t.metrics.SetBufferedRecords(t.id, partition.String(), t.group.NumBuffered(partition))

	streamTime := t.group.StreamTime()
	if _, err := t.punctuation.MaybePunctuate(streamTime); err != nil {
		t.logger.Errorf("task %d: punctuate at stream time %d: %v", t.id, streamTime, err)
		return 0, fmt.Errorf("task %d: punctuate at %d: %w", t.id, streamTime, err)
	}

	// Step 8: only now, after commit/resume/punctuate have all run
	// against this record, is the current record/node cleared. On any
	// error return above, current record/node are deliberately left set
	// for diagnostics (spec section 7).
	t.ctx.ClearCurrent()

	return t.group.NumBufferedTotal(), nil
}

// RequestCommit sets the flag checked and honored at the next record
// boundary inside Process (spec section 4.7's needs_commit). Safe to
// call from any goroutine, e.g. a commit-interval ticker owned by the
// surrounding thread pool.
func (t *StreamTask) RequestCommit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commitRequested = true
}

// Commit runs the three-step commit protocol of spec section 4.7: state
// flush, then (if needed) consumer offset commit, then producer flush —
// in that fixed order, deliberately not atomic across the three (see
// DESIGN.md's commit-atomicity note). Safe to call directly (e.g. on
// shutdown) as well as via RequestCommit+Process.
func (t *StreamTask) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commitLocked(ctx)
}

func (t *StreamTask) commitLocked(ctx context.Context) error {
	flushStart := time.Now()
	if err := t.stateManager.Flush(); err != nil {
		t.logger.Errorf("task %d: commit: state flush failed: %v", t.id, err)
		return fmt.Errorf("task %d: state flush: %w", t.id, err)
	}
	t.metrics.ObserveCommitStage(t.id, "state_flush", time.Since(flushStart))

	if t.commitOffsetNeeded {
		offsets := make(map[types.TopicPartition]int64, len(t.consumedOffsets))
		for p, off := range t.consumedOffsets {
			offsets[p] = off
		}
		commitStart := time.Now()
		if err := t.consumer.Commit(ctx, offsets); err != nil {
			t.logger.Errorf("task %d: commit: consumer commit failed: %v", t.id, err)
			return fmt.Errorf("task %d: consumer commit: %w", t.id, err)
		}
		t.metrics.ObserveCommitStage(t.id, "offset_commit", time.Since(commitStart))
		t.commitOffsetNeeded = false
	}

	producerFlushStart := time.Now()
	if err := t.collector.Flush(ctx); err != nil {
		t.logger.Errorf("task %d: commit: record collector flush failed: %v", t.id, err)
		return fmt.Errorf("task %d: collector flush: %w", t.id, err)
	}
	t.metrics.ObserveCommitStage(t.id, "producer_flush", time.Since(producerFlushStart))
	return nil
}

// ConsumedOffset returns the last fully processed offset for partition,
// and whether one has been recorded yet. Exposed for tests and
// diagnostics; not part of the orchestration protocol itself.
func (t *StreamTask) ConsumedOffset(partition types.TopicPartition) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	off, ok := t.consumedOffsets[partition]
	return off, ok
}

// Close drains state per spec section 4.7: clears the partition group's
// queues, clears consumed offsets, and closes the topology (which closes
// user nodes in reverse topological order). Only legal once Process has
// returned and will not be called again.
func (t *StreamTask) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	t.group.Close()
	t.consumedOffsets = make(map[types.TopicPartition]int64)

	if err := t.topology.Close(); err != nil {
		t.logger.Errorf("task %d: close topology: %v", t.id, err)
		return fmt.Errorf("task %d: close topology: %w", t.id, err)
	}
	return nil
}

// scheduler adapts StreamTask into the processor.Scheduler interface
// Context.Schedule delegates to, forwarding into the task's
// punctuation.Queue with the current stream time. Constructed once per
// task and never outlives it (spec section 9's non-owning back-reference
// discipline).
type scheduler struct {
	task *StreamTask
}

// Schedule accesses task fields directly rather than re-acquiring
// task.mu. Node code reaches it through Context.Schedule either inside
// Process, which holds the lock for its entire body, or from Init during
// New, before the task has been handed to any other goroutine.
func (s *scheduler) Schedule(node string, intervalMs int64) {
	st := s.task
	currentStreamTime := st.group.StreamTime()
	st.punctuation.Schedule(node, intervalMs, currentStreamTime, func(t int64) error {
		st.metrics.IncPunctuate(st.id, node)
		return st.topology.Punctuate(st.ctx, node, t)
	})
}
