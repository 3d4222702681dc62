package collector

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jabolina/go-streamtask/internal/logging"
	"github.com/jabolina/go-streamtask/types"
)

type fakeProducer struct {
	mu        sync.Mutex
	sent      []types.RawRecord
	nextOff   map[string]int64
	flushes   int
	sendErr   error
	flushErr  error
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{nextOff: make(map[string]int64)}
}

func (f *fakeProducer) Send(ctx context.Context, topic string, partition *int32, key, value []byte) (types.TopicPartition, int64, error) {
	if f.sendErr != nil {
		return types.TopicPartition{}, 0, f.sendErr
	}
	p := int32(0)
	if partition != nil {
		p = *partition
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	off := f.nextOff[topic]
	f.nextOff[topic] = off + 1
	tp := types.TopicPartition{Topic: topic, Partition: p}
	f.sent = append(f.sent, types.RawRecord{TopicPartition: tp, Offset: off, Key: key, Value: value})
	return tp, off, nil
}

func (f *fakeProducer) Flush(ctx context.Context) error {
	f.flushes++
	return f.flushErr
}

func TestCollector_TracksHighestOffsetPerPartition(t *testing.T) {
	fp := newFakeProducer()
	c := New(fp, logging.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := c.Send(ctx, "out", []byte("k"), []byte("v"), nil); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	tp := types.TopicPartition{Topic: "out", Partition: 0}
	off, ok := c.HighestOffset(tp)
	if !ok || off != 2 {
		t.Fatalf("expected highest offset 2, got %d (ok=%v)", off, ok)
	}
}

func TestCollector_FlushBlocksUntilProducerFlushes(t *testing.T) {
	fp := newFakeProducer()
	c := New(fp, logging.NewNop())
	ctx := context.Background()

	if err := c.Send(ctx, "out", nil, []byte("v"), nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if fp.flushes != 1 {
		t.Fatalf("expected producer.Flush called once, got %d", fp.flushes)
	}
}

func TestCollector_SendErrorPropagates(t *testing.T) {
	fp := newFakeProducer()
	fp.sendErr = errors.New("broker unreachable")
	c := New(fp, logging.NewNop())

	if err := c.Send(context.Background(), "out", nil, []byte("v"), nil); err == nil {
		t.Fatalf("expected an error from Send")
	}
}

func TestCollector_PartitionerSelectsExplicitPartition(t *testing.T) {
	fp := newFakeProducer()
	c := New(fp, logging.NewNop())
	partitioner := func(topic string, key, value []byte) int32 { return 3 }

	if err := c.Send(context.Background(), "out", []byte("k"), []byte("v"), partitioner); err != nil {
		t.Fatalf("send: %v", err)
	}
	tp := types.TopicPartition{Topic: "out", Partition: 3}
	if _, ok := c.HighestOffset(tp); !ok {
		t.Fatalf("expected a record acknowledged on partition 3")
	}
}
