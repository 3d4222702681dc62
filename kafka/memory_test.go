package kafka

import (
	"context"
	"testing"

	"github.com/jabolina/go-streamtask/types"
)

func TestMemoryFetcher_DrainRespectsPause(t *testing.T) {
	f := NewMemoryFetcher()
	p := types.TopicPartition{Topic: "x", Partition: 0}
	f.Push(p, types.RawRecord{TopicPartition: p, Offset: 0, Value: []byte("a")})

	f.Pause(p)
	if got := f.Drain(p); got != nil {
		t.Fatalf("expected no records drained while paused, got %v", got)
	}

	f.Resume(p)
	got := f.Drain(p)
	if len(got) != 1 || got[0].Offset != 0 {
		t.Fatalf("expected 1 record drained after resume, got %v", got)
	}

	// A second drain with nothing newly pushed returns nothing.
	if got := f.Drain(p); got != nil {
		t.Fatalf("expected empty drain, got %v", got)
	}
}

func TestMemoryFetcher_CommitTracksOffsets(t *testing.T) {
	f := NewMemoryFetcher()
	p := types.TopicPartition{Topic: "x", Partition: 0}

	if _, ok := f.Committed(p); ok {
		t.Fatalf("expected no committed offset before any Commit")
	}
	if err := f.Commit(context.Background(), map[types.TopicPartition]int64{p: 41}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	off, ok := f.Committed(p)
	if !ok || off != 41 {
		t.Fatalf("expected committed offset 41, got %d (ok=%v)", off, ok)
	}
}

func TestMemoryProducer_SendAssignsIncreasingOffsets(t *testing.T) {
	p := NewMemoryProducer()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tp, off, err := p.Send(ctx, "out", nil, []byte("k"), []byte("v"))
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
		if off != int64(i) {
			t.Fatalf("send %d: expected offset %d, got %d", i, i, off)
		}
		if tp.Topic != "out" || tp.Partition != 0 {
			t.Fatalf("send %d: unexpected partition %v", i, tp)
		}
	}
	if len(p.Sent()) != 3 {
		t.Fatalf("expected 3 records in the sent log, got %d", len(p.Sent()))
	}
}

func TestMemoryProducer_ExplicitPartitionRespected(t *testing.T) {
	p := NewMemoryProducer()
	partition := int32(2)

	tp, _, err := p.Send(context.Background(), "out", &partition, nil, []byte("v"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if tp.Partition != 2 {
		t.Fatalf("expected partition 2, got %d", tp.Partition)
	}
}

func TestMemoryProducer_FlushIsNoop(t *testing.T) {
	p := NewMemoryProducer()
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
}
