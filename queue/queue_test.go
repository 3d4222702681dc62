package queue

import (
	"testing"

	"github.com/jabolina/go-streamtask/types"
)

func rec(offset, ts int64) types.StampedRecord {
	return types.StampedRecord{RawRecord: types.RawRecord{Offset: offset}, Timestamp: ts}
}

func TestRecordQueue_FIFOOrderPreserved(t *testing.T) {
	tp := types.TopicPartition{Topic: "orders", Partition: 0}
	q := New(tp, "source-orders")

	q.Add(rec(0, 30))
	q.Add(rec(1, 10))
	q.Add(rec(2, 20))

	for _, want := range []int64{0, 1, 2} {
		got, ok := q.Poll()
		if !ok {
			t.Fatalf("expected a record, queue empty")
		}
		if got.Offset != want {
			t.Fatalf("expected offset %d in FIFO order, got %d", want, got.Offset)
		}
	}
	if !q.IsEmpty() {
		t.Fatalf("expected queue empty after draining")
	}
}

func TestRecordQueue_HighestOffsetMonotonic(t *testing.T) {
	tp := types.TopicPartition{Topic: "orders", Partition: 0}
	q := New(tp, "source-orders")
	if q.HighestOffset() != -1 {
		t.Fatalf("expected -1 highest offset on empty queue")
	}
	q.Add(rec(5, 1))
	q.Add(rec(7, 1))
	q.Add(rec(6, 1))
	if q.HighestOffset() != 7 {
		t.Fatalf("expected highest offset 7, got %d", q.HighestOffset())
	}
	q.Poll()
	q.Poll()
	q.Poll()
	if q.HighestOffset() != 7 {
		t.Fatalf("highest offset must not decrease after draining, got %d", q.HighestOffset())
	}
}

func TestRecordQueue_TrackedTimestampTracksMinimum(t *testing.T) {
	tp := types.TopicPartition{Topic: "orders", Partition: 0}
	q := New(tp, "source-orders")
	if q.TrackedTimestamp() != -1 {
		t.Fatalf("expected -1 on empty queue")
	}
	q.Add(rec(0, 5))
	q.Add(rec(1, 3))
	if q.TrackedTimestamp() != 3 {
		t.Fatalf("expected 3, got %d", q.TrackedTimestamp())
	}
	q.Poll() // pops offset 0 (ts 5), shadowed already
	if q.TrackedTimestamp() != 3 {
		t.Fatalf("expected 3 still, got %d", q.TrackedTimestamp())
	}
	q.Poll() // pops offset 1 (ts 3)
	if q.TrackedTimestamp() != -1 {
		t.Fatalf("expected -1 after draining, got %d", q.TrackedTimestamp())
	}
}

func TestRecordQueue_PollOnEmptyReturnsFalse(t *testing.T) {
	q := New(types.TopicPartition{Topic: "t", Partition: 0}, "s")
	if _, ok := q.Poll(); ok {
		t.Fatalf("expected ok=false on empty queue")
	}
}
