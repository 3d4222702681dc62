// Package tracker implements the per-queue minimum-timestamp tracker
// described in spec section 4.1: a monotonic deque of candidate minima
// giving amortized O(1) add/remove/get even though the tracked
// timestamps are not inserted in sorted order.
package tracker

import "github.com/jabolina/go-streamtask/types"

type entry struct {
	offset    int64
	timestamp int64
}

// Tracker tracks the minimum timestamp among a set of currently-held
// records. It is not safe for concurrent use; callers (RecordQueue) are
// expected to serialize access themselves.
type Tracker struct {
	// deque holds candidate minima, oldest-inserted-and-still-possibly-
	// minimal first. Every entry's timestamp is <= the timestamp of any
	// entry appended after it, by construction of add.
	deque []entry
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// Add records x as held. Any trailing deque entries with a timestamp >=
// x.Timestamp can never be the minimum while x is present, so they are
// dropped before x is appended.
func (t *Tracker) Add(x types.StampedRecord) {
	i := len(t.deque)
	for i > 0 && t.deque[i-1].timestamp >= x.Timestamp {
		i--
	}
	t.deque = append(t.deque[:i], entry{offset: x.Offset, timestamp: x.Timestamp})
}

// Remove marks x as no longer held. If x is the current head of the
// deque it is popped; otherwise x was already shadowed by a smaller
// timestamp ahead of it and removal is a safe no-op.
func (t *Tracker) Remove(x types.StampedRecord) {
	if len(t.deque) == 0 {
		return
	}
	head := t.deque[0]
	if head.offset == x.Offset && head.timestamp == x.Timestamp {
		t.deque = t.deque[1:]
	}
}

// Get returns the minimum timestamp currently held, or -1 if nothing is
// held.
func (t *Tracker) Get() int64 {
	if len(t.deque) == 0 {
		return -1
	}
	return t.deque[0].timestamp
}

// Len reports how many candidate minima remain in the deque. Exposed for
// tests; not part of the spec's contract.
func (t *Tracker) Len() int {
	return len(t.deque)
}
