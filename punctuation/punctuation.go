// Package punctuation implements the PunctuationQueue of spec section
// 4.4: a priority queue of scheduled periodic callbacks ordered by
// next-fire stream time, using container/heap (the idiomatic Go choice
// for this — see DESIGN.md for why no third-party priority-queue library
// from the retrieval pack was used instead).
package punctuation

import "container/heap"

// Punctuator is invoked when a scheduled entry's next-fire time is
// reached. It receives the stream time at which it fired.
type Punctuator func(streamTime int64) error

type item struct {
	node       string
	interval   int64
	nextFire   int64
	seq        int // scheduling order, for stable tie-breaking
	punctuator Punctuator
	index      int // heap index, maintained by container/heap
}

type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].nextFire != h[j].nextFire {
		return h[i].nextFire < h[j].nextFire
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *itemHeap) Push(x interface{}) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Queue is the scheduler a StreamTask drives with its current stream
// time on every process() call.
type Queue struct {
	heap    itemHeap
	nextSeq int
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Schedule enqueues punctuator for node, to first fire at
// currentStreamTime+intervalMs and every intervalMs thereafter.
func (q *Queue) Schedule(node string, intervalMs int64, currentStreamTime int64, punctuator Punctuator) {
	it := &item{
		node:       node,
		interval:   intervalMs,
		nextFire:   currentStreamTime + intervalMs,
		seq:        q.nextSeq,
		punctuator: punctuator,
	}
	q.nextSeq++
	heap.Push(&q.heap, it)
}

// MaybePunctuate fires every scheduled entry whose next-fire time is <=
// currentStreamTime, in ascending next-fire order (ties broken by
// scheduling order), re-scheduling each by its interval after it fires.
// Returns the number of firings, and the first error encountered (firing
// stops at the first error, matching the "never swallow errors"
// propagation policy of spec section 7).
func (q *Queue) MaybePunctuate(currentStreamTime int64) (int, error) {
	fired := 0
	for q.heap.Len() > 0 && q.heap[0].nextFire <= currentStreamTime {
		it := heap.Pop(&q.heap).(*item)
		if err := it.punctuator(currentStreamTime); err != nil {
			// Re-schedule before surfacing the error so a transient
			// failure doesn't silently drop future firings.
			it.nextFire += it.interval
			heap.Push(&q.heap, it)
			return fired, err
		}
		fired++
		it.nextFire += it.interval
		heap.Push(&q.heap, it)
	}
	return fired, nil
}

// Len reports how many entries are currently scheduled.
func (q *Queue) Len() int {
	return q.heap.Len()
}
