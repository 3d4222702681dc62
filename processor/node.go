// Package processor implements the ProcessorContext and ProcessorTopology
// of spec sections 4.6 and 4.7: the wired node graph user code runs
// against, and the per-task facade (current record, forward, schedule,
// state-manager access) that graph's nodes see. The two live in one
// package because they are mutually recursive — Context.Forward must
// dispatch back into the Topology, and the Topology hands each Node a
// *Context on Init — which the teacher's own core package (Deliver, Peer,
// Transport wired together) also keeps as one tightly-coupled unit rather
// than splitting along an artificial seam.
package processor

// Node is the processor-topology contract from spec section 6: every
// source, intermediate, and sink node implements it.
type Node interface {
	// Init is called once, before any record reaches this node.
	Init(ctx *Context) error
	// Process handles one deserialized record. Source nodes receive the
	// record that arrived on their topic; intermediate/sink nodes
	// receive whatever a parent forwarded to them.
	Process(key, value interface{}) error
	// Punctuate is invoked when this node's scheduled punctuation (if
	// any) fires, with the current stream time.
	Punctuate(streamTime int64) error
	// Close releases any resources the node holds.
	Close() error
}

// Scheduler is the subset of StreamTask's punctuation queue a Context
// needs, kept as a narrow interface so this package never imports task
// (which owns the real punctuation.Queue) — the same non-owning,
// bounded-lifetime back-reference discipline spec section 9 calls for.
type Scheduler interface {
	Schedule(node string, intervalMs int64)
}

// BaseNode is an embeddable no-op Node implementation; user nodes that
// don't need one or more lifecycle hooks can embed it, matching the
// "small interface, optional embedding" idiom used across the pack.
type BaseNode struct{}

func (BaseNode) Init(ctx *Context) error              { return nil }
func (BaseNode) Process(key, value interface{}) error { return nil }
func (BaseNode) Punctuate(streamTime int64) error     { return nil }
func (BaseNode) Close() error                         { return nil }
