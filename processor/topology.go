package processor

import (
	"fmt"

	"github.com/jabolina/go-streamtask/types"
)

// Topology is the ProcessorTopology of spec section 4.7/6: a wired graph
// of source, intermediate, and sink nodes, addressed by name. Source
// nodes are the entry points RecordQueues dispatch deserialized records
// to; every node's children receive whatever it Forwards.
type Topology struct {
	nodes    map[string]Node
	children map[string][]string
	sources  map[string]string // topic -> source node name
	order    []string          // registration order, for deterministic Close
}

// NewTopology creates an empty, unwired Topology.
func NewTopology() *Topology {
	return &Topology{
		nodes:    make(map[string]Node),
		children: make(map[string][]string),
		sources:  make(map[string]string),
	}
}

// AddSource registers node under name as the entry point for topic.
func (t *Topology) AddSource(topic, name string, node Node) error {
	if err := t.addNode(name, node); err != nil {
		return err
	}
	t.sources[topic] = name
	return nil
}

// AddNode registers an intermediate or sink node under name, wired as a
// child of each entry in parents. Parents must already be registered.
func (t *Topology) AddNode(name string, node Node, parents ...string) error {
	if err := t.addNode(name, node); err != nil {
		return err
	}
	for _, p := range parents {
		if _, ok := t.nodes[p]; !ok {
			return fmt.Errorf("processor: unknown parent %q for node %q", p, name)
		}
		t.children[p] = append(t.children[p], name)
	}
	return nil
}

func (t *Topology) addNode(name string, node Node) error {
	if _, exists := t.nodes[name]; exists {
		return fmt.Errorf("processor: node %q already registered", name)
	}
	t.nodes[name] = node
	t.order = append(t.order, name)
	return nil
}

// Source returns the name of the source node wired to topic, and whether
// one was registered.
func (t *Topology) Source(topic string) (string, bool) {
	name, ok := t.sources[topic]
	return name, ok
}

// Init calls Init(ctx) on every registered node, in registration order.
func (t *Topology) Init(ctx *Context) error {
	for _, name := range t.order {
		if err := t.nodes[name].Init(ctx); err != nil {
			return fmt.Errorf("processor: init node %q: %w", name, err)
		}
	}
	return nil
}

// dispatchNode delivers key/value to the named node with the
// save/restore discipline spec section 9 requires: ctx's current-node is
// switched to name for the duration of the call and restored to whatever
// it was before on return (ctx's current-record is left untouched, so
// nested Forward calls keep seeing the record that entered the topology
// at the top). A panic escaping user code is recovered and converted to
// an error naming the offending node, per spec section 7's rendition.
func (t *Topology) dispatchNode(ctx *Context, name string, key, value interface{}) (err error) {
	node, ok := t.nodes[name]
	if !ok {
		return fmt.Errorf("processor: unknown node %q", name)
	}
	restore := ctx.setCurrent(ctx.currentRecord, name)
	defer restore()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor: node %q panicked: %v", name, r)
		}
	}()
	return node.Process(key, value)
}

// Dispatch is the exported entry point StreamTask uses to deliver a
// StampedRecord's deserialized key/value to its source node. rec is
// installed as the context's current record and sourceNode as the
// current node; unlike dispatchNode (used for every nested Forward this
// call triggers), Dispatch does NOT restore current-record/current-node
// on return. Per spec section 4.7, current-node is only required to be
// back at sourceNode by the end of step 3 — which nested dispatchNode's
// own save/restore already guarantees — and current-record/current-node
// are cleared only at step 8, after commit/resume/punctuate have run.
// StreamTask.Process calls Context.ClearCurrent explicitly for that.
func (t *Topology) Dispatch(ctx *Context, sourceNode string, rec *types.StampedRecord, key, value interface{}) (err error) {
	node, ok := t.nodes[sourceNode]
	if !ok {
		return fmt.Errorf("processor: unknown node %q", sourceNode)
	}
	ctx.currentRecord = rec
	ctx.currentNode = sourceNode
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor: node %q panicked: %v", sourceNode, r)
		}
	}()
	return node.Process(key, value)
}

// forwardToChildren dispatches key/value to every child of parent, in
// registration order. Called by Context.Forward.
func (t *Topology) forwardToChildren(ctx *Context, parent string, key, value interface{}) error {
	for _, child := range t.children[parent] {
		if err := t.dispatchNode(ctx, child, key, value); err != nil {
			return err
		}
	}
	return nil
}

// isChild reports whether child is a direct registered child of parent.
func (t *Topology) isChild(parent, child string) bool {
	for _, c := range t.children[parent] {
		if c == child {
			return true
		}
	}
	return false
}

// Punctuate invokes Punctuate(streamTime) on the named node, switching
// ctx's current-node to it for the duration of the call (current-record
// is left as-is, matching spec section 4.7 step 7: punctuation fires
// before current_record is cleared at step 8).
func (t *Topology) Punctuate(ctx *Context, name string, streamTime int64) (err error) {
	node, ok := t.nodes[name]
	if !ok {
		return fmt.Errorf("processor: unknown node %q", name)
	}
	restore := ctx.setCurrent(ctx.currentRecord, name)
	defer restore()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor: node %q panicked during punctuate: %v", name, r)
		}
	}()
	return node.Punctuate(streamTime)
}

// Close closes every registered node in reverse registration order,
// matching the spec's "sink nodes close before their sources" intent for
// a topology built source-first. The first error encountered is
// returned after every node has had a chance to close.
func (t *Topology) Close() error {
	var first error
	for i := len(t.order) - 1; i >= 0; i-- {
		name := t.order[i]
		if err := t.nodes[name].Close(); err != nil && first == nil {
			first = fmt.Errorf("processor: close node %q: %w", name, err)
		}
	}
	return first
}
