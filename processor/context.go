package processor

import (
	"context"
	"fmt"

	"github.com/jabolina/go-streamtask/collector"
	"github.com/jabolina/go-streamtask/types"
)

// Context is the ProcessorContext of spec section 4.6: the per-task
// facade user nodes see. A single Context is created per StreamTask and
// reused across every Process/Punctuate call; its "current record" and
// "current node" fields are only valid for the duration of the call that
// set them (see Topology.dispatch's save/restore discipline).
type Context struct {
	taskID       int
	topology     *Topology
	scheduler    Scheduler
	stateManager types.StateManager
	collector    *collector.Collector

	currentRecord *types.StampedRecord
	currentNode   string
}

// NewContext creates the Context a StreamTask wires into its topology.
// taskID, scheduler, stateManager, and coll are all owned by the caller
// and outlive the Context only for as long as the owning task does —
// Context never takes ownership, matching the non-owning back-reference
// discipline spec section 9 requires.
func NewContext(taskID int, topology *Topology, scheduler Scheduler, stateManager types.StateManager, coll *collector.Collector) *Context {
	return &Context{
		taskID:       taskID,
		topology:     topology,
		scheduler:    scheduler,
		stateManager: stateManager,
		collector:    coll,
	}
}

// TaskID returns the owning task's id.
func (c *Context) TaskID() int {
	return c.taskID
}

// Record returns the record currently being processed. Valid only while
// inside a Process or Punctuate call dispatched through this Context;
// calling it outside that window returns (zero value, false).
func (c *Context) Record() (types.StampedRecord, bool) {
	if c.currentRecord == nil {
		return types.StampedRecord{}, false
	}
	return *c.currentRecord, true
}

// CurrentNode returns the name of the node currently executing.
func (c *Context) CurrentNode() string {
	return c.currentNode
}

// Forward dispatches key/value to every child of the currently-executing
// node, in registration order.
func (c *Context) Forward(key, value interface{}) error {
	return c.topology.forwardToChildren(c, c.currentNode, key, value)
}

// ForwardTo dispatches key/value to a single named child of the
// currently-executing node, regardless of how many children it has.
func (c *Context) ForwardTo(childName string, key, value interface{}) error {
	if !c.topology.isChild(c.currentNode, childName) {
		return fmt.Errorf("processor: %q is not a child of %q", childName, c.currentNode)
	}
	return c.topology.dispatchNode(c, childName, key, value)
}

// Schedule registers a punctuation for the currently-executing node,
// delegating to the task's punctuation queue.
func (c *Context) Schedule(intervalMs int64) {
	c.scheduler.Schedule(c.currentNode, intervalMs)
}

// StateManager returns the task-local state manager for register/get of
// local state stores.
func (c *Context) StateManager() types.StateManager {
	return c.stateManager
}

// Send publishes a record via the task's RecordCollector, for use by sink
// nodes. partitioner may be nil to let the producer assign a partition.
func (c *Context) Send(ctx context.Context, topic string, key, value []byte, partitioner collector.Partitioner) error {
	return c.collector.Send(ctx, topic, key, value, partitioner)
}

// ClearCurrent clears the current record and node. Called by
// StreamTask.Process as step 8 of spec section 4.7, after commit,
// resume, and punctuation have all run against the just-processed
// record.
func (c *Context) ClearCurrent() {
	c.currentRecord = nil
	c.currentNode = ""
}

// setCurrent saves the prior (record, node) pair and installs a new one,
// returning a restore function. Used by Topology.dispatch to implement
// the save/restore discipline spec section 9 requires for re-entrant
// Forward calls.
func (c *Context) setCurrent(rec *types.StampedRecord, node string) (restore func()) {
	prevRecord, prevNode := c.currentRecord, c.currentNode
	c.currentRecord, c.currentNode = rec, node
	return func() {
		c.currentRecord, c.currentNode = prevRecord, prevNode
	}
}
