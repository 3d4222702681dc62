package processor

import (
	"errors"
	"testing"

	"github.com/jabolina/go-streamtask/collector"
	"github.com/jabolina/go-streamtask/types"
)

type recordingNode struct {
	BaseNode
	name      string
	processed []string
	fwdKey    interface{}
	fwdValue  interface{}
	forward   bool
	failWith  error
	panicWith interface{}
}

func (n *recordingNode) Init(ctx *Context) error { return nil }

func (n *recordingNode) Process(key, value interface{}) error {
	if n.panicWith != nil {
		panic(n.panicWith)
	}
	if n.failWith != nil {
		return n.failWith
	}
	n.processed = append(n.processed, key.(string))
	return nil
}

func newTopologyWithForward(t *testing.T) (*Topology, *Context, *recordingNode, *recordingNode) {
	t.Helper()
	topo := NewTopology()
	src := &recordingNode{name: "source"}
	sink := &recordingNode{name: "sink"}
	if err := topo.AddSource("in", "source", src); err != nil {
		t.Fatalf("add source: %v", err)
	}
	if err := topo.AddNode("sink", sink, "source"); err != nil {
		t.Fatalf("add node: %v", err)
	}
	ctx := NewContext(1, topo, noopScheduler{}, nil, collector.New(nil, nil))
	return topo, ctx, src, sink
}

type noopScheduler struct{}

func (noopScheduler) Schedule(node string, intervalMs int64) {}

func TestTopology_DispatchReachesSourceAndInstallsRecord(t *testing.T) {
	topo, ctx, src, _ := newTopologyWithForward(t)
	rec := &types.StampedRecord{Timestamp: 5}

	if err := topo.Dispatch(ctx, "source", rec, "k", "v"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(src.processed) != 1 || src.processed[0] != "k" {
		t.Fatalf("expected source to process %q, got %v", "k", src.processed)
	}
	// Per spec section 4.7, current-record/current-node are only cleared
	// at step 8 (StreamTask.Process calling Context.ClearCurrent after
	// commit/resume/punctuate), not the instant Dispatch returns — they
	// must still be visible here so callers in between (commit, resume,
	// punctuate) can see which record/node was just processed.
	got, ok := ctx.Record()
	if !ok || got.Timestamp != 5 {
		t.Fatalf("expected the dispatched record to still be current after Dispatch returns, got %v (ok=%v)", got, ok)
	}
	if ctx.CurrentNode() != "source" {
		t.Fatalf("expected current node restored to %q after Dispatch returns, got %q", "source", ctx.CurrentNode())
	}

	ctx.ClearCurrent()
	if _, ok := ctx.Record(); ok {
		t.Fatalf("expected current record cleared after ClearCurrent")
	}
	if ctx.CurrentNode() != "" {
		t.Fatalf("expected current node cleared after ClearCurrent, got %q", ctx.CurrentNode())
	}
}

func TestTopology_ForwardDispatchesToChildren(t *testing.T) {
	topo := NewTopology()
	sink1 := &recordingNode{}
	sink2 := &recordingNode{}
	src := &forwardingNode{}
	if err := topo.AddSource("in", "source", src); err != nil {
		t.Fatalf("add source: %v", err)
	}
	if err := topo.AddNode("sink1", sink1, "source"); err != nil {
		t.Fatalf("add sink1: %v", err)
	}
	if err := topo.AddNode("sink2", sink2, "source"); err != nil {
		t.Fatalf("add sink2: %v", err)
	}
	ctx := NewContext(1, topo, noopScheduler{}, nil, collector.New(nil, nil))
	src.ctx = ctx

	if err := topo.Dispatch(ctx, "source", &types.StampedRecord{}, "k", "v"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sink1.processed) != 1 || len(sink2.processed) != 1 {
		t.Fatalf("expected both children to receive the forwarded record, got %v %v", sink1.processed, sink2.processed)
	}
}

type forwardingNode struct {
	BaseNode
	ctx *Context
}

func (n *forwardingNode) Process(key, value interface{}) error {
	return n.ctx.Forward(key, value)
}

func TestTopology_PanicIsRecoveredAsError(t *testing.T) {
	topo, ctx, src, _ := newTopologyWithForward(t)
	src.panicWith = "boom"

	err := topo.Dispatch(ctx, "source", &types.StampedRecord{}, "k", "v")
	if err == nil {
		t.Fatalf("expected an error from a panicking node")
	}
}

func TestTopology_ErrorFromChildPropagates(t *testing.T) {
	topo := NewTopology()
	src := &forwardingNode{}
	sink := &recordingNode{failWith: errors.New("sink failed")}
	if err := topo.AddSource("in", "source", src); err != nil {
		t.Fatalf("add source: %v", err)
	}
	if err := topo.AddNode("sink", sink, "source"); err != nil {
		t.Fatalf("add sink: %v", err)
	}
	ctx := NewContext(1, topo, noopScheduler{}, nil, collector.New(nil, nil))
	src.ctx = ctx

	err := topo.Dispatch(ctx, "source", &types.StampedRecord{}, "k", "v")
	if err == nil {
		t.Fatalf("expected the sink's error to propagate")
	}
}

func TestTopology_CloseVisitsReverseRegistrationOrder(t *testing.T) {
	topo := NewTopology()
	var closed []string
	mk := func(name string) *closingNode {
		return &closingNode{name: name, order: &closed}
	}
	a := mk("a")
	b := mk("b")
	if err := topo.AddSource("in", "a", a); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := topo.AddNode("b", b, "a"); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := topo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(closed) != 2 || closed[0] != "b" || closed[1] != "a" {
		t.Fatalf("expected close order [b a], got %v", closed)
	}
}

type closingNode struct {
	BaseNode
	name  string
	order *[]string
}

func (n *closingNode) Close() error {
	*n.order = append(*n.order, n.name)
	return nil
}

func TestTopology_ForwardToRejectsNonChild(t *testing.T) {
	topo := NewTopology()
	src := &selectiveForwardNode{}
	other := &recordingNode{}
	if err := topo.AddSource("in", "source", src); err != nil {
		t.Fatalf("add source: %v", err)
	}
	if err := topo.AddNode("other", other); err != nil {
		t.Fatalf("add other: %v", err)
	}
	ctx := NewContext(1, topo, noopScheduler{}, nil, collector.New(nil, nil))
	src.ctx = ctx

	if err := topo.Dispatch(ctx, "source", &types.StampedRecord{}, "k", "v"); err == nil {
		t.Fatalf("expected ForwardTo to a non-child to fail")
	}
}

type selectiveForwardNode struct {
	BaseNode
	ctx *Context
}

func (n *selectiveForwardNode) Process(key, value interface{}) error {
	return n.ctx.ForwardTo("other", key, value)
}
