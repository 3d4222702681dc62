// Command taskdemo wires a StreamTask to an in-memory fetcher/producer
// through a small pass-through -> uppercasing -> sink topology: it drains
// the fetcher into the task in one AddRecords call, calls Process once per
// pushed record, then commits and closes. It exercises the full AddRecords -> Process -> Commit -> Close
// lifecycle end to end without a live Kafka cluster, per SPEC_FULL.md
// section 4.8.4.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jabolina/go-streamtask/config"
	"github.com/jabolina/go-streamtask/internal/logging"
	"github.com/jabolina/go-streamtask/internal/metrics"
	"github.com/jabolina/go-streamtask/kafka"
	"github.com/jabolina/go-streamtask/processor"
	"github.com/jabolina/go-streamtask/statestore"
	"github.com/jabolina/go-streamtask/task"
	"github.com/jabolina/go-streamtask/types"
)

func main() {
	records := flag.Int("records", 20, "number of demo records to push through the task")
	maxBuffered := flag.Int("buffered", 5, "buffered.records.per.partition")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := logging.New(os.Stdout)
	logger.ToggleDebug(*debug)

	if err := run(*records, *maxBuffered, logger); err != nil {
		logger.Fatalf("taskdemo: %v", err)
	}
}

const inputTopic = "words"
const outputTopic = "words-upper"

// identityDeserializer hands the raw key/value bytes straight through as
// the topology's key/value objects; a real deployment would plug in a
// schema-aware deserializer here instead.
func identityDeserializer(raw types.RawRecord) (interface{}, interface{}, error) {
	return raw.Key, raw.Value, nil
}

func run(numRecords, maxBuffered int, logger logging.Logger) error {
	fetcher := kafka.NewMemoryFetcher()
	producer := kafka.NewMemoryProducer()
	store := statestore.New()

	topo := processor.NewTopology()
	source := &passThroughNode{}
	upper := &uppercaseNode{}
	sink := &sinkNode{topic: outputTopic}

	if err := topo.AddSource(inputTopic, "source", source); err != nil {
		return fmt.Errorf("wiring source: %w", err)
	}
	if err := topo.AddNode("upper", upper, "source"); err != nil {
		return fmt.Errorf("wiring upper: %w", err)
	}
	if err := topo.AddNode("sink", sink, "upper"); err != nil {
		return fmt.Errorf("wiring sink: %w", err)
	}

	partition := types.TopicPartition{Topic: inputTopic, Partition: 0}
	cfg := config.Default()
	cfg.TaskID = 1
	cfg.Partitions = []types.TopicPartition{partition}
	cfg.BufferedRecordsPerPartition = maxBuffered
	cfg.TimestampExtractor = types.TimestampExtractorFunc(func(topic string, key, value []byte) int64 {
		return time.Now().UnixMilli()
	})

	reg := metrics.NewRegistry(prometheus.NewRegistry())

	st, err := task.New(cfg, topo, fetcher, producer, store, logger, reg)
	if err != nil {
		return fmt.Errorf("constructing task: %w", err)
	}

	ctx := context.Background()
	for i := 0; i < numRecords; i++ {
		fetcher.Push(partition, types.RawRecord{
			TopicPartition: partition,
			Offset:         int64(i),
			Key:            []byte(strconv.Itoa(i)),
			Value:          []byte(fmt.Sprintf("hello-%d", i)),
		})
	}
	if raws := fetcher.Drain(partition); len(raws) > 0 {
		if err := st.AddRecords(partition, raws, identityDeserializer); err != nil {
			return fmt.Errorf("add records: %w", err)
		}
	}

	for i := 0; i < numRecords; i++ {
		if _, err := st.Process(ctx); err != nil {
			return fmt.Errorf("process: %w", err)
		}
	}

	if err := st.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.Infof("taskdemo: processed %d records, produced %d to %q", numRecords, len(producer.Sent()), outputTopic)

	return st.Close()
}

// passThroughNode forwards every source record unchanged.
type passThroughNode struct {
	processor.BaseNode
	ctx *processor.Context
}

func (n *passThroughNode) Init(ctx *processor.Context) error {
	n.ctx = ctx
	return nil
}

func (n *passThroughNode) Process(key, value interface{}) error {
	return n.ctx.Forward(key, value)
}

// uppercaseNode upper-cases the byte-slice value and forwards it on.
type uppercaseNode struct {
	processor.BaseNode
	ctx *processor.Context
}

func (n *uppercaseNode) Init(ctx *processor.Context) error {
	n.ctx = ctx
	return nil
}

func (n *uppercaseNode) Process(key, value interface{}) error {
	v, _ := value.([]byte)
	return n.ctx.Forward(key, bytes.ToUpper(v))
}

// sinkNode publishes the final record via the task's RecordCollector.
type sinkNode struct {
	processor.BaseNode
	ctx   *processor.Context
	topic string
}

func (n *sinkNode) Init(ctx *processor.Context) error {
	n.ctx = ctx
	return nil
}

func (n *sinkNode) Process(key, value interface{}) error {
	k, _ := key.([]byte)
	v, _ := value.([]byte)
	return n.ctx.Send(context.Background(), n.topic, k, v, nil)
}
