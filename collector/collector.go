// Package collector implements the RecordCollector of spec section 4.5:
// it accepts records from sink nodes, routes them to a types.Producer,
// and tracks the highest acknowledged offset per output partition.
package collector

import (
	"context"
	"fmt"
	"sync"

	"github.com/jabolina/go-streamtask/internal/logging"
	"github.com/jabolina/go-streamtask/types"
)

// Partitioner picks an output partition for a keyed record. Returning a
// negative value lets the underlying producer assign one.
type Partitioner func(topic string, key []byte, value []byte) int32

// Collector is the RecordCollector. It is safe for concurrent Send calls
// (sink nodes may, in principle, be invoked in parallel by a future
// multi-threaded topology dispatcher) but StreamTask only ever drives it
// from its own single-threaded process loop today.
type Collector struct {
	producer types.Producer
	logger   logging.Logger

	mu             sync.Mutex
	highestOffsets map[types.TopicPartition]int64
}

// New creates a Collector sending through producer.
func New(producer types.Producer, logger logging.Logger) *Collector {
	return &Collector{
		producer:       producer,
		logger:         logger,
		highestOffsets: make(map[types.TopicPartition]int64),
	}
}

// Send publishes key/value to topic. If partitioner is non-nil and
// returns a non-negative value, that partition is requested explicitly;
// otherwise the producer assigns one. Send returns once the producer's
// Send returns the acknowledged partition/offset, which is then recorded
// for HighestOffset; Flush waits for durability of everything sent.
func (c *Collector) Send(ctx context.Context, topic string, key, value []byte, partitioner Partitioner) error {
	var partition *int32
	if partitioner != nil {
		if p := partitioner(topic, key, value); p >= 0 {
			partition = &p
		}
	}

	tp, offset, err := c.producer.Send(ctx, topic, partition, key, value)

	if err == nil {
		c.mu.Lock()
		if cur, ok := c.highestOffsets[tp]; !ok || offset > cur {
			c.highestOffsets[tp] = offset
		}
		c.mu.Unlock()
	}

	if err != nil {
		c.logger.Errorf("collector: failed sending to %s: %v", topic, err)
		return fmt.Errorf("collector: send to %s: %w", topic, err)
	}
	return nil
}

// Flush blocks until every record submitted before the call is durable.
// After Flush returns nil, HighestOffset reflects every acknowledged
// send issued before this call.
func (c *Collector) Flush(ctx context.Context) error {
	if err := c.producer.Flush(ctx); err != nil {
		c.logger.Errorf("collector: flush failed: %v", err)
		return fmt.Errorf("collector: flush: %w", err)
	}
	return nil
}

// HighestOffset returns the highest offset acknowledged so far for
// partition, or (0, false) if nothing has been acknowledged yet.
func (c *Collector) HighestOffset(partition types.TopicPartition) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	off, ok := c.highestOffsets[partition]
	return off, ok
}
