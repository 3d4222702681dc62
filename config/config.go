// Package config carries the recognized configuration options from
// spec.md section 6, following the teacher's plain-struct-plus-Default
// constructor style (types.PeerConfiguration / types.BaseConfiguration).
package config

import (
	"time"

	"github.com/jabolina/go-streamtask/types"
)

// TaskConfig configures a single StreamTask.
type TaskConfig struct {
	// TaskID identifies the task for logging/metrics labeling.
	TaskID int

	// Partitions is the fixed set of topic-partitions this task owns for
	// its lifetime.
	Partitions []types.TopicPartition

	// BufferedRecordsPerPartition is buffered.records.per.partition: the
	// pause threshold (strict >) and resume threshold (equality).
	BufferedRecordsPerPartition int

	// TimestampExtractor implements timestamp.extractor.
	TimestampExtractor types.TimestampExtractor

	// CommitIntervalMS is commit.interval.ms: the cadence at which the
	// owning thread calls StreamTask.RequestCommit.
	CommitIntervalMS int64

	// NumStreamThreads is num.stream.threads, recorded here for the
	// owning thread pool; the core task itself ignores it.
	NumStreamThreads int
}

// wallClockExtractor uses the current time as the record timestamp. This
// is only a reasonable default for demos/tests; real deployments are
// expected to supply a TimestampExtractor that reads an embedded event
// time instead.
type wallClockExtractor struct{}

func (wallClockExtractor) Extract(topic string, key, value []byte) int64 {
	return time.Now().UnixMilli()
}

// Default returns a TaskConfig with conservative defaults: 1000 buffered
// records per partition, a 30s commit interval, a single owning thread,
// and a wall-clock extractor (caller must supply a real one for anything
// that needs event-time semantics instead of ingestion-time).
func Default() TaskConfig {
	return TaskConfig{
		BufferedRecordsPerPartition: 1000,
		TimestampExtractor:          wallClockExtractor{},
		CommitIntervalMS:            30000,
		NumStreamThreads:            1,
	}
}
