package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jabolina/go-streamtask/internal/logging"
)

// S8: run drives the full AddRecords -> Process -> Commit -> Close
// lifecycle without a live Kafka cluster; the test checks that it returns
// no error and logs its summary line. The producer's sent log is internal
// to run and is not inspected here.
func TestRun_SmokeEndToEnd(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf)

	if err := run(5, 2, logger); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "processed 5 records") {
		t.Fatalf("expected a summary log line, got: %s", buf.String())
	}
}

func TestRun_BufferSmallerThanBatchStillDrains(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf)

	if err := run(10, 1, logger); err != nil {
		t.Fatalf("run with a tight buffer: %v", err)
	}
}
