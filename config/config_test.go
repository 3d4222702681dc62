package config

import (
	"testing"
	"time"
)

func TestDefault_TimestampExtractorReturnsWallClock(t *testing.T) {
	cfg := Default()

	before := time.Now().UnixMilli()
	got := cfg.TimestampExtractor.Extract("any-topic", nil, nil)
	after := time.Now().UnixMilli()

	if got < before || got > after {
		t.Fatalf("expected extractor to return a current wall-clock timestamp in [%d, %d], got %d", before, after, got)
	}
}

func TestDefault_OtherFields(t *testing.T) {
	cfg := Default()

	if cfg.BufferedRecordsPerPartition != 1000 {
		t.Fatalf("expected 1000 buffered records per partition, got %d", cfg.BufferedRecordsPerPartition)
	}
	if cfg.CommitIntervalMS != 30000 {
		t.Fatalf("expected a 30s commit interval, got %d", cfg.CommitIntervalMS)
	}
	if cfg.NumStreamThreads != 1 {
		t.Fatalf("expected a single owning thread, got %d", cfg.NumStreamThreads)
	}
}
