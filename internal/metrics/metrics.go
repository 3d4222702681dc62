// Package metrics wires the engine's observable counters/gauges into
// Prometheus, the instrumentation library used throughout the retrieval
// pack (grafana-tempo most heavily, but also the teacher's own
// prometheus/common dependency).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink is the metrics surface a StreamTask reports against. A Registry
// backed by Prometheus collectors is the default; NopSink is available
// for tests that do not want to register global collectors.
type Sink interface {
	SetBufferedRecords(taskID int, partition string, n int)
	IncPause(taskID int, partition string)
	IncResume(taskID int, partition string)
	IncPunctuate(taskID int, node string)
	IncRecordsProcessed(taskID int, partition string)
	ObserveCommitStage(taskID int, stage string, d time.Duration)
}

// Registry is the default Prometheus-backed Sink. Each instance creates
// its own collectors and registers them against the prometheus.Registerer
// given to NewRegistry; two instances registered against the same
// Registerer collide (MustRegister panics).
type Registry struct {
	bufferedRecords   *prometheus.GaugeVec
	pauseTotal        *prometheus.CounterVec
	resumeTotal       *prometheus.CounterVec
	punctuateTotal    *prometheus.CounterVec
	recordsProcessed  *prometheus.CounterVec
	commitDuration    *prometheus.HistogramVec
}

// NewRegistry creates a Registry and registers its collectors against
// reg. Pass prometheus.NewRegistry() in tests to avoid touching the
// global default registry.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		bufferedRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "streamtask",
			Name:      "buffered_records",
			Help:      "Number of records currently buffered per partition.",
		}, []string{"task_id", "partition"}),
		pauseTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamtask",
			Name:      "pause_total",
			Help:      "Number of times the fetcher was paused for a partition.",
		}, []string{"task_id", "partition"}),
		resumeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamtask",
			Name:      "resume_total",
			Help:      "Number of times the fetcher was resumed for a partition.",
		}, []string{"task_id", "partition"}),
		punctuateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamtask",
			Name:      "punctuate_total",
			Help:      "Number of punctuate firings per node.",
		}, []string{"task_id", "node"}),
		recordsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamtask",
			Name:      "records_processed_total",
			Help:      "Number of records fully processed per partition.",
		}, []string{"task_id", "partition"}),
		commitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "streamtask",
			Name:      "commit_stage_seconds",
			Help:      "Duration of each commit sub-stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task_id", "stage"}),
	}
	reg.MustRegister(
		r.bufferedRecords,
		r.pauseTotal,
		r.resumeTotal,
		r.punctuateTotal,
		r.recordsProcessed,
		r.commitDuration,
	)
	return r
}

func taskLabel(taskID int) string {
	return itoa(taskID)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (r *Registry) SetBufferedRecords(taskID int, partition string, n int) {
	r.bufferedRecords.WithLabelValues(taskLabel(taskID), partition).Set(float64(n))
}

func (r *Registry) IncPause(taskID int, partition string) {
	r.pauseTotal.WithLabelValues(taskLabel(taskID), partition).Inc()
}

func (r *Registry) IncResume(taskID int, partition string) {
	r.resumeTotal.WithLabelValues(taskLabel(taskID), partition).Inc()
}

func (r *Registry) IncPunctuate(taskID int, node string) {
	r.punctuateTotal.WithLabelValues(taskLabel(taskID), node).Inc()
}

func (r *Registry) IncRecordsProcessed(taskID int, partition string) {
	r.recordsProcessed.WithLabelValues(taskLabel(taskID), partition).Inc()
}

func (r *Registry) ObserveCommitStage(taskID int, stage string, d time.Duration) {
	r.commitDuration.WithLabelValues(taskLabel(taskID), stage).Observe(d.Seconds())
}

// NopSink discards every observation. Used by unit tests that construct a
// StreamTask without caring about metrics.
type NopSink struct{}

func (NopSink) SetBufferedRecords(taskID int, partition string, n int)        {}
func (NopSink) IncPause(taskID int, partition string)                        {}
func (NopSink) IncResume(taskID int, partition string)                       {}
func (NopSink) IncPunctuate(taskID int, node string)                         {}
func (NopSink) IncRecordsProcessed(taskID int, partition string)             {}
func (NopSink) ObserveCommitStage(taskID int, stage string, d time.Duration) {}
