package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for generation and stage metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. The
// NoopRecorder allows optional injection.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveJobDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncJobOutcome(outcome string) // outcome: completed|failed|canceled
	IncWriteRetry()
	IncAssetsProcessed(n int)
	IncAssetsDeduplicated(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveJobDuration(time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncJobOutcome(string)                       {}
func (NoopRecorder) IncWriteRetry()                             {}
func (NoopRecorder) IncAssetsProcessed(int)                     {}
func (NoopRecorder) IncAssetsDeduplicated(int)                  {}
