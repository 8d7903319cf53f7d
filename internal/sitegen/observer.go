package sitegen

import (
	stdcontext "context"
	stderrors "errors"
	"time"

	"git.home.luguber.info/inful/homeshow/internal/metrics"
)

// Observer receives stage transitions while a job runs. The GUI/CLI
// progress surface and the metrics recorder both hang off this.
type Observer interface {
	StageStarted(jobID string, stage StageName)
	StageFinished(jobID string, stage StageName, d time.Duration, err error)
}

// NoopObserver ignores everything.
type NoopObserver struct{}

func (NoopObserver) StageStarted(string, StageName)                        {}
func (NoopObserver) StageFinished(string, StageName, time.Duration, error) {}

// RecorderObserver forwards stage transitions to a metrics recorder.
type RecorderObserver struct {
	Recorder metrics.Recorder
}

func (o RecorderObserver) StageStarted(string, StageName) {}

func (o RecorderObserver) StageFinished(_ string, stage StageName, d time.Duration, err error) {
	o.Recorder.ObserveStageDuration(string(stage), d)
	o.Recorder.IncStageResult(string(stage), resultLabel(err))
}

// Observers fans out to several observers in order.
type Observers []Observer

func (os Observers) StageStarted(jobID string, stage StageName) {
	for _, o := range os {
		o.StageStarted(jobID, stage)
	}
}

func (os Observers) StageFinished(jobID string, stage StageName, d time.Duration, err error) {
	for _, o := range os {
		o.StageFinished(jobID, stage, d, err)
	}
}

func resultLabel(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case stderrors.Is(err, stdcontext.Canceled), stderrors.Is(err, stdcontext.DeadlineExceeded):
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}
