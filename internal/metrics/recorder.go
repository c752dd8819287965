package metrics

import "time"

// ResultLabel enumerates page compile outcomes for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultFatal   ResultLabel = "fatal"
)

// BuildOutcomeLabel enumerates final build states.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeWarning  BuildOutcomeLabel = "warning"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for builds and page compilation.
type Recorder interface {
	ObserveCompileDuration(kind string, d time.Duration)
	IncPageResult(kind string, result ResultLabel)
	AddFilesWritten(n int)
	SetRedirects(n int)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCompileDuration(string, time.Duration) {}
func (NoopRecorder) IncPageResult(string, ResultLabel)           {}
func (NoopRecorder) AddFilesWritten(int)                         {}
func (NoopRecorder) SetRedirects(int)                            {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)          {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)           {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
