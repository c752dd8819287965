// Package eventstore persists build events and derives build history from them.
package eventstore

import (
	"context"
	"time"
)

const (
	buildStatusRunning = "running"
)

// BuildSummary is a read model summarizing a completed or in-progress build.
type BuildSummary struct {
	BuildID     string        `json:"build_id"`
	Status      string        `json:"status"` // "running" or the completed outcome
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Commit      string        `json:"commit,omitempty"`
	Pages       int           `json:"pages"`
	PageErrors  int           `json:"page_errors"`
	Files       int           `json:"files"`
	Redirects   int           `json:"redirects"`
	Failures    []string      `json:"failures,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Summarize folds the events of a single build into a summary.
// Unknown event types and undecodable payloads are ignored.
func Summarize(buildID string, events []Event) *BuildSummary {
	summary := &BuildSummary{BuildID: buildID, Status: buildStatusRunning}
	for i, event := range events {
		if i == 0 {
			summary.StartedAt = event.Timestamp()
		}
		switch event.Type() {
		case TypeBuildStarted:
			summary.StartedAt = event.Timestamp()
			var p BuildStartedPayload
			if Decode(event, &p) == nil {
				summary.Commit = p.Commit
			}
		case TypePageCompiled:
			summary.Pages++
		case TypePageFailed:
			summary.PageErrors++
		case TypeBuildCompleted:
			at := event.Timestamp()
			summary.CompletedAt = &at
			summary.Duration = at.Sub(summary.StartedAt)
			var p BuildCompletedPayload
			if Decode(event, &p) == nil {
				summary.Status = p.Outcome
				summary.Files = p.Files
				summary.Redirects = p.Redirects
				summary.Failures = p.Failures
				summary.Error = p.Error
				if p.DurationMS > 0 {
					summary.Duration = time.Duration(p.DurationMS) * time.Millisecond
				}
			}
		}
	}
	return summary
}

// History returns summaries of the most recent builds, newest first.
func History(ctx context.Context, s Store, limit int) ([]*BuildSummary, error) {
	ids, err := s.Builds(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*BuildSummary, 0, len(ids))
	for _, id := range ids {
		events, err := s.GetByBuildID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, Summarize(id, events))
	}
	return out, nil
}

// Running reports whether the build has not completed yet.
func (s *BuildSummary) Running() bool { return s.Status == buildStatusRunning }
