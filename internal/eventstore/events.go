package eventstore

import (
	"context"
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// Event type names.
const (
	TypeBuildStarted   = "BuildStarted"
	TypePageCompiled   = "PageCompiled"
	TypePageFailed     = "PageFailed"
	TypeBuildCompleted = "BuildCompleted"
)

// BuildStartedPayload describes the inputs of a build.
type BuildStartedPayload struct {
	Root      string `json:"root"`
	OutputDir string `json:"output_dir"`
	Drafts    bool   `json:"drafts"`
	Commit    string `json:"commit,omitempty"`
}

// PagePayload describes one compiled or failed PageView.
type PagePayload struct {
	Source     string   `json:"source"`
	Kind       string   `json:"kind"`
	Files      []string `json:"files,omitempty"`
	DurationMS int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// BuildCompletedPayload summarizes a finished build.
type BuildCompletedPayload struct {
	Outcome    string   `json:"outcome"`
	Pages      int      `json:"pages"`
	Files      int      `json:"files"`
	Redirects  int      `json:"redirects"`
	Failures   []string `json:"failures,omitempty"`
	DurationMS int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

func newEvent(buildID, eventType string, payload any) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryEventStore, "failed to marshal event payload").
			WithContext("build_id", buildID).
			WithContext("type", eventType).
			Build()
	}
	return &BaseEvent{
		EventBuildID:   buildID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(buildID string, p BuildStartedPayload) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildStarted, p)
}

// NewPageCompiled creates a PageCompiled event.
func NewPageCompiled(buildID string, p PagePayload) (*BaseEvent, error) {
	return newEvent(buildID, TypePageCompiled, p)
}

// NewPageFailed creates a PageFailed event.
func NewPageFailed(buildID string, p PagePayload) (*BaseEvent, error) {
	return newEvent(buildID, TypePageFailed, p)
}

// NewBuildCompleted creates a BuildCompleted event.
func NewBuildCompleted(buildID string, p BuildCompletedPayload) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildCompleted, p)
}

// Record appends e to s.
func Record(ctx context.Context, s Store, e Event) error {
	return s.Append(ctx, e.BuildID(), e.Type(), e.Payload(), e.Metadata())
}
