package eventstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventConstructors(t *testing.T) {
	started, err := NewBuildStarted(testBuildID, BuildStartedPayload{Root: "site", OutputDir: "_site", Commit: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, TypeBuildStarted, started.Type())
	assert.Equal(t, testBuildID, started.BuildID())
	assert.WithinDuration(t, time.Now(), started.Timestamp(), time.Minute)

	var p BuildStartedPayload
	require.NoError(t, Decode(started, &p))
	assert.Equal(t, "abc123", p.Commit)

	failed, err := NewPageFailed(testBuildID, PagePayload{Source: "_pages/a.html", Kind: "static", Error: "boom"})
	require.NoError(t, err)
	assert.Equal(t, TypePageFailed, failed.Type())
	assert.Contains(t, string(failed.Payload()), `"error":"boom"`)
}

func TestDecode_InvalidPayload(t *testing.T) {
	e := &BaseEvent{EventPayload: []byte("not json")}
	var p PagePayload
	err := Decode(e, &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnmarshalPayloadFailed)
}

func TestHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := func(e *BaseEvent, err error) {
		t.Helper()
		require.NoError(t, err)
		require.NoError(t, Record(ctx, s, e))
	}

	record(NewBuildStarted("first", BuildStartedPayload{Commit: "c1"}))
	record(NewPageCompiled("first", PagePayload{Source: "index.html", Kind: "static", Files: []string{"index.html"}}))
	record(NewPageFailed("first", PagePayload{Source: "bad.html", Kind: "static", Error: "undefined variable"}))
	record(NewBuildCompleted("first", BuildCompletedPayload{
		Outcome: "warning", Files: 1, Redirects: 2, Failures: []string{"bad.html: undefined variable"}, DurationMS: 1500,
	}))
	record(NewBuildStarted("second", BuildStartedPayload{}))

	history, err := History(ctx, s, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "second", history[0].BuildID)
	assert.True(t, history[0].Running())
	assert.Nil(t, history[0].CompletedAt)

	first := history[1]
	assert.Equal(t, "warning", first.Status)
	assert.Equal(t, "c1", first.Commit)
	assert.Equal(t, 1, first.Pages)
	assert.Equal(t, 1, first.PageErrors)
	assert.Equal(t, 1, first.Files)
	assert.Equal(t, 2, first.Redirects)
	assert.Equal(t, 1500*time.Millisecond, first.Duration)
	require.NotNil(t, first.CompletedAt)
	assert.Len(t, first.Failures, 1)
}

func TestSummarize_IgnoresUnknownEvents(t *testing.T) {
	events := []Event{
		&BaseEvent{EventType: "Custom", EventTimestamp: time.Unix(10, 0), EventPayload: []byte("{}")},
		&BaseEvent{EventType: TypeBuildCompleted, EventTimestamp: time.Unix(12, 0), EventPayload: []byte("garbage")},
	}
	s := Summarize("x", events)
	assert.Equal(t, time.Unix(10, 0), s.StartedAt)
	assert.Equal(t, 2*time.Second, s.Duration)
	assert.True(t, s.Running())
}
