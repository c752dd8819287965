package eventstore

import (
	"encoding/json"
	"time"
)

// Event is a stored build event.
type Event interface {
	ID() int64
	BuildID() string
	Type() string
	Timestamp() time.Time
	// Payload returns the JSON encoded event data.
	Payload() []byte
	Metadata() map[string]string
}

// BaseEvent provides a default implementation of Event.
type BaseEvent struct {
	EventID        int64
	EventBuildID   string
	EventType      string
	EventTimestamp time.Time
	EventPayload   []byte
	EventMetadata  map[string]string
}

func (e *BaseEvent) ID() int64                   { return e.EventID }
func (e *BaseEvent) BuildID() string             { return e.EventBuildID }
func (e *BaseEvent) Type() string                { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time        { return e.EventTimestamp }
func (e *BaseEvent) Payload() []byte             { return e.EventPayload }
func (e *BaseEvent) Metadata() map[string]string { return e.EventMetadata }

// Decode unmarshals the payload of e into v.
func Decode(e Event, v any) error {
	if err := json.Unmarshal(e.Payload(), v); err != nil {
		return wrap(err, ErrUnmarshalPayloadFailed)
	}
	return nil
}
