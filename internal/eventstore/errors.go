package eventstore

import (
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.EventStoreError("could not open build history database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.EventStoreError("failed to initialize build history schema").Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = errors.EventStoreError("failed to append event to store").Build()

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = errors.EventStoreError("failed to query events from store").Build()

	// ErrEventScanFailed indicates scanning event rows failed.
	ErrEventScanFailed = errors.EventStoreError("failed to scan event rows").Build()

	// ErrMarshalPayloadFailed indicates JSON marshaling of an event payload failed.
	ErrMarshalPayloadFailed = errors.EventStoreError("failed to marshal event payload").Build()

	// ErrUnmarshalPayloadFailed indicates JSON unmarshaling of an event payload failed.
	ErrUnmarshalPayloadFailed = errors.EventStoreError("failed to unmarshal event payload").Build()
)

func wrap(err error, sentinel *errors.ClassifiedError) error {
	return errors.WrapError(err, sentinel.Category(), sentinel.Message()).Build()
}
