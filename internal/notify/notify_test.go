package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/retry"
)

type fakeConn struct {
	subject    string
	data       []byte
	publishErr error
	flushErr   error
	closed     bool
	// failures makes the first calls to Publish fail.
	failures  int
	publishes int
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.publishes++
	f.subject = subj
	f.data = data
	if f.publishes <= f.failures {
		return stderrors.New("not connected")
	}
	return f.publishErr
}

func (f *fakeConn) FlushWithContext(context.Context) error { return f.flushErr }
func (f *fakeConn) Close()                                 { f.closed = true }

func TestPublisher_BuildCompleted(t *testing.T) {
	fc := &fakeConn{}
	p := &Publisher{conn: fc, subject: "pagebuilder.builds"}

	err := p.BuildCompleted(context.Background(), BuildCompleted{BuildID: "b1", Outcome: "success", Files: 3})
	require.NoError(t, err)
	assert.Equal(t, "pagebuilder.builds", fc.subject)

	var got BuildCompleted
	require.NoError(t, json.Unmarshal(fc.data, &got))
	assert.Equal(t, "b1", got.BuildID)
	assert.Equal(t, 3, got.Files)
	assert.False(t, got.Timestamp.IsZero())

	p.Close()
	assert.True(t, fc.closed)
}

func TestPublisher_Errors(t *testing.T) {
	tests := []struct {
		name string
		conn *fakeConn
	}{
		{"publish", &fakeConn{publishErr: stderrors.New("no connection")}},
		{"flush", &fakeConn{flushErr: stderrors.New("timeout")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Publisher{conn: tt.conn, subject: "s"}
			err := p.BuildCompleted(context.Background(), BuildCompleted{BuildID: "b"})
			require.Error(t, err)
			ce, ok := errors.AsClassified(err)
			require.True(t, ok)
			assert.Equal(t, errors.CategoryNetwork, ce.Category())
		})
	}
}

func TestPublisher_Retries(t *testing.T) {
	fc := &fakeConn{failures: 2}
	p := &Publisher{conn: fc, subject: "s", policy: retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 2)}

	require.NoError(t, p.BuildCompleted(context.Background(), BuildCompleted{BuildID: "b"}))
	assert.Equal(t, 3, fc.publishes)

	fc = &fakeConn{failures: 5}
	p = &Publisher{conn: fc, subject: "s", policy: retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 1)}
	err := p.BuildCompleted(context.Background(), BuildCompleted{BuildID: "b"})
	require.Error(t, err)
	assert.Equal(t, 2, fc.publishes)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	attempts, _ := ce.Context().Get("attempts")
	assert.Equal(t, 2, attempts)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "s", retry.DefaultPolicy())
	require.Error(t, err)
}

func TestNoop(t *testing.T) {
	var n Notifier = Noop{}
	assert.NoError(t, n.BuildCompleted(context.Background(), BuildCompleted{}))
	n.Close()
}
