// Package notify publishes build completion messages to NATS.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/retry"
)

const flushTimeout = 5 * time.Second

// BuildCompleted is the message published after every build.
type BuildCompleted struct {
	BuildID    string    `json:"build_id"`
	Outcome    string    `json:"outcome"`
	Files      int       `json:"files"`
	Redirects  int       `json:"redirects"`
	Failures   int       `json:"failures"`
	DurationMS int64     `json:"duration_ms"`
	Commit     string    `json:"commit,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier receives build completion messages.
type Notifier interface {
	BuildCompleted(ctx context.Context, msg BuildCompleted) error
	Close()
}

// Noop discards every message.
type Noop struct{}

func (Noop) BuildCompleted(context.Context, BuildCompleted) error { return nil }
func (Noop) Close()                                               {}

var _ Notifier = (*Publisher)(nil)

// conn is the subset of *nats.Conn used by Publisher.
type conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Publisher sends messages on a NATS subject. Failed publishes are retried
// according to policy.
type Publisher struct {
	conn    conn
	subject string
	policy  retry.Policy
}

// Connect dials url and returns a Publisher for subject.
func Connect(url, subject string, policy retry.Policy) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("pagebuilder"), nats.MaxReconnects(3))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS notifications enabled", logfields.URL(url), slog.String("subject", subject))
	return &Publisher{conn: nc, subject: subject, policy: policy}, nil
}

// BuildCompleted publishes msg and waits for the server to acknowledge the flush.
func (p *Publisher) BuildCompleted(ctx context.Context, msg BuildCompleted) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal build notification").Build()
	}
	attempts := 0
	err = p.policy.Do(ctx, func() error {
		attempts++
		return p.publish(ctx, data)
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to publish build notification").
			WithContext("subject", p.subject).
			WithContext("attempts", attempts).
			Build()
	}

	slog.Debug("Published build notification",
		logfields.BuildID(msg.BuildID),
		slog.String("subject", p.subject),
		slog.String("outcome", msg.Outcome))
	return nil
}

func (p *Publisher) publish(ctx context.Context, data []byte) error {
	if err := p.conn.Publish(p.subject, data); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	return p.conn.FlushWithContext(ctx)
}

// Close closes the connection.
func (p *Publisher) Close() {
	p.conn.Close()
}
