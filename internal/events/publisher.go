// Package events publishes import lifecycle events to NATS. Publishing is
// optional and best-effort: an import never fails because an event could
// not be delivered.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when the configuration does not name one.
const DefaultSubject = "manualforge.manual.imported"

// ManualImported is emitted after a successful commit.
type ManualImported struct {
	ManualID   string    `json:"manual_id"`
	Title      string    `json:"title"`
	Sections   int       `json:"sections"`
	Policies   int       `json:"policies"`
	ImportedBy string    `json:"imported_by"`
	ImportedAt time.Time `json:"imported_at"`
}

// Publisher wraps a NATS connection. A nil *Publisher is valid and
// publishes nothing, so callers need no enabled/disabled branching.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS at url. An empty subject selects
// DefaultSubject.
func NewPublisher(url, subject string) (*Publisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url, nats.Name("manualforge"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{conn: conn, subject: subject}, nil
}

// PublishImported sends a ManualImported event. Failures are logged, not
// returned, so commit outcomes never depend on the broker.
func (p *Publisher) PublishImported(ctx context.Context, evt ManualImported) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		slog.Warn("Failed to encode import event", "manual_id", evt.ManualID, "error", err)
		return
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		slog.Warn("Failed to publish import event", "manual_id", evt.ManualID, "error", err)
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
