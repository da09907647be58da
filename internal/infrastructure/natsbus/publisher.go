package natsbus

import (
	"context"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/nats-io/nats.go"

	"github.com/facility-hub/facility-hub/internal/domain/notification"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends CBOR-encoded transition events to
// <prefix>.<action>.<requestId>.
type Publisher struct {
	conn   Conn
	prefix string
	enc    cbor.EncMode
}

func NewPublisher(conn Conn, prefix string) (*Publisher, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	if prefix == "" {
		prefix = "facilityhub.request"
	}
	return &Publisher{conn: conn, prefix: strings.TrimSuffix(prefix, "."), enc: enc}, nil
}

func (p *Publisher) Name() string { return "nats" }

// Subject returns the subject an event is published on.
func (p *Publisher) Subject(e *notification.Event) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, strings.ToLower(e.Action), e.RequestID)
}

func (p *Publisher) Publish(ctx context.Context, e *notification.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := p.enc.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(e), data); err != nil {
		return fmt.Errorf("publish %s: %w", e.EventID, err)
	}
	return nil
}

// Decode parses a message produced by Publish.
func Decode(data []byte) (*notification.Event, error) {
	var e notification.Event
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Connect dials NATS with the client name set.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}
