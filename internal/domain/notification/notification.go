package notification

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType names a published event.
type EventType string

const (
	EventRequestTransitioned EventType = "request.transitioned"
)

var (
	ErrClientNotFound = errors.New("SSE client not found")
	ErrChannelFull    = errors.New("SSE message channel full")
)

// Event is emitted after a lifecycle transition commits.
type Event struct {
	EventID    uuid.UUID  `json:"eventId" cbor:"1,keyasint"`
	Type       EventType  `json:"type" cbor:"2,keyasint"`
	RequestID  uuid.UUID  `json:"requestId" cbor:"3,keyasint"`
	Number     string     `json:"number" cbor:"4,keyasint"`
	Action     string     `json:"action" cbor:"5,keyasint"`
	FromStatus string     `json:"fromStatus,omitempty" cbor:"6,keyasint,omitempty"`
	ToStatus   string     `json:"toStatus" cbor:"7,keyasint"`
	ActorID    uuid.UUID  `json:"actorId" cbor:"8,keyasint"`
	OwnerID    uuid.UUID  `json:"ownerId" cbor:"9,keyasint"`
	ServicerID *uuid.UUID `json:"servicerId,omitempty" cbor:"10,keyasint,omitempty"`
	OccurredAt time.Time  `json:"occurredAt" cbor:"11,keyasint"`
}

// NewTransitionEvent builds a request.transitioned event.
func NewTransitionEvent(requestID uuid.UUID, number, action, from, to string, actorID, ownerID uuid.UUID, servicerID *uuid.UUID, at time.Time) *Event {
	return &Event{
		EventID:    uuid.New(),
		Type:       EventRequestTransitioned,
		RequestID:  requestID,
		Number:     number,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		OwnerID:    ownerID,
		ServicerID: servicerID,
		OccurredAt: at.UTC(),
	}
}

// Recipients returns the user ids that should see the event.
func (e *Event) Recipients() []string {
	out := []string{e.OwnerID.String()}
	if e.ServicerID != nil && *e.ServicerID != e.OwnerID {
		out = append(out, e.ServicerID.String())
	}
	return out
}

// SSEClient represents an active SSE connection
type SSEClient struct {
	ClientID    string
	UserID      *string
	Groups      []string
	ConnectedAt time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates a new SSE client
func NewSSEClient(clientID string, userID *string, groups []string) *SSEClient {
	return &SSEClient{
		ClientID:    clientID,
		UserID:      userID,
		Groups:      groups,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, 100),
	}
}

// Close closes the client's message channel
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage represents a message to be sent via SSE
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Retry     *int            `json:"retry,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage wraps an event for SSE delivery.
func NewSSEMessage(e *Event) (*SSEMessage, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &SSEMessage{
		ID:        e.EventID.String(),
		Event:     string(e.Type),
		Data:      data,
		Timestamp: e.OccurredAt,
	}, nil
}
