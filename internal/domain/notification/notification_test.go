package notification

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransitionEvent(t *testing.T) {
	requestID, actor, owner, servicer := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	e := NewTransitionEvent(requestID, "REQ-00001", "ASSIGNED", "SUBMITTED", "ASSIGNED", actor, owner, &servicer, at)

	require.NotNil(t, e)
	assert.NotEqual(t, uuid.Nil, e.EventID)
	assert.Equal(t, EventRequestTransitioned, e.Type)
	assert.Equal(t, requestID, e.RequestID)
	assert.Equal(t, time.UTC, e.OccurredAt.Location())
	assert.Equal(t, []string{owner.String(), servicer.String()}, e.Recipients())
}

func TestEvent_RecipientsDeduplicates(t *testing.T) {
	owner := uuid.New()
	e := NewTransitionEvent(uuid.New(), "REQ-00002", "CANCELLED", "SUBMITTED", "CANCELLED", owner, owner, nil, time.Now())
	assert.Equal(t, []string{owner.String()}, e.Recipients())

	e.ServicerID = &owner
	assert.Equal(t, []string{owner.String()}, e.Recipients())
}

func TestNewSSEMessage(t *testing.T) {
	e := NewTransitionEvent(uuid.New(), "REQ-00003", "STARTED", "ASSIGNED", "IN_PROGRESS", uuid.New(), uuid.New(), nil, time.Now())

	msg, err := NewSSEMessage(e)
	require.NoError(t, err)
	assert.Equal(t, e.EventID.String(), msg.ID)
	assert.Equal(t, "request.transitioned", msg.Event)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "REQ-00003", decoded.Number)
	assert.Equal(t, "IN_PROGRESS", decoded.ToStatus)
}

func TestSSEClient_Close(t *testing.T) {
	uid := "user-1"
	c := NewSSEClient("c1", &uid, []string{"ADMIN"})
	assert.Equal(t, 100, cap(c.MessageChan))
	c.Close()
	_, ok := <-c.MessageChan
	assert.False(t, ok)
}
