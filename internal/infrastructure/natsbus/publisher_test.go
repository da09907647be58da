package natsbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facility-hub/facility-hub/internal/domain/notification"
)

type captureConn struct {
	subject string
	data    []byte
	err     error
}

func (c *captureConn) Publish(subject string, data []byte) error {
	c.subject, c.data = subject, data
	return c.err
}

func TestPublishEncodesEvent(t *testing.T) {
	conn := &captureConn{}
	p, err := NewPublisher(conn, "fh.request.")
	require.NoError(t, err)

	servicer := uuid.New()
	e := notification.NewTransitionEvent(uuid.New(), "REQ-00001", "ASSIGNED", "SUBMITTED", "ASSIGNED",
		uuid.New(), uuid.New(), &servicer, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	require.NoError(t, p.Publish(context.Background(), e))
	assert.Equal(t, "fh.request.assigned."+e.RequestID.String(), conn.subject)

	got, err := Decode(conn.data)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, got.EventID)
	assert.Equal(t, e.Number, got.Number)
	assert.Equal(t, servicer, *got.ServicerID)
	assert.True(t, e.OccurredAt.Equal(got.OccurredAt))
}

func TestPublishErrors(t *testing.T) {
	conn := &captureConn{err: errors.New("nats: connection closed")}
	p, err := NewPublisher(conn, "")
	require.NoError(t, err)
	e := notification.NewTransitionEvent(uuid.New(), "REQ-1", "STARTED", "ASSIGNED", "IN_PROGRESS", uuid.New(), uuid.New(), nil, time.Now())

	assert.Error(t, p.Publish(context.Background(), e))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, e), context.Canceled)
	assert.Equal(t, "nats", p.Name())
}
