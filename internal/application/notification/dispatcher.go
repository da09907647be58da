package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/facility-hub/facility-hub/internal/domain/notification"
	"github.com/facility-hub/facility-hub/internal/infrastructure/telemetry"
)

// AdminGroup receives every transition over SSE.
const AdminGroup = "admins"

// Dispatcher delivers committed transitions to the SSE hub and to every
// configured publisher. Delivery is best effort.
type Dispatcher struct {
	hub        notification.SSEHub
	publishers []notification.Publisher
	timeout    time.Duration
	logger     zerolog.Logger
	wg         sync.WaitGroup
}

// NewDispatcher creates a dispatcher. hub may be nil.
func NewDispatcher(hub notification.SSEHub, publishers []notification.Publisher, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		hub:        hub,
		publishers: publishers,
		timeout:    timeout,
		logger:     logger.With().Str("service", "notification").Logger(),
	}
}

// Notify pushes the event to SSE clients synchronously and to publishers in
// the background. It never blocks on a slow transport.
func (d *Dispatcher) Notify(ctx context.Context, event *notification.Event) {
	if d.hub != nil {
		msg, err := notification.NewSSEMessage(event)
		if err != nil {
			d.logger.Error().Err(err).Str("eventId", event.EventID.String()).Msg("failed to encode SSE message")
			telemetry.RecordNotifyFailure("sse")
		} else {
			for _, userID := range event.Recipients() {
				d.hub.BroadcastToUser(userID, msg)
			}
			d.hub.BroadcastToGroup(AdminGroup, msg)
		}
	}

	base := context.WithoutCancel(ctx)
	for _, p := range d.publishers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			pctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := p.Publish(pctx, event); err != nil {
				telemetry.RecordNotifyFailure(p.Name())
				d.logger.Warn().Err(err).
					Str("transport", p.Name()).
					Str("eventId", event.EventID.String()).
					Str("requestId", event.RequestID.String()).
					Msg("failed to publish event")
			}
		}()
	}
}

// Close waits for in-flight publishes.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}
