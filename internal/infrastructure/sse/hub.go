package sse

import (
	"sync"

	"github.com/facility-hub/facility-hub/internal/domain/notification"
)

// Hub fans transition messages out to connected SSE clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*notification.SSEClient
	dropped int
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*notification.SSEClient),
	}
}

func (h *Hub) Register(client *notification.SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[client.ClientID]; ok && old != client {
		old.Close()
	}
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many messages were discarded because a client's buffer
// was full.
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *Hub) BroadcastToUser(userID string, message *notification.SSEMessage) {
	h.broadcast(message, func(c *notification.SSEClient) bool {
		return c.UserID != nil && *c.UserID == userID
	})
}

func (h *Hub) BroadcastToGroup(group string, message *notification.SSEMessage) {
	h.broadcast(message, func(c *notification.SSEClient) bool {
		for _, g := range c.Groups {
			if g == group {
				return true
			}
		}
		return false
	})
}

func (h *Hub) broadcast(message *notification.SSEMessage, match func(*notification.SSEClient) bool) {
	h.mu.RLock()
	dropped := 0
	for _, c := range h.clients {
		if match(c) && !trySend(c, message) {
			dropped++
		}
	}
	h.mu.RUnlock()
	if dropped > 0 {
		h.mu.Lock()
		h.dropped += dropped
		h.mu.Unlock()
	}
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

func trySend(c *notification.SSEClient, msg *notification.SSEMessage) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		return false
	}
}
