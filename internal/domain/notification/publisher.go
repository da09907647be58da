package notification

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_publisher.go -package=mocks . Publisher,SSEHub

import "context"

// Publisher delivers events to one transport.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event *Event) error
}

// SSEHub defines the interface for managing SSE connections
type SSEHub interface {
	Register(client *SSEClient)
	Unregister(clientID string)
	GetClientCount() int

	BroadcastToUser(userID string, message *SSEMessage)
	BroadcastToGroup(group string, message *SSEMessage)

	Stop()
}
