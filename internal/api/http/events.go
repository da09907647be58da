package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	appNotification "github.com/facility-hub/facility-hub/internal/application/notification"
	"github.com/facility-hub/facility-hub/internal/domain/notification"
	"github.com/facility-hub/facility-hub/internal/domain/user"
)

// sseEndpoint streams transitions the caller is a party to. Admins also
// receive every transition through the admin group.
func (s *Server) sseEndpoint(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}
	auth := authUserFromContext(r.Context())
	clientID := uuid.NewString()
	userID := auth.UserID.String()
	var groups []string
	if auth.Role == user.RoleAdmin {
		groups = []string{appNotification.AdminGroup}
	}
	client := notification.NewSSEClient(clientID, &userID, groups)
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(clientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg, open := <-client.MessageChan:
			if !open || msg == nil {
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			_, _ = w.Write([]byte("id: " + msg.ID + "\nevent: " + msg.Event + "\ndata: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
