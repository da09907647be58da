package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/application/guard"
	"github.com/facility-hub/facility-hub/internal/domain/user"
)

type authContextKey string

const authUserKey authContextKey = "authUser"

// AuthUser represents the authenticated user in context.
type AuthUser struct {
	UserID    uuid.UUID
	Username  string
	Role      user.Role
	SessionID uuid.UUID
}

// Actor is the lifecycle actor for this user.
func (u AuthUser) Actor() guard.Actor {
	return guard.Actor{ID: u.UserID, Role: u.Role}
}

func withAuthUser(ctx context.Context, u *AuthUser) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, authUserKey, u)
}

func authUserFromContext(ctx context.Context) *AuthUser {
	val := ctx.Value(authUserKey)
	if v, ok := val.(*AuthUser); ok {
		return v
	}
	return nil
}
