package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facility-hub/facility-hub/internal/clock"
	domainUser "github.com/facility-hub/facility-hub/internal/domain/user"
	"github.com/facility-hub/facility-hub/internal/infrastructure/memory"
)

const password = "Boiler-Room-7731"

func setup(t *testing.T) (*Service, *clock.FakeClock, *domainUser.User, *memory.Store) {
	t.Helper()
	st := memory.New()
	clk := clock.Fake(time.Now())
	hash, err := domainUser.HashPassword(password)
	require.NoError(t, err)
	u := &domainUser.User{
		UserID:       uuid.New(),
		Username:     "sam.req",
		PasswordHash: hash,
		Role:         domainUser.RoleRequester,
		Type:         domainUser.TypeHuman,
		Status:       domainUser.StatusActive,
	}
	require.NoError(t, st.Users().Create(context.Background(), u))
	return NewService(st.Users(), st.Sessions(), time.Hour, clk, zerolog.Nop()), clk, u, st
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _, u, _ := setup(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, " SAM.REQ ", password, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEqual(t, res.Token, res.Session.TokenHash)

	got, sess, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)
	assert.Equal(t, res.Session.SessionID, sess.SessionID)

	require.NoError(t, svc.Logout(ctx, res.Token))
	_, _, err = svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "sam.req", "wrong", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", password, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExpiredSession(t *testing.T) {
	svc, clk, _, _ := setup(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "sam.req", password, nil, nil)
	require.NoError(t, err)
	clk.Advance(2 * time.Hour)

	_, _, err = svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestDisabledUserCannotAuthenticate(t *testing.T) {
	svc, _, u, st := setup(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "sam.req", password, nil, nil)
	require.NoError(t, err)

	u.Status = domainUser.StatusDisabled
	require.NoError(t, st.Users().Update(ctx, u))

	_, _, err = svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Login(ctx, "sam.req", password, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEmptyToken(t *testing.T) {
	svc, _, _, _ := setup(t)
	_, _, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.NoError(t, svc.Logout(context.Background(), ""))
}
