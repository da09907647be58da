package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facility-hub/facility-hub/internal/clock"
	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/session"
	domain "github.com/facility-hub/facility-hub/internal/domain/user"
	"github.com/facility-hub/facility-hub/internal/infrastructure/memory"
)

const password = "Corridor-Lamp-42"

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	clk := clock.Fake(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	return NewService(st.Users(), st.Sessions(), clk, zerolog.Nop()), st
}

func TestCreateUser(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateInput{Username: "  Dana.Fix ", Password: password, Role: domain.RoleServicer})
	require.NoError(t, err)
	assert.Equal(t, "dana.fix", u.Username)
	assert.Equal(t, "dana.fix", u.DisplayName)
	assert.Equal(t, domain.StatusActive, u.Status)
	assert.True(t, u.IsActiveServicer())
	assert.True(t, domain.VerifyPassword(u.PasswordHash, password))

	_, err = svc.CreateUser(ctx, CreateInput{Username: "dana.fix", Password: password, Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, errs.ErrValidationFailed)
}

func TestCreateUserRejectsBadInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cases := []CreateInput{
		{Username: "x", Password: password, Role: domain.RoleAdmin},
		{Username: "valid.name", Password: "short", Role: domain.RoleAdmin},
		{Username: "valid.name", Password: password, Role: domain.RoleSystem},
		{Username: "valid.name", Password: password, Role: domain.RoleAdmin, Status: "GONE"},
	}
	for _, in := range cases {
		_, err := svc.CreateUser(ctx, in)
		assert.ErrorIs(t, err, errs.ErrValidationFailed, "%+v", in)
	}
}

func TestBootstrapAdminOnlyOnce(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.BootstrapAdmin(ctx, "root.admin", password)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, domain.RoleAdmin, first.Role)

	second, err := svc.BootstrapAdmin(ctx, "other.admin", password)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestDisablingRevokesSessions(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateInput{Username: "req.one", Password: password, Role: domain.RoleRequester})
	require.NoError(t, err)
	require.NoError(t, st.Sessions().Create(ctx, &session.Session{
		SessionID: uuid.New(),
		TokenHash: "abc",
		UserID:    u.UserID,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	disabled := domain.StatusDisabled
	got, err := svc.UpdateUser(ctx, u.UserID, UpdateInput{Status: &disabled})
	require.NoError(t, err)
	assert.False(t, got.IsActive())

	sess, err := st.Sessions().GetByTokenHash(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestGetUnknownUser(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.GetUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)

	err = svc.SetPassword(context.Background(), uuid.New(), password)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
