package guard

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/user"
)

func newGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := NewDefault()
	require.NoError(t, err)
	return g
}

func TestRoleColumn(t *testing.T) {
	g := newGuard(t)
	servicer := uuid.New()
	owner := uuid.New()
	req := &request.Request{RequestID: uuid.New(), CreatedBy: owner, ServicerID: &servicer}

	admin := Actor{ID: uuid.New(), Role: user.RoleAdmin}
	system := Actor{ID: user.SystemActorID, Role: user.RoleSystem}
	requester := Actor{ID: owner, Role: user.RoleRequester}
	assigned := Actor{ID: servicer, Role: user.RoleServicer}

	tests := []struct {
		actor Actor
		op    request.Operation
		want  bool
	}{
		{requester, request.OpSubmit, true},
		{admin, request.OpSubmit, false},
		{admin, request.OpAssignPriority, true},
		{requester, request.OpAssignPriority, false},
		{admin, request.OpAssignServicer, true},
		{assigned, request.OpAssignServicer, false},
		{assigned, request.OpSendBack, true},
		{admin, request.OpSendBack, false},
		{assigned, request.OpSchedule, true},
		{assigned, request.OpStart, true},
		{assigned, request.OpComplete, true},
		{admin, request.OpComplete, false},
		{admin, request.OpReassign, true},
		{assigned, request.OpReassign, false},
		{admin, request.OpMarkDelayed, true},
		{system, request.OpMarkDelayed, true},
		{assigned, request.OpMarkDelayed, false},
		{requester, request.OpCancel, true},
		{admin, request.OpCancel, true},
		{assigned, request.OpCancel, false},
		{assigned, request.OpHold, true},
		{assigned, request.OpResume, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.Permit(tt.actor, tt.op, req), "%s %s", tt.actor.Role, tt.op)
	}
}

func TestOwnership(t *testing.T) {
	g := newGuard(t)
	s1, s2 := uuid.New(), uuid.New()
	owner := uuid.New()
	req := &request.Request{RequestID: uuid.New(), CreatedBy: owner, ServicerID: &s1}

	err := g.Check(Actor{ID: s2, Role: user.RoleServicer}, request.OpSendBack, req)
	assert.ErrorIs(t, err, errs.ErrGuardRejected)
	assert.Equal(t, errs.CodeOwnershipMismatch, errs.CodeOf(err))

	assert.NoError(t, g.Check(Actor{ID: s1, Role: user.RoleServicer}, request.OpSendBack, req))

	err = g.Check(Actor{ID: uuid.New(), Role: user.RoleRequester}, request.OpCancel, req)
	assert.Equal(t, errs.CodeOwnershipMismatch, errs.CodeOf(err))
}

func TestServicerWithoutAssignment(t *testing.T) {
	g := newGuard(t)
	req := &request.Request{RequestID: uuid.New(), CreatedBy: uuid.New()}
	err := g.Check(Actor{ID: uuid.New(), Role: user.RoleServicer}, request.OpStart, req)
	assert.Equal(t, errs.CodeOwnershipMismatch, errs.CodeOf(err))
}

func TestRoleDenied(t *testing.T) {
	g := newGuard(t)
	err := g.Check(Actor{ID: uuid.New(), Role: user.RoleServicer}, request.OpAssignPriority, &request.Request{})
	assert.Equal(t, errs.CodeRoleDenied, errs.CodeOf(err))

	err = g.Check(Actor{ID: uuid.New(), Role: "GHOST"}, request.OpSubmit, nil)
	assert.Equal(t, errs.CodeRoleDenied, errs.CodeOf(err))
}

func TestCustomTable(t *testing.T) {
	rules := []Rule{{Role: user.RoleServicer, Operation: request.OpCancel, Predicate: "actor_id == servicer_id"}}
	g, err := New(rules, nil)
	require.NoError(t, err)

	s := uuid.New()
	req := &request.Request{ServicerID: &s}
	assert.True(t, g.Permit(Actor{ID: s, Role: user.RoleServicer}, request.OpCancel, req))
	assert.False(t, g.Permit(Actor{ID: uuid.New(), Role: user.RoleAdmin}, request.OpCancel, req))
}

func TestNewRejectsBadRules(t *testing.T) {
	_, err := New([]Rule{{Role: user.RoleAdmin, Operation: "explode"}}, nil)
	assert.Error(t, err)

	_, err = New([]Rule{{Role: user.RoleAdmin, Operation: request.OpCancel, Predicate: "actor_id =="}}, nil)
	assert.Error(t, err)
}

func TestAllowsIgnoresOwnership(t *testing.T) {
	g := newGuard(t)
	assert.True(t, g.Allows(Actor{ID: uuid.New(), Role: user.RoleServicer}, request.OpComplete))
	assert.False(t, g.Allows(Actor{ID: uuid.New(), Role: user.RoleServicer}, request.OpMarkDelayed))
	assert.True(t, g.Allows(Actor{ID: user.SystemActorID, Role: user.RoleSystem}, request.OpMarkDelayed))
}
