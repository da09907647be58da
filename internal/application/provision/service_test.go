package provision

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appReference "github.com/facility-hub/facility-hub/internal/application/reference"
	appSequence "github.com/facility-hub/facility-hub/internal/application/sequence"
	"github.com/facility-hub/facility-hub/internal/application/txn"
	appUser "github.com/facility-hub/facility-hub/internal/application/user"
	"github.com/facility-hub/facility-hub/internal/clock"
	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
	domainUser "github.com/facility-hub/facility-hub/internal/domain/user"
	"github.com/facility-hub/facility-hub/internal/infrastructure/memory"
)

const seedYAML = `
counters:
  - domain: workOrders
    format: WO-%04d
    start: 100
buildings:
  - name: North Hall
    code: nh
    rooms: [Lobby, "Room 101"]
categories:
  - name: Plumbing
    subcategories: [Leak, Clog]
users:
  - username: pat.admin
    displayName: Pat
    password: ${SEED_ADMIN_PASSWORD}
    role: ADMIN
`

func newService(t *testing.T) (*Service, *memory.Store, *appSequence.Service) {
	t.Helper()
	st := memory.New()
	runner := txn.NewRunner(st, txn.DefaultConfig(), zerolog.Nop())
	seq := appSequence.NewService(st.Counters(), runner, zerolog.Nop())
	refs := appReference.NewService(st.References(), nil, time.Minute, zerolog.Nop())
	users := appUser.NewService(st.Users(), st.Sessions(), clock.Real(), zerolog.Nop())
	return NewService(seq, refs, users, st.Users(), zerolog.Nop()), st, seq
}

func TestApplySeed(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "Valve-Wrench-2024")
	svc, st, seq := newService(t)
	ctx := context.Background()

	seed, err := Decode(strings.NewReader(seedYAML))
	require.NoError(t, err)

	report, err := svc.Apply(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, Report{Counters: 1, Buildings: 1, Rooms: 2, Categories: 1, Subcategories: 2, Users: 1}, *report)

	next, err := seq.Allocate(ctx, sequence.Domain("workOrders"))
	require.NoError(t, err)
	assert.Equal(t, "WO-0101", next)

	u, err := st.Users().GetByUsername(ctx, "pat.admin")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, domainUser.RoleAdmin, u.Role)
	assert.True(t, domainUser.VerifyPassword(u.PasswordHash, "Valve-Wrench-2024"))

	again, err := svc.Apply(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, Report{}, *again)
}

func TestApplyEnsuresDefaultCounters(t *testing.T) {
	svc, _, seq := newService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, &Seed{})
	require.NoError(t, err)

	counters, err := seq.List(ctx)
	require.NoError(t, err)
	assert.Len(t, counters, 2)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("buildngs:\n  - name: typo\n"))
	assert.ErrorIs(t, err, errs.ErrValidationFailed)
}

func TestDecodeEmptyDocument(t *testing.T) {
	seed, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, seed.Buildings)
}

func TestApplyStopsOnInvalidUser(t *testing.T) {
	svc, _, _ := newService(t)
	seed := &Seed{Users: []UserSeed{{Username: "weak.user", Password: "short", Role: "ADMIN"}}}

	_, err := svc.Apply(context.Background(), seed)
	assert.ErrorIs(t, err, errs.ErrValidationFailed)
}
