// Package lifecycletest wires a lifecycle engine over the in-memory store for
// tests.
package lifecycletest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	appAudit "github.com/facility-hub/facility-hub/internal/application/audit"
	"github.com/facility-hub/facility-hub/internal/application/guard"
	"github.com/facility-hub/facility-hub/internal/application/lifecycle"
	appSequence "github.com/facility-hub/facility-hub/internal/application/sequence"
	"github.com/facility-hub/facility-hub/internal/application/txn"
	"github.com/facility-hub/facility-hub/internal/clock"
	"github.com/facility-hub/facility-hub/internal/domain/notification"
	"github.com/facility-hub/facility-hub/internal/domain/reference"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/user"
	"github.com/facility-hub/facility-hub/internal/infrastructure/memory"
)

// Epoch is the fake clock's starting time.
var Epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// Recorder collects notified events.
type Recorder struct {
	mu     sync.Mutex
	events []*notification.Event
}

func (r *Recorder) Notify(ctx context.Context, e *notification.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []*notification.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*notification.Event(nil), r.events...)
}

// Harness is an engine with seeded users and reference data.
type Harness struct {
	Store    *memory.Store
	Clock    *clock.FakeClock
	Engine   *lifecycle.Service
	Audit    *appAudit.Service
	Sequence *appSequence.Service
	Runner   *txn.Runner
	Notified *Recorder

	Requester  guard.Actor
	Requester2 guard.Actor
	Admin      guard.Actor
	Servicer1  guard.Actor
	Servicer2  guard.Actor
	System     guard.Actor

	Building    reference.Building
	Room        reference.Room
	Category    reference.Category
	Subcategory reference.Subcategory
}

// New builds a harness with fast, generously bounded conflict retries.
func New(t testing.TB) *Harness {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	clk := clock.Fake(Epoch)
	logger := zerolog.Nop()

	runner := txn.NewRunner(st, txn.Config{MaxAttempts: 20, BaseBackoff: time.Microsecond, MaxBackoff: 50 * time.Microsecond}, logger)
	seq := appSequence.NewService(st.Counters(), runner, logger)
	require.NoError(t, seq.EnsureDefaults(ctx))
	auditSvc := appAudit.NewService(st.Requests(), seq, nil, logger)
	g, err := guard.NewDefault()
	require.NoError(t, err)
	rec := &Recorder{}

	h := &Harness{
		Store:    st,
		Clock:    clk,
		Audit:    auditSvc,
		Sequence: seq,
		Runner:   runner,
		Notified: rec,
		Engine:   lifecycle.NewService(st.Requests(), st.References(), st.Users(), runner, seq, auditSvc, g, rec, clk, logger),
		System:   guard.Actor{ID: user.SystemActorID, Role: user.RoleSystem},
	}
	h.Requester = h.AddUser(t, "requester", user.RoleRequester)
	h.Requester2 = h.AddUser(t, "requester2", user.RoleRequester)
	h.Admin = h.AddUser(t, "admin", user.RoleAdmin)
	h.Servicer1 = h.AddUser(t, "servicer1", user.RoleServicer)
	h.Servicer2 = h.AddUser(t, "servicer2", user.RoleServicer)

	refs := st.References()
	h.Building = reference.Building{BuildingID: uuid.New(), Name: "Main Hall", Code: "MH", CreatedAt: Epoch}
	h.Room = reference.Room{RoomID: uuid.New(), BuildingID: h.Building.BuildingID, Name: "101", CreatedAt: Epoch}
	h.Category = reference.Category{CategoryID: uuid.New(), Name: "Plumbing", CreatedAt: Epoch}
	h.Subcategory = reference.Subcategory{SubcategoryID: uuid.New(), CategoryID: h.Category.CategoryID, Name: "Leak", CreatedAt: Epoch}
	require.NoError(t, refs.CreateBuilding(ctx, &h.Building))
	require.NoError(t, refs.CreateRoom(ctx, &h.Room))
	require.NoError(t, refs.CreateCategory(ctx, &h.Category))
	require.NoError(t, refs.CreateSubcategory(ctx, &h.Subcategory))
	return h
}

// AddUser stores an active user and returns it as an actor.
func (h *Harness) AddUser(t testing.TB, username string, role user.Role) guard.Actor {
	t.Helper()
	u := &user.User{
		UserID:    uuid.New(),
		Username:  username,
		Role:      role,
		Type:      user.TypeHuman,
		Status:    user.StatusActive,
		CreatedAt: Epoch,
		UpdatedAt: Epoch,
	}
	require.NoError(t, h.Store.Users().Create(context.Background(), u))
	return guard.Actor{ID: u.UserID, Role: role}
}

// SubmitInput returns a valid submission against the seeded references.
func (h *Harness) SubmitInput() lifecycle.SubmitInput {
	return lifecycle.SubmitInput{
		CategoryID:    h.Category.CategoryID,
		SubcategoryID: h.Subcategory.SubcategoryID,
		BuildingID:    h.Building.BuildingID,
		RoomID:        h.Room.RoomID,
		Description:   "Water dripping from ceiling",
	}
}

// Submitted files a request as Requester.
func (h *Harness) Submitted(t testing.TB) *request.Request {
	t.Helper()
	r, err := h.Engine.Submit(context.Background(), h.Requester, h.SubmitInput())
	require.NoError(t, err)
	return r
}

// Assigned returns a request prioritized and assigned to Servicer1.
func (h *Harness) Assigned(t testing.TB) *request.Request {
	t.Helper()
	ctx := context.Background()
	r := h.Submitted(t)
	_, err := h.Engine.AssignPriority(ctx, h.Admin, r.RequestID, request.PriorityHigh)
	require.NoError(t, err)
	r, err = h.Engine.AssignServicer(ctx, h.Admin, r.RequestID, h.Servicer1.ID)
	require.NoError(t, err)
	return r
}

// InProgress returns a started request scheduled to end at end.
func (h *Harness) InProgress(t testing.TB, end time.Time) *request.Request {
	t.Helper()
	ctx := context.Background()
	r := h.Assigned(t)
	_, err := h.Engine.Schedule(ctx, h.Servicer1, r.RequestID, h.Clock.Now(), end)
	require.NoError(t, err)
	r, err = h.Engine.Start(ctx, h.Servicer1, r.RequestID)
	require.NoError(t, err)
	return r
}

// Stored reads the committed state of a request.
func (h *Harness) Stored(t testing.TB, id uuid.UUID) *request.Request {
	t.Helper()
	r, err := h.Store.Requests().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, r)
	return r
}

// History reads the committed history of a request.
func (h *Harness) History(t testing.TB, id uuid.UUID) []*request.History {
	t.Helper()
	rows, err := h.Audit.History(context.Background(), id)
	require.NoError(t, err)
	return rows
}
