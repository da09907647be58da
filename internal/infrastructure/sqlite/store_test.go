package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/reference"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
	"github.com/facility-hub/facility-hub/internal/domain/store"
	"github.com/facility-hub/facility-hub/internal/domain/user"
	"github.com/facility-hub/facility-hub/internal/migrations"
)

var epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db          *sql.DB
	tx          *Transactor
	building    *reference.Building
	room        *reference.Room
	category    *reference.Category
	subcategory *reference.Subcategory
	servicer    *user.User
}

func openFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "facility.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, RunMigrations(ctx, db, migrations.SQLite(), zerolog.Nop()))
	// Second run is a no-op.
	require.NoError(t, RunMigrations(ctx, db, migrations.SQLite(), zerolog.Nop()))

	f := &fixture{db: db, tx: NewTransactor(db)}
	refs := NewReferenceRepository(db)
	f.building = &reference.Building{BuildingID: uuid.New(), Name: "North Hall", Code: "NH", CreatedAt: epoch}
	f.room = &reference.Room{RoomID: uuid.New(), BuildingID: f.building.BuildingID, Name: "Lobby", CreatedAt: epoch}
	f.category = &reference.Category{CategoryID: uuid.New(), Name: "Plumbing", CreatedAt: epoch}
	f.subcategory = &reference.Subcategory{SubcategoryID: uuid.New(), CategoryID: f.category.CategoryID, Name: "Leak", CreatedAt: epoch}
	require.NoError(t, refs.CreateBuilding(ctx, f.building))
	require.NoError(t, refs.CreateRoom(ctx, f.room))
	require.NoError(t, refs.CreateCategory(ctx, f.category))
	require.NoError(t, refs.CreateSubcategory(ctx, f.subcategory))

	f.servicer = &user.User{UserID: uuid.New(), Username: "sam.fix", Role: user.RoleServicer, Type: user.TypeHuman, Status: user.StatusActive, CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, NewUserRepository(db).Create(ctx, f.servicer))

	require.NoError(t, NewCounterRepository(db).Create(ctx, &sequence.Counter{Domain: sequence.DomainRequests, Format: "REQ-%05d", UpdatedAt: epoch}))
	return f
}

func (f *fixture) newRequest() *request.Request {
	return &request.Request{
		RequestID:     uuid.New(),
		Number:        "REQ-" + uuid.NewString()[:8],
		CategoryID:    f.category.CategoryID,
		SubcategoryID: f.subcategory.SubcategoryID,
		BuildingID:    f.building.BuildingID,
		RoomID:        f.room.RoomID,
		Description:   "Leaking tap",
		ImageRefs:     []string{"img/1.jpg"},
		Status:        request.StatusSubmitted,
		CreatedAt:     epoch,
		CreatedBy:     uuid.New(),
		ModifiedAt:    epoch,
		ModifiedBy:    uuid.New(),
	}
}

func TestRequestRoundTrip(t *testing.T) {
	f := openFixture(t)
	ctx := context.Background()
	r := f.newRequest()

	require.NoError(t, f.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertRequest(ctx, r)
	}))

	got, err := NewRequestRepository(f.db).GetByID(ctx, r.RequestID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.Number, got.Number)
	assert.Equal(t, []string{"img/1.jpg"}, got.ImageRefs)
	assert.Equal(t, int64(1), got.Version)
	assert.Nil(t, got.Priority)
	assert.True(t, got.CreatedAt.Equal(epoch))

	missing, err := NewRequestRepository(f.db).GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateRequestIsConditional(t *testing.T) {
	f := openFixture(t)
	ctx := context.Background()
	r := f.newRequest()
	require.NoError(t, f.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertRequest(ctx, r)
	}))

	stale := r.Clone()
	end := epoch.Add(48 * time.Hour)
	require.NoError(t, f.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetRequest(ctx, r.RequestID)
		if err != nil {
			return err
		}
		p := request.PriorityHigh
		cur.Priority = &p
		cur.ServicerID = &f.servicer.UserID
		cur.Status = request.StatusAssigned
		cur.EstimatedEndDate = &end
		return tx.UpdateRequest(ctx, cur)
	}))

	err := f.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		stale.Description = "lost update"
		return tx.UpdateRequest(ctx, stale)
	})
	assert.True(t, errs.IsConflict(err))

	got, err := NewRequestRepository(f.db).GetByID(ctx, r.RequestID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, request.StatusAssigned, got.Status)
	require.NotNil(t, got.ServicerID)
	assert.Equal(t, f.servicer.UserID, *got.ServicerID)
	require.NotNil(t, got.EstimatedEndDate)
	assert.True(t, got.EstimatedEndDate.Equal(end))
}

func TestGetMissingRequestInTx(t *testing.T) {
	f := openFixture(t)
	err := f.tx.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.GetRequest(ctx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCounterCompareAndSwap(t *testing.T) {
	f := openFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		c, err := tx.GetCounter(ctx, sequence.DomainRequests)
		if err != nil {
			return err
		}
		return tx.CompareAndSwapCounter(ctx, sequence.DomainRequests, c.LastNumber, c.Next())
	}))

	err := f.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.CompareAndSwapCounter(ctx, sequence.DomainRequests, 0, 1)
	})
	assert.True(t, errs.IsConflict(err))

	c, err := NewCounterRepository(f.db).Get(ctx, sequence.DomainRequests)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.LastNumber)

	err = NewCounterRepository(f.db).Create(ctx, &sequence.Counter{Domain: sequence.DomainRequests, Format: "X-%d", UpdatedAt: epoch})
	assert.ErrorIs(t, err, sequence.ErrCounterExists)
}

func TestRollbackDiscardsHistory(t *testing.T) {
	f := openFixture(t)
	ctx := context.Background()
	r := f.newRequest()

	err := f.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertRequest(ctx, r); err != nil {
			return err
		}
		h := request.NewHistory(request.Entry{Request: r, Operation: request.OpSubmit, ActorID: r.CreatedBy, ActorRole: "REQUESTER", At: epoch})
		h.Number = "RH-000001"
		if err := tx.InsertHistory(ctx, h); err != nil {
			return err
		}
		return errs.Guard(errs.CodeInvalidState, "abort")
	})
	assert.ErrorIs(t, err, errs.ErrGuardRejected)

	history, err := NewRequestRepository(f.db).ListHistory(ctx, r.RequestID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryRoundTrip(t *testing.T) {
	f := openFixture(t)
	ctx := context.Background()
	r := f.newRequest()
	reason := "wrong building"
	var h *request.History

	require.NoError(t, f.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertRequest(ctx, r); err != nil {
			return err
		}
		from := request.StatusAssigned
		h = request.NewHistory(request.Entry{Request: r, Operation: request.OpSendBack, FromStatus: &from, ActorID: f.servicer.UserID, ActorRole: "SERVICER", Reason: &reason, At: epoch})
		h.Number = "RH-000001"
		h.Seq = 1
		h.SignatureKeyID = "k1"
		h.Signature = []byte{1, 2, 3}
		return tx.InsertHistory(ctx, h)
	}))

	got, err := NewRequestRepository(f.db).GetHistory(ctx, h.HistoryID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, request.ActionSentBack, got.Action)
	require.NotNil(t, got.FromStatus)
	assert.Equal(t, request.StatusAssigned, *got.FromStatus)
	require.NotNil(t, got.SentBackReason)
	assert.Equal(t, reason, *got.SentBackReason)
	assert.Equal(t, []byte{1, 2, 3}, got.Signature)
	assert.Equal(t, int64(1), got.Seq)
}

func TestHistoryOrderPastPadWidth(t *testing.T) {
	f := openFixture(t)
	ctx := context.Background()
	r := f.newRequest()

	require.NoError(t, f.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertRequest(ctx, r); err != nil {
			return err
		}
		for _, seq := range []int64{999999, 1000000, 1000001} {
			h := request.NewHistory(request.Entry{Request: r, Operation: request.OpSubmit, ActorID: r.CreatedBy, ActorRole: "REQUESTER", At: epoch})
			h.Seq = seq
			h.Number = (&sequence.Counter{Format: "RH-%06d"}).Render(seq)
			if err := tx.InsertHistory(ctx, h); err != nil {
				return err
			}
		}
		return nil
	}))

	rows, err := NewRequestRepository(f.db).ListHistory(ctx, r.RequestID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"RH-999999", "RH-1000000", "RH-1000001"}, []string{rows[0].Number, rows[1].Number, rows[2].Number})
}

func TestListFiltersOverdue(t *testing.T) {
	f := openFixture(t)
	ctx := context.Background()
	overdue := f.newRequest()
	overdue.Status = request.StatusInProgress
	overdue.ServicerID = &f.servicer.UserID
	past := epoch.Add(-time.Hour)
	overdue.EstimatedEndDate = &past
	fresh := f.newRequest()

	require.NoError(t, f.tx.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertRequest(ctx, overdue); err != nil {
			return err
		}
		return tx.InsertRequest(ctx, fresh)
	}))

	status := request.StatusInProgress
	got, err := NewRequestRepository(f.db).List(ctx, request.Filter{Status: &status, OverdueAt: &epoch}, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.RequestID, got[0].RequestID)

	all, err := NewRequestRepository(f.db).List(ctx, request.Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUsersAndSessions(t *testing.T) {
	f := openFixture(t)
	ctx := context.Background()
	users := NewUserRepository(f.db)

	dup := *f.servicer
	dup.UserID = uuid.New()
	assert.ErrorIs(t, users.Create(ctx, &dup), user.ErrUsernameTaken)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := users.GetByUsername(ctx, "sam.fix")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.RoleServicer, got.Role)

	role := user.RoleServicer
	list, err := users.List(ctx, user.Filter{Role: &role}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
