package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
	"github.com/facility-hub/facility-hub/internal/domain/store"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transactor implements store.Transactor. SQLite serializes writers, so a
// conditional write only misses when the row changed between transactions.
type Transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	if err := fn(ctx, &storeTx{q: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return mapError(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

type storeTx struct {
	q querier
}

func (tx *storeTx) GetRequest(ctx context.Context, requestID uuid.UUID) (*request.Request, error) {
	row := tx.q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE request_id=?`, requestID.String())
	r, err := scanRequest(row)
	if err != nil {
		return nil, mapError(err)
	}
	if r == nil {
		return nil, errs.NotFound("request", requestID)
	}
	return r, nil
}

func (tx *storeTx) InsertRequest(ctx context.Context, r *request.Request) error {
	refs, err := json.Marshal(imageRefs(r.ImageRefs))
	if err != nil {
		return err
	}
	r.Version = 1
	_, err = tx.q.ExecContext(ctx, `
		INSERT INTO requests
		(request_id, number, category_id, subcategory_id, building_id, room_id, description, image_refs,
		 status, priority, servicer_id, estimated_start_date, estimated_end_date, actual_start_date, actual_end_date,
		 created_at, created_by, modified_at, modified_by, inactive, version)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, r.RequestID.String(), r.Number, r.CategoryID.String(), r.SubcategoryID.String(), r.BuildingID.String(), r.RoomID.String(),
		r.Description, string(refs), string(r.Status), priorityText(r.Priority), uuidText(r.ServicerID),
		nullTimeText(r.EstimatedStartDate), nullTimeText(r.EstimatedEndDate), nullTimeText(r.ActualStartDate), nullTimeText(r.ActualEndDate),
		timeText(r.CreatedAt), r.CreatedBy.String(), timeText(r.ModifiedAt), r.ModifiedBy.String(), r.Inactive, r.Version)
	return duplicateAsConflict(err)
}

func (tx *storeTx) UpdateRequest(ctx context.Context, r *request.Request) error {
	res, err := tx.q.ExecContext(ctx, `
		UPDATE requests
		SET status=?, priority=?, servicer_id=?, estimated_start_date=?, estimated_end_date=?,
		    actual_start_date=?, actual_end_date=?, modified_at=?, modified_by=?, inactive=?, version=version+1
		WHERE request_id=? AND version=?
	`, string(r.Status), priorityText(r.Priority), uuidText(r.ServicerID),
		nullTimeText(r.EstimatedStartDate), nullTimeText(r.EstimatedEndDate), nullTimeText(r.ActualStartDate), nullTimeText(r.ActualEndDate),
		timeText(r.ModifiedAt), r.ModifiedBy.String(), r.Inactive, r.RequestID.String(), r.Version)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return errs.Conflict(errors.New("request version changed"))
	}
	r.Version++
	return nil
}

func (tx *storeTx) InsertHistory(ctx context.Context, h *request.History) error {
	var from sql.NullString
	if h.FromStatus != nil {
		from = sql.NullString{String: string(*h.FromStatus), Valid: true}
	}
	_, err := tx.q.ExecContext(ctx, `
		INSERT INTO request_histories
		(history_id, number, seq, request_id, action, from_status, to_status, priority, servicer_id,
		 sent_back_reason, reassign_reason, hold_reason, cancel_reason, created_at, created_by, actor_role,
		 inactive, signature_key_id, signature)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, h.HistoryID.String(), h.Number, h.Seq, h.RequestID.String(), string(h.Action), from, string(h.ToStatus),
		priorityText(h.Priority), uuidText(h.ServicerID),
		nullString(h.SentBackReason), nullString(h.ReassignReason), nullString(h.HoldReason), nullString(h.CancelReason),
		timeText(h.CreatedAt), h.CreatedBy.String(), h.ActorRole, h.Inactive, h.SignatureKeyID, h.Signature)
	return duplicateAsConflict(err)
}

func (tx *storeTx) GetCounter(ctx context.Context, domain sequence.Domain) (*sequence.Counter, error) {
	row := tx.q.QueryRowContext(ctx, `SELECT domain, last_number, format, updated_at FROM counters WHERE domain=?`, string(domain))
	c, err := scanCounter(row)
	if err != nil {
		return nil, mapError(err)
	}
	if c == nil {
		return nil, errs.NotFound("counter", domain)
	}
	return c, nil
}

func (tx *storeTx) CompareAndSwapCounter(ctx context.Context, domain sequence.Domain, expected, next int64) error {
	res, err := tx.q.ExecContext(ctx, `
		UPDATE counters SET last_number=?, updated_at=strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE domain=? AND last_number=?
	`, next, string(domain), expected)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return errs.Conflict(errors.New("counter " + string(domain) + " moved"))
	}
	return nil
}

func duplicateAsConflict(err error) error {
	err = mapError(err)
	if errors.Is(err, errDuplicate) {
		return errs.Conflict(err)
	}
	return err
}

func imageRefs(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}

func priorityText(p *request.Priority) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*p), Valid: true}
}

func uuidText(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
