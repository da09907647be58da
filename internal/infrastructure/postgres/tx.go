package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
	"github.com/facility-hub/facility-hub/internal/domain/store"
)

// Transactor implements store.Transactor on a pgx pool. Transactions run at
// REPEATABLE READ so a conditional write that lost a race surfaces as a
// serialization failure or a zero-row update.
type Transactor struct {
	pool *pgxpool.Pool
}

func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	pgtx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return mapError(err)
	}
	if err := fn(ctx, &storeTx{q: pgtx}); err != nil {
		_ = pgtx.Rollback(ctx)
		return mapError(err)
	}
	if err := pgtx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// storeTx implements store.Tx over any querier.
type storeTx struct {
	q querier
}

func (tx *storeTx) GetRequest(ctx context.Context, requestID uuid.UUID) (*request.Request, error) {
	row := tx.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE request_id=$1 FOR UPDATE`, requestID)
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
	r.Version = 1
	_, err := tx.q.Exec(ctx, `
		INSERT INTO requests
		(request_id, number, category_id, subcategory_id, building_id, room_id, description, image_refs,
		 status, priority, servicer_id, estimated_start_date, estimated_end_date, actual_start_date, actual_end_date,
		 created_at, created_by, modified_at, modified_by, inactive, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`, r.RequestID, r.Number, r.CategoryID, r.SubcategoryID, r.BuildingID, r.RoomID, r.Description, imageRefs(r.ImageRefs),
		r.Status, priorityText(r.Priority), r.ServicerID, r.EstimatedStartDate, r.EstimatedEndDate, r.ActualStartDate, r.ActualEndDate,
		r.CreatedAt, r.CreatedBy, r.ModifiedAt, r.ModifiedBy, r.Inactive, r.Version)
	if err := mapError(err); err != nil {
		if errors.Is(err, errDuplicate) {
			return errs.Conflict(err)
		}
		return err
	}
	return nil
}

func (tx *storeTx) UpdateRequest(ctx context.Context, r *request.Request) error {
	tag, err := tx.q.Exec(ctx, `
		UPDATE requests
		SET status=$1, priority=$2, servicer_id=$3, estimated_start_date=$4, estimated_end_date=$5,
		    actual_start_date=$6, actual_end_date=$7, modified_at=$8, modified_by=$9, inactive=$10, version=version+1
		WHERE request_id=$11 AND version=$12
	`, r.Status, priorityText(r.Priority), r.ServicerID, r.EstimatedStartDate, r.EstimatedEndDate,
		r.ActualStartDate, r.ActualEndDate, r.ModifiedAt, r.ModifiedBy, r.Inactive, r.RequestID, r.Version)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.Conflict(errors.New("request version changed"))
	}
	r.Version++
	return nil
}

func (tx *storeTx) InsertHistory(ctx context.Context, h *request.History) error {
	_, err := tx.q.Exec(ctx, `
		INSERT INTO request_histories
		(history_id, number, seq, request_id, action, from_status, to_status, priority, servicer_id,
		 sent_back_reason, reassign_reason, hold_reason, cancel_reason, created_at, created_by, actor_role,
		 inactive, signature_key_id, signature)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`, h.HistoryID, h.Number, h.Seq, h.RequestID, h.Action, statusText(h.FromStatus), h.ToStatus, priorityText(h.Priority), h.ServicerID,
		h.SentBackReason, h.ReassignReason, h.HoldReason, h.CancelReason, h.CreatedAt, h.CreatedBy, h.ActorRole,
		h.Inactive, h.SignatureKeyID, h.Signature)
	if err := mapError(err); err != nil {
		if errors.Is(err, errDuplicate) {
			return errs.Conflict(err)
		}
		return err
	}
	return nil
}

func (tx *storeTx) GetCounter(ctx context.Context, domain sequence.Domain) (*sequence.Counter, error) {
	row := tx.q.QueryRow(ctx, `SELECT domain, last_number, format, updated_at FROM counters WHERE domain=$1`, domain)
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
	tag, err := tx.q.Exec(ctx, `
		UPDATE counters SET last_number=$1, updated_at=now()
		WHERE domain=$2 AND last_number=$3
	`, next, domain, expected)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.Conflict(errors.New("counter " + string(domain) + " moved"))
	}
	return nil
}

func imageRefs(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}

func priorityText(p *request.Priority) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func statusText(s *request.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
