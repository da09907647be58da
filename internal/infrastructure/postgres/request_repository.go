package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facility-hub/facility-hub/internal/domain/request"
)

const requestColumns = `request_id, number, category_id, subcategory_id, building_id, room_id, description, image_refs,
	status, priority, servicer_id, estimated_start_date, estimated_end_date, actual_start_date, actual_end_date,
	created_at, created_by, modified_at, modified_by, inactive, version`

const historyColumns = `history_id, number, seq, request_id, action, from_status, to_status, priority, servicer_id,
	sent_back_reason, reassign_reason, hold_reason, cancel_reason, created_at, created_by, actor_role,
	inactive, signature_key_id, signature`

// RequestRepository implements request.Repository.
type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func (r *RequestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*request.Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE request_id=$1`, requestID)
	req, err := scanRequest(row)
	return req, mapError(err)
}

func (r *RequestRepository) List(ctx context.Context, filter request.Filter, limit, offset int) ([]*request.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests`
	args := []any{}
	idx := 1
	if filter.Status != nil {
		query += " WHERE status=$" + itoa(idx)
		args = append(args, string(*filter.Status))
		idx++
	}
	if filter.ServicerID != nil {
		query += addWhere(query) + " servicer_id=$" + itoa(idx)
		args = append(args, *filter.ServicerID)
		idx++
	}
	if filter.CreatedBy != nil {
		query += addWhere(query) + " created_by=$" + itoa(idx)
		args = append(args, *filter.CreatedBy)
		idx++
	}
	if filter.BuildingID != nil {
		query += addWhere(query) + " building_id=$" + itoa(idx)
		args = append(args, *filter.BuildingID)
		idx++
	}
	if filter.Inactive != nil {
		query += addWhere(query) + " inactive=$" + itoa(idx)
		args = append(args, *filter.Inactive)
		idx++
	}
	if filter.OverdueAt != nil {
		query += addWhere(query) + " estimated_end_date < $" + itoa(idx)
		args = append(args, *filter.OverdueAt)
		idx++
	}
	query += " ORDER BY created_at DESC, number DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var out []*request.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, req)
	}
	return out, mapError(rows.Err())
}

func (r *RequestRepository) ListHistory(ctx context.Context, requestID uuid.UUID) ([]*request.History, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+historyColumns+` FROM request_histories WHERE request_id=$1 ORDER BY created_at, seq`, requestID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var out []*request.History
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, h)
	}
	return out, mapError(rows.Err())
}

func (r *RequestRepository) GetHistory(ctx context.Context, historyID uuid.UUID) (*request.History, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+historyColumns+` FROM request_histories WHERE history_id=$1`, historyID)
	h, err := scanHistory(row)
	return h, mapError(err)
}

func scanRequest(row pgx.Row) (*request.Request, error) {
	var req request.Request
	var status string
	var priority *string
	if err := row.Scan(&req.RequestID, &req.Number, &req.CategoryID, &req.SubcategoryID, &req.BuildingID, &req.RoomID,
		&req.Description, &req.ImageRefs, &status, &priority, &req.ServicerID, &req.EstimatedStartDate, &req.EstimatedEndDate,
		&req.ActualStartDate, &req.ActualEndDate, &req.CreatedAt, &req.CreatedBy, &req.ModifiedAt, &req.ModifiedBy,
		&req.Inactive, &req.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	req.Status = request.Status(status)
	if priority != nil {
		p := request.Priority(*priority)
		req.Priority = &p
	}
	if len(req.ImageRefs) == 0 {
		req.ImageRefs = nil
	}
	return &req, nil
}

func scanHistory(row pgx.Row) (*request.History, error) {
	var h request.History
	var action, toStatus string
	var fromStatus, priority *string
	if err := row.Scan(&h.HistoryID, &h.Number, &h.Seq, &h.RequestID, &action, &fromStatus, &toStatus, &priority, &h.ServicerID,
		&h.SentBackReason, &h.ReassignReason, &h.HoldReason, &h.CancelReason, &h.CreatedAt, &h.CreatedBy, &h.ActorRole,
		&h.Inactive, &h.SignatureKeyID, &h.Signature); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	h.Action = request.Action(action)
	h.ToStatus = request.Status(toStatus)
	if fromStatus != nil {
		s := request.Status(*fromStatus)
		h.FromStatus = &s
	}
	if priority != nil {
		p := request.Priority(*priority)
		h.Priority = &p
	}
	return &h, nil
}
