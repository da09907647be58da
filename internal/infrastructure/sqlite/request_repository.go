package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
)

const requestColumns = `request_id, number, category_id, subcategory_id, building_id, room_id, description, image_refs,
	status, priority, servicer_id, estimated_start_date, estimated_end_date, actual_start_date, actual_end_date,
	created_at, created_by, modified_at, modified_by, inactive, version`

const historyColumns = `history_id, number, seq, request_id, action, from_status, to_status, priority, servicer_id,
	sent_back_reason, reassign_reason, hold_reason, cancel_reason, created_at, created_by, actor_role,
	inactive, signature_key_id, signature`

type rowScanner interface {
	Scan(dest ...any) error
}

// RequestRepository implements request.Repository.
type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*request.Request, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE request_id=?`, requestID.String())
	req, err := scanRequest(row)
	return req, mapError(err)
}

func (r *RequestRepository) List(ctx context.Context, filter request.Filter, limit, offset int) ([]*request.Request, error) {
	var where []string
	var args []any
	if filter.Status != nil {
		where = append(where, "status=?")
		args = append(args, string(*filter.Status))
	}
	if filter.ServicerID != nil {
		where = append(where, "servicer_id=?")
		args = append(args, filter.ServicerID.String())
	}
	if filter.CreatedBy != nil {
		where = append(where, "created_by=?")
		args = append(args, filter.CreatedBy.String())
	}
	if filter.BuildingID != nil {
		where = append(where, "building_id=?")
		args = append(args, filter.BuildingID.String())
	}
	if filter.Inactive != nil {
		where = append(where, "inactive=?")
		args = append(args, *filter.Inactive)
	}
	if filter.OverdueAt != nil {
		where = append(where, "estimated_end_date < ?")
		args = append(args, timeText(*filter.OverdueAt))
	}
	query := `SELECT ` + requestColumns + ` FROM requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, number DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	return collectRows(rows, err, scanRequest)
}

func (r *RequestRepository) ListHistory(ctx context.Context, requestID uuid.UUID) ([]*request.History, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+historyColumns+` FROM request_histories WHERE request_id=? ORDER BY created_at, seq`, requestID.String())
	return collectRows(rows, err, scanHistory)
}

func (r *RequestRepository) GetHistory(ctx context.Context, historyID uuid.UUID) (*request.History, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM request_histories WHERE history_id=?`, historyID.String())
	h, err := scanHistory(row)
	return h, mapError(err)
}

// CounterRepository implements sequence.Repository.
type CounterRepository struct {
	db *sql.DB
}

func NewCounterRepository(db *sql.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

func (r *CounterRepository) Create(ctx context.Context, c *sequence.Counter) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO counters (domain, last_number, format, updated_at) VALUES (?,?,?,?)`,
		string(c.Domain), c.LastNumber, c.Format, timeText(c.UpdatedAt))
	err = mapError(err)
	if errors.Is(err, errDuplicate) {
		return sequence.ErrCounterExists
	}
	return err
}

func (r *CounterRepository) Get(ctx context.Context, domain sequence.Domain) (*sequence.Counter, error) {
	row := r.db.QueryRowContext(ctx, `SELECT domain, last_number, format, updated_at FROM counters WHERE domain=?`, string(domain))
	c, err := scanCounter(row)
	return c, mapError(err)
}

func (r *CounterRepository) List(ctx context.Context) ([]*sequence.Counter, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT domain, last_number, format, updated_at FROM counters ORDER BY domain`)
	return collectRows(rows, err, scanCounter)
}

// collectRows drains rows with scan. A nil element from scan is skipped.
func collectRows[T any](rows *sql.Rows, err error, scan func(rowScanner) (*T, error)) ([]*T, error) {
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, mapError(err)
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, mapError(rows.Err())
}

func scanRequest(row rowScanner) (*request.Request, error) {
	var req request.Request
	var refs, status string
	var priority, servicer, estStart, estEnd, actStart, actEnd sql.NullString
	var createdAt, modifiedAt string
	if err := row.Scan(&req.RequestID, &req.Number, &req.CategoryID, &req.SubcategoryID, &req.BuildingID, &req.RoomID,
		&req.Description, &refs, &status, &priority, &servicer, &estStart, &estEnd, &actStart, &actEnd,
		&createdAt, &req.CreatedBy, &modifiedAt, &req.ModifiedBy, &req.Inactive, &req.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(refs), &req.ImageRefs); err != nil {
		return nil, err
	}
	if len(req.ImageRefs) == 0 {
		req.ImageRefs = nil
	}
	req.Status = request.Status(status)
	if priority.Valid {
		p := request.Priority(priority.String)
		req.Priority = &p
	}
	var err error
	if req.ServicerID, err = parseNullUUID(servicer); err != nil {
		return nil, err
	}
	if req.EstimatedStartDate, err = parseNullTime(estStart); err != nil {
		return nil, err
	}
	if req.EstimatedEndDate, err = parseNullTime(estEnd); err != nil {
		return nil, err
	}
	if req.ActualStartDate, err = parseNullTime(actStart); err != nil {
		return nil, err
	}
	if req.ActualEndDate, err = parseNullTime(actEnd); err != nil {
		return nil, err
	}
	if req.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if req.ModifiedAt, err = parseTime(modifiedAt); err != nil {
		return nil, err
	}
	return &req, nil
}

func scanHistory(row rowScanner) (*request.History, error) {
	var h request.History
	var action, toStatus, createdAt string
	var from, priority, servicer, sentBack, reassign, hold, cancel sql.NullString
	if err := row.Scan(&h.HistoryID, &h.Number, &h.Seq, &h.RequestID, &action, &from, &toStatus, &priority, &servicer,
		&sentBack, &reassign, &hold, &cancel, &createdAt, &h.CreatedBy, &h.ActorRole,
		&h.Inactive, &h.SignatureKeyID, &h.Signature); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	h.Action = request.Action(action)
	h.ToStatus = request.Status(toStatus)
	if from.Valid {
		s := request.Status(from.String)
		h.FromStatus = &s
	}
	if priority.Valid {
		p := request.Priority(priority.String)
		h.Priority = &p
	}
	var err error
	if h.ServicerID, err = parseNullUUID(servicer); err != nil {
		return nil, err
	}
	h.SentBackReason = stringPtr(sentBack)
	h.ReassignReason = stringPtr(reassign)
	h.HoldReason = stringPtr(hold)
	h.CancelReason = stringPtr(cancel)
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func scanCounter(row rowScanner) (*sequence.Counter, error) {
	var c sequence.Counter
	var domain, updatedAt string
	if err := row.Scan(&domain, &c.LastNumber, &c.Format, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.Domain = sequence.Domain(domain)
	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt = t
	return &c, nil
}
