package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/session"
	"github.com/facility-hub/facility-hub/internal/domain/user"
)

const userColumns = `user_id, username, display_name, password_hash, role, user_type, status, created_at, updated_at`

// UserRepository implements user.Repository.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, display_name, password_hash, role, user_type, status, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)
	`, u.UserID.String(), u.Username, u.DisplayName, u.PasswordHash, string(u.Role), string(u.Type), string(u.Status),
		timeText(u.CreatedAt), timeText(u.UpdatedAt))
	err = mapError(err)
	if errors.Is(err, errDuplicate) {
		return user.ErrUsernameTaken
	}
	return err
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET username=?, display_name=?, password_hash=?, role=?, user_type=?, status=?, updated_at=?
		WHERE user_id=?
	`, u.Username, u.DisplayName, u.PasswordHash, string(u.Role), string(u.Type), string(u.Status), timeText(u.UpdatedAt), u.UserID.String())
	err = mapError(err)
	if errors.Is(err, errDuplicate) {
		return user.ErrUsernameTaken
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=?`, userID.String())
	return scanOne(row, scanUser)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`, username)
	return scanOne(row, scanUser)
}

func (r *UserRepository) List(ctx context.Context, filter user.Filter, limit, offset int) ([]*user.User, error) {
	var where []string
	var args []any
	if filter.Role != nil {
		where = append(where, "role=?")
		args = append(args, string(*filter.Role))
	}
	if filter.Type != nil {
		where = append(where, "user_type=?")
		args = append(args, string(*filter.Type))
	}
	if filter.Status != nil {
		where = append(where, "status=?")
		args = append(args, string(*filter.Status))
	}
	if filter.Username != nil {
		where = append(where, "username=?")
		args = append(args, *filter.Username)
	}
	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	return collectRows(rows, err, scanUser)
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	var role, typ, status, createdAt, updatedAt string
	if err := row.Scan(&u.UserID, &u.Username, &u.DisplayName, &u.PasswordHash, &role, &typ, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.Role = user.Role(role)
	u.Type = user.Type(typ)
	u.Status = user.Status(status)
	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// SessionRepository implements session.Repository.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, token_hash, user_id, created_at, expires_at, last_seen_at, user_agent, ip_address)
		VALUES (?,?,?,?,?,?,?,?)
	`, s.SessionID.String(), s.TokenHash, s.UserID.String(), timeText(s.CreatedAt), timeText(s.ExpiresAt),
		nullTimeText(s.LastSeenAt), nullString(s.UserAgent), nullString(s.IPAddress))
	return mapError(err)
}

func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_id, token_hash, user_id, created_at, expires_at, last_seen_at, user_agent, ip_address
		FROM sessions WHERE token_hash=?
	`, tokenHash)
	return scanOne(row, scanSession)
}

func (r *SessionRepository) DeleteByID(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id=?`, sessionID.String())
	return mapError(err)
}

func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash=?`, tokenHash)
	return mapError(err)
}

func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	return r.deleteWhere(ctx, `DELETE FROM sessions WHERE user_id=?`, userID.String())
}

func (r *SessionRepository) UpdateLastSeen(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at=? WHERE session_id=?`, timeText(time.Now()), sessionID.String())
	return mapError(err)
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int, error) {
	return r.deleteWhere(ctx, `DELETE FROM sessions WHERE expires_at < ?`, timeText(time.Now()))
}

func (r *SessionRepository) deleteWhere(ctx context.Context, query string, args ...any) (int, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err)
	}
	return int(n), nil
}

func scanSession(row rowScanner) (*session.Session, error) {
	var s session.Session
	var createdAt, expiresAt string
	var lastSeen, userAgent, ip sql.NullString
	if err := row.Scan(&s.SessionID, &s.TokenHash, &s.UserID, &createdAt, &expiresAt, &lastSeen, &userAgent, &ip); err != nil {
		return nil, err
	}
	var err error
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if s.LastSeenAt, err = parseNullTime(lastSeen); err != nil {
		return nil, err
	}
	s.UserAgent = stringPtr(userAgent)
	s.IPAddress = stringPtr(ip)
	return &s, nil
}
