package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facility-hub/facility-hub/internal/domain/user"
)

const userColumns = `user_id, username, display_name, password_hash, role, user_type, status, created_at, updated_at`

// UserRepository implements user.Repository.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users
		(user_id, username, display_name, password_hash, role, user_type, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, u.UserID, u.Username, u.DisplayName, u.PasswordHash, u.Role, u.Type, u.Status, u.CreatedAt, u.UpdatedAt)
	err = mapError(err)
	if errors.Is(err, errDuplicate) {
		return user.ErrUsernameTaken
	}
	return err
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET username=$1, display_name=$2, password_hash=$3, role=$4, user_type=$5, status=$6, updated_at=$7
		WHERE user_id=$8
	`, u.Username, u.DisplayName, u.PasswordHash, u.Role, u.Type, u.Status, u.UpdatedAt, u.UserID)
	err = mapError(err)
	if errors.Is(err, errDuplicate) {
		return user.ErrUsernameTaken
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, userID)
	return scanOne(row, scanUser)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
	return scanOne(row, scanUser)
}

func (r *UserRepository) List(ctx context.Context, filter user.Filter, limit, offset int) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	idx := 1
	if filter.Role != nil {
		query += " WHERE role=$" + itoa(idx)
		args = append(args, string(*filter.Role))
		idx++
	}
	if filter.Type != nil {
		query += addWhere(query) + " user_type=$" + itoa(idx)
		args = append(args, string(*filter.Type))
		idx++
	}
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, string(*filter.Status))
		idx++
	}
	if filter.Username != nil {
		query += addWhere(query) + " username=$" + itoa(idx)
		args = append(args, *filter.Username)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	return collectRows(rows, err, scanUser)
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var role, typ, status string
	if err := row.Scan(&u.UserID, &u.Username, &u.DisplayName, &u.PasswordHash, &role, &typ, &status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = user.Role(role)
	u.Type = user.Type(typ)
	u.Status = user.Status(status)
	return &u, nil
}
