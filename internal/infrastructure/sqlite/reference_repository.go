package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/reference"
)

// ReferenceRepository implements reference.Repository.
type ReferenceRepository struct {
	db *sql.DB
}

func NewReferenceRepository(db *sql.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) CreateBuilding(ctx context.Context, b *reference.Building) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO buildings (building_id, name, code, inactive, created_at) VALUES (?,?,?,?,?)`,
		b.BuildingID.String(), b.Name, b.Code, b.Inactive, timeText(b.CreatedAt))
	return mapError(err)
}

func (r *ReferenceRepository) CreateRoom(ctx context.Context, rm *reference.Room) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO rooms (room_id, building_id, name, inactive, created_at) VALUES (?,?,?,?,?)`,
		rm.RoomID.String(), rm.BuildingID.String(), rm.Name, rm.Inactive, timeText(rm.CreatedAt))
	return mapError(err)
}

func (r *ReferenceRepository) CreateCategory(ctx context.Context, c *reference.Category) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (category_id, name, inactive, created_at) VALUES (?,?,?,?)`,
		c.CategoryID.String(), c.Name, c.Inactive, timeText(c.CreatedAt))
	return mapError(err)
}

func (r *ReferenceRepository) CreateSubcategory(ctx context.Context, sc *reference.Subcategory) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO subcategories (subcategory_id, category_id, name, inactive, created_at) VALUES (?,?,?,?,?)`,
		sc.SubcategoryID.String(), sc.CategoryID.String(), sc.Name, sc.Inactive, timeText(sc.CreatedAt))
	return mapError(err)
}

func (r *ReferenceRepository) GetBuilding(ctx context.Context, id uuid.UUID) (*reference.Building, error) {
	row := r.db.QueryRowContext(ctx, `SELECT building_id, name, code, inactive, created_at FROM buildings WHERE building_id=?`, id.String())
	return scanOne(row, scanBuilding)
}

func (r *ReferenceRepository) GetRoom(ctx context.Context, id uuid.UUID) (*reference.Room, error) {
	row := r.db.QueryRowContext(ctx, `SELECT room_id, building_id, name, inactive, created_at FROM rooms WHERE room_id=?`, id.String())
	return scanOne(row, scanRoom)
}

func (r *ReferenceRepository) GetCategory(ctx context.Context, id uuid.UUID) (*reference.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT category_id, name, inactive, created_at FROM categories WHERE category_id=?`, id.String())
	return scanOne(row, scanCategory)
}

func (r *ReferenceRepository) GetSubcategory(ctx context.Context, id uuid.UUID) (*reference.Subcategory, error) {
	row := r.db.QueryRowContext(ctx, `SELECT subcategory_id, category_id, name, inactive, created_at FROM subcategories WHERE subcategory_id=?`, id.String())
	return scanOne(row, scanSubcategory)
}

func (r *ReferenceRepository) ListBuildings(ctx context.Context) ([]*reference.Building, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT building_id, name, code, inactive, created_at FROM buildings ORDER BY name`)
	return collectRows(rows, err, scanBuilding)
}

func (r *ReferenceRepository) ListRooms(ctx context.Context, buildingID *uuid.UUID) ([]*reference.Room, error) {
	query := `SELECT room_id, building_id, name, inactive, created_at FROM rooms`
	var args []any
	if buildingID != nil {
		query += ` WHERE building_id=?`
		args = append(args, buildingID.String())
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY name`, args...)
	return collectRows(rows, err, scanRoom)
}

func (r *ReferenceRepository) ListCategories(ctx context.Context) ([]*reference.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category_id, name, inactive, created_at FROM categories ORDER BY name`)
	return collectRows(rows, err, scanCategory)
}

func (r *ReferenceRepository) ListSubcategories(ctx context.Context, categoryID *uuid.UUID) ([]*reference.Subcategory, error) {
	query := `SELECT subcategory_id, category_id, name, inactive, created_at FROM subcategories`
	var args []any
	if categoryID != nil {
		query += ` WHERE category_id=?`
		args = append(args, categoryID.String())
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY name`, args...)
	return collectRows(rows, err, scanSubcategory)
}

func scanOne[T any](row rowScanner, scan func(rowScanner) (*T, error)) (*T, error) {
	v, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(err)
	}
	return v, nil
}

func scanBuilding(row rowScanner) (*reference.Building, error) {
	var b reference.Building
	var createdAt string
	if err := row.Scan(&b.BuildingID, &b.Name, &b.Code, &b.Inactive, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	b.CreatedAt = t
	return &b, err
}

func scanRoom(row rowScanner) (*reference.Room, error) {
	var rm reference.Room
	var createdAt string
	if err := row.Scan(&rm.RoomID, &rm.BuildingID, &rm.Name, &rm.Inactive, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	rm.CreatedAt = t
	return &rm, err
}

func scanCategory(row rowScanner) (*reference.Category, error) {
	var c reference.Category
	var createdAt string
	if err := row.Scan(&c.CategoryID, &c.Name, &c.Inactive, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	c.CreatedAt = t
	return &c, err
}

func scanSubcategory(row rowScanner) (*reference.Subcategory, error) {
	var sc reference.Subcategory
	var createdAt string
	if err := row.Scan(&sc.SubcategoryID, &sc.CategoryID, &sc.Name, &sc.Inactive, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	sc.CreatedAt = t
	return &sc, err
}
