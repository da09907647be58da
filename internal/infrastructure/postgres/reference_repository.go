package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facility-hub/facility-hub/internal/domain/reference"
)

// ReferenceRepository implements reference.Repository.
type ReferenceRepository struct {
	pool *pgxpool.Pool
}

func NewReferenceRepository(pool *pgxpool.Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

func (r *ReferenceRepository) CreateBuilding(ctx context.Context, b *reference.Building) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO buildings (building_id, name, code, inactive, created_at) VALUES ($1,$2,$3,$4,$5)
	`, b.BuildingID, b.Name, b.Code, b.Inactive, b.CreatedAt)
	return mapError(err)
}

func (r *ReferenceRepository) CreateRoom(ctx context.Context, rm *reference.Room) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rooms (room_id, building_id, name, inactive, created_at) VALUES ($1,$2,$3,$4,$5)
	`, rm.RoomID, rm.BuildingID, rm.Name, rm.Inactive, rm.CreatedAt)
	return mapError(err)
}

func (r *ReferenceRepository) CreateCategory(ctx context.Context, c *reference.Category) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO categories (category_id, name, inactive, created_at) VALUES ($1,$2,$3,$4)
	`, c.CategoryID, c.Name, c.Inactive, c.CreatedAt)
	return mapError(err)
}

func (r *ReferenceRepository) CreateSubcategory(ctx context.Context, sc *reference.Subcategory) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subcategories (subcategory_id, category_id, name, inactive, created_at) VALUES ($1,$2,$3,$4,$5)
	`, sc.SubcategoryID, sc.CategoryID, sc.Name, sc.Inactive, sc.CreatedAt)
	return mapError(err)
}

func (r *ReferenceRepository) GetBuilding(ctx context.Context, id uuid.UUID) (*reference.Building, error) {
	row := r.pool.QueryRow(ctx, `SELECT building_id, name, code, inactive, created_at FROM buildings WHERE building_id=$1`, id)
	return scanOne(row, scanBuilding)
}

func (r *ReferenceRepository) GetRoom(ctx context.Context, id uuid.UUID) (*reference.Room, error) {
	row := r.pool.QueryRow(ctx, `SELECT room_id, building_id, name, inactive, created_at FROM rooms WHERE room_id=$1`, id)
	return scanOne(row, scanRoom)
}

func (r *ReferenceRepository) GetCategory(ctx context.Context, id uuid.UUID) (*reference.Category, error) {
	row := r.pool.QueryRow(ctx, `SELECT category_id, name, inactive, created_at FROM categories WHERE category_id=$1`, id)
	return scanOne(row, scanCategory)
}

func (r *ReferenceRepository) GetSubcategory(ctx context.Context, id uuid.UUID) (*reference.Subcategory, error) {
	row := r.pool.QueryRow(ctx, `SELECT subcategory_id, category_id, name, inactive, created_at FROM subcategories WHERE subcategory_id=$1`, id)
	return scanOne(row, scanSubcategory)
}

func (r *ReferenceRepository) ListBuildings(ctx context.Context) ([]*reference.Building, error) {
	rows, err := r.pool.Query(ctx, `SELECT building_id, name, code, inactive, created_at FROM buildings ORDER BY name`)
	return collectRows(rows, err, scanBuilding)
}

func (r *ReferenceRepository) ListRooms(ctx context.Context, buildingID *uuid.UUID) ([]*reference.Room, error) {
	if buildingID == nil {
		rows, err := r.pool.Query(ctx, `SELECT room_id, building_id, name, inactive, created_at FROM rooms ORDER BY name`)
		return collectRows(rows, err, scanRoom)
	}
	rows, err := r.pool.Query(ctx, `SELECT room_id, building_id, name, inactive, created_at FROM rooms WHERE building_id=$1 ORDER BY name`, *buildingID)
	return collectRows(rows, err, scanRoom)
}

func (r *ReferenceRepository) ListCategories(ctx context.Context) ([]*reference.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT category_id, name, inactive, created_at FROM categories ORDER BY name`)
	return collectRows(rows, err, scanCategory)
}

func (r *ReferenceRepository) ListSubcategories(ctx context.Context, categoryID *uuid.UUID) ([]*reference.Subcategory, error) {
	if categoryID == nil {
		rows, err := r.pool.Query(ctx, `SELECT subcategory_id, category_id, name, inactive, created_at FROM subcategories ORDER BY name`)
		return collectRows(rows, err, scanSubcategory)
	}
	rows, err := r.pool.Query(ctx, `SELECT subcategory_id, category_id, name, inactive, created_at FROM subcategories WHERE category_id=$1 ORDER BY name`, *categoryID)
	return collectRows(rows, err, scanSubcategory)
}

func scanOne[T any](row pgx.Row, scan func(pgx.Row) (*T, error)) (*T, error) {
	v, err := scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(err)
	}
	return v, nil
}

func collectRows[T any](rows pgx.Rows, err error, scan func(pgx.Row) (*T, error)) ([]*T, error) {
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
		out = append(out, v)
	}
	return out, mapError(rows.Err())
}

func scanBuilding(row pgx.Row) (*reference.Building, error) {
	var b reference.Building
	if err := row.Scan(&b.BuildingID, &b.Name, &b.Code, &b.Inactive, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanRoom(row pgx.Row) (*reference.Room, error) {
	var rm reference.Room
	if err := row.Scan(&rm.RoomID, &rm.BuildingID, &rm.Name, &rm.Inactive, &rm.CreatedAt); err != nil {
		return nil, err
	}
	return &rm, nil
}

func scanCategory(row pgx.Row) (*reference.Category, error) {
	var c reference.Category
	if err := row.Scan(&c.CategoryID, &c.Name, &c.Inactive, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanSubcategory(row pgx.Row) (*reference.Subcategory, error) {
	var sc reference.Subcategory
	if err := row.Scan(&sc.SubcategoryID, &sc.CategoryID, &sc.Name, &sc.Inactive, &sc.CreatedAt); err != nil {
		return nil, err
	}
	return &sc, nil
}
