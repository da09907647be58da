package reference

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for reference data. Getters return nil, nil
// when the row does not exist.
type Repository interface {
	CreateBuilding(ctx context.Context, b *Building) error
	CreateRoom(ctx context.Context, r *Room) error
	CreateCategory(ctx context.Context, c *Category) error
	CreateSubcategory(ctx context.Context, s *Subcategory) error

	GetBuilding(ctx context.Context, id uuid.UUID) (*Building, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*Room, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	GetSubcategory(ctx context.Context, id uuid.UUID) (*Subcategory, error)

	ListBuildings(ctx context.Context) ([]*Building, error)
	ListRooms(ctx context.Context, buildingID *uuid.UUID) ([]*Room, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	ListSubcategories(ctx context.Context, categoryID *uuid.UUID) ([]*Subcategory, error)
}
