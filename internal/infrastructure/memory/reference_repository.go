package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/reference"
)

// ReferenceRepository implements reference.Repository.
type ReferenceRepository struct {
	s *Store
}

func (s *Store) References() *ReferenceRepository {
	return &ReferenceRepository{s: s}
}

func (r *ReferenceRepository) CreateBuilding(ctx context.Context, b *reference.Building) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *b
	r.s.buildings[b.BuildingID] = &cp
	return nil
}

func (r *ReferenceRepository) CreateRoom(ctx context.Context, rm *reference.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *rm
	r.s.rooms[rm.RoomID] = &cp
	return nil
}

func (r *ReferenceRepository) CreateCategory(ctx context.Context, c *reference.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.categories[c.CategoryID] = &cp
	return nil
}

func (r *ReferenceRepository) CreateSubcategory(ctx context.Context, sc *reference.Subcategory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *sc
	r.s.subcategories[sc.SubcategoryID] = &cp
	return nil
}

func (r *ReferenceRepository) GetBuilding(ctx context.Context, id uuid.UUID) (*reference.Building, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyOf(r.s.buildings[id]), nil
}

func (r *ReferenceRepository) GetRoom(ctx context.Context, id uuid.UUID) (*reference.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyOf(r.s.rooms[id]), nil
}

func (r *ReferenceRepository) GetCategory(ctx context.Context, id uuid.UUID) (*reference.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyOf(r.s.categories[id]), nil
}

func (r *ReferenceRepository) GetSubcategory(ctx context.Context, id uuid.UUID) (*reference.Subcategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyOf(r.s.subcategories[id]), nil
}

func (r *ReferenceRepository) ListBuildings(ctx context.Context) ([]*reference.Building, error) {
	r.s.mu.RLock()
	out := collect(r.s.buildings, func(*reference.Building) bool { return true })
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ReferenceRepository) ListRooms(ctx context.Context, buildingID *uuid.UUID) ([]*reference.Room, error) {
	r.s.mu.RLock()
	out := collect(r.s.rooms, func(rm *reference.Room) bool {
		return buildingID == nil || rm.BuildingID == *buildingID
	})
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ReferenceRepository) ListCategories(ctx context.Context) ([]*reference.Category, error) {
	r.s.mu.RLock()
	out := collect(r.s.categories, func(*reference.Category) bool { return true })
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ReferenceRepository) ListSubcategories(ctx context.Context, categoryID *uuid.UUID) ([]*reference.Subcategory, error) {
	r.s.mu.RLock()
	out := collect(r.s.subcategories, func(sc *reference.Subcategory) bool {
		return categoryID == nil || sc.CategoryID == *categoryID
	})
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func collect[T any](m map[uuid.UUID]*T, keep func(*T) bool) []*T {
	out := make([]*T, 0, len(m))
	for _, v := range m {
		if keep(v) {
			out = append(out, copyOf(v))
		}
	}
	return out
}
