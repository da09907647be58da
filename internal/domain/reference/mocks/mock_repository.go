package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/facility-hub/facility-hub/internal/domain/reference"
)

// MockRepository is a mock implementation of reference.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateBuilding(ctx context.Context, b *reference.Building) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockRepository) CreateRoom(ctx context.Context, r *reference.Room) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRepository) CreateCategory(ctx context.Context, c *reference.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRepository) CreateSubcategory(ctx context.Context, s *reference.Subcategory) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockRepository) GetBuilding(ctx context.Context, id uuid.UUID) (*reference.Building, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reference.Building), args.Error(1)
}

func (m *MockRepository) GetRoom(ctx context.Context, id uuid.UUID) (*reference.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reference.Room), args.Error(1)
}

func (m *MockRepository) GetCategory(ctx context.Context, id uuid.UUID) (*reference.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reference.Category), args.Error(1)
}

func (m *MockRepository) GetSubcategory(ctx context.Context, id uuid.UUID) (*reference.Subcategory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reference.Subcategory), args.Error(1)
}

func (m *MockRepository) ListBuildings(ctx context.Context) ([]*reference.Building, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reference.Building), args.Error(1)
}

func (m *MockRepository) ListRooms(ctx context.Context, buildingID *uuid.UUID) ([]*reference.Room, error) {
	args := m.Called(ctx, buildingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reference.Room), args.Error(1)
}

func (m *MockRepository) ListCategories(ctx context.Context) ([]*reference.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reference.Category), args.Error(1)
}

func (m *MockRepository) ListSubcategories(ctx context.Context, categoryID *uuid.UUID) ([]*reference.Subcategory, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reference.Subcategory), args.Error(1)
}
