package reference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/reference"
	"github.com/facility-hub/facility-hub/internal/domain/reference/mocks"
	"github.com/facility-hub/facility-hub/internal/infrastructure/cache"
)

func TestListBuildingsReadsThrough(t *testing.T) {
	repo := new(mocks.MockRepository)
	ctx := context.Background()
	b := &reference.Building{BuildingID: uuid.New(), Name: "North Wing"}
	repo.On("ListBuildings", ctx).Return([]*reference.Building{b}, nil).Once()

	svc := NewService(repo, cache.NewMemory(), time.Minute, zerolog.Nop())

	first, err := svc.ListBuildings(ctx)
	require.NoError(t, err)
	second, err := svc.ListBuildings(ctx)
	require.NoError(t, err)

	assert.Equal(t, first[0].BuildingID, second[0].BuildingID)
	assert.Equal(t, "North Wing", second[0].Name)
	repo.AssertNumberOfCalls(t, "ListBuildings", 1)
}

func TestCreateInvalidatesListing(t *testing.T) {
	repo := new(mocks.MockRepository)
	ctx := context.Background()
	repo.On("ListBuildings", ctx).Return([]*reference.Building{}, nil).Twice()
	repo.On("CreateBuilding", ctx, mock.AnythingOfType("*reference.Building")).Return(nil).Once()

	svc := NewService(repo, cache.NewMemory(), time.Minute, zerolog.Nop())
	_, err := svc.ListBuildings(ctx)
	require.NoError(t, err)

	b, err := svc.CreateBuilding(ctx, "  East   Annex ", "ea")
	require.NoError(t, err)
	assert.Equal(t, "East Annex", b.Name)
	assert.Equal(t, "EA", b.Code)

	_, err = svc.ListBuildings(ctx)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateRoomRequiresBuilding(t *testing.T) {
	repo := new(mocks.MockRepository)
	ctx := context.Background()
	missing := uuid.New()
	repo.On("GetBuilding", ctx, missing).Return(nil, nil)

	svc := NewService(repo, nil, 0, zerolog.Nop())
	_, err := svc.CreateRoom(ctx, missing, "101")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.CreateRoom(ctx, missing, "   ")
	assert.ErrorIs(t, err, errs.ErrValidationFailed)
}

func TestCreateSubcategory(t *testing.T) {
	repo := new(mocks.MockRepository)
	ctx := context.Background()
	cat := &reference.Category{CategoryID: uuid.New(), Name: "Electrical"}
	repo.On("GetCategory", ctx, cat.CategoryID).Return(cat, nil)
	repo.On("CreateSubcategory", ctx, mock.AnythingOfType("*reference.Subcategory")).Return(nil)

	svc := NewService(repo, nil, 0, zerolog.Nop())
	sc, err := svc.CreateSubcategory(ctx, cat.CategoryID, "Lighting")
	require.NoError(t, err)
	assert.Equal(t, cat.CategoryID, sc.CategoryID)
}

func TestListFailureIsUnavailable(t *testing.T) {
	repo := new(mocks.MockRepository)
	ctx := context.Background()
	repo.On("ListCategories", ctx).Return(nil, errors.New("connection refused"))

	svc := NewService(repo, nil, 0, zerolog.Nop())
	_, err := svc.ListCategories(ctx)
	assert.ErrorIs(t, err, errs.ErrStorageUnavailable)
}

func TestScopedListingsAreCachedSeparately(t *testing.T) {
	repo := new(mocks.MockRepository)
	ctx := context.Background()
	building := uuid.New()
	repo.On("ListRooms", ctx, (*uuid.UUID)(nil)).Return([]*reference.Room{{Name: "A"}, {Name: "B"}}, nil).Once()
	repo.On("ListRooms", ctx, &building).Return([]*reference.Room{{Name: "A"}}, nil).Once()

	svc := NewService(repo, cache.NewMemory(), time.Minute, zerolog.Nop())
	all, err := svc.ListRooms(ctx, nil)
	require.NoError(t, err)
	scoped, err := svc.ListRooms(ctx, &building)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Len(t, scoped, 1)

	_, err = svc.ListRooms(ctx, &building)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
