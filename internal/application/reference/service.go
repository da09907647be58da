package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/reference"
	"github.com/facility-hub/facility-hub/internal/infrastructure/cache"
)

const (
	keyBuildings     = "ref:buildings"
	keyCategories    = "ref:categories"
	keyRoomsPrefix   = "ref:rooms:"
	keySubcatsPrefix = "ref:subcategories:"
	keyAll           = "all"
)

// Service manages buildings, rooms, categories and subcategories. Listings are
// served through a short-lived cache and are for display only; submit-time
// validation reads the repository directly.
type Service struct {
	repo   reference.Repository
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

func NewService(repo reference.Repository, c cache.Cache, ttl time.Duration, logger zerolog.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		repo:   repo,
		cache:  c,
		ttl:    ttl,
		logger: logger.With().Str("service", "reference").Logger(),
	}
}

func (s *Service) CreateBuilding(ctx context.Context, name, code string) (*reference.Building, error) {
	name = reference.NormalizeName(name)
	if err := reference.ValidateName(name); err != nil {
		return nil, errs.Validation("building %v", err)
	}
	b := &reference.Building{
		BuildingID: uuid.New(),
		Name:       name,
		Code:       strings.ToUpper(strings.TrimSpace(code)),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateBuilding(ctx, b); err != nil {
		return nil, errs.Unavailable(err)
	}
	s.invalidate(ctx, keyBuildings)
	return b, nil
}

func (s *Service) CreateRoom(ctx context.Context, buildingID uuid.UUID, name string) (*reference.Room, error) {
	name = reference.NormalizeName(name)
	if err := reference.ValidateName(name); err != nil {
		return nil, errs.Validation("room %v", err)
	}
	b, err := s.repo.GetBuilding(ctx, buildingID)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	if b == nil {
		return nil, errs.NotFound("building", buildingID)
	}
	r := &reference.Room{RoomID: uuid.New(), BuildingID: buildingID, Name: name, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateRoom(ctx, r); err != nil {
		return nil, errs.Unavailable(err)
	}
	s.invalidate(ctx, keyRoomsPrefix+keyAll, keyRoomsPrefix+buildingID.String())
	return r, nil
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*reference.Category, error) {
	name = reference.NormalizeName(name)
	if err := reference.ValidateName(name); err != nil {
		return nil, errs.Validation("category %v", err)
	}
	c := &reference.Category{CategoryID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, errs.Unavailable(err)
	}
	s.invalidate(ctx, keyCategories)
	return c, nil
}

func (s *Service) CreateSubcategory(ctx context.Context, categoryID uuid.UUID, name string) (*reference.Subcategory, error) {
	name = reference.NormalizeName(name)
	if err := reference.ValidateName(name); err != nil {
		return nil, errs.Validation("subcategory %v", err)
	}
	c, err := s.repo.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	if c == nil {
		return nil, errs.NotFound("category", categoryID)
	}
	sc := &reference.Subcategory{SubcategoryID: uuid.New(), CategoryID: categoryID, Name: name, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateSubcategory(ctx, sc); err != nil {
		return nil, errs.Unavailable(err)
	}
	s.invalidate(ctx, keySubcatsPrefix+keyAll, keySubcatsPrefix+categoryID.String())
	return sc, nil
}

func (s *Service) ListBuildings(ctx context.Context) ([]*reference.Building, error) {
	return readThrough(ctx, s, keyBuildings, func() ([]*reference.Building, error) {
		return s.repo.ListBuildings(ctx)
	})
}

func (s *Service) ListRooms(ctx context.Context, buildingID *uuid.UUID) ([]*reference.Room, error) {
	return readThrough(ctx, s, keyRoomsPrefix+scope(buildingID), func() ([]*reference.Room, error) {
		return s.repo.ListRooms(ctx, buildingID)
	})
}

func (s *Service) ListCategories(ctx context.Context) ([]*reference.Category, error) {
	return readThrough(ctx, s, keyCategories, func() ([]*reference.Category, error) {
		return s.repo.ListCategories(ctx)
	})
}

func (s *Service) ListSubcategories(ctx context.Context, categoryID *uuid.UUID) ([]*reference.Subcategory, error) {
	return readThrough(ctx, s, keySubcatsPrefix+scope(categoryID), func() ([]*reference.Subcategory, error) {
		return s.repo.ListSubcategories(ctx, categoryID)
	})
}

func scope(id *uuid.UUID) string {
	if id == nil {
		return keyAll
	}
	return id.String()
}

func readThrough[T any](ctx context.Context, s *Service, key string, load func() ([]T, error)) ([]T, error) {
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if ok {
		var out []T
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		s.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	out, err := load()
	if err != nil {
		return nil, errs.Unavailable(fmt.Errorf("list %s: %w", key, err))
	}
	if data, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}
