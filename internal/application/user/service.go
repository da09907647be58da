package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/facility-hub/facility-hub/internal/clock"
	"github.com/facility-hub/facility-hub/internal/domain/errs"
	domain "github.com/facility-hub/facility-hub/internal/domain/user"
)

// SessionRevoker drops every session of a user.
type SessionRevoker interface {
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int, error)
}

// Service handles user management.
type Service struct {
	repo     domain.Repository
	sessions SessionRevoker
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewService creates a user service.
func NewService(repo domain.Repository, sessions SessionRevoker, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		clock:    clk,
		logger:   logger.With().Str("service", "user").Logger(),
	}
}

// CreateInput defines user creation input.
type CreateInput struct {
	Username    string
	DisplayName string
	Password    string
	Role        domain.Role
	Status      domain.Status
}

// UpdateInput defines user update input.
type UpdateInput struct {
	DisplayName *string
	Role        *domain.Role
	Status      *domain.Status
}

func (s *Service) CreateUser(ctx context.Context, input CreateInput) (*domain.User, error) {
	username := domain.NormalizeUsername(input.Username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, errs.Validation("%s", err)
	}
	if err := domain.ValidatePassword(input.Password, username); err != nil {
		return nil, errs.Validation("%s", err)
	}
	if err := domain.ValidateRole(input.Role); err != nil {
		return nil, errs.Validation("%s", err)
	}
	if input.Status == "" {
		input.Status = domain.StatusActive
	}
	if err := domain.ValidateStatus(input.Status); err != nil {
		return nil, errs.Validation("%s", err)
	}
	displayName := input.DisplayName
	if displayName == "" {
		displayName = username
	}

	hash, err := domain.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	u := &domain.User{
		UserID:       uuid.New(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         input.Role,
		Type:         domain.TypeHuman,
		Status:       input.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return nil, errs.Validation("username %q already exists", username)
		}
		return nil, errs.Unavailable(err)
	}

	s.logger.Info().Str("user_id", u.UserID.String()).Str("username", u.Username).Str("role", string(u.Role)).Msg("user created")
	return u, nil
}

// BootstrapAdmin creates the first admin when no user exists yet. It returns
// nil, nil when users are already present.
func (s *Service) BootstrapAdmin(ctx context.Context, username, password string) (*domain.User, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	if n > 0 {
		return nil, nil
	}
	return s.CreateUser(ctx, CreateInput{Username: username, Password: password, Role: domain.RoleAdmin})
}

func (s *Service) UpdateUser(ctx context.Context, userID uuid.UUID, input UpdateInput) (*domain.User, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.DisplayName != nil {
		u.DisplayName = *input.DisplayName
	}
	if input.Role != nil {
		if err := domain.ValidateRole(*input.Role); err != nil {
			return nil, errs.Validation("%s", err)
		}
		u.Role = *input.Role
	}
	disabling := false
	if input.Status != nil {
		if err := domain.ValidateStatus(*input.Status); err != nil {
			return nil, errs.Validation("%s", err)
		}
		disabling = *input.Status == domain.StatusDisabled && u.Status != domain.StatusDisabled
		u.Status = *input.Status
	}
	u.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, errs.Unavailable(err)
	}
	if disabling {
		n, err := s.sessions.DeleteByUserID(ctx, u.UserID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", u.UserID.String()).Msg("failed to revoke sessions")
		} else {
			s.logger.Info().Str("user_id", u.UserID.String()).Int("sessions", n).Msg("user disabled")
		}
	}
	return u, nil
}

func (s *Service) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	u, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := domain.ValidatePassword(password, u.Username); err != nil {
		return errs.Validation("%s", err)
	}
	hash, err := domain.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, u); err != nil {
		return errs.Unavailable(err)
	}
	return nil
}

// GetUser returns the user or a NotFound error.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.load(ctx, userID)
}

func (s *Service) ListUsers(ctx context.Context, filter domain.Filter, limit, offset int) ([]*domain.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	users, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	return users, nil
}

func (s *Service) load(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	if u == nil {
		return nil, errs.NotFound("user", userID)
	}
	return u, nil
}
