package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/facility-hub/facility-hub/internal/application/guard"
	"github.com/facility-hub/facility-hub/internal/clock"
	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/user"
	"github.com/facility-hub/facility-hub/internal/infrastructure/telemetry"
)

// Engine is the subset of the lifecycle engine the sweeper drives.
type Engine interface {
	Authorize(ctx context.Context, actor guard.Actor, op request.Operation) (guard.Actor, error)
	MarkDelayed(ctx context.Context, actor guard.Actor, requestID uuid.UUID) (*request.Request, error)
}

// Config tunes a sweep.
type Config struct {
	Concurrency int
	PageSize    int
}

// Service moves overdue in-progress requests to delayed through the engine's
// guarded markDelayed path.
type Service struct {
	engine   Engine
	requests request.Repository
	clock    clock.Clock
	cfg      Config
	logger   zerolog.Logger
}

func NewService(engine Engine, requests request.Repository, clk clock.Clock, cfg Config, logger zerolog.Logger) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{
		engine:   engine,
		requests: requests,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With().Str("service", "sweeper").Logger(),
	}
}

// Sweep transitions every overdue request and returns how many transitions
// committed. Requests that lose a race with a manual transition are skipped.
func (s *Service) Sweep(ctx context.Context, actor guard.Actor) (int, error) {
	delayed, err := s.sweep(ctx, actor)
	telemetry.RecordSweep(delayed, err)
	return delayed, err
}

func (s *Service) sweep(ctx context.Context, actor guard.Actor) (int, error) {
	actor, err := s.engine.Authorize(ctx, actor, request.OpMarkDelayed)
	if err != nil {
		return 0, err
	}

	ids, err := s.candidates(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var delayed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			_, err := s.engine.MarkDelayed(gctx, actor, id)
			switch {
			case err == nil:
				delayed.Add(1)
			case errors.Is(err, errs.ErrGuardRejected), errors.Is(err, errs.ErrNotFound):
				s.logger.Debug().Err(err).Str("requestId", id.String()).Msg("request no longer overdue")
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				failed.Add(1)
				s.logger.Warn().Err(err).Str("requestId", id.String()).Msg("failed to mark request delayed")
			}
			return nil
		})
	}
	err = g.Wait()

	s.logger.Info().
		Int("candidates", len(ids)).
		Int64("delayed", delayed.Load()).
		Int64("failed", failed.Load()).
		Msg("sweep finished")
	return int(delayed.Load()), err
}

// candidates snapshots the overdue request ids before any transition runs, so
// paging is not disturbed by requests leaving the result set.
func (s *Service) candidates(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	status := request.StatusInProgress
	active := false
	filter := request.Filter{Status: &status, Inactive: &active, OverdueAt: &now}

	var ids []uuid.UUID
	for offset := 0; ; offset += s.cfg.PageSize {
		page, err := s.requests.List(ctx, filter, s.cfg.PageSize, offset)
		if err != nil {
			return nil, errs.Unavailable(err)
		}
		for _, r := range page {
			ids = append(ids, r.RequestID)
		}
		if len(page) < s.cfg.PageSize {
			return ids, nil
		}
	}
}

// Run sweeps as the system actor every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	system := guard.Actor{ID: user.SystemActorID, Role: user.RoleSystem}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("delay sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("delay sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx, system); err != nil && ctx.Err() == nil {
				s.logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}
