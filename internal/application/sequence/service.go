package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/facility-hub/facility-hub/internal/application/txn"
	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
	"github.com/facility-hub/facility-hub/internal/domain/store"
	"github.com/facility-hub/facility-hub/internal/infrastructure/telemetry"
)

// Service mints gapless, human-readable numbers per counter domain.
type Service struct {
	repo   sequence.Repository
	runner *txn.Runner
	logger zerolog.Logger
}

func NewService(repo sequence.Repository, runner *txn.Runner, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		runner: runner,
		logger: logger.With().Str("service", "sequence").Logger(),
	}
}

// Next allocates the next number of domain inside the caller's transaction.
// The increment commits or rolls back together with the caller's writes, so
// an aborted transaction never burns a number.
func (s *Service) Next(ctx context.Context, tx store.Tx, domain sequence.Domain) (string, error) {
	number, _, err := s.NextValue(ctx, tx, domain)
	return number, err
}

// NextValue is Next that also returns the raw counter value.
func (s *Service) NextValue(ctx context.Context, tx store.Tx, domain sequence.Domain) (string, int64, error) {
	c, err := tx.GetCounter(ctx, domain)
	if err != nil {
		return "", 0, err
	}
	n := c.Next()
	if err := tx.CompareAndSwapCounter(ctx, domain, c.LastNumber, n); err != nil {
		return "", 0, err
	}
	telemetry.RecordAllocation(string(domain))
	return c.Render(n), n, nil
}

// Allocate mints one number in a transaction of its own.
func (s *Service) Allocate(ctx context.Context, domain sequence.Domain) (string, error) {
	var number string
	err := s.runner.Run(ctx, "allocate:"+string(domain), func(ctx context.Context, tx store.Tx) error {
		var err error
		number, err = s.Next(ctx, tx, domain)
		return err
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

// ProvisionInput describes a counter domain to create.
type ProvisionInput struct {
	Domain sequence.Domain
	Format string
	Start  int64
}

// Provision creates a counter domain. Provisioning an existing domain is a no-op
// when ifMissing is set.
func (s *Service) Provision(ctx context.Context, input ProvisionInput, ifMissing bool) (*sequence.Counter, error) {
	if err := sequence.ValidateDomain(input.Domain); err != nil {
		return nil, errs.Validation("%v", err)
	}
	if input.Format == "" {
		input.Format = sequence.DefaultFormats[input.Domain]
	}
	if err := sequence.ValidateFormat(input.Format); err != nil {
		return nil, errs.Validation("%v", err)
	}
	if input.Start < 0 {
		return nil, errs.Validation("start must not be negative")
	}

	c := &sequence.Counter{
		Domain:     input.Domain,
		LastNumber: input.Start,
		Format:     input.Format,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, sequence.ErrCounterExists) {
			if ifMissing {
				return s.repo.Get(ctx, input.Domain)
			}
			return nil, errs.Validation("counter %s already exists", input.Domain)
		}
		return nil, fmt.Errorf("create counter: %w", err)
	}
	s.logger.Info().Str("domain", string(c.Domain)).Str("format", c.Format).Msg("counter provisioned")
	return c, nil
}

// EnsureDefaults provisions every default domain that does not exist yet.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	for _, d := range []sequence.Domain{sequence.DomainRequests, sequence.DomainRequestHistories} {
		if _, err := s.Provision(ctx, ProvisionInput{Domain: d}, true); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]*sequence.Counter, error) {
	return s.repo.List(ctx)
}
