package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appAudit "github.com/facility-hub/facility-hub/internal/application/audit"
	"github.com/facility-hub/facility-hub/internal/application/guard"
	appSequence "github.com/facility-hub/facility-hub/internal/application/sequence"
	"github.com/facility-hub/facility-hub/internal/application/txn"
	"github.com/facility-hub/facility-hub/internal/clock"
	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/notification"
	"github.com/facility-hub/facility-hub/internal/domain/reference"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
	"github.com/facility-hub/facility-hub/internal/domain/store"
	"github.com/facility-hub/facility-hub/internal/domain/user"
	"github.com/facility-hub/facility-hub/internal/infrastructure/telemetry"
)

var tracer = otel.Tracer("github.com/facility-hub/facility-hub/internal/application/lifecycle")

// UserLookup resolves actors and servicers against the user store.
type UserLookup interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*user.User, error)
}

// Notifier receives committed transitions. Delivery failures never affect the
// transition.
type Notifier interface {
	Notify(ctx context.Context, event *notification.Event)
}

// Service is the request lifecycle engine. Every operation runs as one
// storage transaction: read the freshest request, check the guard and the
// state precondition, write the request and its history row together.
type Service struct {
	requests   request.Repository
	references reference.Repository
	users      UserLookup
	runner     *txn.Runner
	seq        *appSequence.Service
	audit      *appAudit.Service
	guard      *guard.Guard
	notifier   Notifier
	clock      clock.Clock
	logger     zerolog.Logger
}

// NewService creates a lifecycle engine. notifier may be nil.
func NewService(
	requests request.Repository,
	references reference.Repository,
	users UserLookup,
	runner *txn.Runner,
	seq *appSequence.Service,
	auditSvc *appAudit.Service,
	g *guard.Guard,
	notifier Notifier,
	clk clock.Clock,
	logger zerolog.Logger,
) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{
		requests:   requests,
		references: references,
		users:      users,
		runner:     runner,
		seq:        seq,
		audit:      auditSvc,
		guard:      g,
		notifier:   notifier,
		clock:      clk,
		logger:     logger.With().Str("service", "lifecycle").Logger(),
	}
}

// Submit files a new request.
func (s *Service) Submit(ctx context.Context, actor guard.Actor, input SubmitInput) (result *request.Request, err error) {
	op := request.OpSubmit
	ctx, finish := s.begin(ctx, op, uuid.Nil)
	defer func() { err = finish(err) }()

	input.Description = strings.TrimSpace(input.Description)
	if err := check(input); err != nil {
		return nil, err
	}
	actor, err = s.verifyActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(actor, op, nil); err != nil {
		return nil, err
	}
	if err := s.validateReferences(ctx, input); err != nil {
		return nil, err
	}

	var hist *request.History
	err = s.runner.Run(ctx, string(op), func(ctx context.Context, tx store.Tx) error {
		now := s.clock.Now()
		number, err := s.seq.Next(ctx, tx, sequence.DomainRequests)
		if err != nil {
			return err
		}
		r := &request.Request{
			RequestID:     uuid.New(),
			Number:        number,
			CategoryID:    input.CategoryID,
			SubcategoryID: input.SubcategoryID,
			BuildingID:    input.BuildingID,
			RoomID:        input.RoomID,
			Description:   input.Description,
			ImageRefs:     input.ImageRefs,
			Status:        request.StatusSubmitted,
			CreatedAt:     now,
			CreatedBy:     actor.ID,
			ModifiedAt:    now,
			ModifiedBy:    actor.ID,
		}
		if err := tx.InsertRequest(ctx, r); err != nil {
			return err
		}
		h, err := s.audit.Append(ctx, tx, request.Entry{
			Request:   r,
			Operation: op,
			ActorID:   actor.ID,
			ActorRole: string(actor.Role),
			At:        now,
		})
		if err != nil {
			return err
		}
		result, hist = r, h
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, actor, op, result, hist)
	return result, nil
}

// AssignPriority sets the triage priority of a submitted request.
func (s *Service) AssignPriority(ctx context.Context, actor guard.Actor, requestID uuid.UUID, priority request.Priority) (*request.Request, error) {
	if err := check(priorityInput{Priority: priority}); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, request.OpAssignPriority, requestID, nil, func(r *request.Request, _ time.Time) error {
		return r.AssignPriority(priority)
	})
}

// AssignServicer hands a prioritized request to a servicer.
func (s *Service) AssignServicer(ctx context.Context, actor guard.Actor, requestID, servicerID uuid.UUID) (*request.Request, error) {
	if err := check(servicerInput{ServicerID: servicerID}); err != nil {
		return nil, err
	}
	return s.withServicer(ctx, servicerID, func(ctx context.Context) (*request.Request, error) {
		return s.transition(ctx, actor, request.OpAssignServicer, requestID, nil, func(r *request.Request, _ time.Time) error {
			return r.AssignServicer(servicerID)
		})
	})
}

// SendBack returns an assigned request to triage.
func (s *Service) SendBack(ctx context.Context, actor guard.Actor, requestID uuid.UUID, reason string) (*request.Request, error) {
	reason = strings.TrimSpace(reason)
	if err := check(reasonInput{Reason: reason}); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, request.OpSendBack, requestID, &reason, func(r *request.Request, _ time.Time) error {
		return r.SendBack()
	})
}

// Schedule records the servicer's estimated window.
func (s *Service) Schedule(ctx context.Context, actor guard.Actor, requestID uuid.UUID, start, end time.Time) (*request.Request, error) {
	if err := check(scheduleInput{Start: start, End: end}); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, request.OpSchedule, requestID, nil, func(r *request.Request, _ time.Time) error {
		return r.Schedule(start, end)
	})
}

// Start begins work on an assigned request.
func (s *Service) Start(ctx context.Context, actor guard.Actor, requestID uuid.UUID) (*request.Request, error) {
	return s.transition(ctx, actor, request.OpStart, requestID, nil, func(r *request.Request, now time.Time) error {
		return r.Start(now)
	})
}

// Complete closes an in-progress request.
func (s *Service) Complete(ctx context.Context, actor guard.Actor, requestID uuid.UUID) (*request.Request, error) {
	return s.transition(ctx, actor, request.OpComplete, requestID, nil, func(r *request.Request, now time.Time) error {
		return r.Complete(now)
	})
}

// Reassign moves a request to another servicer and clears its schedule.
func (s *Service) Reassign(ctx context.Context, actor guard.Actor, requestID, servicerID uuid.UUID, reason string) (*request.Request, error) {
	reason = strings.TrimSpace(reason)
	if err := check(servicerInput{ServicerID: servicerID}); err != nil {
		return nil, err
	}
	if err := check(reasonInput{Reason: reason}); err != nil {
		return nil, err
	}
	return s.withServicer(ctx, servicerID, func(ctx context.Context) (*request.Request, error) {
		return s.transition(ctx, actor, request.OpReassign, requestID, &reason, func(r *request.Request, _ time.Time) error {
			return r.Reassign(servicerID)
		})
	})
}

// MarkDelayed flags an overdue in-progress request.
func (s *Service) MarkDelayed(ctx context.Context, actor guard.Actor, requestID uuid.UUID) (*request.Request, error) {
	return s.transition(ctx, actor, request.OpMarkDelayed, requestID, nil, func(r *request.Request, now time.Time) error {
		return r.MarkDelayed(now)
	})
}

// Cancel retires a request. reason is optional.
func (s *Service) Cancel(ctx context.Context, actor guard.Actor, requestID uuid.UUID, reason *string) (*request.Request, error) {
	reason = trimReason(reason)
	if reason != nil {
		if err := check(reasonInput{Reason: *reason}); err != nil {
			return nil, err
		}
	}
	return s.transition(ctx, actor, request.OpCancel, requestID, reason, func(r *request.Request, _ time.Time) error {
		return r.Cancel()
	})
}

// Hold pauses an assigned or in-progress request.
func (s *Service) Hold(ctx context.Context, actor guard.Actor, requestID uuid.UUID, reason string) (*request.Request, error) {
	reason = strings.TrimSpace(reason)
	if err := check(reasonInput{Reason: reason}); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, request.OpHold, requestID, &reason, func(r *request.Request, _ time.Time) error {
		return r.Hold()
	})
}

// Resume continues a held request.
func (s *Service) Resume(ctx context.Context, actor guard.Actor, requestID uuid.UUID) (*request.Request, error) {
	return s.transition(ctx, actor, request.OpResume, requestID, nil, func(r *request.Request, _ time.Time) error {
		return r.Resume()
	})
}

// Authorize verifies actor against the user store and checks that its role
// may run op at all. Ownership predicates are not evaluated.
func (s *Service) Authorize(ctx context.Context, actor guard.Actor, op request.Operation) (guard.Actor, error) {
	actor, err := s.verifyActor(ctx, actor)
	if err != nil {
		return actor, err
	}
	if !s.guard.Allows(actor, op) {
		return actor, errs.Guard(errs.CodeRoleDenied, "role %s may not %s", actor.Role, op)
	}
	return actor, nil
}

// Get returns a request by id.
func (s *Service) Get(ctx context.Context, requestID uuid.UUID) (*request.Request, error) {
	r, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, classify(err)
	}
	if r == nil {
		return nil, errs.NotFound("request", requestID)
	}
	return r, nil
}

// List returns requests matching filter, newest first.
func (s *Service) List(ctx context.Context, filter request.Filter, limit, offset int) ([]*request.Request, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	out, err := s.requests.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// transition runs one guarded mutation of an existing request.
func (s *Service) transition(
	ctx context.Context,
	actor guard.Actor,
	op request.Operation,
	requestID uuid.UUID,
	reason *string,
	mutate func(r *request.Request, now time.Time) error,
) (result *request.Request, err error) {
	ctx, finish := s.begin(ctx, op, requestID)
	defer func() { err = finish(err) }()

	actor, err = s.verifyActor(ctx, actor)
	if err != nil {
		return nil, err
	}

	var hist *request.History
	err = s.runner.Run(ctx, string(op), func(ctx context.Context, tx store.Tx) error {
		r, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := s.guard.Check(actor, op, r); err != nil {
			return err
		}
		now := s.clock.Now()
		from := r.Status
		if err := mutate(r, now); err != nil {
			return err
		}
		if err := r.CheckInvariants(); err != nil {
			return errs.Guard(errs.CodeInvalidState, "%v", err)
		}
		r.Touch(actor.ID, now)
		if err := tx.UpdateRequest(ctx, r); err != nil {
			return err
		}
		h, err := s.audit.Append(ctx, tx, request.Entry{
			Request:    r,
			Operation:  op,
			FromStatus: &from,
			ActorID:    actor.ID,
			ActorRole:  string(actor.Role),
			Reason:     reason,
			At:         now,
		})
		if err != nil {
			return err
		}
		result, hist = r, h
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, actor, op, result, hist)
	return result, nil
}

// verifyActor replaces the caller-supplied role with the stored one.
func (s *Service) verifyActor(ctx context.Context, actor guard.Actor) (guard.Actor, error) {
	if actor.ID == user.SystemActorID {
		return guard.Actor{ID: actor.ID, Role: user.RoleSystem}, nil
	}
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return actor, classify(err)
	}
	if u == nil || !u.IsActive() {
		return actor, errs.Guard(errs.CodeInactiveActor, "actor %s is not an active user", actor.ID)
	}
	return guard.Actor{ID: u.UserID, Role: u.Role}, nil
}

// withServicer checks that servicerID names an active servicer before running fn.
func (s *Service) withServicer(ctx context.Context, servicerID uuid.UUID, fn func(ctx context.Context) (*request.Request, error)) (*request.Request, error) {
	u, err := s.users.GetByID(ctx, servicerID)
	if err != nil {
		return nil, classify(err)
	}
	if u == nil || !u.IsActiveServicer() {
		return nil, errs.Guard(errs.CodeInvalidServicer, "user %s is not an active servicer", servicerID)
	}
	return fn(ctx)
}

func (s *Service) validateReferences(ctx context.Context, input SubmitInput) error {
	b, err := s.references.GetBuilding(ctx, input.BuildingID)
	if err != nil {
		return classify(err)
	}
	if b == nil || b.Inactive {
		return errs.Validation("unknown building %s", input.BuildingID)
	}
	room, err := s.references.GetRoom(ctx, input.RoomID)
	if err != nil {
		return classify(err)
	}
	if room == nil || room.Inactive || room.BuildingID != input.BuildingID {
		return errs.Validation("room %s is not in building %s", input.RoomID, input.BuildingID)
	}
	c, err := s.references.GetCategory(ctx, input.CategoryID)
	if err != nil {
		return classify(err)
	}
	if c == nil || c.Inactive {
		return errs.Validation("unknown category %s", input.CategoryID)
	}
	sc, err := s.references.GetSubcategory(ctx, input.SubcategoryID)
	if err != nil {
		return classify(err)
	}
	if sc == nil || sc.Inactive || sc.CategoryID != input.CategoryID {
		return errs.Validation("subcategory %s is not in category %s", input.SubcategoryID, input.CategoryID)
	}
	return nil
}

// begin opens a span and returns the matching completion hook, which
// classifies the error and records metrics.
func (s *Service) begin(ctx context.Context, op request.Operation, requestID uuid.UUID) (context.Context, func(error) error) {
	started := time.Now()
	attrs := []attribute.KeyValue{attribute.String("lifecycle.operation", string(op))}
	if requestID != uuid.Nil {
		attrs = append(attrs, attribute.String("request.id", requestID.String()))
	}
	ctx, span := tracer.Start(ctx, "lifecycle."+string(op), trace.WithAttributes(attrs...))

	return ctx, func(err error) error {
		defer span.End()
		err = classify(err)
		result := "ok"
		if err != nil {
			result = strings.ToLower(string(errs.KindOf(err)))
			if result == "" {
				result = "canceled"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Debug().Err(err).Str("op", string(op)).Str("requestId", requestID.String()).Msg("transition rejected")
		}
		telemetry.RecordTransition(string(op), result, time.Since(started))
		return err
	}
}

func (s *Service) committed(ctx context.Context, actor guard.Actor, op request.Operation, r *request.Request, h *request.History) {
	from := ""
	if h.FromStatus != nil {
		from = string(*h.FromStatus)
	}
	s.logger.Info().
		Str("op", string(op)).
		Str("requestId", r.RequestID.String()).
		Str("number", r.Number).
		Str("history", h.Number).
		Str("from", from).
		Str("to", string(r.Status)).
		Str("actor", actor.ID.String()).
		Msg("request transitioned")

	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, notification.NewTransitionEvent(
		r.RequestID, r.Number, string(h.Action), from, string(r.Status),
		actor.ID, r.CreatedBy, r.ServicerID, h.CreatedAt,
	))
}

// classify maps errors that carry no engine kind to StorageUnavailable.
// Context cancellation is passed through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errs.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errs.Unavailable(fmt.Errorf("lifecycle: %w", err))
}
