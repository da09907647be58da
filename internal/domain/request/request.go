package request

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
)

// Status represents request status.
type Status string

const (
	StatusSubmitted  Status = "SUBMITTED"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusOnHold     Status = "ON_HOLD"
	StatusDelayed    Status = "DELAYED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// IsTerminal reports whether no further lifecycle operations apply.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RequiresServicer reports whether a request in this status must carry a servicer.
func (s Status) RequiresServicer() bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusOnHold, StatusDelayed, StatusCompleted:
		return true
	default:
		return false
	}
}

func ValidateStatus(s Status) error {
	switch s {
	case StatusSubmitted, StatusAssigned, StatusInProgress, StatusOnHold, StatusDelayed, StatusCompleted, StatusCancelled:
		return nil
	default:
		return fmt.Errorf("invalid status: %q", s)
	}
}

// Priority represents triage priority.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func ValidatePriority(p Priority) error {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return nil
	default:
		return fmt.Errorf("invalid priority: %q", p)
	}
}

// Request is a facility maintenance request.
type Request struct {
	RequestID          uuid.UUID  `json:"requestId"`
	Number             string     `json:"number"`
	CategoryID         uuid.UUID  `json:"categoryId"`
	SubcategoryID      uuid.UUID  `json:"subcategoryId"`
	BuildingID         uuid.UUID  `json:"buildingId"`
	RoomID             uuid.UUID  `json:"roomId"`
	Description        string     `json:"description"`
	ImageRefs          []string   `json:"imageRefs,omitempty"`
	Status             Status     `json:"status"`
	Priority           *Priority  `json:"priority,omitempty"`
	ServicerID         *uuid.UUID `json:"servicerId,omitempty"`
	EstimatedStartDate *time.Time `json:"estimatedStartDate,omitempty"`
	EstimatedEndDate   *time.Time `json:"estimatedEndDate,omitempty"`
	ActualStartDate    *time.Time `json:"actualStartDate,omitempty"`
	ActualEndDate      *time.Time `json:"actualEndDate,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	CreatedBy          uuid.UUID  `json:"createdBy"`
	ModifiedAt         time.Time  `json:"modifiedAt"`
	ModifiedBy         uuid.UUID  `json:"modifiedBy"`
	Inactive           bool       `json:"inactive"`
	Version            int64      `json:"version"`
}

var transitions = map[Status][]Status{
	StatusSubmitted:  {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusSubmitted, StatusAssigned, StatusInProgress, StatusOnHold, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusDelayed, StatusOnHold, StatusCancelled},
	StatusOnHold:     {StatusAssigned, StatusInProgress, StatusCancelled},
	StatusDelayed:    {StatusAssigned, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransitionTo validates request status transition.
func (r *Request) CanTransitionTo(target Status) bool {
	for _, s := range transitions[r.Status] {
		if s == target {
			return true
		}
	}
	return false
}

func (r *Request) requireStatus(op Operation, allowed ...Status) error {
	for _, s := range allowed {
		if r.Status == s {
			return nil
		}
	}
	return errs.Guard(errs.CodeInvalidState, "%s not allowed while request %s is %s", op, r.Number, r.Status)
}

// AssignPriority sets the triage priority. It may be set exactly once.
func (r *Request) AssignPriority(p Priority) error {
	if err := r.requireStatus(OpAssignPriority, StatusSubmitted); err != nil {
		return err
	}
	if r.Priority != nil {
		return errs.Guard(errs.CodePriorityAlreadySet, "priority already set to %s", *r.Priority)
	}
	r.Priority = &p
	return nil
}

// AssignServicer hands a triaged request to a servicer.
func (r *Request) AssignServicer(servicerID uuid.UUID) error {
	if err := r.requireStatus(OpAssignServicer, StatusSubmitted); err != nil {
		return err
	}
	if r.Priority == nil {
		return errs.Guard(errs.CodePriorityMissing, "priority must be assigned before a servicer")
	}
	if r.ServicerID != nil {
		return errs.Guard(errs.CodeServicerPresent, "servicer already assigned")
	}
	r.ServicerID = &servicerID
	r.Status = StatusAssigned
	return nil
}

// SendBack returns an assigned request to triage.
func (r *Request) SendBack() error {
	if err := r.requireStatus(OpSendBack, StatusAssigned); err != nil {
		return err
	}
	r.ServicerID = nil
	r.EstimatedStartDate = nil
	r.EstimatedEndDate = nil
	r.Status = StatusSubmitted
	return nil
}

// Schedule records the servicer's estimate. It may be set once per assignment.
func (r *Request) Schedule(start, end time.Time) error {
	if err := r.requireStatus(OpSchedule, StatusAssigned); err != nil {
		return err
	}
	if r.EstimatedStartDate != nil {
		return errs.Guard(errs.CodeAlreadyScheduled, "request %s is already scheduled", r.Number)
	}
	start, end = start.UTC(), end.UTC()
	r.EstimatedStartDate = &start
	r.EstimatedEndDate = &end
	return nil
}

// Start begins work.
func (r *Request) Start(now time.Time) error {
	if err := r.requireStatus(OpStart, StatusAssigned); err != nil {
		return err
	}
	now = now.UTC()
	r.ActualStartDate = &now
	r.Status = StatusInProgress
	return nil
}

// Complete closes the request.
func (r *Request) Complete(now time.Time) error {
	if err := r.requireStatus(OpComplete, StatusInProgress); err != nil {
		return err
	}
	now = now.UTC()
	r.ActualEndDate = &now
	r.Status = StatusCompleted
	return nil
}

// Reassign moves the request to another servicer and resets the schedule.
// Reassigning an assigned request to its current servicer is rejected.
func (r *Request) Reassign(servicerID uuid.UUID) error {
	if err := r.requireStatus(OpReassign, StatusAssigned, StatusOnHold, StatusDelayed); err != nil {
		return err
	}
	if r.ServicerID == nil {
		return errs.Guard(errs.CodeServicerMissing, "request %s has no servicer to reassign", r.Number)
	}
	if r.Status == StatusAssigned && *r.ServicerID == servicerID {
		return errs.Guard(errs.CodeDuplicateServicer, "request %s is already assigned to %s", r.Number, servicerID)
	}
	r.ServicerID = &servicerID
	r.EstimatedStartDate = nil
	r.EstimatedEndDate = nil
	r.ActualStartDate = nil
	r.Status = StatusAssigned
	return nil
}

// IsOverdue reports whether an in-progress request has passed its estimated end.
func (r *Request) IsOverdue(now time.Time) bool {
	return r.Status == StatusInProgress && r.EstimatedEndDate != nil && r.EstimatedEndDate.Before(now)
}

// MarkDelayed flags an overdue in-progress request.
func (r *Request) MarkDelayed(now time.Time) error {
	if err := r.requireStatus(OpMarkDelayed, StatusInProgress); err != nil {
		return err
	}
	if !r.IsOverdue(now) {
		return errs.Guard(errs.CodeNotOverdue, "request %s is not past its estimated end", r.Number)
	}
	r.Status = StatusDelayed
	return nil
}

// Cancel retires the request. The servicer is released.
func (r *Request) Cancel() error {
	if r.Status.IsTerminal() {
		return errs.Guard(errs.CodeInvalidState, "%s not allowed while request %s is %s", OpCancel, r.Number, r.Status)
	}
	r.ServicerID = nil
	r.Status = StatusCancelled
	r.Inactive = true
	return nil
}

// Hold pauses work on the request.
func (r *Request) Hold() error {
	if err := r.requireStatus(OpHold, StatusAssigned, StatusInProgress); err != nil {
		return err
	}
	r.Status = StatusOnHold
	return nil
}

// Resume continues a held request where it left off.
func (r *Request) Resume() error {
	if err := r.requireStatus(OpResume, StatusOnHold); err != nil {
		return err
	}
	if r.ActualStartDate != nil {
		r.Status = StatusInProgress
	} else {
		r.Status = StatusAssigned
	}
	return nil
}

// Touch stamps the modification audit fields.
func (r *Request) Touch(actorID uuid.UUID, now time.Time) {
	r.ModifiedAt = now.UTC()
	r.ModifiedBy = actorID
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	c := *r
	if r.ImageRefs != nil {
		c.ImageRefs = append([]string(nil), r.ImageRefs...)
	}
	if r.Priority != nil {
		p := *r.Priority
		c.Priority = &p
	}
	if r.ServicerID != nil {
		id := *r.ServicerID
		c.ServicerID = &id
	}
	c.EstimatedStartDate = cloneTime(r.EstimatedStartDate)
	c.EstimatedEndDate = cloneTime(r.EstimatedEndDate)
	c.ActualStartDate = cloneTime(r.ActualStartDate)
	c.ActualEndDate = cloneTime(r.ActualEndDate)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// CheckInvariants verifies the field relationships every stored request must hold.
func (r *Request) CheckInvariants() error {
	if err := ValidateStatus(r.Status); err != nil {
		return err
	}
	if r.Status.RequiresServicer() && r.ServicerID == nil {
		return fmt.Errorf("request %s is %s without a servicer", r.Number, r.Status)
	}
	if r.Status == StatusSubmitted && r.ServicerID != nil {
		return fmt.Errorf("request %s is %s with a servicer", r.Number, r.Status)
	}
	if r.ServicerID != nil && r.Priority == nil {
		return fmt.Errorf("request %s has a servicer but no priority", r.Number)
	}
	if (r.Status == StatusCompleted) != (r.ActualEndDate != nil) {
		return fmt.Errorf("request %s is %s with actual end %v", r.Number, r.Status, r.ActualEndDate)
	}
	if r.EstimatedEndDate != nil && r.Status == StatusSubmitted {
		return fmt.Errorf("request %s is scheduled before assignment", r.Number)
	}
	if (r.Status == StatusCancelled) != r.Inactive {
		return fmt.Errorf("request %s inactive=%t with status %s", r.Number, r.Inactive, r.Status)
	}
	return nil
}
