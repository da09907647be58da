package request

import (
	"time"

	"github.com/google/uuid"
)

// Action represents the kind of a history row.
type Action string

const (
	ActionSubmitted       Action = "SUBMITTED"
	ActionPriorityChanged Action = "PRIORITY_CHANGED"
	ActionAssigned        Action = "ASSIGNED"
	ActionSentBack        Action = "SENT_BACK"
	ActionScheduled       Action = "SCHEDULED"
	ActionStarted         Action = "STARTED"
	ActionCompleted       Action = "COMPLETED"
	ActionReassigned      Action = "REASSIGNED"
	ActionDelayed         Action = "DELAYED"
	ActionCancelled       Action = "CANCELLED"
	ActionOnHold          Action = "ON_HOLD"
	ActionResumed         Action = "RESUMED"
)

// History is an immutable record of one committed transition.
type History struct {
	HistoryID      uuid.UUID  `json:"historyId"`
	Number         string     `json:"number"`
	Seq            int64      `json:"seq"`
	RequestID      uuid.UUID  `json:"requestId"`
	Action         Action     `json:"action"`
	FromStatus     *Status    `json:"fromStatus,omitempty"`
	ToStatus       Status     `json:"toStatus"`
	Priority       *Priority  `json:"priority,omitempty"`
	ServicerID     *uuid.UUID `json:"servicerId,omitempty"`
	SentBackReason *string    `json:"sentBackReason,omitempty"`
	ReassignReason *string    `json:"reassignReason,omitempty"`
	HoldReason     *string    `json:"holdReason,omitempty"`
	CancelReason   *string    `json:"cancelReason,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CreatedBy      uuid.UUID  `json:"createdBy"`
	ActorRole      string     `json:"actorRole"`
	Inactive       bool       `json:"inactive"`
	SignatureKeyID string     `json:"signatureKeyId,omitempty"`
	Signature      []byte     `json:"signature,omitempty"`
}

// Entry describes a transition to be recorded.
type Entry struct {
	Request    *Request
	Operation  Operation
	FromStatus *Status
	ActorID    uuid.UUID
	ActorRole  string
	Reason     *string
	At         time.Time
}

// NewHistory builds the history row for entry. Number and signature are
// assigned by the writer.
func NewHistory(e Entry) *History {
	h := &History{
		HistoryID:  uuid.New(),
		RequestID:  e.Request.RequestID,
		Action:     e.Operation.Action(),
		FromStatus: e.FromStatus,
		ToStatus:   e.Request.Status,
		CreatedAt:  e.At.UTC().Truncate(time.Microsecond),
		CreatedBy:  e.ActorID,
		ActorRole:  e.ActorRole,
	}
	switch e.Operation {
	case OpAssignPriority:
		h.Priority = e.Request.Priority
	case OpAssignServicer, OpReassign:
		h.ServicerID = e.Request.ServicerID
	}
	switch e.Operation {
	case OpSendBack:
		h.SentBackReason = e.Reason
	case OpReassign:
		h.ReassignReason = e.Reason
	case OpHold:
		h.HoldReason = e.Reason
	case OpCancel:
		h.CancelReason = e.Reason
	}
	return h
}

// Reason returns whichever reason field the row carries.
func (h *History) Reason() *string {
	switch {
	case h.SentBackReason != nil:
		return h.SentBackReason
	case h.ReassignReason != nil:
		return h.ReassignReason
	case h.HoldReason != nil:
		return h.HoldReason
	default:
		return h.CancelReason
	}
}
