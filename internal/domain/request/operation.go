package request

import "fmt"

// Operation names a guarded lifecycle operation.
type Operation string

const (
	OpSubmit         Operation = "submit"
	OpAssignPriority Operation = "assignPriority"
	OpAssignServicer Operation = "assignServicer"
	OpSendBack       Operation = "sendBack"
	OpSchedule       Operation = "schedule"
	OpStart          Operation = "start"
	OpComplete       Operation = "complete"
	OpReassign       Operation = "reassign"
	OpMarkDelayed    Operation = "markDelayed"
	OpCancel         Operation = "cancel"
	OpHold           Operation = "hold"
	OpResume         Operation = "resume"
)

// Operations lists every lifecycle operation.
var Operations = []Operation{
	OpSubmit, OpAssignPriority, OpAssignServicer, OpSendBack, OpSchedule, OpStart,
	OpComplete, OpReassign, OpMarkDelayed, OpCancel, OpHold, OpResume,
}

var operationActions = map[Operation]Action{
	OpSubmit:         ActionSubmitted,
	OpAssignPriority: ActionPriorityChanged,
	OpAssignServicer: ActionAssigned,
	OpSendBack:       ActionSentBack,
	OpSchedule:       ActionScheduled,
	OpStart:          ActionStarted,
	OpComplete:       ActionCompleted,
	OpReassign:       ActionReassigned,
	OpMarkDelayed:    ActionDelayed,
	OpCancel:         ActionCancelled,
	OpHold:           ActionOnHold,
	OpResume:         ActionResumed,
}

// Action returns the history action recorded for the operation.
func (o Operation) Action() Action {
	return operationActions[o]
}

func ValidateOperation(o Operation) error {
	if _, ok := operationActions[o]; !ok {
		return fmt.Errorf("invalid operation: %q", o)
	}
	return nil
}

// RequiresReason reports whether the operation must carry a free-text reason.
func (o Operation) RequiresReason() bool {
	switch o {
	case OpSendBack, OpReassign, OpHold:
		return true
	default:
		return false
	}
}
