package errs

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures.
type Kind string

const (
	KindGuardRejected       Kind = "GUARD_REJECTED"
	KindNotFound            Kind = "NOT_FOUND"
	KindTransactionConflict Kind = "TRANSACTION_CONFLICT"
	KindStorageUnavailable  Kind = "STORAGE_UNAVAILABLE"
	KindValidationFailed    Kind = "VALIDATION_FAILED"
)

// Guard rejection codes.
const (
	CodeRoleDenied         = "ROLE_DENIED"
	CodeOwnershipMismatch  = "OWNERSHIP_MISMATCH"
	CodeInvalidState       = "INVALID_STATE"
	CodePriorityAlreadySet = "PRIORITY_ALREADY_SET"
	CodePriorityMissing    = "PRIORITY_MISSING"
	CodeServicerPresent    = "SERVICER_ALREADY_SET"
	CodeServicerMissing    = "SERVICER_MISSING"
	CodeAlreadyScheduled   = "ALREADY_SCHEDULED"
	CodeNotOverdue         = "NOT_OVERDUE"
	CodeInvalidServicer    = "INVALID_SERVICER"
	CodeDuplicateServicer  = "DUPLICATE_SERVICER"
	CodeInactiveActor      = "INACTIVE_ACTOR"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrGuardRejected       = &Error{Kind: KindGuardRejected}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrTransactionConflict = &Error{Kind: KindTransactionConflict}
	ErrStorageUnavailable  = &Error{Kind: KindStorageUnavailable}
	ErrValidationFailed    = &Error{Kind: KindValidationFailed}
)

// Error is a typed engine error carrying a stable machine code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. A target with a
// code must match the code as well.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Guard returns a GuardRejected error.
func Guard(code, format string, args ...any) *Error {
	return &Error{Kind: KindGuardRejected, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a NotFound error for the named entity.
func NotFound(entity string, id any) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: fmt.Sprintf("%s not found: %v", entity, id)}
}

// Validation returns a ValidationFailed error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidationFailed, Code: "INVALID_INPUT", Message: fmt.Sprintf(format, args...)}
}

// Conflict wraps err as a TransactionConflict.
func Conflict(err error) *Error {
	return &Error{Kind: KindTransactionConflict, Code: "CONFLICT", Message: "concurrent modification", Err: err}
}

// Unavailable wraps err as StorageUnavailable.
func Unavailable(err error) *Error {
	return &Error{Kind: KindStorageUnavailable, Code: "STORAGE_UNAVAILABLE", Message: "storage unavailable", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Transient reports whether the caller may retry the operation.
func Transient(err error) bool {
	switch KindOf(err) {
	case KindTransactionConflict, KindStorageUnavailable:
		return true
	default:
		return false
	}
}

// IsStorageUnavailable reports whether err is a StorageUnavailable.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsConflict reports whether err is a TransactionConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrTransactionConflict)
}
