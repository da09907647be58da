package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
)

// Tx is the set of reads and conditional writes available inside one storage
// transaction. Conditional writes that lose a race return an errs.Conflict
// error; the enclosing transaction must then be abandoned and retried.
type Tx interface {
	// GetRequest returns the current stored state or an errs.NotFound error.
	GetRequest(ctx context.Context, requestID uuid.UUID) (*request.Request, error)
	InsertRequest(ctx context.Context, r *request.Request) error
	// UpdateRequest writes r if the stored version still equals r.Version and
	// advances r.Version on success.
	UpdateRequest(ctx context.Context, r *request.Request) error
	InsertHistory(ctx context.Context, h *request.History) error

	// GetCounter returns the counter or an errs.NotFound error.
	GetCounter(ctx context.Context, domain sequence.Domain) (*sequence.Counter, error)
	// CompareAndSwapCounter sets lastNumber to next only if it still equals expected.
	CompareAndSwapCounter(ctx context.Context, domain sequence.Domain, expected, next int64) error
}

// Transactor runs fn inside a single storage transaction. fn's writes are
// committed only if fn returns nil. Commit-time serialization failures are
// reported as errs.Conflict errors.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
