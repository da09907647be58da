package request

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter controls request listing.
type Filter struct {
	Status     *Status
	ServicerID *uuid.UUID
	CreatedBy  *uuid.UUID
	BuildingID *uuid.UUID
	Inactive   *bool
	// OverdueAt selects requests whose estimated end is before the given time.
	OverdueAt *time.Time
}

// Repository defines read-side access to requests and their history.
// Writes go through store.Tx.
type Repository interface {
	GetByID(ctx context.Context, requestID uuid.UUID) (*Request, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Request, error)
	ListHistory(ctx context.Context, requestID uuid.UUID) ([]*History, error)
	GetHistory(ctx context.Context, historyID uuid.UUID) (*History, error)
}
