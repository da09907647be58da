package sequence

import "context"

// Repository defines read and provisioning access to counters. Increments go
// through store.Tx.
type Repository interface {
	Create(ctx context.Context, counter *Counter) error
	Get(ctx context.Context, domain Domain) (*Counter, error)
	List(ctx context.Context) ([]*Counter, error)
}
