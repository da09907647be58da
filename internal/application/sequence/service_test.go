package sequence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facility-hub/facility-hub/internal/application/txn"
	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
	"github.com/facility-hub/facility-hub/internal/domain/store"
	"github.com/facility-hub/facility-hub/internal/infrastructure/memory"
)

func newService(t *testing.T, attempts int) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	runner := txn.NewRunner(st, txn.Config{MaxAttempts: attempts, BaseBackoff: time.Microsecond, MaxBackoff: time.Millisecond}, zerolog.Nop())
	svc := NewService(st.Counters(), runner, zerolog.Nop())
	require.NoError(t, svc.EnsureDefaults(context.Background()))
	return svc, st
}

func TestAllocateSequential(t *testing.T) {
	svc, _ := newService(t, 5)
	ctx := context.Background()

	first, err := svc.Allocate(ctx, sequence.DomainRequests)
	require.NoError(t, err)
	second, err := svc.Allocate(ctx, sequence.DomainRequests)
	require.NoError(t, err)

	assert.Equal(t, "REQ-00001", first)
	assert.Equal(t, "REQ-00002", second)
}

func TestAllocateUnknownDomain(t *testing.T) {
	svc, _ := newService(t, 5)
	_, err := svc.Allocate(context.Background(), "nope")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAllocateConcurrentIsGapless(t *testing.T) {
	svc, _ := newService(t, 1000)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	got := make([]string, 0, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.Allocate(ctx, sequence.DomainRequestHistories)
			if assert.NoError(t, err) {
				mu.Lock()
				got = append(got, n)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Strings(got)
	require.Len(t, got, workers)
	for i, n := range got {
		assert.Equal(t, fmt.Sprintf("RH-%06d", i+1), n)
	}
}

func TestNextRollsBackWithCaller(t *testing.T) {
	svc, st := newService(t, 5)
	ctx := context.Background()

	err := st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := svc.Next(ctx, tx, sequence.DomainRequests); err != nil {
			return err
		}
		return errs.Validation("caller failed")
	})
	require.Error(t, err)

	n, err := svc.Allocate(ctx, sequence.DomainRequests)
	require.NoError(t, err)
	assert.Equal(t, "REQ-00001", n)
}

func TestNextTwiceInOneTransaction(t *testing.T) {
	svc, st := newService(t, 5)
	ctx := context.Background()

	var a, b string
	err := st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if a, err = svc.Next(ctx, tx, sequence.DomainRequests); err != nil {
			return err
		}
		b, err = svc.Next(ctx, tx, sequence.DomainRequests)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "REQ-00001", a)
	assert.Equal(t, "REQ-00002", b)
}

func TestProvision(t *testing.T) {
	svc, _ := newService(t, 5)
	ctx := context.Background()

	c, err := svc.Provision(ctx, ProvisionInput{Domain: "workOrders", Format: "WO-%04d", Start: 41}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(41), c.LastNumber)

	n, err := svc.Allocate(ctx, "workOrders")
	require.NoError(t, err)
	assert.Equal(t, "WO-0042", n)

	_, err = svc.Provision(ctx, ProvisionInput{Domain: "workOrders", Format: "WO-%04d"}, false)
	assert.ErrorIs(t, err, errs.ErrValidationFailed)

	_, err = svc.Provision(ctx, ProvisionInput{Domain: "bad", Format: "%s"}, false)
	assert.ErrorIs(t, err, errs.ErrValidationFailed)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
