package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facility-hub/facility-hub/internal/application/lifecycle/lifecycletest"
	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/request"
)

func newSweeper(h *lifecycletest.Harness, pageSize int) *Service {
	return NewService(h.Engine, h.Store.Requests(), h.Clock, Config{Concurrency: 3, PageSize: pageSize}, zerolog.Nop())
}

func TestSweepDelaysOverdueOnly(t *testing.T) {
	h := lifecycletest.New(t)
	ctx := context.Background()

	overdue1 := h.InProgress(t, h.Clock.Now().Add(time.Hour))
	overdue2 := h.InProgress(t, h.Clock.Now().Add(time.Hour))
	onTime := h.InProgress(t, h.Clock.Now().Add(5*time.Hour))
	assigned := h.Assigned(t)
	h.Clock.Advance(2 * time.Hour)

	n, err := newSweeper(h, 1).Sweep(ctx, h.System)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, request.StatusDelayed, h.Stored(t, overdue1.RequestID).Status)
	assert.Equal(t, request.StatusDelayed, h.Stored(t, overdue2.RequestID).Status)
	assert.Equal(t, request.StatusInProgress, h.Stored(t, onTime.RequestID).Status)
	assert.Equal(t, request.StatusAssigned, h.Stored(t, assigned.RequestID).Status)

	rows := h.History(t, overdue1.RequestID)
	last := rows[len(rows)-1]
	assert.Equal(t, request.ActionDelayed, last.Action)
	assert.Equal(t, "SYSTEM", last.ActorRole)

	n, err = newSweeper(h, 10).Sweep(ctx, h.System)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepRequiresAdminAuthority(t *testing.T) {
	h := lifecycletest.New(t)
	s := newSweeper(h, 10)

	_, err := s.Sweep(context.Background(), h.Servicer1)
	assert.Equal(t, errs.CodeRoleDenied, errs.CodeOf(err))

	_, err = s.Sweep(context.Background(), h.Admin)
	assert.NoError(t, err)
}

func TestConcurrentSweepsCountEachTransitionOnce(t *testing.T) {
	h := lifecycletest.New(t)
	for i := 0; i < 6; i++ {
		h.InProgress(t, h.Clock.Now().Add(time.Hour))
	}
	h.Clock.Advance(2 * time.Hour)

	var wg sync.WaitGroup
	counts := make([]int, 3)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := newSweeper(h, 10).Sweep(context.Background(), h.Admin)
			assert.NoError(t, err)
			counts[i] = n
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 6, counts[0]+counts[1]+counts[2])
}

func TestSweepRacingComplete(t *testing.T) {
	h := lifecycletest.New(t)
	ctx := context.Background()
	r := h.InProgress(t, h.Clock.Now().Add(time.Hour))
	h.Clock.Advance(2 * time.Hour)

	var wg sync.WaitGroup
	var swept int
	var completeErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		swept, _ = newSweeper(h, 10).Sweep(ctx, h.System)
	}()
	go func() {
		defer wg.Done()
		_, completeErr = h.Engine.Complete(ctx, h.Servicer1, r.RequestID)
	}()
	wg.Wait()

	stored := h.Stored(t, r.RequestID)
	if completeErr == nil {
		assert.Equal(t, request.StatusCompleted, stored.Status)
		assert.Zero(t, swept)
	} else {
		assert.Equal(t, request.StatusDelayed, stored.Status)
		assert.Equal(t, 1, swept)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	h := lifecycletest.New(t)
	h.InProgress(t, h.Clock.Now().Add(time.Hour))
	h.Clock.Advance(2 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newSweeper(h, 10).Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool {
		list, err := h.Engine.List(context.Background(), request.Filter{}, 10, 0)
		return err == nil && len(list) == 1 && list[0].Status == request.StatusDelayed
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Error(t, newSweeper(h, 10).Run(context.Background(), 0))
}
