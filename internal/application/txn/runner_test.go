package txn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/store"
)

type scriptedTransactor struct {
	results []error
	calls   int
}

func (s *scriptedTransactor) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	i := s.calls
	s.calls++
	if i < len(s.results) {
		return s.results[i]
	}
	return nil
}

func fastConfig() Config {
	return Config{MaxAttempts: 5, BaseBackoff: time.Microsecond, MaxBackoff: time.Millisecond}
}

func noop(ctx context.Context, tx store.Tx) error { return nil }

func TestRunRetriesConflicts(t *testing.T) {
	conflict := errs.Conflict(errors.New("version moved"))
	tr := &scriptedTransactor{results: []error{conflict, conflict}}
	r := NewRunner(tr, fastConfig(), zerolog.Nop())

	require.NoError(t, r.Run(context.Background(), "test", noop))
	assert.Equal(t, 3, tr.calls)
}

func TestRunGivesUpAfterMaxAttempts(t *testing.T) {
	conflict := errs.Conflict(errors.New("version moved"))
	tr := &scriptedTransactor{results: []error{conflict, conflict, conflict, conflict, conflict, conflict}}
	r := NewRunner(tr, fastConfig(), zerolog.Nop())

	err := r.Run(context.Background(), "test", noop)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTransactionConflict))
	assert.Equal(t, "RETRY_EXHAUSTED", errs.CodeOf(err))
	assert.True(t, errs.Transient(err))
	assert.Equal(t, 5, tr.calls)
}

func TestRunDoesNotRetryOtherErrors(t *testing.T) {
	guard := errs.Guard(errs.CodeInvalidState, "nope")
	tr := &scriptedTransactor{results: []error{guard}}
	r := NewRunner(tr, fastConfig(), zerolog.Nop())

	err := r.Run(context.Background(), "test", noop)
	assert.ErrorIs(t, err, errs.ErrGuardRejected)
	assert.Equal(t, 1, tr.calls)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	tr := &scriptedTransactor{}
	r := NewRunner(tr, fastConfig(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx, "test", noop)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, tr.calls)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), backoff(0, time.Millisecond, time.Second))
	assert.Equal(t, time.Millisecond, backoff(1, time.Millisecond, time.Second))
	assert.Equal(t, 8*time.Millisecond, backoff(4, time.Millisecond, time.Second))
	assert.Equal(t, 5*time.Millisecond, backoff(10, time.Millisecond, 5*time.Millisecond))
}
