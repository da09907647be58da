package txn

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/store"
	"github.com/facility-hub/facility-hub/internal/infrastructure/telemetry"
)

// Config bounds conflict retries.
type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultConfig() Config {
	return Config{MaxAttempts: 5, BaseBackoff: 5 * time.Millisecond, MaxBackoff: 250 * time.Millisecond}
}

// Runner executes closures as storage transactions and retries them when a
// conditional write loses a race.
type Runner struct {
	transactor store.Transactor
	cfg        Config
	logger     zerolog.Logger
}

func NewRunner(transactor store.Transactor, cfg Config, logger zerolog.Logger) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Runner{
		transactor: transactor,
		cfg:        cfg,
		logger:     logger.With().Str("service", "txn").Logger(),
	}
}

// Run executes fn in a fresh transaction per attempt. Only TransactionConflict
// errors are retried; every other error is returned as is. After the last
// attempt the conflict is surfaced to the caller.
func (r *Runner) Run(ctx context.Context, name string, fn func(ctx context.Context, tx store.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := r.transactor.RunInTx(ctx, fn)
		if err == nil {
			telemetry.RecordTxAttempt("committed")
			return nil
		}
		if !errs.IsConflict(err) {
			telemetry.RecordTxAttempt("failed")
			return err
		}
		telemetry.RecordTxAttempt("conflict")
		lastErr = err
		if attempt == r.cfg.MaxAttempts {
			break
		}
		wait := backoff(attempt, r.cfg.BaseBackoff, r.cfg.MaxBackoff) + jitter(r.cfg.BaseBackoff)
		r.logger.Warn().Err(err).Str("tx", name).Int("attempt", attempt).Dur("backoff", wait).Msg("transaction conflict, retrying")
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return &errs.Error{
		Kind:    errs.KindTransactionConflict,
		Code:    "RETRY_EXHAUSTED",
		Message: fmt.Sprintf("%s gave up after %d attempts", name, r.cfg.MaxAttempts),
		Err:     lastErr,
	}
}

func backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt <= 0 || base <= 0 {
		return 0
	}
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	if max > 0 && d > max {
		return max
	}
	return d
}

func jitter(maxJitter time.Duration) time.Duration {
	if maxJitter <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(maxJitter) + 1))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
