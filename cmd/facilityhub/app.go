package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	appAudit "github.com/facility-hub/facility-hub/internal/application/audit"
	appAuth "github.com/facility-hub/facility-hub/internal/application/auth"
	"github.com/facility-hub/facility-hub/internal/application/guard"
	"github.com/facility-hub/facility-hub/internal/application/lifecycle"
	appNotification "github.com/facility-hub/facility-hub/internal/application/notification"
	"github.com/facility-hub/facility-hub/internal/application/provision"
	appReference "github.com/facility-hub/facility-hub/internal/application/reference"
	appSequence "github.com/facility-hub/facility-hub/internal/application/sequence"
	"github.com/facility-hub/facility-hub/internal/application/sweeper"
	"github.com/facility-hub/facility-hub/internal/application/txn"
	appUser "github.com/facility-hub/facility-hub/internal/application/user"
	"github.com/facility-hub/facility-hub/internal/clock"
	"github.com/facility-hub/facility-hub/internal/config"
	"github.com/facility-hub/facility-hub/internal/domain/notification"
	"github.com/facility-hub/facility-hub/internal/infrastructure/cache"
	"github.com/facility-hub/facility-hub/internal/infrastructure/keystore"
	"github.com/facility-hub/facility-hub/internal/infrastructure/natsbus"
	"github.com/facility-hub/facility-hub/internal/infrastructure/sse"
	"github.com/facility-hub/facility-hub/internal/infrastructure/telemetry"
	"github.com/facility-hub/facility-hub/internal/logging"
)

const version = "0.1.0"

// app is the wired service graph shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *backend

	hub        *sse.Hub
	dispatcher *appNotification.Dispatcher
	sequences  *appSequence.Service
	audit      *appAudit.Service
	engine     *lifecycle.Service
	auth       *appAuth.Service
	users      *appUser.Service
	references *appReference.Service
	sweeper    *sweeper.Service
	provision  *provision.Service

	closers []func()
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.envFiles...)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	tp, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		Version:      version,
		Environment:  cfg.Tracing.Environment,
		Endpoint:     cfg.Tracing.Endpoint,
		Insecure:     cfg.Tracing.Insecure,
		SamplingRate: cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return err
	}
	a.onClose(func() { shutdownTracing(tp, logger) })

	st, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	a.store = st
	a.onClose(st.close)

	refCache, err := a.referenceCache(ctx)
	if err != nil {
		return err
	}

	keys, err := keystore.Parse(cfg.SigningKeys, cfg.SigningKeyID)
	if err != nil {
		return fmt.Errorf("signing keys: %w", err)
	}
	if !keys.Enabled() {
		logger.Warn().Msg("history signing disabled, rows will be stored unsigned")
	}

	publishers, err := a.publishers()
	if err != nil {
		return err
	}
	a.hub = sse.NewHub()
	a.onClose(a.hub.Stop)
	a.dispatcher = appNotification.NewDispatcher(a.hub, publishers, cfg.NotifyTimeout, logger)
	a.onClose(a.dispatcher.Close)

	g, err := guard.NewDefault()
	if err != nil {
		return fmt.Errorf("guard policy: %w", err)
	}

	clk := clock.Real()
	runner := txn.NewRunner(st.transactor, txn.Config{
		MaxAttempts: cfg.Tx.MaxAttempts,
		BaseBackoff: cfg.Tx.BaseBackoff,
		MaxBackoff:  cfg.Tx.MaxBackoff,
	}, logger)
	a.sequences = appSequence.NewService(st.counters, runner, logger)
	a.audit = appAudit.NewService(st.requests, a.sequences, keys, logger)
	a.engine = lifecycle.NewService(st.requests, st.references, st.users, runner, a.sequences, a.audit, g, a.dispatcher, clk, logger)
	a.auth = appAuth.NewService(st.users, st.sessions, cfg.SessionTTL, clk, logger)
	a.users = appUser.NewService(st.users, st.sessions, clk, logger)
	a.references = appReference.NewService(st.references, refCache, cfg.ReferenceTTL, logger)
	a.sweeper = sweeper.NewService(a.engine, st.requests, clk, sweeper.Config{
		Concurrency: cfg.Sweeper.Concurrency,
		PageSize:    cfg.Sweeper.PageSize,
	}, logger)
	a.provision = provision.NewService(a.sequences, a.references, a.users, st.users, logger)
	return nil
}

// referenceCache uses Redis when configured and a process-local cache otherwise.
func (a *app) referenceCache(ctx context.Context) (cache.Cache, error) {
	if a.cfg.Redis.Addr == "" {
		return cache.NewMemory(), nil
	}
	rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = rdb.Close() })
	a.logger.Info().Str("addr", a.cfg.Redis.Addr).Msg("reference cache on redis")
	return cache.NewRedis(rdb, a.cfg.Redis.Prefix), nil
}

func (a *app) publishers() ([]notification.Publisher, error) {
	if a.cfg.NATS.URL == "" {
		return nil, nil
	}
	nc, err := natsbus.Connect(a.cfg.NATS.URL, "facilityhub")
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = nc.Drain() })
	pub, err := natsbus.NewPublisher(nc, a.cfg.NATS.SubjectPrefix)
	if err != nil {
		return nil, err
	}
	a.logger.Info().Str("url", a.cfg.NATS.URL).Msg("publishing transitions to nats")
	return []notification.Publisher{pub}, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func shutdownTracing(tp *sdktrace.TracerProvider, logger zerolog.Logger) {
	if err := telemetry.ShutdownTracing(context.Background(), tp); err != nil {
		logger.Warn().Err(err).Msg("tracer shutdown failed")
	}
}
