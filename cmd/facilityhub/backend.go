package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/facility-hub/facility-hub/internal/config"
	"github.com/facility-hub/facility-hub/internal/domain/reference"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
	"github.com/facility-hub/facility-hub/internal/domain/session"
	"github.com/facility-hub/facility-hub/internal/domain/store"
	"github.com/facility-hub/facility-hub/internal/domain/user"
	"github.com/facility-hub/facility-hub/internal/infrastructure/memory"
	"github.com/facility-hub/facility-hub/internal/infrastructure/postgres"
	"github.com/facility-hub/facility-hub/internal/infrastructure/sqlite"
	"github.com/facility-hub/facility-hub/internal/migrations"
)

// backend is one storage implementation behind the domain repositories.
type backend struct {
	name       string
	transactor store.Transactor
	requests   request.Repository
	counters   sequence.Repository
	references reference.Repository
	users      user.Repository
	sessions   session.Repository
	migrate    func(ctx context.Context) error
	close      func()
}

func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	switch cfg.Store {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN(), postgres.PoolConfig{MaxConns: cfg.Postgres.MaxConns})
		if err != nil {
			return nil, err
		}
		return &backend{
			name:       cfg.Store,
			transactor: postgres.NewTransactor(pool),
			requests:   postgres.NewRequestRepository(pool),
			counters:   postgres.NewCounterRepository(pool),
			references: postgres.NewReferenceRepository(pool),
			users:      postgres.NewUserRepository(pool),
			sessions:   postgres.NewSessionRepository(pool),
			migrate: func(ctx context.Context) error {
				return postgres.RunMigrations(ctx, pool, migrations.Postgres(), logger)
			},
			close: pool.Close,
		}, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &backend{
			name:       cfg.Store,
			transactor: sqlite.NewTransactor(db),
			requests:   sqlite.NewRequestRepository(db),
			counters:   sqlite.NewCounterRepository(db),
			references: sqlite.NewReferenceRepository(db),
			users:      sqlite.NewUserRepository(db),
			sessions:   sqlite.NewSessionRepository(db),
			migrate: func(ctx context.Context) error {
				return sqlite.RunMigrations(ctx, db, migrations.SQLite(), logger)
			},
			close: func() { _ = db.Close() },
		}, nil
	case "memory":
		st := memory.New()
		return &backend{
			name:       cfg.Store,
			transactor: st,
			requests:   st.Requests(),
			counters:   st.Counters(),
			references: st.References(),
			users:      st.Users(),
			sessions:   st.Sessions(),
			migrate:    func(context.Context) error { return nil },
			close:      func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
