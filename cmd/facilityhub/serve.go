package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/facility-hub/facility-hub/internal/api/http"
	"github.com/facility-hub/facility-hub/internal/config"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the delay sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply pending migrations before serving")
	return cmd
}

func (a *app) serve(ctx context.Context, migrate bool) error {
	cfg, logger := a.cfg, a.logger
	if migrate {
		if err := a.store.migrate(ctx); err != nil {
			return err
		}
	}
	if err := a.sequences.EnsureDefaults(ctx); err != nil {
		return err
	}

	api, err := httpapi.NewServer(httpapi.Services{
		Auth:       a.auth,
		Users:      a.users,
		Lifecycle:  a.engine,
		References: a.references,
		Audit:      a.audit,
		Sequences:  a.sequences,
		Sweeper:    a.sweeper,
		Hub:        a.hub,
	}, serverOptions(cfg), logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.ServerAddr).Str("store", a.store.name).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Sweeper.Enabled {
		g.Go(func() error {
			return a.sweeper.Run(ctx, cfg.Sweeper.Interval)
		})
	}
	g.Go(func() error {
		a.purgeSessions(ctx, time.Hour)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		a.hub.Stop()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *app) purgeSessions(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := a.auth.PurgeExpired(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("session purge failed")
			} else if n > 0 {
				a.logger.Info().Int("sessions", n).Msg("expired sessions purged")
			}
		}
	}
}

func serverOptions(cfg *config.Config) httpapi.Options {
	return httpapi.Options{
		SessionCookieName:   cfg.SessionCookieName,
		SessionCookieSecure: cfg.SessionCookieSecure,
		RateLimit:           cfg.RateLimit,
		CORSOrigins:         cfg.CORSOrigins,
		MetricsEnabled:      cfg.MetricsEnabled,
		RequestTimeout:      cfg.RequestTimeout,
	}
}
