package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facility-hub/facility-hub/internal/config"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "provision", "sweep"}, names)

	provision, _, err := root.Find([]string{"provision"})
	require.NoError(t, err)
	assert.NotNil(t, provision.Flags().Lookup("file"))
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	for _, store := range []string{"memory", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			cfg := &config.Config{Store: store, SQLitePath: filepath.Join(t.TempDir(), "fh.db")}
			b, err := openBackend(ctx, cfg, zerolog.Nop())
			require.NoError(t, err)
			defer b.close()

			require.NoError(t, b.migrate(ctx))
			require.NoError(t, b.migrate(ctx))
			require.NoError(t, b.counters.Create(ctx, &sequence.Counter{Domain: sequence.DomainRequests, Format: "REQ-%05d"}))
			got, err := b.counters.Get(ctx, sequence.DomainRequests)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "REQ-%05d", got.Format)
		})
	}

	_, err := openBackend(ctx, &config.Config{Store: "mongo"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestServerOptionsCarryConfig(t *testing.T) {
	cfg := &config.Config{
		SessionCookieName: "fh",
		RateLimit:         "10-S",
		CORSOrigins:       []string{"https://facilities.example"},
		MetricsEnabled:    true,
		RequestTimeout:    7 * time.Second,
	}
	opts := serverOptions(cfg)
	assert.Equal(t, 7*time.Second, opts.RequestTimeout)
	assert.Equal(t, "fh", opts.SessionCookieName)
	assert.Equal(t, "10-S", opts.RateLimit)
	assert.Equal(t, cfg.CORSOrigins, opts.CORSOrigins)
	assert.True(t, opts.MetricsEnabled)
}
