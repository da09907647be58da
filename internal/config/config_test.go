package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5, cfg.Tx.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.Interval)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("SWEEPER_INTERVAL=90s\nSTORE=sqlite\n"), 0o600))
	t.Setenv("STORE", "memory")
	t.Cleanup(func() { os.Unsetenv("SWEEPER_INTERVAL") })

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 90*time.Second, cfg.Sweeper.Interval)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Setenv("STORE", "mongo")
	_, err := Load(missing)
	assert.Error(t, err)

	t.Setenv("STORE", "memory")
	t.Setenv("TX_MAX_ATTEMPTS", "0")
	_, err = Load(missing)
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresOptions{User: "u", Password: "p", Host: "db", Port: "5433", DB: "fh", SSLMode: "require"}
	assert.Equal(t, "postgres://u:p@db:5433/fh?sslmode=require", p.DSN())

	p.URL = "postgres://override"
	assert.Equal(t, "postgres://override", p.DSN())
}
