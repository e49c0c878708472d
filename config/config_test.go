package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Shield the test from ambient environment configuration.
	for _, key := range []string{"DATABASE_URL", "NATS_URL", "HTTP_ADDR", "BASE_URL", "ADMIN_IDS"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	want := &Config{
		HTTP: HTTPConfig{Addr: ":8080"},
		Auth: AuthConfig{SessionTTL: 7 * 24 * time.Hour},
		Rounds: RoundsConfig{
			WritingDuration:  7 * 24 * time.Hour,
			GuessingDuration: 4 * 24 * time.Hour,
			NextRoundDelay:   3 * 24 * time.Hour,
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
postgres:
  dsn: postgres://cg:cg@localhost:5432/cg?sslmode=disable
http:
  addr: ":9000"
  base_url: https://cg.example.org
rounds:
  writing_duration: 48h
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://cg:cg@localhost:5432/cg?sslmode=disable", cfg.Postgres.DSN)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "https://cg.example.org", cfg.HTTP.BaseURL)
	assert.Equal(t, 48*time.Hour, cfg.Rounds.WritingDuration)
	// Untouched values keep their defaults.
	assert.Equal(t, 4*24*time.Hour, cfg.Rounds.GuessingDuration)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":9000\"\n"), 0o600))

	t.Setenv("HTTP_ADDR", ":7777")
	t.Setenv("DATABASE_URL", "postgres://env@localhost/env")
	t.Setenv("ADMIN_IDS", "10, 20,30")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.HTTP.Addr)
	assert.Equal(t, "postgres://env@localhost/env", cfg.Postgres.DSN)
	assert.Equal(t, []int64{10, 20, 30}, cfg.Auth.AdminIDs)
}

func TestLoadConfigBadAdminIDs(t *testing.T) {
	t.Setenv("ADMIN_IDS", "10,notanumber")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_IDS")
}
