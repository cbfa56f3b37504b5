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
	t.Chdir(t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Ledger.LockTimeout)
	assert.Equal(t, 10, cfg.Ledger.RecentLimit)
	assert.Equal(t, 48*time.Hour, cfg.Streak.Grace())
	assert.Equal(t, 5, cfg.Geo.UnderrepresentedThreshold)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	yaml := `
database:
  host: db.internal
  name: rewards
redis:
  enabled: true
  addr: cache:6379
streak:
  timezone: Asia/Bangkok
ledger:
  max_retries: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("DATABASE_PORT", "6543")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "postgres://pabuk:@db.internal:6543/rewards?sslmode=disable", cfg.Database.DSN())
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.Ledger.MaxRetries)

	loc, err := cfg.Streak.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Bangkok", loc.String())
}

func TestValidate(t *testing.T) {
	base := Config{
		Ledger: LedgerConfig{MaxRetries: 3},
		Streak: StreakConfig{GraceHours: 48, Timezone: "UTC"},
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Ledger.MaxRetries = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.Streak.Timezone = "Mars/Olympus"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Redis = RedisConfig{Enabled: true}
	assert.Error(t, bad.Validate())
}
