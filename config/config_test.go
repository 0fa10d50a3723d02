package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 50, cfg.Guild.DefaultMaxMembers)
	assert.Equal(t, 30*time.Second, cfg.Guild.DetailCacheTTL)
	assert.Equal(t, 2*time.Hour, cfg.Guild.RaidDuration)
	assert.Equal(t, 168*time.Hour, cfg.Guild.WeeklyResetInterval)
	assert.Equal(t, int64(500), cfg.Guild.WarHonorReward)
	assert.Equal(t, int64(1000), cfg.Guild.UpgradeCostPerLevel)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8081
  debug: true
  demo_guilds: 5
database:
  mode: mysql
  mysql_dsn: user:pass@tcp(localhost:3306)/guilds
cache:
  redis_addr: localhost:6379
guild:
  default_max_members: 30
  raid_duration: 4h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, 5, cfg.Server.DemoGuilds)
	assert.Equal(t, "mysql", cfg.Database.Mode)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 30, cfg.Guild.DefaultMaxMembers)
	assert.Equal(t, 4*time.Hour, cfg.Guild.RaidDuration)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
