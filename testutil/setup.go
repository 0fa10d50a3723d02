package testutil

import (
	"testing"

	"github.com/emberveil-online/guildserver/cache"
	"github.com/emberveil-online/guildserver/config"
	dbsqlite "github.com/emberveil-online/guildserver/db/sqlite"
	"github.com/emberveil-online/guildserver/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates a uniquely-named in-memory SQLite database and runs
// AutoMigrate. It requires no external services and is safe in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbsqlite.OpenMemory("test_" + uuid.NewString())
	require.NoError(t, err, "SetupTestDB: OpenMemory")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// SetupTestCache creates a LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := config.CacheConfig{} // empty RedisAddr → LocalCache
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}
