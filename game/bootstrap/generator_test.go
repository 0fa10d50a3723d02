package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/emberveil-online/guildserver/config"
	"github.com/emberveil-online/guildserver/content"
	"github.com/emberveil-online/guildserver/game/event"
	"github.com/emberveil-online/guildserver/game/guild"
	"github.com/emberveil-online/guildserver/game/project"
	"github.com/emberveil-online/guildserver/game/raid"
	"github.com/emberveil-online/guildserver/game/territory"
	"github.com/emberveil-online/guildserver/model"
	"github.com/emberveil-online/guildserver/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGenerate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	cfg := config.GuildConfig{
		DefaultMaxMembers:   50,
		DetailCacheTTL:      30 * time.Second,
		RaidDuration:        2 * time.Hour,
		UpgradeCostPerLevel: 1000,
	}
	registry := content.Default()
	logger := zap.NewNop()

	guilds := guild.NewService(db, c, ps, cfg, logger)
	territories := territory.NewService(db, cfg, logger)
	projects := project.NewService(db, registry, logger)
	raids := raid.NewService(db, registry, cfg, logger)
	events := event.NewService(db, logger)

	gen := NewGenerator(db, guilds, territories, projects, raids, events, registry, logger)
	gen.Seed(42)

	created, err := gen.Generate(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, created, 3)

	for _, g := range created {
		var members int64
		require.NoError(t, db.Model(&model.GuildMember{}).Where("guild_id = ?", g.ID).Count(&members).Error)
		assert.GreaterOrEqual(t, members, int64(4), "founder plus at least three members")

		var got model.Guild
		require.NoError(t, db.First(&got, g.ID).Error)
		assert.Equal(t, int(members), got.CurrentMembers, "counter matches roster")

		terrs, err := territories.ListByGuild(context.Background(), g.ID)
		require.NoError(t, err)
		assert.Len(t, terrs, 1)

		projs, err := projects.ListByGuild(context.Background(), g.ID)
		require.NoError(t, err)
		assert.Len(t, projs, 1)

		rds, err := raids.ListByGuild(context.Background(), g.ID)
		require.NoError(t, err)
		require.Len(t, rds, 1)
		assert.Equal(t, 1, rds[0].Participants)

		evs, err := events.ListUpcoming(context.Background(), g.ID)
		require.NoError(t, err)
		assert.Len(t, evs, 1)
	}
}

func TestGenerate_ZeroIsNoop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	cfg := config.GuildConfig{DefaultMaxMembers: 50, RaidDuration: time.Hour}
	registry := content.Default()

	gen := NewGenerator(db,
		guild.NewService(db, c, ps, cfg, logger),
		territory.NewService(db, cfg, logger),
		project.NewService(db, registry, logger),
		raid.NewService(db, registry, cfg, logger),
		event.NewService(db, logger),
		registry, logger)

	created, err := gen.Generate(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, created)
}
