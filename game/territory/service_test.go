package territory

import (
	"context"
	"testing"

	"github.com/emberveil-online/guildserver/config"
	"github.com/emberveil-online/guildserver/game/fault"
	"github.com/emberveil-online/guildserver/model"
	"github.com/emberveil-online/guildserver/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := NewService(db, config.GuildConfig{UpgradeCostPerLevel: 1000}, zap.NewNop())
	return svc, db
}

func seedGuild(t *testing.T, db *gorm.DB, coin int64) *model.Guild {
	t.Helper()
	g := &model.Guild{Name: "ironpact", MaxMembers: 50, CurrentMembers: 1, Coin: coin, Status: model.GuildStatusActive}
	require.NoError(t, db.Create(g).Error)
	return g
}

func TestProductionFor(t *testing.T) {
	cases := []struct {
		ttype model.TerritoryType
		level int
		want  model.Production
	}{
		{model.TerritoryResource, 1, model.Production{Gold: 100, Materials: 50, Experience: 25}},
		{model.TerritoryStrategic, 1, model.Production{Gold: 75, Materials: 75, Experience: 50}},
		{model.TerritoryDefensive, 1, model.Production{Gold: 50, Materials: 100, Experience: 25}},
		{model.TerritoryEconomic, 1, model.Production{Gold: 150, Materials: 25, Experience: 25}},
		// level 3 → ×1.4, floored
		{model.TerritoryResource, 3, model.Production{Gold: 140, Materials: 70, Experience: 35}},
		// level 2 → ×1.2; 75×1.2=90, 25×1.2=30
		{model.TerritoryStrategic, 2, model.Production{Gold: 90, Materials: 90, Experience: 60}},
	}
	for _, c := range cases {
		got, err := ProductionFor(c.ttype, c.level)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s level %d", c.ttype, c.level)
	}

	_, err := ProductionFor("volcanic", 1)
	assert.True(t, fault.IsKind(err, fault.KindInvalidInput))
	_, err = ProductionFor(model.TerritoryResource, 0)
	assert.True(t, fault.IsKind(err, fault.KindInvalidInput))
}

func TestClaim(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 0)

	terr, err := svc.Claim(ctx, g.ID, "Col du Nord", model.TerritoryResource, "12,34", 1)
	require.NoError(t, err)
	assert.Equal(t, 100, terr.Defense)
	assert.Equal(t, 100, terr.MaxDefense)

	prod, err := terr.GetProduction()
	require.NoError(t, err)
	assert.Equal(t, model.Production{Gold: 100, Materials: 50, Experience: 25}, prod)
}

func TestClaim_DuplicateName(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 0)

	_, err := svc.Claim(ctx, g.ID, "Col du Nord", model.TerritoryResource, "", 1)
	require.NoError(t, err)

	_, err = svc.Claim(ctx, g.ID, "Col du Nord", model.TerritoryEconomic, "", 1)
	assert.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestClaim_GuildMissingOrDisbanded(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.Claim(ctx, 999, "Col du Nord", model.TerritoryResource, "", 1)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))

	g := seedGuild(t, db, 0)
	require.NoError(t, db.Model(&model.Guild{}).Where("id = ?", g.ID).
		UpdateColumn("status", model.GuildStatusDisbanded).Error)
	_, err = svc.Claim(ctx, g.ID, "Col du Nord", model.TerritoryResource, "", 1)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestRelease(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 0)

	_, err := svc.Claim(ctx, g.ID, "Col du Nord", model.TerritoryResource, "", 1)
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, g.ID, "Col du Nord"))
	err = svc.Release(ctx, g.ID, "Col du Nord")
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestUpgrade(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 1500)

	_, err := svc.Claim(ctx, g.ID, "Col du Nord", model.TerritoryResource, "", 1)
	require.NoError(t, err)

	terr, err := svc.Upgrade(ctx, g.ID, "Col du Nord")
	require.NoError(t, err)
	assert.Equal(t, 2, terr.Level)

	prod, err := terr.GetProduction()
	require.NoError(t, err)
	assert.Equal(t, model.Production{Gold: 120, Materials: 60, Experience: 30}, prod)

	var fresh model.Guild
	require.NoError(t, db.First(&fresh, g.ID).Error)
	assert.Equal(t, int64(500), fresh.Coin)

	// Next level costs 2000; the bank holds 500.
	_, err = svc.Upgrade(ctx, g.ID, "Col du Nord")
	assert.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestTotalProduction(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 0)

	_, err := svc.Claim(ctx, g.ID, "Col du Nord", model.TerritoryResource, "", 1)
	require.NoError(t, err)
	_, err = svc.Claim(ctx, g.ID, "Port Levant", model.TerritoryEconomic, "", 1)
	require.NoError(t, err)

	total, err := svc.TotalProduction(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Production{Gold: 250, Materials: 75, Experience: 50}, total)

	list, err := svc.ListByGuild(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
