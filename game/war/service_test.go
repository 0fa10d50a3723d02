package war

import (
	"context"
	"testing"
	"time"

	"github.com/emberveil-online/guildserver/config"
	"github.com/emberveil-online/guildserver/game/fault"
	"github.com/emberveil-online/guildserver/game/guild"
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
	c, ps := testutil.SetupTestCache(t)
	cfg := config.GuildConfig{WarLockTTL: 10 * time.Second, WarHonorReward: 500}
	guilds := guild.NewService(db, c, ps, cfg, zap.NewNop())
	svc := NewService(db, c, cfg, guilds, zap.NewNop())
	return svc, db
}

func seedGuild(t *testing.T, db *gorm.DB, name string) *model.Guild {
	t.Helper()
	g := &model.Guild{Name: name, MaxMembers: 50, CurrentMembers: 1, Status: model.GuildStatusActive}
	require.NoError(t, db.Create(g).Error)
	return g
}

func TestPairLockKey(t *testing.T) {
	assert.Equal(t, pairLockKey(3, 7), pairLockKey(7, 3))
	assert.Equal(t, "lock:war:3_7", pairLockKey(7, 3))
}

func TestDeclare(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	a := seedGuild(t, db, "ironpact")
	b := seedGuild(t, db, "duskwatch")

	w, err := svc.Declare(ctx, a.ID, b.ID, "conquest", 0, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, model.WarStatusDeclared, w.Status)
	assert.WithinDuration(t, time.Now().Add(time.Hour), w.EndsAt, 5*time.Second)

	// reversed ordering is the same pair
	_, err = svc.Declare(ctx, b.ID, a.ID, "conquest", 0, time.Hour)
	assert.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestDeclare_SelfWar(t *testing.T) {
	svc, db := newTestService(t)
	a := seedGuild(t, db, "ironpact")

	_, err := svc.Declare(context.Background(), a.ID, a.ID, "conquest", 0, time.Hour)
	assert.True(t, fault.IsKind(err, fault.KindInvalidInput))
}

func TestDeclare_MissingGuild(t *testing.T) {
	svc, db := newTestService(t)
	a := seedGuild(t, db, "ironpact")

	_, err := svc.Declare(context.Background(), a.ID, 404, "conquest", 0, time.Hour)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestDeclare_TerritoryMustBelongToDefender(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	a := seedGuild(t, db, "ironpact")
	b := seedGuild(t, db, "duskwatch")

	terr := &model.Territory{GuildID: a.ID, Name: "col du nord", Type: model.TerritoryStrategic, Level: 1}
	require.NoError(t, db.Create(terr).Error)

	_, err := svc.Declare(ctx, a.ID, b.ID, "conquest", terr.ID, time.Hour)
	assert.True(t, fault.IsKind(err, fault.KindInvalidInput))
}

func TestAddScore(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	a := seedGuild(t, db, "ironpact")
	b := seedGuild(t, db, "duskwatch")

	w, err := svc.Declare(ctx, a.ID, b.ID, "skirmish", 0, time.Hour)
	require.NoError(t, err)

	// scoring requires the active phase
	err = svc.AddScore(ctx, w.ID, a.ID, 10)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))

	require.NoError(t, svc.Activate(ctx, w.ID))
	require.NoError(t, svc.AddScore(ctx, w.ID, a.ID, 10))
	require.NoError(t, svc.AddScore(ctx, w.ID, b.ID, 25))

	got, err := svc.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.AttackerScore)
	assert.Equal(t, int64(25), got.DefenderScore)

	err = svc.AddScore(ctx, w.ID, 999, 5)
	assert.True(t, fault.IsKind(err, fault.KindForbidden))
}

func TestResolve_AttackerWinsTakesTerritoryAndHonor(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	a := seedGuild(t, db, "ironpact")
	b := seedGuild(t, db, "duskwatch")

	terr := &model.Territory{GuildID: b.ID, Name: "col du nord", Type: model.TerritoryStrategic, Level: 1}
	require.NoError(t, db.Create(terr).Error)

	w, err := svc.Declare(ctx, a.ID, b.ID, "conquest", terr.ID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, svc.Activate(ctx, w.ID))
	require.NoError(t, svc.AddScore(ctx, w.ID, a.ID, 100))
	require.NoError(t, svc.AddScore(ctx, w.ID, b.ID, 40))

	resolved, err := svc.Resolve(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved.WinnerID)
	assert.Equal(t, a.ID, *resolved.WinnerID)
	assert.Equal(t, model.WarStatusResolved, resolved.Status)

	var gotTerr model.Territory
	require.NoError(t, db.First(&gotTerr, terr.ID).Error)
	assert.Equal(t, a.ID, gotTerr.GuildID)

	var winner model.Guild
	require.NoError(t, db.First(&winner, a.ID).Error)
	assert.Equal(t, int64(500), winner.Honor)

	// pair is free again once the war is resolved
	_, err = svc.Declare(ctx, b.ID, a.ID, "revanche", 0, time.Hour)
	require.NoError(t, err)
}

func TestResolve_TieGoesToDefender(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	a := seedGuild(t, db, "ironpact")
	b := seedGuild(t, db, "duskwatch")

	terr := &model.Territory{GuildID: b.ID, Name: "col du nord", Type: model.TerritoryDefensive, Level: 1}
	require.NoError(t, db.Create(terr).Error)

	w, err := svc.Declare(ctx, a.ID, b.ID, "conquest", terr.ID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, svc.Activate(ctx, w.ID))

	resolved, err := svc.Resolve(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, *resolved.WinnerID)

	// defender keeps the territory
	var gotTerr model.Territory
	require.NoError(t, db.First(&gotTerr, terr.ID).Error)
	assert.Equal(t, b.ID, gotTerr.GuildID)
}

func TestListActive(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	a := seedGuild(t, db, "ironpact")
	b := seedGuild(t, db, "duskwatch")
	c := seedGuild(t, db, "embermark")

	w1, err := svc.Declare(ctx, a.ID, b.ID, "skirmish", 0, time.Hour)
	require.NoError(t, err)
	_, err = svc.Declare(ctx, a.ID, c.ID, "skirmish", 0, time.Hour)
	require.NoError(t, err)

	all, err := svc.ListActive(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bs, err := svc.ListActive(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, bs, 1)
	assert.Equal(t, w1.ID, bs[0].ID)

	require.NoError(t, svc.Activate(ctx, w1.ID))
	_, err = svc.Resolve(ctx, w1.ID)
	require.NoError(t, err)

	all, err = svc.ListActive(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
