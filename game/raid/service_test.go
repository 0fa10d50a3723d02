package raid

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/emberveil-online/guildserver/config"
	"github.com/emberveil-online/guildserver/content"
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
	cfg := config.GuildConfig{RaidDuration: 2 * time.Hour}
	svc := NewService(db, content.Default(), cfg, zap.NewNop())
	return svc, db
}

func seedGuild(t *testing.T, db *gorm.DB, members ...int64) *model.Guild {
	t.Helper()
	g := &model.Guild{Name: "ironpact", MaxMembers: 50, CurrentMembers: len(members), Status: model.GuildStatusActive}
	require.NoError(t, db.Create(g).Error)
	for i, charID := range members {
		rank := model.GuildRankMember
		if i == 0 {
			rank = model.GuildRankLeader
		}
		m := &model.GuildMember{GuildID: g.ID, CharID: charID, Rank: rank}
		m.ApplyRank(rank)
		require.NoError(t, db.Create(m).Error)
	}
	return g
}

func TestScaleBoss(t *testing.T) {
	tpl, ok := content.Default().Raid("Dragon Ancien")
	require.True(t, ok)

	// hard ×2.0, level 15 → ×(1+0.3×14) = ×5.2, combined ×10.4
	boss, err := ScaleBoss(tpl, 15, model.RaidDifficultyHard)
	require.NoError(t, err)
	assert.Equal(t, int64(520000), boss.HP)
	assert.Equal(t, int64(8320), boss.Attack)
	assert.Equal(t, "Veyrakh le Cendré", boss.Name)

	// easy level 1 leaves base stats untouched
	boss, err = ScaleBoss(tpl, 1, model.RaidDifficultyEasy)
	require.NoError(t, err)
	assert.Equal(t, tpl.BaseStats.HP, boss.HP)

	_, err = ScaleBoss(tpl, 1, "impossible")
	assert.True(t, fault.IsKind(err, fault.KindInvalidInput))
}

func TestStart(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 10)

	raid, err := svc.Start(ctx, g.ID, "Dragon Ancien", 1, model.RaidDifficultyNormal)
	require.NoError(t, err)
	assert.Equal(t, model.RaidStatusActive, raid.Status)
	assert.Equal(t, int64(75000), raid.CurrentHP) // 50000 × 1.5
	assert.Equal(t, raid.MaxHP, raid.CurrentHP)
	assert.Equal(t, 20, raid.MaxParticipants)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), raid.ExpiresAt, 5*time.Second)

	// one active raid per guild
	_, err = svc.Start(ctx, g.ID, "Roi Liche", 1, model.RaidDifficultyEasy)
	assert.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestStart_ConcurrentOnlyOneActive(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 10)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Start(ctx, g.ID, "Dragon Ancien", 1, model.RaidDifficultyNormal)
		}(i)
	}
	wg.Wait()

	var started int
	for _, err := range errs {
		if err == nil {
			started++
		} else {
			assert.True(t, fault.IsKind(err, fault.KindConflict), "got %v", err)
		}
	}
	assert.Equal(t, 1, started)

	var count int64
	require.NoError(t, db.Model(&model.GuildRaid{}).
		Where("guild_id = ? AND status = ?", g.ID, model.RaidStatusActive).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStart_UnknownTemplate(t *testing.T) {
	svc, db := newTestService(t)
	g := seedGuild(t, db, 10)

	_, err := svc.Start(context.Background(), g.ID, "Poulet Géant", 1, model.RaidDifficultyEasy)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestJoin(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 10, 11, 12)

	raid, err := svc.Start(ctx, g.ID, "Dragon Ancien", 1, model.RaidDifficultyNormal)
	require.NoError(t, err)

	_, err = svc.Join(ctx, raid.ID, 11)
	require.NoError(t, err)

	// duplicate join
	_, err = svc.Join(ctx, raid.ID, 11)
	assert.True(t, fault.IsKind(err, fault.KindConflict))

	// outsider
	_, err = svc.Join(ctx, raid.ID, 99)
	assert.True(t, fault.IsKind(err, fault.KindForbidden))

	var got model.GuildRaid
	require.NoError(t, db.First(&got, raid.ID).Error)
	assert.Equal(t, 1, got.Participants)
}

func TestJoin_ConcurrentNeverExceedsCapacity(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	chars := make([]int64, 10)
	for i := range chars {
		chars[i] = int64(100 + i)
	}
	g := seedGuild(t, db, chars...)

	raid, err := svc.Start(ctx, g.ID, "Dragon Ancien", 1, model.RaidDifficultyNormal)
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.GuildRaid{}).Where("id = ?", raid.ID).
		UpdateColumn("max_participants", 4).Error)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for _, charID := range chars {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := svc.Join(ctx, raid.ID, id); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(charID)
	}
	wg.Wait()

	assert.Equal(t, 4, admitted)
	var got model.GuildRaid
	require.NoError(t, db.First(&got, raid.ID).Error)
	assert.Equal(t, 4, got.Participants)
	var count int64
	require.NoError(t, db.Model(&model.RaidParticipant{}).Where("raid_id = ?", raid.ID).Count(&count).Error)
	assert.Equal(t, int64(4), count)
}

func TestDamageBoss(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 10, 11)

	raid, err := svc.Start(ctx, g.ID, "Dragon Ancien", 1, model.RaidDifficultyEasy) // 50000 HP
	require.NoError(t, err)
	_, err = svc.Join(ctx, raid.ID, 10)
	require.NoError(t, err)
	_, err = svc.Join(ctx, raid.ID, 11)
	require.NoError(t, err)

	res, err := svc.DamageBoss(ctx, raid.ID, 10, 20000)
	require.NoError(t, err)
	assert.False(t, res.Killed)
	assert.Equal(t, int64(30000), res.Raid.CurrentHP)

	// overkill strike floors HP at zero and closes the raid
	res, err = svc.DamageBoss(ctx, raid.ID, 11, 99999)
	require.NoError(t, err)
	assert.True(t, res.Killed)
	assert.Equal(t, int64(0), res.Raid.CurrentHP)
	assert.Equal(t, model.RaidStatusCompleted, res.Raid.Status)
	assert.Equal(t, int64(5000), res.Rewards.Coin)
	require.Len(t, res.Participants, 2)
	assert.Equal(t, int64(11), res.Participants[0].CharID, "roster ordered by damage")

	// no strikes on a completed raid
	_, err = svc.DamageBoss(ctx, raid.ID, 10, 100)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestDamageBoss_RequiresJoin(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 10, 11)

	raid, err := svc.Start(ctx, g.ID, "Dragon Ancien", 1, model.RaidDifficultyEasy)
	require.NoError(t, err)

	_, err = svc.DamageBoss(ctx, raid.ID, 11, 100)
	assert.True(t, fault.IsKind(err, fault.KindForbidden))
}

func TestRecordHealingAndDeath(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 10)

	raid, err := svc.Start(ctx, g.ID, "Roi Liche", 1, model.RaidDifficultyEasy)
	require.NoError(t, err)
	_, err = svc.Join(ctx, raid.ID, 10)
	require.NoError(t, err)

	require.NoError(t, svc.RecordHealing(ctx, raid.ID, 10, 1500))
	require.NoError(t, svc.RecordHealing(ctx, raid.ID, 10, 500))
	require.NoError(t, svc.RecordDeath(ctx, raid.ID, 10))

	var p model.RaidParticipant
	require.NoError(t, db.Where("raid_id = ? AND char_id = ?", raid.ID, int64(10)).First(&p).Error)
	assert.Equal(t, int64(2000), p.Healing)
	assert.Equal(t, 1, p.Deaths)

	err = svc.RecordHealing(ctx, raid.ID, 99, 100)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestExpiry(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 10, 11)

	raid, err := svc.Start(ctx, g.ID, "Dragon Ancien", 1, model.RaidDifficultyEasy)
	require.NoError(t, err)
	_, err = svc.Join(ctx, raid.ID, 10)
	require.NoError(t, err)

	require.NoError(t, db.Model(&model.GuildRaid{}).Where("id = ?", raid.ID).
		UpdateColumn("expires_at", time.Now().Add(-time.Minute)).Error)

	// lazy expiry blocks joins and strikes before the sweeper runs
	_, err = svc.Join(ctx, raid.ID, 11)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
	_, err = svc.DamageBoss(ctx, raid.ID, 10, 100)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))

	var got model.GuildRaid
	require.NoError(t, db.First(&got, raid.ID).Error)
	assert.Equal(t, model.RaidStatusExpired, got.Status)
}

func TestSweepExpired(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db, 10)

	raid, err := svc.Start(ctx, g.ID, "Dragon Ancien", 1, model.RaidDifficultyEasy)
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.GuildRaid{}).Where("id = ?", raid.ID).
		UpdateColumn("expires_at", time.Now().Add(-time.Minute)).Error)

	n, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var got model.GuildRaid
	require.NoError(t, db.First(&got, raid.ID).Error)
	assert.Equal(t, model.RaidStatusExpired, got.Status)

	// idempotent
	n, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
