package event

import (
	"context"
	"testing"
	"time"

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
	return NewService(db, zap.NewNop()), db
}

// seedGuild creates a guild with a leader (charID 10), an officer (11) and a
// plain member (12).
func seedGuild(t *testing.T, db *gorm.DB) *model.Guild {
	t.Helper()
	g := &model.Guild{Name: "ironpact", MaxMembers: 50, CurrentMembers: 3, Status: model.GuildStatusActive}
	require.NoError(t, db.Create(g).Error)
	for charID, rank := range map[int64]model.GuildRank{
		10: model.GuildRankLeader,
		11: model.GuildRankOfficer,
		12: model.GuildRankMember,
	} {
		m := &model.GuildMember{GuildID: g.ID, CharID: charID}
		m.ApplyRank(rank)
		require.NoError(t, db.Create(m).Error)
	}
	return g
}

func window() (time.Time, time.Time) {
	start := time.Now().Add(time.Hour)
	return start, start.Add(2 * time.Hour)
}

func TestCreate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db)
	start, end := window()

	ev, err := svc.Create(ctx, g.ID, 11, "Chasse au Trésor", "hunt", "outer provinces", start, end, 30,
		model.EventRequirements{MinLevel: 5}, model.RewardSchedule{Coin: 800})
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusScheduled, ev.Status)
	assert.Equal(t, 0, ev.Participants)

	reqs, err := ev.GetRequirements()
	require.NoError(t, err)
	assert.Equal(t, 5, reqs.MinLevel)
}

func TestCreate_RankGate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db)
	start, end := window()

	// plain member may not create events
	_, err := svc.Create(ctx, g.ID, 12, "Tournoi", "tournament", "", start, end, 16,
		model.EventRequirements{}, model.RewardSchedule{})
	assert.True(t, fault.IsKind(err, fault.KindForbidden))

	// outsider neither
	_, err = svc.Create(ctx, g.ID, 99, "Tournoi", "tournament", "", start, end, 16,
		model.EventRequirements{}, model.RewardSchedule{})
	assert.True(t, fault.IsKind(err, fault.KindForbidden))
}

func TestCreate_Validation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db)
	start, end := window()

	_, err := svc.Create(ctx, g.ID, 10, "", "hunt", "", start, end, 10,
		model.EventRequirements{}, model.RewardSchedule{})
	assert.True(t, fault.IsKind(err, fault.KindInvalidInput))

	_, err = svc.Create(ctx, g.ID, 10, "Chasse", "hunt", "", end, start, 10,
		model.EventRequirements{}, model.RewardSchedule{})
	assert.True(t, fault.IsKind(err, fault.KindInvalidInput))

	_, err = svc.Create(ctx, g.ID, 10, "Chasse", "hunt", "", start, end, 0,
		model.EventRequirements{}, model.RewardSchedule{})
	assert.True(t, fault.IsKind(err, fault.KindInvalidInput))
}

func TestJoin(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db)
	start, end := window()

	ev, err := svc.Create(ctx, g.ID, 10, "Chasse", "hunt", "", start, end, 2,
		model.EventRequirements{}, model.RewardSchedule{})
	require.NoError(t, err)

	_, err = svc.Join(ctx, ev.ID, 11)
	require.NoError(t, err)
	_, err = svc.Join(ctx, ev.ID, 11)
	assert.True(t, fault.IsKind(err, fault.KindConflict), "double join")

	_, err = svc.Join(ctx, ev.ID, 99)
	assert.True(t, fault.IsKind(err, fault.KindForbidden), "outsider")

	_, err = svc.Join(ctx, ev.ID, 12)
	require.NoError(t, err)
	_, err = svc.Join(ctx, ev.ID, 10)
	assert.True(t, fault.IsKind(err, fault.KindConflict), "full")

	got, err := svc.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Participants)
}

func TestJoin_MinRankRequirement(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db)
	start, end := window()

	ev, err := svc.Create(ctx, g.ID, 10, "Conseil de Guerre", "council", "", start, end, 10,
		model.EventRequirements{MinRank: model.GuildRankOfficer}, model.RewardSchedule{})
	require.NoError(t, err)

	_, err = svc.Join(ctx, ev.ID, 11)
	require.NoError(t, err)
	_, err = svc.Join(ctx, ev.ID, 12)
	assert.True(t, fault.IsKind(err, fault.KindForbidden))
}

func TestCancel(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db)
	start, end := window()

	ev, err := svc.Create(ctx, g.ID, 11, "Chasse", "hunt", "", start, end, 10,
		model.EventRequirements{}, model.RewardSchedule{})
	require.NoError(t, err)

	// plain member, not the creator
	err = svc.Cancel(ctx, ev.ID, 12)
	assert.True(t, fault.IsKind(err, fault.KindForbidden))

	// creator may cancel
	require.NoError(t, svc.Cancel(ctx, ev.ID, 11))

	got, err := svc.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusCancelled, got.Status)

	// cancelled events refuse joins and further cancels
	_, err = svc.Join(ctx, ev.ID, 12)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
	err = svc.Cancel(ctx, ev.ID, 10)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestCancel_LeaderMayCancelOthersEvents(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db)
	start, end := window()

	ev, err := svc.Create(ctx, g.ID, 11, "Chasse", "hunt", "", start, end, 10,
		model.EventRequirements{}, model.RewardSchedule{})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, ev.ID, 10))
}

func TestListUpcoming(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	g := seedGuild(t, db)

	later, laterEnd := time.Now().Add(5*time.Hour), time.Now().Add(7*time.Hour)
	sooner, soonerEnd := time.Now().Add(time.Hour), time.Now().Add(2*time.Hour)

	_, err := svc.Create(ctx, g.ID, 10, "Tournoi", "tournament", "", later, laterEnd, 16,
		model.EventRequirements{}, model.RewardSchedule{})
	require.NoError(t, err)
	first, err := svc.Create(ctx, g.ID, 10, "Chasse", "hunt", "", sooner, soonerEnd, 30,
		model.EventRequirements{}, model.RewardSchedule{})
	require.NoError(t, err)
	cancelled, err := svc.Create(ctx, g.ID, 10, "Annulé", "hunt", "", sooner, soonerEnd, 30,
		model.EventRequirements{}, model.RewardSchedule{})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, cancelled.ID, 10))

	events, err := svc.ListUpcoming(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].ID, "soonest first")
}
