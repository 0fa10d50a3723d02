// Package guild implements the guild registry: creation, membership, ranks
// and the denormalized counters that back them. Every operation that reads
// an invariant-relevant counter and writes based on it runs inside a single
// store transaction, so concurrent callers cannot both observe "room for one
// more" and both insert.
package guild

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emberveil-online/guildserver/cache"
	"github.com/emberveil-online/guildserver/config"
	"github.com/emberveil-online/guildserver/game/fault"
	"github.com/emberveil-online/guildserver/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventsChannel is the pub/sub channel guild lifecycle announcements go to.
const EventsChannel = "guild.events"

const honorBoardKey = "guild:honor:board"

// Detail bundles a guild row with its memberships for read endpoints.
type Detail struct {
	Guild   model.Guild         `json:"guild"`
	Members []model.GuildMember `json:"members"`
}

// Service is the guild registry. It is stateless; all state lives in the
// store and the cache.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	pubsub cache.PubSub
	cfg    config.GuildConfig
	logger *zap.Logger
}

// NewService creates a guild registry Service.
func NewService(db *gorm.DB, c cache.Cache, ps cache.PubSub, cfg config.GuildConfig, logger *zap.Logger) *Service {
	if cfg.DefaultMaxMembers <= 0 {
		cfg.DefaultMaxMembers = 50
	}
	return &Service{db: db, cache: c, pubsub: ps, cfg: cfg, logger: logger}
}

// Create founds a new guild. The guild row, the founder's leader membership
// and the member counter are written in one transaction: all three commit
// or none do.
func (svc *Service) Create(ctx context.Context, founderID int64, name, displayName, description, emblem, banner string) (*model.Guild, error) {
	if founderID == 0 || name == "" {
		return nil, fault.InvalidInput("founder and guild name are required")
	}

	var guild model.Guild
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.GuildMember
		err := tx.Where("char_id = ?", founderID).First(&existing).Error
		if err == nil {
			return fault.Conflict("character %d already belongs to a guild", founderID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		guild = model.Guild{
			Name:           name,
			DisplayName:    displayName,
			Description:    description,
			Emblem:         emblem,
			Banner:         banner,
			Level:          1,
			CurrentMembers: 1,
			MaxMembers:     svc.cfg.DefaultMaxMembers,
			Status:         model.GuildStatusActive,
		}
		if err := tx.Create(&guild).Error; err != nil {
			if isUniqueViolation(err) {
				return fault.Conflict("guild name %q is already taken", name)
			}
			return err
		}

		founder := model.GuildMember{GuildID: guild.ID, CharID: founderID}
		founder.ApplyRank(model.GuildRankLeader)
		if err := tx.Create(&founder).Error; err != nil {
			if isUniqueViolation(err) {
				return fault.Conflict("character %d already belongs to a guild", founderID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Info("guild created",
		zap.Int64("guild_id", guild.ID),
		zap.String("name", guild.Name),
		zap.Int64("founder_id", founderID))
	svc.announce(ctx, "guild_created", guild.ID)
	return &guild, nil
}

// Join admits a character as a recruit. The capacity check and the counter
// increment are one conditional update; the membership insert rides the same
// transaction, so two concurrent joins cannot both succeed past capacity.
func (svc *Service) Join(ctx context.Context, guildID, charID int64) (*model.GuildMember, error) {
	var member model.GuildMember
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.GuildMember
		err := tx.Where("char_id = ?", charID).First(&existing).Error
		if err == nil {
			return fault.Conflict("character %d already belongs to a guild", charID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var g model.Guild
		if err := tx.First(&g, guildID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.NotFound("guild %d not found", guildID)
			}
			return err
		}
		if g.Status != model.GuildStatusActive {
			return fault.NotFound("guild %d not found", guildID)
		}

		res := tx.Model(&model.Guild{}).
			Where("id = ? AND status = ? AND current_members < max_members", guildID, model.GuildStatusActive).
			UpdateColumn("current_members", gorm.Expr("current_members + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fault.Conflict("guild %d is full", guildID)
		}

		member = model.GuildMember{GuildID: guildID, CharID: charID}
		member.ApplyRank(model.GuildRankRecruit)
		if err := tx.Create(&member).Error; err != nil {
			if isUniqueViolation(err) {
				return fault.Conflict("character %d already belongs to a guild", charID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	svc.invalidateDetail(ctx, guildID)
	svc.logger.Info("guild joined", zap.Int64("guild_id", guildID), zap.Int64("char_id", charID))
	return &member, nil
}

// Leave removes a membership. A departing leader hands leadership to the
// highest-contribution officer; with no officer left the guild disbands and
// evicts its remaining members. The membership delete, the counter change
// and the promotion-or-disband decision are one transaction, so no window
// exists with zero leaders on an active guild.
func (svc *Service) Leave(ctx context.Context, guildID, charID int64) error {
	var disbanded bool
	var successorID int64
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Writing the guild row first makes concurrent membership changes for
		// the same guild serialize on its lock, so succession never promotes
		// a member another transaction already removed.
		if err := tx.Model(&model.Guild{}).Where("id = ?", guildID).
			Update("updated_at", time.Now()).Error; err != nil {
			return err
		}

		var m model.GuildMember
		if err := tx.Where("guild_id = ? AND char_id = ?", guildID, charID).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.NotFound("character %d is not a member of guild %d", charID, guildID)
			}
			return err
		}

		if m.Rank == model.GuildRankLeader {
			successorID = 0
			var passed []int64
			for {
				q := tx.Where("guild_id = ? AND `rank` = ?", guildID, model.GuildRankOfficer)
				if len(passed) > 0 {
					q = q.Where("char_id NOT IN ?", passed)
				}
				var officer model.GuildMember
				err := q.Order("contribution DESC, char_id ASC").First(&officer).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					break
				}
				if err != nil {
					return err
				}
				// Promote only if the candidate is still an officer; a zero
				// row count means the row changed under us, so pick again.
				res := tx.Model(&model.GuildMember{}).
					Where("guild_id = ? AND char_id = ? AND `rank` = ?",
						guildID, officer.CharID, model.GuildRankOfficer).
					Updates(rankColumns(model.GuildRankLeader))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					passed = append(passed, officer.CharID)
					continue
				}
				successorID = officer.CharID
				break
			}
			if successorID == 0 {
				if err := tx.Model(&model.Guild{}).Where("id = ?", guildID).
					Updates(map[string]interface{}{
						"status":          model.GuildStatusDisbanded,
						"current_members": 0,
					}).Error; err != nil {
					return err
				}
				if err := tx.Where("guild_id = ?", guildID).Delete(&model.GuildMember{}).Error; err != nil {
					return err
				}
				disbanded = true
				return nil
			}
		}

		if err := tx.Where("guild_id = ? AND char_id = ?", guildID, charID).
			Delete(&model.GuildMember{}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Guild{}).Where("id = ?", guildID).
			UpdateColumn("current_members", gorm.Expr("current_members - 1")).Error
	})
	if err != nil {
		return err
	}

	svc.invalidateDetail(ctx, guildID)
	if disbanded {
		svc.logger.Info("guild disbanded",
			zap.Int64("guild_id", guildID),
			zap.Int64("last_leader_id", charID))
		svc.announce(ctx, "guild_disbanded", guildID)
	} else {
		svc.logger.Info("guild left",
			zap.Int64("guild_id", guildID),
			zap.Int64("char_id", charID),
			zap.Int64("successor_id", successorID))
	}
	return nil
}

// Kick removes another member. The requester needs the kick permission and
// a strictly higher rank than the target.
func (svc *Service) Kick(ctx context.Context, guildID, requesterID, targetID int64) error {
	if requesterID == targetID {
		return fault.InvalidInput("use leave to remove yourself")
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Guild{}).Where("id = ?", guildID).
			Update("updated_at", time.Now()).Error; err != nil {
			return err
		}

		var requester model.GuildMember
		if err := tx.Where("guild_id = ? AND char_id = ?", guildID, requesterID).First(&requester).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Forbidden("character %d is not a member of guild %d", requesterID, guildID)
			}
			return err
		}
		if !requester.CanKick {
			return fault.Forbidden("rank does not permit kicking")
		}

		var target model.GuildMember
		if err := tx.Where("guild_id = ? AND char_id = ?", guildID, targetID).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.NotFound("character %d is not a member of guild %d", targetID, guildID)
			}
			return err
		}
		if target.Rank <= requester.Rank {
			return fault.Forbidden("cannot kick an equal or higher rank")
		}

		if err := tx.Where("guild_id = ? AND char_id = ?", guildID, targetID).
			Delete(&model.GuildMember{}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Guild{}).Where("id = ?", guildID).
			UpdateColumn("current_members", gorm.Expr("current_members - 1")).Error
	})
	if err != nil {
		return err
	}

	svc.invalidateDetail(ctx, guildID)
	svc.logger.Info("guild member kicked",
		zap.Int64("guild_id", guildID),
		zap.Int64("requester_id", requesterID),
		zap.Int64("target_id", targetID))
	return nil
}

// SetRank changes a member's rank. Only the leader may do it, and leadership
// itself is not assignable here — Leave handles succession, which keeps the
// single-leader invariant in one place.
func (svc *Service) SetRank(ctx context.Context, guildID, requesterID, targetID int64, rank model.GuildRank) error {
	if rank <= model.GuildRankLeader || rank > model.GuildRankRecruit {
		return fault.InvalidInput("rank must be between officer and recruit")
	}
	if requesterID == targetID {
		return fault.InvalidInput("cannot change your own rank")
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var requester model.GuildMember
		if err := tx.Where("guild_id = ? AND char_id = ?", guildID, requesterID).First(&requester).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Forbidden("character %d is not a member of guild %d", requesterID, guildID)
			}
			return err
		}
		if requester.Rank != model.GuildRankLeader {
			return fault.Forbidden("only the leader can change ranks")
		}

		res := tx.Model(&model.GuildMember{}).
			Where("guild_id = ? AND char_id = ?", guildID, targetID).
			Updates(rankColumns(rank))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fault.NotFound("character %d is not a member of guild %d", targetID, guildID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	svc.invalidateDetail(ctx, guildID)
	svc.logger.Info("guild rank changed",
		zap.Int64("guild_id", guildID),
		zap.Int64("target_id", targetID),
		zap.Stringer("rank", rank))
	return nil
}

// Deposit adds coin to the guild bank and credits the full amount to the
// depositor's lifetime and weekly contribution, all in one transaction.
func (svc *Service) Deposit(ctx context.Context, guildID, charID, amount int64) error {
	if amount <= 0 {
		return fault.InvalidInput("deposit amount must be positive")
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.GuildMember
		if err := tx.Where("guild_id = ? AND char_id = ?", guildID, charID).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Forbidden("character %d is not a member of guild %d", charID, guildID)
			}
			return err
		}

		res := tx.Model(&model.Guild{}).
			Where("id = ? AND status = ?", guildID, model.GuildStatusActive).
			UpdateColumn("coin", gorm.Expr("coin + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fault.NotFound("guild %d not found", guildID)
		}

		return tx.Model(&model.GuildMember{}).
			Where("guild_id = ? AND char_id = ?", guildID, charID).
			Updates(map[string]interface{}{
				"contribution":        gorm.Expr("contribution + ?", amount),
				"weekly_contribution": gorm.Expr("weekly_contribution + ?", amount),
			}).Error
	})
	if err != nil {
		return err
	}

	svc.invalidateDetail(ctx, guildID)
	svc.logger.Info("guild deposit",
		zap.Int64("guild_id", guildID),
		zap.Int64("char_id", charID),
		zap.Int64("amount", amount))
	return nil
}

// AddHonor adjusts a guild's honor and mirrors the new total onto the honor
// leaderboard.
func (svc *Service) AddHonor(ctx context.Context, guildID, delta int64) error {
	var honor int64
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Guild{}).
			Where("id = ? AND status = ?", guildID, model.GuildStatusActive).
			UpdateColumn("honor", gorm.Expr("honor + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fault.NotFound("guild %d not found", guildID)
		}
		var g model.Guild
		if err := tx.Select("honor").First(&g, guildID).Error; err != nil {
			return err
		}
		honor = g.Honor
		return nil
	})
	if err != nil {
		return err
	}

	if err := svc.cache.ZAdd(ctx, honorBoardKey, float64(honor), fmt.Sprintf("guild:%d", guildID)); err != nil {
		svc.logger.Warn("honor board update failed", zap.Int64("guild_id", guildID), zap.Error(err))
	}
	svc.invalidateDetail(ctx, guildID)
	return nil
}

// Get returns a guild with its members, serving from the short-TTL detail
// cache when possible. Disbanded guilds stay queryable.
func (svc *Service) Get(ctx context.Context, guildID int64) (*Detail, error) {
	key := detailKey(guildID)
	if raw, err := svc.cache.Get(ctx, key); err == nil {
		var d Detail
		if json.Unmarshal([]byte(raw), &d) == nil {
			return &d, nil
		}
	}

	var d Detail
	if err := svc.db.WithContext(ctx).First(&d.Guild, guildID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("guild %d not found", guildID)
		}
		return nil, err
	}
	if err := svc.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("`rank` ASC, contribution DESC").
		Find(&d.Members).Error; err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(&d); err == nil {
		ttl := svc.cfg.DetailCacheTTL
		if ttl <= 0 {
			ttl = 30 * time.Second
		}
		_ = svc.cache.Set(ctx, key, string(raw), ttl)
	}
	return &d, nil
}

// List returns active guilds, newest first.
func (svc *Service) List(ctx context.Context, offset, limit int) ([]model.Guild, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var guilds []model.Guild
	err := svc.db.WithContext(ctx).
		Where("status = ?", model.GuildStatusActive).
		Order("id DESC").Offset(offset).Limit(limit).
		Find(&guilds).Error
	return guilds, err
}

// TopHonor returns the top-n guild members of the honor leaderboard, best
// first, as "guild:<id>" entries.
func (svc *Service) TopHonor(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 {
		n = 10
	}
	return svc.cache.ZRevRange(ctx, honorBoardKey, 0, n-1)
}

// ResetWeeklyContributions zeroes every member's weekly counter. Driven by
// the scheduler once per configured week.
func (svc *Service) ResetWeeklyContributions(ctx context.Context) (int64, error) {
	res := svc.db.WithContext(ctx).Model(&model.GuildMember{}).
		Where("weekly_contribution <> 0").
		UpdateColumn("weekly_contribution", 0)
	if res.Error != nil {
		return 0, res.Error
	}
	svc.logger.Info("weekly contributions reset", zap.Int64("members", res.RowsAffected))
	return res.RowsAffected, nil
}

func (svc *Service) invalidateDetail(ctx context.Context, guildID int64) {
	_ = svc.cache.Del(ctx, detailKey(guildID))
}

func detailKey(guildID int64) string {
	return fmt.Sprintf("guild:detail:%d", guildID)
}

func (svc *Service) announce(ctx context.Context, event string, guildID int64) {
	if svc.pubsub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"event":    event,
		"guild_id": guildID,
	})
	if err := svc.pubsub.Publish(ctx, EventsChannel, string(payload)); err != nil {
		svc.logger.Warn("guild event publish failed", zap.String("event", event), zap.Error(err))
	}
}

// rankColumns is the column set a rank change writes: the rank itself plus
// the permission flags it derives.
func rankColumns(rank model.GuildRank) map[string]interface{} {
	p := model.PermissionsForRank(rank)
	return map[string]interface{}{
		"rank":              rank,
		"can_invite":        p.Invite,
		"can_kick":          p.Kick,
		"can_start_raid":    p.StartRaid,
		"can_start_project": p.StartProject,
		"can_manage_events": p.ManageEvents,
	}
}

// isUniqueViolation reports whether err is a unique-index violation from
// either backend (SQLite or MySQL).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}
