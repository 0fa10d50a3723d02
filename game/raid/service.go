// Package raid implements time-boxed cooperative boss encounters. The boss
// HP pool and the participant roster live in the raid row; every mutation is
// a conditional update so concurrent strikes and joins stay consistent.
package raid

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/emberveil-online/guildserver/config"
	"github.com/emberveil-online/guildserver/content"
	"github.com/emberveil-online/guildserver/game/fault"
	"github.com/emberveil-online/guildserver/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var difficultyMultiplier = map[string]float64{
	model.RaidDifficultyEasy:      1.0,
	model.RaidDifficultyNormal:    1.5,
	model.RaidDifficultyHard:      2.0,
	model.RaidDifficultyNightmare: 3.0,
	model.RaidDifficultyHell:      4.0,
}

// ScaleBoss computes the boss snapshot for a template at the given level and
// difficulty. Each stat is base × difficulty × (1 + 0.3×(level-1)), floored.
func ScaleBoss(tpl content.RaidTemplate, level int, difficulty string) (model.BossStats, error) {
	mult, ok := difficultyMultiplier[difficulty]
	if !ok {
		return model.BossStats{}, fault.InvalidInput("unknown raid difficulty %q", difficulty)
	}
	if level < 1 {
		return model.BossStats{}, fault.InvalidInput("raid level must be at least 1")
	}
	scale := mult * (1 + 0.3*float64(level-1))
	b := tpl.BaseStats
	return model.BossStats{
		Name:    tpl.BossName,
		HP:      int64(float64(b.HP) * scale),
		Attack:  int64(float64(b.Attack) * scale),
		Defense: int64(float64(b.Defense) * scale),
		Speed:   int64(float64(b.Speed) * scale),
	}, nil
}

// DamageResult is what DamageBoss reports back to the combat-resolution
// caller. Rewards and Participants are populated only when this strike
// killed the boss; splitting the schedule among them is the caller's job.
type DamageResult struct {
	Raid         *model.GuildRaid
	Killed       bool
	Rewards      model.RewardSchedule
	Participants []model.RaidParticipant
}

// Service is the raid coordinator.
type Service struct {
	db       *gorm.DB
	registry *content.Registry
	cfg      config.GuildConfig
	logger   *zap.Logger
}

// NewService creates a raid Service.
func NewService(db *gorm.DB, registry *content.Registry, cfg config.GuildConfig, logger *zap.Logger) *Service {
	return &Service{db: db, registry: registry, cfg: cfg, logger: logger}
}

// Start instantiates a raid from a template. A guild runs at most one active
// raid at a time.
func (svc *Service) Start(ctx context.Context, guildID int64, templateName string, level int, difficulty string) (*model.GuildRaid, error) {
	tpl, ok := svc.registry.Raid(templateName)
	if !ok {
		return nil, fault.NotFound("raid template %q not found", templateName)
	}
	if difficulty == "" {
		difficulty = model.RaidDifficultyNormal
	}
	difficulty = strings.ToLower(difficulty)
	if level <= 0 {
		level = 1
	}
	boss, err := ScaleBoss(tpl, level, difficulty)
	if err != nil {
		return nil, err
	}

	raid := model.GuildRaid{
		GuildID:         guildID,
		Name:            tpl.Name,
		Type:            tpl.Type,
		Level:           level,
		Difficulty:      difficulty,
		CurrentHP:       boss.HP,
		MaxHP:           boss.HP,
		MaxParticipants: tpl.MaxParticipants,
		Status:          model.RaidStatusActive,
		ExpiresAt:       time.Now().Add(svc.cfg.RaidDuration),
	}
	if err := raid.SetBoss(boss); err != nil {
		return nil, err
	}
	if err := raid.SetRewards(tpl.Rewards); err != nil {
		return nil, err
	}

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Writing the guild row first makes concurrent starts for the same
		// guild serialize on its lock, so the one-active-raid check below
		// runs against committed state.
		if err := tx.Model(&model.Guild{}).Where("id = ?", guildID).
			Update("updated_at", time.Now()).Error; err != nil {
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

		var active model.GuildRaid
		err := tx.Where("guild_id = ? AND status = ?", guildID, model.RaidStatusActive).
			First(&active).Error
		if err == nil {
			return fault.Conflict("guild %d already has an active raid", guildID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&raid).Error
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Info("raid started",
		zap.Int64("guild_id", guildID),
		zap.String("name", tpl.Name),
		zap.String("difficulty", difficulty),
		zap.Int64("boss_hp", boss.HP))
	return &raid, nil
}

// Join adds a guild member to the raid roster. The slot is reserved with a
// conditional counter increment so concurrent joins never exceed the cap.
// A raid past its expiry refuses joins even before the sweeper reaps it.
func (svc *Service) Join(ctx context.Context, raidID, charID int64) (*model.RaidParticipant, error) {
	var p model.RaidParticipant
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		raid, err := svc.loadActive(tx, raidID)
		if err != nil {
			return err
		}

		var m model.GuildMember
		if err := tx.Where("guild_id = ? AND char_id = ?", raid.GuildID, charID).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Forbidden("character %d is not a member of guild %d", charID, raid.GuildID)
			}
			return err
		}

		var existing model.RaidParticipant
		err = tx.Where("raid_id = ? AND char_id = ?", raidID, charID).First(&existing).Error
		if err == nil {
			return fault.Conflict("character %d already joined raid %d", charID, raidID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		res := tx.Model(&model.GuildRaid{}).
			Where("id = ? AND status = ? AND participants < max_participants",
				raidID, model.RaidStatusActive).
			UpdateColumn("participants", gorm.Expr("participants + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fault.Conflict("raid %d is full", raidID)
		}

		p = model.RaidParticipant{RaidID: raidID, CharID: charID}
		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DamageBoss applies a strike from a participant. The boss HP never goes
// below zero; the strike that empties the pool flips the raid to completed
// and returns the reward schedule plus the final roster for the caller to
// resolve.
func (svc *Service) DamageBoss(ctx context.Context, raidID, charID, damage int64) (*DamageResult, error) {
	if damage <= 0 {
		return nil, fault.InvalidInput("damage must be positive")
	}

	res := &DamageResult{}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		raid, err := svc.loadActive(tx, raidID)
		if err != nil {
			return err
		}

		var part model.RaidParticipant
		if err := tx.Where("raid_id = ? AND char_id = ?", raidID, charID).First(&part).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Forbidden("character %d has not joined raid %d", charID, raidID)
			}
			return err
		}

		// Ordinary strike: only lands while the boss survives it.
		upd := tx.Model(&model.GuildRaid{}).
			Where("id = ? AND status = ? AND current_hp > ?", raidID, model.RaidStatusActive, damage).
			UpdateColumn("current_hp", gorm.Expr("current_hp - ?", damage))
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			// Killing blow: empty the pool and close the raid, but only if a
			// concurrent strike has not already done so.
			now := time.Now()
			kill := tx.Model(&model.GuildRaid{}).
				Where("id = ? AND status = ? AND current_hp > 0", raidID, model.RaidStatusActive).
				Updates(map[string]interface{}{
					"current_hp":   0,
					"status":       model.RaidStatusCompleted,
					"completed_at": &now,
				})
			if kill.Error != nil {
				return kill.Error
			}
			if kill.RowsAffected == 0 {
				return fault.NotFound("raid %d is not active", raidID)
			}
			res.Killed = true
		}

		if err := tx.Model(&model.RaidParticipant{}).
			Where("raid_id = ? AND char_id = ?", raidID, charID).
			UpdateColumn("damage", gorm.Expr("damage + ?", damage)).Error; err != nil {
			return err
		}

		if err := tx.First(raid, raidID).Error; err != nil {
			return err
		}
		res.Raid = raid

		if res.Killed {
			rewards, err := raid.GetRewards()
			if err != nil {
				return err
			}
			res.Rewards = rewards
			return tx.Where("raid_id = ?", raidID).
				Order("damage DESC").
				Find(&res.Participants).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Killed {
		svc.logger.Info("raid boss defeated",
			zap.Int64("raid_id", raidID),
			zap.Int64("guild_id", res.Raid.GuildID),
			zap.Int64("killing_blow_by", charID),
			zap.Int("participants", len(res.Participants)))
	}
	return res, nil
}

// RecordHealing credits healing done by a participant.
func (svc *Service) RecordHealing(ctx context.Context, raidID, charID, amount int64) error {
	if amount <= 0 {
		return fault.InvalidInput("healing amount must be positive")
	}
	return svc.recordStat(ctx, raidID, charID, "healing", gorm.Expr("healing + ?", amount))
}

// RecordDeath increments a participant's death count.
func (svc *Service) RecordDeath(ctx context.Context, raidID, charID int64) error {
	return svc.recordStat(ctx, raidID, charID, "deaths", gorm.Expr("deaths + 1"))
}

func (svc *Service) recordStat(ctx context.Context, raidID, charID int64, column string, expr interface{}) error {
	res := svc.db.WithContext(ctx).Model(&model.RaidParticipant{}).
		Where("raid_id = ? AND char_id = ?", raidID, charID).
		UpdateColumn(column, expr)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fault.NotFound("character %d has not joined raid %d", charID, raidID)
	}
	return nil
}

// Get returns a raid by ID.
func (svc *Service) Get(ctx context.Context, raidID int64) (*model.GuildRaid, error) {
	var raid model.GuildRaid
	if err := svc.db.WithContext(ctx).First(&raid, raidID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("raid %d not found", raidID)
		}
		return nil, err
	}
	return &raid, nil
}

// ListByGuild returns a guild's raids, newest first.
func (svc *Service) ListByGuild(ctx context.Context, guildID int64) ([]model.GuildRaid, error) {
	var out []model.GuildRaid
	err := svc.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("id DESC").
		Find(&out).Error
	return out, err
}

// Participants returns the raid roster ordered by damage dealt.
func (svc *Service) Participants(ctx context.Context, raidID int64) ([]model.RaidParticipant, error) {
	var out []model.RaidParticipant
	err := svc.db.WithContext(ctx).
		Where("raid_id = ?", raidID).
		Order("damage DESC").
		Find(&out).Error
	return out, err
}

// SweepExpired flips every active raid past its deadline to expired. The
// scheduler runs this on a ticker; callers also refuse expired raids lazily,
// so a late sweep never admits a join or a strike.
func (svc *Service) SweepExpired(ctx context.Context) (int64, error) {
	res := svc.db.WithContext(ctx).Model(&model.GuildRaid{}).
		Where("status = ? AND expires_at <= ?", model.RaidStatusActive, time.Now()).
		UpdateColumn("status", model.RaidStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		svc.logger.Info("expired raids swept", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// loadActive fetches a raid and enforces active status, expiring it lazily
// when the deadline has passed.
func (svc *Service) loadActive(tx *gorm.DB, raidID int64) (*model.GuildRaid, error) {
	var raid model.GuildRaid
	if err := tx.First(&raid, raidID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("raid %d not found", raidID)
		}
		return nil, err
	}
	if raid.Status == model.RaidStatusActive && time.Now().After(raid.ExpiresAt) {
		if err := tx.Model(&model.GuildRaid{}).
			Where("id = ? AND status = ?", raidID, model.RaidStatusActive).
			UpdateColumn("status", model.RaidStatusExpired).Error; err != nil {
			return nil, err
		}
		raid.Status = model.RaidStatusExpired
	}
	if raid.Status != model.RaidStatusActive {
		return nil, fault.NotFound("raid %d is not active", raidID)
	}
	return &raid, nil
}
