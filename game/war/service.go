// Package war implements scored conflicts between guilds over territory.
// At most one declared-or-active war exists per unordered guild pair; the
// declaration path serializes on a short cache lock and checks both
// orderings inside the transaction.
package war

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emberveil-online/guildserver/cache"
	"github.com/emberveil-online/guildserver/config"
	"github.com/emberveil-online/guildserver/game/fault"
	"github.com/emberveil-online/guildserver/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HonorAwarder credits honor to a guild. The guild registry satisfies it.
type HonorAwarder interface {
	AddHonor(ctx context.Context, guildID, delta int64) error
}

// Service is the war coordinator.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	cfg    config.GuildConfig
	honor  HonorAwarder
	logger *zap.Logger
}

// NewService creates a war Service.
func NewService(db *gorm.DB, c cache.Cache, cfg config.GuildConfig, honor HonorAwarder, logger *zap.Logger) *Service {
	if cfg.WarLockTTL <= 0 {
		cfg.WarLockTTL = 10 * time.Second
	}
	return &Service{db: db, cache: c, cfg: cfg, honor: honor, logger: logger}
}

// pairLockKey is order-independent: the smaller guild ID always comes first,
// so Declare(A,B) and Declare(B,A) contend on the same lock.
func pairLockKey(a, b int64) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("lock:war:%d_%d", a, b)
}

// Declare opens a war between two guilds. The cache lock serializes racing
// declarations for the same pair; the both-orderings query inside the
// transaction is the actual uniqueness guard.
func (svc *Service) Declare(ctx context.Context, attackerID, defenderID int64, wtype string, territoryID int64, duration time.Duration) (*model.GuildWar, error) {
	if attackerID == defenderID {
		return nil, fault.InvalidInput("a guild cannot declare war on itself")
	}
	if duration <= 0 {
		return nil, fault.InvalidInput("war duration must be positive")
	}

	lockKey := pairLockKey(attackerID, defenderID)
	ok, err := svc.cache.SetNX(ctx, lockKey, "1", svc.cfg.WarLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fault.Conflict("a war declaration between guilds %d and %d is already in flight", attackerID, defenderID)
	}
	defer func() {
		if err := svc.cache.Del(context.Background(), lockKey); err != nil {
			svc.logger.Warn("war pair lock release failed", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	war := model.GuildWar{
		AttackerID:  attackerID,
		DefenderID:  defenderID,
		TerritoryID: territoryID,
		Type:        wtype,
		Status:      model.WarStatusDeclared,
		EndsAt:      time.Now().Add(duration),
	}
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range []int64{attackerID, defenderID} {
			var g model.Guild
			if err := tx.First(&g, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fault.NotFound("guild %d not found", id)
				}
				return err
			}
			if g.Status != model.GuildStatusActive {
				return fault.NotFound("guild %d not found", id)
			}
		}

		if territoryID != 0 {
			var terr model.Territory
			if err := tx.First(&terr, territoryID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fault.NotFound("territory %d not found", territoryID)
				}
				return err
			}
			if terr.GuildID != defenderID {
				return fault.InvalidInput("territory %d is not held by guild %d", territoryID, defenderID)
			}
		}

		var existing model.GuildWar
		err := tx.Where(
			"((attacker_id = ? AND defender_id = ?) OR (attacker_id = ? AND defender_id = ?)) AND status IN ?",
			attackerID, defenderID, defenderID, attackerID,
			[]string{model.WarStatusDeclared, model.WarStatusActive},
		).First(&existing).Error
		if err == nil {
			return fault.Conflict("guilds %d and %d are already at war", attackerID, defenderID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&war).Error
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Info("war declared",
		zap.Int64("war_id", war.ID),
		zap.Int64("attacker_id", attackerID),
		zap.Int64("defender_id", defenderID),
		zap.Int64("territory_id", territoryID))
	return &war, nil
}

// Activate moves a declared war into its active scoring phase.
func (svc *Service) Activate(ctx context.Context, warID int64) error {
	res := svc.db.WithContext(ctx).Model(&model.GuildWar{}).
		Where("id = ? AND status = ?", warID, model.WarStatusDeclared).
		UpdateColumn("status", model.WarStatusActive)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fault.NotFound("war %d is not in declared state", warID)
	}
	return nil
}

// AddScore credits battle points to one side of an active war.
func (svc *Service) AddScore(ctx context.Context, warID, guildID, points int64) error {
	if points <= 0 {
		return fault.InvalidInput("score points must be positive")
	}
	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w model.GuildWar
		if err := tx.First(&w, warID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.NotFound("war %d not found", warID)
			}
			return err
		}
		if w.Status != model.WarStatusActive {
			return fault.NotFound("war %d is not active", warID)
		}

		var column string
		switch guildID {
		case w.AttackerID:
			column = "attacker_score"
		case w.DefenderID:
			column = "defender_score"
		default:
			return fault.Forbidden("guild %d is not a party to war %d", guildID, warID)
		}
		return tx.Model(&model.GuildWar{}).Where("id = ?", warID).
			UpdateColumn(column, gorm.Expr(column+" + ?", points)).Error
	})
}

// Resolve closes an active war. The higher score wins; on a tie the
// defender holds. The winner takes the contested territory in the same
// transaction, then gets honor credited afterwards.
func (svc *Service) Resolve(ctx context.Context, warID int64) (*model.GuildWar, error) {
	var w model.GuildWar
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&w, warID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.NotFound("war %d not found", warID)
			}
			return err
		}
		if w.Status != model.WarStatusActive {
			return fault.NotFound("war %d is not active", warID)
		}

		winnerID := w.DefenderID
		if w.AttackerScore > w.DefenderScore {
			winnerID = w.AttackerID
		}

		now := time.Now()
		if err := tx.Model(&model.GuildWar{}).Where("id = ?", warID).
			Updates(map[string]interface{}{
				"status":      model.WarStatusResolved,
				"winner_id":   winnerID,
				"resolved_at": &now,
			}).Error; err != nil {
			return err
		}
		w.Status = model.WarStatusResolved
		w.WinnerID = &winnerID
		w.ResolvedAt = &now

		if w.TerritoryID != 0 && winnerID == w.AttackerID {
			if err := tx.Model(&model.Territory{}).
				Where("id = ? AND guild_id = ?", w.TerritoryID, w.DefenderID).
				UpdateColumn("guild_id", winnerID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := svc.honor.AddHonor(ctx, *w.WinnerID, svc.cfg.WarHonorReward); err != nil {
		svc.logger.Warn("war honor credit failed",
			zap.Int64("war_id", warID),
			zap.Int64("winner_id", *w.WinnerID),
			zap.Error(err))
	}

	svc.logger.Info("war resolved",
		zap.Int64("war_id", warID),
		zap.Int64("winner_id", *w.WinnerID),
		zap.Int64("attacker_score", w.AttackerScore),
		zap.Int64("defender_score", w.DefenderScore))
	return &w, nil
}

// Get returns a war by ID.
func (svc *Service) Get(ctx context.Context, warID int64) (*model.GuildWar, error) {
	var w model.GuildWar
	if err := svc.db.WithContext(ctx).First(&w, warID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("war %d not found", warID)
		}
		return nil, err
	}
	return &w, nil
}

// ListActive returns declared and active wars involving a guild, or all of
// them when guildID is zero.
func (svc *Service) ListActive(ctx context.Context, guildID int64) ([]model.GuildWar, error) {
	q := svc.db.WithContext(ctx).
		Where("status IN ?", []string{model.WarStatusDeclared, model.WarStatusActive})
	if guildID != 0 {
		q = q.Where("attacker_id = ? OR defender_id = ?", guildID, guildID)
	}
	var out []model.GuildWar
	err := q.Order("id DESC").Find(&out).Error
	return out, err
}
