// Package territory implements guild territory control and the derived
// resource-production schedules.
package territory

import (
	"context"
	"errors"

	"github.com/emberveil-online/guildserver/config"
	"github.com/emberveil-online/guildserver/game/fault"
	"github.com/emberveil-online/guildserver/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Base production per type at level 1; higher levels scale by
// 1 + 0.2×(level−1), floored to integers.
var baseProduction = map[model.TerritoryType]model.Production{
	model.TerritoryResource:  {Gold: 100, Materials: 50, Experience: 25},
	model.TerritoryStrategic: {Gold: 75, Materials: 75, Experience: 50},
	model.TerritoryDefensive: {Gold: 50, Materials: 100, Experience: 25},
	model.TerritoryEconomic:  {Gold: 150, Materials: 25, Experience: 25},
}

const maxLevel = 10

// Service is the territory controller.
type Service struct {
	db     *gorm.DB
	cfg    config.GuildConfig
	logger *zap.Logger
}

// NewService creates a territory Service.
func NewService(db *gorm.DB, cfg config.GuildConfig, logger *zap.Logger) *Service {
	if cfg.UpgradeCostPerLevel <= 0 {
		cfg.UpgradeCostPerLevel = 1000
	}
	return &Service{db: db, cfg: cfg, logger: logger}
}

// ProductionFor computes the yield a territory of the given type and level
// produces per cycle.
func ProductionFor(ttype model.TerritoryType, level int) (model.Production, error) {
	base, ok := baseProduction[ttype]
	if !ok {
		return model.Production{}, fault.InvalidInput("unknown territory type %q", ttype)
	}
	if level < 1 {
		return model.Production{}, fault.InvalidInput("territory level must be at least 1")
	}
	scale := 1 + 0.2*float64(level-1)
	return model.Production{
		Gold:       int(float64(base.Gold) * scale),
		Materials:  int(float64(base.Materials) * scale),
		Experience: int(float64(base.Experience) * scale),
	}, nil
}

// Claim takes control of a named territory for a guild. A guild cannot hold
// two territories of the same name; the check and the insert share one
// transaction and the composite unique index backstops races.
func (svc *Service) Claim(ctx context.Context, guildID int64, name string, ttype model.TerritoryType, coordinates string, level int) (*model.Territory, error) {
	if name == "" {
		return nil, fault.InvalidInput("territory name is required")
	}
	if level <= 0 {
		level = 1
	}
	prod, err := ProductionFor(ttype, level)
	if err != nil {
		return nil, err
	}

	terr := model.Territory{
		GuildID:     guildID,
		Name:        name,
		Type:        ttype,
		Level:       level,
		Defense:     100,
		MaxDefense:  100,
		Coordinates: coordinates,
	}
	if err := terr.SetProduction(prod); err != nil {
		return nil, err
	}

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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

		var existing model.Territory
		err := tx.Where("guild_id = ? AND name = ?", guildID, name).First(&existing).Error
		if err == nil {
			return fault.Conflict("guild %d already controls %q", guildID, name)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&terr).Error
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Info("territory claimed",
		zap.Int64("guild_id", guildID),
		zap.String("name", name),
		zap.String("type", ttype),
		zap.Int("level", level))
	return &terr, nil
}

// Release gives up a territory.
func (svc *Service) Release(ctx context.Context, guildID int64, name string) error {
	res := svc.db.WithContext(ctx).
		Where("guild_id = ? AND name = ?", guildID, name).
		Delete(&model.Territory{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fault.NotFound("guild %d does not control %q", guildID, name)
	}
	svc.logger.Info("territory released", zap.Int64("guild_id", guildID), zap.String("name", name))
	return nil
}

// Upgrade raises a territory one level, charging the guild bank and
// recomputing the production schedule. The coin check is a conditional
// update so concurrent upgrades cannot overspend the bank.
func (svc *Service) Upgrade(ctx context.Context, guildID int64, name string) (*model.Territory, error) {
	var terr model.Territory
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("guild_id = ? AND name = ?", guildID, name).First(&terr).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.NotFound("guild %d does not control %q", guildID, name)
			}
			return err
		}
		if terr.Level >= maxLevel {
			return fault.Conflict("%q is already at max level", name)
		}

		cost := svc.cfg.UpgradeCostPerLevel * int64(terr.Level)
		res := tx.Model(&model.Guild{}).
			Where("id = ? AND status = ? AND coin >= ?", guildID, model.GuildStatusActive, cost).
			UpdateColumn("coin", gorm.Expr("coin - ?", cost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fault.Conflict("guild %d cannot afford the upgrade (cost %d)", guildID, cost)
		}

		terr.Level++
		prod, err := ProductionFor(terr.Type, terr.Level)
		if err != nil {
			return err
		}
		if err := terr.SetProduction(prod); err != nil {
			return err
		}
		return tx.Model(&model.Territory{}).Where("id = ?", terr.ID).
			Updates(map[string]interface{}{
				"level":      terr.Level,
				"production": terr.Production,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Info("territory upgraded",
		zap.Int64("guild_id", guildID),
		zap.String("name", name),
		zap.Int("level", terr.Level))
	return &terr, nil
}

// ListByGuild returns all territories a guild controls.
func (svc *Service) ListByGuild(ctx context.Context, guildID int64) ([]model.Territory, error) {
	var out []model.Territory
	err := svc.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

// TotalProduction sums the production schedules of every territory a guild
// controls.
func (svc *Service) TotalProduction(ctx context.Context, guildID int64) (model.Production, error) {
	terrs, err := svc.ListByGuild(ctx, guildID)
	if err != nil {
		return model.Production{}, err
	}
	var total model.Production
	for i := range terrs {
		p, err := terrs[i].GetProduction()
		if err != nil {
			return model.Production{}, err
		}
		total = total.Add(p)
	}
	return total, nil
}
