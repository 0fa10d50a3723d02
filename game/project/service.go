// Package project implements collective guild build projects. Progress only
// moves forward, never past the template requirement, while contributors are
// always credited the full amount they gave.
package project

import (
	"context"
	"errors"
	"time"

	"github.com/emberveil-online/guildserver/content"
	"github.com/emberveil-online/guildserver/game/fault"
	"github.com/emberveil-online/guildserver/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the project coordinator.
type Service struct {
	db       *gorm.DB
	registry *content.Registry
	logger   *zap.Logger
}

// NewService creates a project Service bound to a template registry.
func NewService(db *gorm.DB, registry *content.Registry, logger *zap.Logger) *Service {
	return &Service{db: db, registry: registry, logger: logger}
}

// Start instantiates a project from a template. A guild may run at most one
// active instance of the same project name; the check and the insert share
// one transaction.
func (svc *Service) Start(ctx context.Context, guildID int64, templateName string, level int) (*model.GuildProject, error) {
	tpl, ok := svc.registry.Project(templateName)
	if !ok {
		return nil, fault.NotFound("project template %q not found", templateName)
	}
	if level <= 0 {
		level = 1
	}
	if level > tpl.MaxLevel {
		return nil, fault.InvalidInput("project %q caps at level %d", templateName, tpl.MaxLevel)
	}

	proj := model.GuildProject{
		GuildID:          guildID,
		Name:             tpl.Name,
		Type:             tpl.Type,
		Level:            level,
		Progress:         0,
		RequiredProgress: tpl.RequiredProgress,
		Status:           model.ProjectStatusActive,
	}
	if err := proj.SetBenefits(tpl.Benefits); err != nil {
		return nil, err
	}

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Writing the guild row first makes concurrent starts for the same
		// guild serialize on its lock, so the active-instance check below
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

		var existing model.GuildProject
		err := tx.Where("guild_id = ? AND name = ? AND status = ?",
			guildID, tpl.Name, model.ProjectStatusActive).First(&existing).Error
		if err == nil {
			return fault.Conflict("project %q is already active for guild %d", tpl.Name, guildID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&proj).Error
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Info("project started",
		zap.Int64("guild_id", guildID),
		zap.String("name", tpl.Name),
		zap.Int64("required_progress", tpl.RequiredProgress))
	return &proj, nil
}

// Contribute advances a project on behalf of a member. The progress update
// and the contribution credit are one transaction. Progress is capped at the
// requirement, but the contributor is credited the full amount given —
// credit reflects effort given, not effort that was needed.
func (svc *Service) Contribute(ctx context.Context, projectID, charID, amount int64) (*model.GuildProject, error) {
	if amount <= 0 {
		return nil, fault.InvalidInput("contribution amount must be positive")
	}

	var proj model.GuildProject
	var completed bool
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&proj, projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.NotFound("project %d not found", projectID)
			}
			return err
		}
		if proj.Status != model.ProjectStatusActive {
			return fault.NotFound("project %d is not active", projectID)
		}

		var m model.GuildMember
		if err := tx.Where("guild_id = ? AND char_id = ?", proj.GuildID, charID).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Forbidden("character %d is not a member of guild %d", charID, proj.GuildID)
			}
			return err
		}

		// Ordinary advance: only lands while the project stays short of the
		// requirement afterwards. The guard is evaluated against current row
		// values under the row lock, so concurrent contributions stack
		// instead of overwriting each other.
		res := tx.Model(&model.GuildProject{}).
			Where("id = ? AND status = ? AND progress + ? < required_progress",
				projectID, model.ProjectStatusActive, amount).
			UpdateColumn("progress", gorm.Expr("progress + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Either this contribution fills the project, or a concurrent
			// caller already completed it. The capping update decides which.
			now := time.Now()
			res = tx.Model(&model.GuildProject{}).
				Where("id = ? AND status = ?", projectID, model.ProjectStatusActive).
				Updates(map[string]interface{}{
					"progress":     gorm.Expr("required_progress"),
					"status":       model.ProjectStatusCompleted,
					"completed_at": &now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fault.NotFound("project %d is not active", projectID)
			}
			completed = true
		}

		if err := tx.First(&proj, projectID).Error; err != nil {
			return err
		}

		return tx.Model(&model.GuildMember{}).
			Where("guild_id = ? AND char_id = ?", proj.GuildID, charID).
			Updates(map[string]interface{}{
				"contribution":        gorm.Expr("contribution + ?", amount),
				"weekly_contribution": gorm.Expr("weekly_contribution + ?", amount),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	if completed {
		svc.logger.Info("project completed",
			zap.Int64("project_id", projectID),
			zap.Int64("guild_id", proj.GuildID),
			zap.Int64("final_contributor", charID))
	}
	return &proj, nil
}

// Get returns a project by ID.
func (svc *Service) Get(ctx context.Context, projectID int64) (*model.GuildProject, error) {
	var proj model.GuildProject
	if err := svc.db.WithContext(ctx).First(&proj, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("project %d not found", projectID)
		}
		return nil, err
	}
	return &proj, nil
}

// ListByGuild returns a guild's projects, active first, newest first within
// each status.
func (svc *Service) ListByGuild(ctx context.Context, guildID int64) ([]model.GuildProject, error) {
	var out []model.GuildProject
	err := svc.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("status ASC, id DESC").
		Find(&out).Error
	return out, err
}
