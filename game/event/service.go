// Package event implements scheduled guild activities with capacity-guarded
// signups. Creation is gated on the CanManageEvents flag derived from rank.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/emberveil-online/guildserver/game/fault"
	"github.com/emberveil-online/guildserver/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the event scheduler.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates an event Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Create schedules a new event. Only members holding the manage-events
// capability (leader and officer ranks) may create one.
func (svc *Service) Create(ctx context.Context, guildID, creatorID int64, name, etype, description string, startsAt, endsAt time.Time, maxParticipants int, reqs model.EventRequirements, rewards model.RewardSchedule) (*model.GuildEvent, error) {
	if name == "" {
		return nil, fault.InvalidInput("event name must not be empty")
	}
	if !endsAt.After(startsAt) {
		return nil, fault.InvalidInput("event must end after it starts")
	}
	if maxParticipants <= 0 {
		return nil, fault.InvalidInput("event capacity must be positive")
	}

	ev := model.GuildEvent{
		GuildID:         guildID,
		CreatorID:       creatorID,
		Name:            name,
		Type:            etype,
		Description:     description,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		MaxParticipants: maxParticipants,
		Status:          model.EventStatusScheduled,
	}
	if err := ev.SetRequirements(reqs); err != nil {
		return nil, err
	}
	if err := ev.SetRewards(rewards); err != nil {
		return nil, err
	}

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		creator, err := loadMember(tx, guildID, creatorID)
		if err != nil {
			return err
		}
		if !creator.CanManageEvents {
			return fault.Forbidden("character %d may not manage events for guild %d", creatorID, guildID)
		}
		return tx.Create(&ev).Error
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Info("event created",
		zap.Int64("event_id", ev.ID),
		zap.Int64("guild_id", guildID),
		zap.String("name", name),
		zap.Time("starts_at", startsAt))
	return &ev, nil
}

// Join signs a member up for an event. The slot is reserved with a
// conditional counter increment; the participant row doubles as the
// double-join guard.
func (svc *Service) Join(ctx context.Context, eventID, charID int64) (*model.EventParticipant, error) {
	var p model.EventParticipant
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev model.GuildEvent
		if err := tx.First(&ev, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.NotFound("event %d not found", eventID)
			}
			return err
		}
		if ev.Status != model.EventStatusScheduled && ev.Status != model.EventStatusActive {
			return fault.NotFound("event %d is not open", eventID)
		}

		m, err := loadMember(tx, ev.GuildID, charID)
		if err != nil {
			return err
		}

		reqs, err := ev.GetRequirements()
		if err != nil {
			return err
		}
		if reqs.MinRank != 0 && m.Rank > reqs.MinRank {
			return fault.Forbidden("event %d requires rank %s or better", eventID, reqs.MinRank)
		}

		var existing model.EventParticipant
		err = tx.Where("event_id = ? AND char_id = ?", eventID, charID).First(&existing).Error
		if err == nil {
			return fault.Conflict("character %d already joined event %d", charID, eventID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		res := tx.Model(&model.GuildEvent{}).
			Where("id = ? AND participants < max_participants", eventID).
			UpdateColumn("participants", gorm.Expr("participants + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fault.Conflict("event %d is full", eventID)
		}

		p = model.EventParticipant{EventID: eventID, CharID: charID}
		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Cancel withdraws a scheduled or active event. Allowed for the creator and
// for members holding the manage-events capability.
func (svc *Service) Cancel(ctx context.Context, eventID, charID int64) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev model.GuildEvent
		if err := tx.First(&ev, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.NotFound("event %d not found", eventID)
			}
			return err
		}
		if ev.Status != model.EventStatusScheduled && ev.Status != model.EventStatusActive {
			return fault.NotFound("event %d is not open", eventID)
		}

		if ev.CreatorID != charID {
			m, err := loadMember(tx, ev.GuildID, charID)
			if err != nil {
				return err
			}
			if !m.CanManageEvents {
				return fault.Forbidden("character %d may not cancel event %d", charID, eventID)
			}
		}

		return tx.Model(&model.GuildEvent{}).Where("id = ?", eventID).
			UpdateColumn("status", model.EventStatusCancelled).Error
	})
	if err != nil {
		return err
	}

	svc.logger.Info("event cancelled",
		zap.Int64("event_id", eventID),
		zap.Int64("cancelled_by", charID))
	return nil
}

// Get returns an event by ID.
func (svc *Service) Get(ctx context.Context, eventID int64) (*model.GuildEvent, error) {
	var ev model.GuildEvent
	if err := svc.db.WithContext(ctx).First(&ev, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("event %d not found", eventID)
		}
		return nil, err
	}
	return &ev, nil
}

// ListUpcoming returns a guild's scheduled events that have not ended yet,
// soonest first.
func (svc *Service) ListUpcoming(ctx context.Context, guildID int64) ([]model.GuildEvent, error) {
	var out []model.GuildEvent
	err := svc.db.WithContext(ctx).
		Where("guild_id = ? AND status = ? AND ends_at > ?",
			guildID, model.EventStatusScheduled, time.Now()).
		Order("starts_at ASC").
		Find(&out).Error
	return out, err
}

// Participants returns an event's signup roster in join order.
func (svc *Service) Participants(ctx context.Context, eventID int64) ([]model.EventParticipant, error) {
	var out []model.EventParticipant
	err := svc.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("joined_at ASC").
		Find(&out).Error
	return out, err
}

func loadMember(tx *gorm.DB, guildID, charID int64) (*model.GuildMember, error) {
	var m model.GuildMember
	if err := tx.Where("guild_id = ? AND char_id = ?", guildID, charID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.Forbidden("character %d is not a member of guild %d", charID, guildID)
		}
		return nil, err
	}
	return &m, nil
}
