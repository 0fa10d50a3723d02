package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Event lifecycle states.
const (
	EventStatusScheduled = "scheduled"
	EventStatusActive    = "active"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
)

// EventRequirements gate who may sign up for an event.
type EventRequirements struct {
	MinLevel int       `json:"min_level,omitempty"`
	MinRank  GuildRank `json:"min_rank,omitempty"`
}

// GuildEvent is a scheduled guild activity with a capacity. Participants is
// the store-of-record counter; EventParticipant rows back it.
type GuildEvent struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID         int64          `gorm:"index:idx_event_guild;not null" json:"guild_id"`
	CreatorID       int64          `gorm:"not null" json:"creator_id"`
	Name            string         `gorm:"size:64;not null" json:"name"`
	Type            string         `gorm:"size:32" json:"type"`
	Description     string         `gorm:"type:text" json:"description"`
	StartsAt        time.Time      `gorm:"index;not null" json:"starts_at"`
	EndsAt          time.Time      `gorm:"not null" json:"ends_at"`
	Participants    int            `gorm:"default:0" json:"participants"`
	MaxParticipants int            `gorm:"not null" json:"max_participants"`
	Requirements    datatypes.JSON `json:"requirements"`
	Rewards         datatypes.JSON `json:"rewards"`
	Status          string         `gorm:"size:16;default:scheduled;index" json:"status"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// SetRequirements stores typed requirements into the JSON column.
func (e *GuildEvent) SetRequirements(r EventRequirements) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	e.Requirements = datatypes.JSON(raw)
	return nil
}

// GetRequirements decodes the requirements column.
func (e *GuildEvent) GetRequirements() (EventRequirements, error) {
	var r EventRequirements
	if len(e.Requirements) == 0 {
		return r, nil
	}
	err := json.Unmarshal(e.Requirements, &r)
	return r, err
}

// SetRewards stores a typed reward schedule into the JSON column.
func (e *GuildEvent) SetRewards(s RewardSchedule) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	e.Rewards = datatypes.JSON(raw)
	return nil
}

// GetRewards decodes the rewards column.
func (e *GuildEvent) GetRewards() (RewardSchedule, error) {
	var s RewardSchedule
	if len(e.Rewards) == 0 {
		return s, nil
	}
	err := json.Unmarshal(e.Rewards, &s)
	return s, err
}

// EventParticipant records one character's signup, preventing double joins.
type EventParticipant struct {
	EventID  int64     `gorm:"primaryKey" json:"event_id"`
	CharID   int64     `gorm:"primaryKey" json:"char_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
