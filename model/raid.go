package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Raid lifecycle states.
const (
	RaidStatusActive    = "active"
	RaidStatusCompleted = "completed"
	RaidStatusExpired   = "expired"
)

// Raid difficulty tiers.
const (
	RaidDifficultyEasy      = "easy"
	RaidDifficultyNormal    = "normal"
	RaidDifficultyHard      = "hard"
	RaidDifficultyNightmare = "nightmare"
	RaidDifficultyHell      = "hell"
)

// BossStats is the scaled stat snapshot computed at raid start.
type BossStats struct {
	Name    string `json:"name"`
	HP      int64  `json:"hp"`
	Attack  int64  `json:"attack"`
	Defense int64  `json:"defense"`
	Speed   int64  `json:"speed"`
}

// RewardItem is a single item entry in a reward schedule.
type RewardItem struct {
	ItemID int `json:"item_id"`
	Qty    int `json:"qty"`
}

// RewardSchedule lists what a completed raid or event pays out. The guild
// engine only exposes it; splitting it among participants belongs to the
// combat-resolution caller.
type RewardSchedule struct {
	Coin  int64        `json:"coin,omitempty"`
	Honor int64        `json:"honor,omitempty"`
	Exp   int64        `json:"exp,omitempty"`
	Items []RewardItem `json:"items,omitempty"`
}

// GuildRaid is a time-boxed cooperative encounter against a shared-HP boss.
// CurrentHP and Participants are store-of-record counters mutated only by
// the raid coordinator's transactions.
type GuildRaid struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID         int64          `gorm:"index:idx_raid_guild;not null" json:"guild_id"`
	Name            string         `gorm:"size:64;not null" json:"name"`
	Type            string         `gorm:"size:32" json:"type"`
	Level           int            `gorm:"default:1" json:"level"`
	Difficulty      string         `gorm:"size:16;default:normal" json:"difficulty"`
	Boss            datatypes.JSON `json:"boss"`
	CurrentHP       int64          `gorm:"not null" json:"current_hp"`
	MaxHP           int64          `gorm:"not null" json:"max_hp"`
	Participants    int            `gorm:"default:0" json:"participants"`
	MaxParticipants int            `gorm:"not null" json:"max_participants"`
	Rewards         datatypes.JSON `json:"rewards"`
	Status          string         `gorm:"size:16;default:active;index" json:"status"`
	StartedAt       time.Time      `gorm:"autoCreateTime" json:"started_at"`
	ExpiresAt       time.Time      `gorm:"index;not null" json:"expires_at"`
	CompletedAt     *time.Time     `json:"completed_at"`
}

// SetBoss stores the typed boss snapshot into the JSON column.
func (r *GuildRaid) SetBoss(b BossStats) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	r.Boss = datatypes.JSON(raw)
	return nil
}

// GetBoss decodes the boss snapshot.
func (r *GuildRaid) GetBoss() (BossStats, error) {
	var b BossStats
	if len(r.Boss) == 0 {
		return b, nil
	}
	err := json.Unmarshal(r.Boss, &b)
	return b, err
}

// SetRewards stores the typed reward schedule into the JSON column.
func (r *GuildRaid) SetRewards(s RewardSchedule) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.Rewards = datatypes.JSON(raw)
	return nil
}

// GetRewards decodes the reward schedule.
func (r *GuildRaid) GetRewards() (RewardSchedule, error) {
	var s RewardSchedule
	if len(r.Rewards) == 0 {
		return s, nil
	}
	err := json.Unmarshal(r.Rewards, &s)
	return s, err
}

// RaidParticipant tracks one character's contribution to a raid.
type RaidParticipant struct {
	RaidID   int64     `gorm:"primaryKey" json:"raid_id"`
	CharID   int64     `gorm:"primaryKey;index:idx_participant_char" json:"char_id"`
	Damage   int64     `gorm:"default:0" json:"damage"`
	Healing  int64     `gorm:"default:0" json:"healing"`
	Deaths   int       `gorm:"default:0" json:"deaths"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
