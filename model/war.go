package model

import "time"

// War lifecycle states.
const (
	WarStatusDeclared = "declared"
	WarStatusActive   = "active"
	WarStatusResolved = "resolved"
)

// GuildWar is a scored conflict between two guilds over a territory.
// At most one declared-or-active war may exist per unordered guild pair;
// the war coordinator checks both orderings inside its transaction.
type GuildWar struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	AttackerID    int64      `gorm:"index:idx_war_attacker;not null" json:"attacker_id"`
	DefenderID    int64      `gorm:"index:idx_war_defender;not null" json:"defender_id"`
	TerritoryID   int64      `json:"territory_id"`
	Type          string     `gorm:"size:32" json:"type"`
	Status        string     `gorm:"size:16;default:declared;index" json:"status"`
	AttackerScore int64      `gorm:"default:0" json:"attacker_score"`
	DefenderScore int64      `gorm:"default:0" json:"defender_score"`
	WinnerID      *int64     `json:"winner_id"`
	DeclaredAt    time.Time  `gorm:"autoCreateTime" json:"declared_at"`
	EndsAt        time.Time  `gorm:"not null" json:"ends_at"`
	ResolvedAt    *time.Time `json:"resolved_at"`
}
