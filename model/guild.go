package model

import (
	"strconv"
	"time"
)

// GuildRank represents a member's rank within the guild, ordered by privilege
// (lower is higher).
type GuildRank int

const (
	GuildRankLeader  GuildRank = 1
	GuildRankOfficer GuildRank = 2
	GuildRankVeteran GuildRank = 3
	GuildRankMember  GuildRank = 4
	GuildRankRecruit GuildRank = 5
)

func (r GuildRank) String() string {
	switch r {
	case GuildRankLeader:
		return "leader"
	case GuildRankOfficer:
		return "officer"
	case GuildRankVeteran:
		return "veteran"
	case GuildRankMember:
		return "member"
	case GuildRankRecruit:
		return "recruit"
	}
	return "rank(" + strconv.Itoa(int(r)) + ")"
}

// Guild lifecycle states.
const (
	GuildStatusActive    = "active"
	GuildStatusDisbanded = "disbanded"
)

// Guild represents a player guild. CurrentMembers is the store-of-record
// member counter; it is only ever changed together with membership rows
// inside the same transaction.
type Guild struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	DisplayName    string    `gorm:"size:64" json:"display_name"`
	Description    string    `gorm:"type:text" json:"description"`
	Emblem         string    `gorm:"size:64" json:"emblem"`
	Banner         string    `gorm:"size:64" json:"banner"`
	Level          int       `gorm:"default:1" json:"level"`
	Exp            int64     `gorm:"default:0" json:"exp"`
	Honor          int64     `gorm:"default:0" json:"honor"`
	Coin           int64     `gorm:"default:0" json:"coin"`
	CurrentMembers int       `gorm:"default:0" json:"current_members"`
	MaxMembers     int       `gorm:"not null" json:"max_members"`
	Status         string    `gorm:"size:16;default:active;index" json:"status"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Permissions are the per-member capability flags derived from rank.
type Permissions struct {
	Invite       bool `json:"invite"`
	Kick         bool `json:"kick"`
	StartRaid    bool `json:"start_raid"`
	StartProject bool `json:"start_project"`
	ManageEvents bool `json:"manage_events"`
}

// PermissionsForRank derives the capability flags a rank grants.
func PermissionsForRank(rank GuildRank) Permissions {
	switch rank {
	case GuildRankLeader:
		return Permissions{Invite: true, Kick: true, StartRaid: true, StartProject: true, ManageEvents: true}
	case GuildRankOfficer:
		return Permissions{Invite: true, Kick: true, StartRaid: true, ManageEvents: true}
	case GuildRankVeteran:
		return Permissions{StartRaid: true}
	default:
		return Permissions{}
	}
}

// GuildMember links a character to a guild with a rank.
// CharID carries its own unique index so a character can hold at most one
// membership across all guilds.
type GuildMember struct {
	GuildID            int64     `gorm:"primaryKey" json:"guild_id"`
	CharID             int64     `gorm:"primaryKey;uniqueIndex:idx_member_char" json:"char_id"`
	Rank               GuildRank `gorm:"default:5" json:"rank"`
	CanInvite          bool      `gorm:"default:false" json:"can_invite"`
	CanKick            bool      `gorm:"default:false" json:"can_kick"`
	CanStartRaid       bool      `gorm:"default:false" json:"can_start_raid"`
	CanStartProject    bool      `gorm:"default:false" json:"can_start_project"`
	CanManageEvents    bool      `gorm:"default:false" json:"can_manage_events"`
	Contribution       int64     `gorm:"default:0" json:"contribution"`
	WeeklyContribution int64     `gorm:"default:0" json:"weekly_contribution"`
	JoinedAt           time.Time `gorm:"autoCreateTime" json:"joined_at"`
	LastActiveAt       time.Time `gorm:"autoUpdateTime" json:"last_active_at"`
}

// ApplyRank sets the rank and the permission flags it derives.
func (m *GuildMember) ApplyRank(rank GuildRank) {
	p := PermissionsForRank(rank)
	m.Rank = rank
	m.CanInvite = p.Invite
	m.CanKick = p.Kick
	m.CanStartRaid = p.StartRaid
	m.CanStartProject = p.StartProject
	m.CanManageEvents = p.ManageEvents
}
