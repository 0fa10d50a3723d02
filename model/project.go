package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Guild project lifecycle states.
const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
)

// ProjectBenefits are the passive bonuses a completed project grants.
type ProjectBenefits struct {
	HonorPerDay   int     `json:"honor_per_day,omitempty"`
	CoinPerDay    int     `json:"coin_per_day,omitempty"`
	MemberCapPlus int     `json:"member_cap_plus,omitempty"`
	ExpMultiplier float64 `json:"exp_multiplier,omitempty"`
}

// GuildProject is a long-running collective build instantiated from a
// template. Progress only moves forward and never exceeds RequiredProgress.
type GuildProject struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID          int64          `gorm:"index:idx_project_guild;not null" json:"guild_id"`
	Name             string         `gorm:"size:64;not null" json:"name"`
	Type             string         `gorm:"size:32" json:"type"`
	Level            int            `gorm:"default:1" json:"level"`
	Progress         int64          `gorm:"default:0" json:"progress"`
	RequiredProgress int64          `gorm:"not null" json:"required_progress"`
	Benefits         datatypes.JSON `json:"benefits"`
	Status           string         `gorm:"size:16;default:active;index" json:"status"`
	StartedAt        time.Time      `gorm:"autoCreateTime" json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at"`
}

// SetBenefits stores typed benefits into the JSON column.
func (p *GuildProject) SetBenefits(b ProjectBenefits) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	p.Benefits = datatypes.JSON(raw)
	return nil
}

// GetBenefits decodes the JSON column back into typed benefits.
func (p *GuildProject) GetBenefits() (ProjectBenefits, error) {
	var b ProjectBenefits
	if len(p.Benefits) == 0 {
		return b, nil
	}
	err := json.Unmarshal(p.Benefits, &b)
	return b, err
}
