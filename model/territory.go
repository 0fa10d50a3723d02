package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// TerritoryType categorizes what a territory is good for.
type TerritoryType = string

const (
	TerritoryResource  TerritoryType = "resource"
	TerritoryStrategic TerritoryType = "strategic"
	TerritoryDefensive TerritoryType = "defensive"
	TerritoryEconomic  TerritoryType = "economic"
)

// Production is the per-cycle resource yield of a territory.
type Production struct {
	Gold       int `json:"gold"`
	Materials  int `json:"materials"`
	Experience int `json:"experience"`
}

// Add returns the element-wise sum of two yields.
func (p Production) Add(o Production) Production {
	return Production{
		Gold:       p.Gold + o.Gold,
		Materials:  p.Materials + o.Materials,
		Experience: p.Experience + o.Experience,
	}
}

// Territory is a map region owned by exactly one guild. The production
// schedule is derived from type and level and recomputed on upgrade; it is
// stored as JSON only at the table boundary.
type Territory struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID     int64          `gorm:"uniqueIndex:idx_territory_guild_name;not null" json:"guild_id"`
	Name        string         `gorm:"uniqueIndex:idx_territory_guild_name;size:64;not null" json:"name"`
	Type        TerritoryType  `gorm:"size:16;not null" json:"type"`
	Level       int            `gorm:"default:1" json:"level"`
	Defense     int            `gorm:"default:100" json:"defense"`
	MaxDefense  int            `gorm:"default:100" json:"max_defense"`
	Production  datatypes.JSON `json:"production"`
	Coordinates string         `gorm:"size:32" json:"coordinates"`
	ClaimedAt   time.Time      `gorm:"autoCreateTime" json:"claimed_at"`
}

// SetProduction stores a typed yield into the JSON column.
func (t *Territory) SetProduction(p Production) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	t.Production = datatypes.JSON(raw)
	return nil
}

// GetProduction decodes the JSON column back into a typed yield.
func (t *Territory) GetProduction() (Production, error) {
	var p Production
	if len(t.Production) == 0 {
		return p, nil
	}
	err := json.Unmarshal(t.Production, &p)
	return p, err
}
