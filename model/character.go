package model

import "time"

// Character is the minimal identity row the guild engine needs. Characters
// are created and validated by the account/session layer; the engine only
// checks existence and reads display fields.
type Character struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Level     int       `gorm:"default:1" json:"level"`
	Gold      int64     `gorm:"default:0" json:"gold"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
