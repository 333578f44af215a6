package models

import (
	"time"
)

// Channel is a named subdivision of a garden's chat space.
// The (garden_id, name) pair is unique.
type Channel struct {
	ID        uint      `json:"_id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null;uniqueIndex:idx_channels_garden_name"`
	GardenID  uint      `json:"gardenId" gorm:"not null;uniqueIndex:idx_channels_garden_name;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
