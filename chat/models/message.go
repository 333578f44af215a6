package models

import (
	"time"
)

// MaxContentLength bounds message content, measured in runes
const MaxContentLength = 3000

// Message is a single chat message. The author fields are a snapshot taken
// at send time: historical messages keep displaying the username and avatar
// color as they were when sent, even if the user changes them later.
type Message struct {
	ID                uint      `json:"_id" gorm:"primaryKey"`
	Content           string    `json:"content" gorm:"size:3000;not null"`
	AuthorID          uint      `json:"author_id" gorm:"not null;index"`
	AuthorUsername    string    `json:"author_username" gorm:"not null"`
	AuthorAvatarColor string    `json:"author_avatar_color"`
	ChannelID         uint      `json:"channel_id" gorm:"not null;index"`
	Channel           Channel   `json:"channel" gorm:"foreignKey:ChannelID"`
	GardenID          uint      `json:"garden_id" gorm:"not null;index"`
	CreatedAt         time.Time `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time `json:"updated_at"`
}
