package models

import (
	"time"
)

// Song lifecycle states. Immortal and Removed are terminal: once a song
// reaches one of them, later votes never change its status again.
const (
	StatusActive   = "active"
	StatusImmortal = "immortal"
	StatusRemoved  = "removed"
)

// Health bounds. A song whose health climbs to MaxHealth becomes immortal;
// one that sinks to MinHealth is removed from rotation.
const (
	MaxHealth = 10
	MinHealth = -10
)

// Vote directions sent by listeners.
const (
	VoteAccept = "accept"
	VoteReject = "reject"
)

// Song is one playable unit of the broadcast.
// Removed songs are tombstones: they stay in the table for history and
// statistics but are excluded from rotation and from the public playlist.
type Song struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"not null" json:"title"`
	Artist   string `gorm:"not null;index" json:"artist"`
	URI      string `json:"uri"`
	MediaID  string `gorm:"column:media_id" json:"mediaId"` // empty until resolved
	Duration int    `json:"duration"`                       // in milliseconds

	Health int    `gorm:"default:0;index" json:"health"` // -10 to +10
	Status string `gorm:"default:'active';index" json:"status"`

	TotalPlays   int `gorm:"default:0" json:"totalPlays"`
	TotalAccepts int `gorm:"default:0" json:"totalAccepts"`
	TotalRejects int `gorm:"default:0" json:"totalRejects"`

	CreatedAt    time.Time  `json:"createdAt"`
	LastPlayedAt *time.Time `json:"lastPlayedAt,omitempty"`
}

// Removed reports whether the song has been voted out of rotation.
func (s *Song) Removed() bool {
	return s.Status == StatusRemoved
}
