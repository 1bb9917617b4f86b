package models

import "time"

// PlayRecord is one play instance of a song. A new record is created on
// every advancement; its tally fields are updated live while the play is
// running and are left alone once the next advancement begins.
type PlayRecord struct {
	ID         string `gorm:"primaryKey" json:"id"`
	SongID     string `gorm:"not null;index" json:"songId"`
	PlayNumber int    `gorm:"not null" json:"playNumber"`

	StartedAt       time.Time `gorm:"index" json:"startedAt"`
	AcceptsThisPlay int       `gorm:"default:0" json:"acceptsThisPlay"`
	RejectsThisPlay int       `gorm:"default:0" json:"rejectsThisPlay"`
	NetScoreAfter   int       `gorm:"not null" json:"netScoreAfter"`
	ListenerCount   int       `gorm:"default:0" json:"listenerCount"`
}

// Vote is a single listener's verdict on a specific play of a song.
// At most one vote per (listener, play) pair is ever recorded.
type Vote struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	ListenerID string    `gorm:"not null;index;uniqueIndex:votes_listener_play" json:"listenerId"`
	SongID     string    `gorm:"not null;index" json:"songId"`
	PlayID     string    `gorm:"not null;index;uniqueIndex:votes_listener_play" json:"playId"`
	Type       string    `gorm:"not null" json:"type"` // 'accept' | 'reject'
	VotedAt    time.Time `json:"votedAt"`
}
