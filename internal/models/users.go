package models

import (
	"time"

	"gorm.io/gorm"
)

// Listener is an anonymous client identified by a device fingerprint.
// Listeners are created lazily on their first websocket connection.
type Listener struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	DeviceFingerprint string    `gorm:"uniqueIndex;not null" json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	LastSeenAt        time.Time `json:"last_seen_at"`
}

// User is a named station operator for the admin API.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"not null" json:"-"` // Hidden from JSON
	Role         string         `gorm:"type:varchar(20);default:'viewer'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
