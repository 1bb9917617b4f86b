// Package store is the durability boundary of the radio. The engine talks to
// a Store and never cares whether rows land in Postgres, SQLite, or plain
// maps; the backend is chosen once at startup.
package store

import (
	"time"

	database "github.com/whisper-Tech/DNA-radio/internal/db"
	"github.com/whisper-Tech/DNA-radio/internal/models"
)

// Stats is the aggregate summary served by the admin API.
type Stats struct {
	TotalSongs    int64 `json:"totalSongs"`
	ActiveSongs   int64 `json:"activeSongs"`
	ImmortalSongs int64 `json:"immortalSongs"`
	RemovedSongs  int64 `json:"removedSongs"`
	TotalPlays    int64 `json:"totalPlays"`
	TotalVotes    int64 `json:"totalVotes"`
}

// Store persists songs, play records, votes, and listeners.
//
// In-memory engine state is the source of truth for live behavior: callers
// log Store errors and carry on, they never roll back an applied mutation
// because a write failed here.
type Store interface {
	// Songs
	ActiveSongs() ([]models.Song, error)
	AllSongs() ([]models.Song, error)
	CreateSong(song *models.Song) error
	UpdateSong(id string, updates map[string]any) error
	MarkPlayed(songID string, at time.Time) error

	// Play records
	CreatePlay(play *models.PlayRecord) error
	UpdatePlayTallies(playID string, accepts, rejects, netScore int) error
	RecentPlays(limit int) ([]models.PlayRecord, error)

	// Votes
	HasVoted(listenerID, playID string) (bool, error)
	CreateVote(vote *models.Vote) error
	CountVotesForPlay(playID string) (accepts, rejects int, err error)

	// Listeners
	GetOrCreateListener(fingerprint string) (*models.Listener, error)

	// Operators
	CreateUser(user *models.User) error
	// GetUser returns (nil, nil) when no such user exists.
	GetUser(username string) (*models.User, error)

	// Admin
	SongStats() (Stats, error)

	// Durable reports whether state survives a restart.
	Durable() bool
}

// New selects the backend: a database-backed store when a connection exists,
// otherwise the in-memory fallback.
func New(client *database.Client) Store {
	if client == nil {
		return NewMemory()
	}
	return &gormStore{db: client.DB}
}
